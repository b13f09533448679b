// Package catalog resolves the callable names used in manifests to
// *target.Method handles. Every name maps to one handle for the life of the
// catalog, so the same name always denotes the same target or patch.
//
// Callables backed by real Go functions are registered up front. Any other
// name is declared on first use as a body-less placeholder, which is enough
// to plan and inspect patch order.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/patchbay/pkg/target"
)

// ErrFactoryMismatch is returned when a name is used both as a factory and as
// a plain callable.
var ErrFactoryMismatch = errors.New("callable declared both as factory and as plain callable")

// Catalog holds all the declared callables.
type Catalog struct {
	mu  sync.Mutex
	all map[string]*target.Method
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{all: make(map[string]*target.Method)}
}

// Register adds a Go function under name. It panics if name is taken.
func (c *Catalog) Register(name string, fn any) *target.Method {
	return c.register(name, target.Declare(name, fn))
}

// RegisterFactory adds a factory under name. fn must have the factory shape
// `func(*target.Method) *target.Generated`.
func (c *Catalog) RegisterFactory(name string, fn func(*target.Method) *target.Generated) *target.Method {
	return c.register(name, target.Declare(name, fn))
}

func (c *Catalog) register(name string, m *target.Method) *target.Method {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.all[name]; exists {
		panic(fmt.Sprintf("callable with name '%s' already registered", name))
	}
	slog.Debug("Registering callable.", "name", name, "factory", target.IsFactory(m))
	c.all[name] = m
	return m
}

// Target returns the handle of the target callable name, declaring a
// placeholder if needed.
func (c *Catalog) Target(name string) *target.Method {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.all[name]; ok {
		return m
	}
	m := target.Declare(name, nil)
	c.all[name] = m
	return m
}

// Method returns the handle of the patch callable name. With factory set, a
// missing name is declared as a factory generating one placeholder callable
// per target. An existing name must agree on factory.
func (c *Catalog) Method(name string, factory bool) (*target.Method, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.all[name]; ok {
		if target.IsFactory(m) != factory {
			return nil, fmt.Errorf("%q: %w", name, ErrFactoryMismatch)
		}
		return m, nil
	}
	var m *target.Method
	if factory {
		m = target.Declare(name, placeholderFactory(name))
	} else {
		m = target.Declare(name, nil)
	}
	c.all[name] = m
	return m, nil
}

// Lookup returns the handle of name if it has been declared.
func (c *Catalog) Lookup(name string) (*target.Method, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.all[name]
	return m, ok
}

// Names lists every declared name in lexical order.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.all))
	for n := range c.all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func placeholderFactory(name string) func(*target.Method) *target.Generated {
	return func(original *target.Method) *target.Generated {
		return target.Generate(name+"@"+original.Name(), nil)
	}
}
