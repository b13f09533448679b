// Package discovery publishes values under well-known names in a namespace
// that every copy of the code loaded into the process can see.
//
// The namespace is the standard library's expvar table. It is process-global
// and owned by the runtime rather than by any module, so two copies of a
// package compiled at different versions still meet there. Values are stored
// as expvar.Func closures, which any copy can unwrap without sharing a type
// with the publisher.
package discovery

import (
	"errors"
	"expvar"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const lockSuffix = ".lock"

// ErrNameTaken is returned when a name is already published.
var ErrNameTaken = errors.New("discovery name already published")

// Lookup returns the value published under name.
func Lookup(name string) (any, bool) {
	v := expvar.Get(name)
	if v == nil {
		return nil, false
	}
	if f, ok := v.(expvar.Func); ok {
		return f(), true
	}
	return v, true
}

// Publish makes value visible under name. Exactly one of several concurrent
// publishers of the same name succeeds; the others get ErrNameTaken.
func Publish(name string, value any) error {
	if expvar.Get(name) != nil {
		return fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	if !publish(name, expvar.Func(func() any { return value })) {
		return fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	return nil
}

// publish reports whether expvar accepted the variable. expvar panics on a
// reused name, which is the only signal it gives for a lost race.
func publish(name string, v expvar.Var) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	expvar.Publish(name, v)
	return true
}

// Lock acquires the process-wide mutex associated with name and returns the
// function that releases it.
func Lock(name string) (func(), error) {
	mu, err := mutexFor(name)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	return mu.Unlock, nil
}

func mutexFor(name string) (*sync.Mutex, error) {
	key := name + lockSuffix
	for attempt := 0; attempt < 2; attempt++ {
		if v, ok := Lookup(key); ok {
			mu, isMutex := v.(*sync.Mutex)
			if !isMutex {
				return nil, fmt.Errorf("discovery lock %q holds %T", key, v)
			}
			return mu, nil
		}
		mu := new(sync.Mutex)
		if err := Publish(key, mu); err == nil {
			return mu, nil
		}
	}
	return nil, fmt.Errorf("discovery lock %q could not be published", key)
}

// Names lists the published names starting with prefix, lock entries excluded.
func Names(prefix string) []string {
	var names []string
	expvar.Do(func(kv expvar.KeyValue) {
		if !strings.HasPrefix(kv.Key, prefix) || strings.HasSuffix(kv.Key, lockSuffix) {
			return
		}
		if _, ok := kv.Value.(expvar.Func); ok {
			names = append(names, kv.Key)
		}
	})
	sort.Strings(names)
	return names
}
