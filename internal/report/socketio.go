package report

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
)

// DefaultEvent is the event name a plan is emitted under.
const DefaultEvent = "patchbay:plan"

// DefaultTimeout bounds the wait for the connection.
const DefaultTimeout = 15 * time.Second

// ErrConnect is wrapped by every connection failure.
var ErrConnect = errors.New("socket.io connection failed")

// Options configures a report.
type Options struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if o.Event == "" {
		o.Event = DefaultEvent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Publish connects to opts.URL, emits payload as opts.Event and disconnects.
// payload is sent as its JSON object form.
func Publish(ctx context.Context, opts Options, payload any) error {
	opts = opts.withDefaults()
	data, err := toWire(payload)
	if err != nil {
		return err
	}

	client, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	logger := ctxlog.FromContext(ctx).With("url", opts.URL, "sid", client.Id())
	logger.Debug("Emitting plan.", "event", opts.Event)
	client.Emit(opts.Event, data)
	logger.Info("Plan reported.", "event", opts.Event)
	return nil
}

// toWire turns payload into the maps and slices the socket.io parser encodes.
func toWire(payload any) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cannot encode report payload: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("cannot encode report payload: %w", err)
	}
	return data, nil
}

func connect(ctx context.Context, opts Options) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("report URL %q must be absolute", opts.URL)
	}

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to report endpoint.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("%w: %v", ErrConnect, err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("%w: %v", ErrConnect, ctx.Err())
	case <-time.After(opts.Timeout):
		io.Disconnect()
		return nil, fmt.Errorf("%w: timed out after %v", ErrConnect, opts.Timeout)
	}
}
