// Package dispatch turns an HTTP request on /api/{module}/{function} into a
// registry lookup, a middleware chain and a handler invocation, and writes
// exactly one response envelope.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/telhawk-systems/schoolhub/common/httputil"
	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/registry"
	"github.com/telhawk-systems/schoolhub/internal/response"
)

// Prefix is the path prefix served by the dispatcher.
const Prefix = "/api/"

var errPanic = errors.New("panic")

// Deps are the dispatcher's collaborators.
type Deps struct {
	Registry *registry.Registry
	Logger   *logging.Logger
	// TrustProxy honors X-Forwarded-For when deriving the client address.
	TrustProxy   bool
	MaxBodyBytes int64
}

// Dispatcher is an http.Handler. It is safe for concurrent use.
type Dispatcher struct {
	registry   *registry.Registry
	logger     *logging.Logger
	trustProxy bool
	maxBody    int64
}

func New(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Dispatcher{
		registry:   deps.Registry,
		logger:     logger,
		trustProxy: deps.TrustProxy,
		maxBody:    maxBody,
	}
}

// exchange is one request/response pair. The envelope is written at most once.
type exchange struct {
	w       http.ResponseWriter
	log     *slog.Logger
	state   State
	status  int
	written atomic.Bool
}

func (x *exchange) advance(to State) {
	if !x.state.next(to) {
		x.log.Error("illegal dispatch transition",
			slog.String("from", x.state.String()), slog.String("to", to.String()))
		return
	}
	x.state = to
}

// fail moves to FAILED and responds with env.
func (x *exchange) fail(env response.Envelope) {
	x.advance(StateFailed)
	x.respond(env)
}

// respond writes env unless a response was already written, in which case
// the attempt is dropped and logged.
func (x *exchange) respond(env response.Envelope) bool {
	if !x.written.CompareAndSwap(false, true) {
		x.log.Error("response already written, dropping",
			logging.Status(env.Code), logging.State(x.state.String()))
		return false
	}
	x.advance(StateResponded)
	x.status = env.Code
	httputil.WriteJSON(x.w, env.Code, env)
	return true
}

// splitPath extracts module and function from /api/{module}/{function}.
func splitPath(path string) (module, function string, ok bool) {
	rest, found := strings.CutPrefix(path, Prefix)
	if !found {
		return "", "", false
	}
	module, function, found = strings.Cut(rest, "/")
	if !found || module == "" || function == "" || strings.Contains(function, "/") {
		return "", "", false
	}
	return module, function, true
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	x := &exchange{w: w, log: d.logger.WithContext(ctx), state: StateReceived}

	moduleLabel, functionLabel := metrics.LabelUnknown, metrics.LabelUnknown
	defer func() {
		metrics.RequestsTotal.WithLabelValues(moduleLabel, functionLabel, strconv.Itoa(x.status)).Inc()
		metrics.RequestDuration.WithLabelValues(moduleLabel, functionLabel).Observe(time.Since(start).Seconds())
	}()

	module, function, ok := splitPath(r.URL.Path)
	if !ok {
		x.fail(response.RouteNotFound())
		return
	}
	entry, ok := d.registry.Resolve(module, r.Method, function)
	if !ok {
		x.fail(response.RouteNotFound())
		return
	}
	moduleLabel, functionLabel = entry.Descriptor.Module, entry.Descriptor.Function
	x.log = x.log.With(logging.Module(module), logging.Function(function))
	x.advance(StateResolved)

	params, err := readParams(r, d.maxBody)
	if err != nil {
		msg := msgMalformedBody
		if errors.Is(err, ErrBodyTooLarge) {
			msg = msgBodyTooLarge
		}
		x.log.DebugContext(ctx, "request body rejected", logging.Error(err))
		x.fail(response.Normalize(response.Invalid(msg)))
		return
	}

	req := &capability.Request{
		Module:   entry.Descriptor.Module,
		Function: entry.Descriptor.Function,
		Verb:     entry.Descriptor.Verb,
		Params:   params,
		Headers:  r.Header,
		Device:   capability.Device{Meta: httputil.NewDeviceMeta(r)},
		ClientIP: httputil.GetClientIP(r, d.trustProxy),
	}

	if err := runChain(ctx, x, entry.GlobalChain(), req); err != nil {
		return
	}
	x.advance(StateAuthenticated)

	if err := runChain(ctx, x, entry.PerEntry(), req); err != nil {
		return
	}
	x.advance(StateAuthorized)

	result, err := invoke(ctx, x, entry.Handler, req)
	if err != nil {
		x.log.ErrorContext(ctx, "handler failed", logging.Error(err))
		x.fail(response.Fault())
		return
	}
	x.advance(StateExecuted)
	x.respond(response.Normalize(result))
}

// runChain runs middlewares in order and responds on the first failure.
func runChain(ctx context.Context, x *exchange, chain []capability.Middleware, req *capability.Request) error {
	for _, mw := range chain {
		err := safely(x.log, func() error { return mw(ctx, req) })
		if err == nil {
			continue
		}
		if _, ok := response.AsError(err); !ok {
			x.log.ErrorContext(ctx, "middleware failed", logging.Error(err))
		}
		x.fail(response.FromError(err))
		return err
	}
	return nil
}

func invoke(ctx context.Context, x *exchange, h capability.Handler, req *capability.Request) (result response.Result, err error) {
	err = safely(x.log, func() error {
		var herr error
		result, herr = h(ctx, req)
		return herr
	})
	if err != nil && errors.Is(err, errPanic) {
		metrics.HandlerPanics.WithLabelValues(req.Module, req.Function).Inc()
	}
	return result, err
}

// safely runs fn, converting a panic into an error and logging its stack.
func safely(log *slog.Logger, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("recovered panic", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", errPanic, rec)
		}
	}()
	return fn()
}
