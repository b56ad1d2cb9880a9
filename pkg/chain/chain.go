// Package chain multiplexes several independently-verified kinds of webhook
// requests onto a single HTTP handler.
//
// A [Chain] is an ordered list of [Route]s, built once at startup, and a
// default handler. For each request, the routes are tried in order, and the
// first one that claims the request handles it: verification, then payload
// deserialization, then the event handler. Requests that no route claims are
// passed to the default handler, so every request gets a response.
//
// Failures never escape the chain: they are reported to the caller with an
// HTTP status code, chosen by a single [ErrorPolicy].
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxBodySize is the size limit of request bodies (1 MiB),
// unless overridden with [WithMaxBodySize]. Larger requests get a 413.
const DefaultMaxBodySize = 1 << 20

// Route is a candidate handler of inbound requests.
type Route interface {
	Category() Category
	// Match must be a pure function of the request, without side effects.
	Match(r *Request) bool
	// Serve runs only if Match returned true. It must not write an HTTP
	// response directly, but return it (or a typed failure) instead.
	Serve(ctx context.Context, r *Request, env *Env) Outcome
}

// Outcome is the result of [Route.Serve]: either a response, or an error.
type Outcome struct {
	Response *Response
	Err      error
}

// Link is a [Route] that is composed of 4 functions: a classifier,
// an optional verifier, a deserializer which produces a typed event,
// and an event handler.
type Link[E any] struct {
	Kind     Category
	Classify func(r *Request) bool
	Verify   func(ctx context.Context, r *Request, env *Env) error
	Decode   func(r *Request) (E, error)
	Handle   func(ctx context.Context, event E, env *Env) (*Response, error)
}

func (l *Link[E]) Category() Category {
	return l.Kind
}

func (l *Link[E]) Match(r *Request) bool {
	return l.Classify(r)
}

func (l *Link[E]) Serve(ctx context.Context, r *Request, env *Env) Outcome {
	if l.Verify != nil {
		if err := l.Verify(ctx, r, env); err != nil {
			return Outcome{Err: &VerificationError{Err: err}}
		}
	}

	event, err := l.Decode(r)
	if err != nil {
		return Outcome{Err: &DeserializationError{Err: err}}
	}

	resp, err := l.handle(ctx, event, env)
	if err != nil {
		return Outcome{Err: &HandlerError{Category: l.Kind, Err: err}}
	}
	if resp == nil {
		resp = OK()
	}

	return Outcome{Response: resp}
}

// handle calls the event handler, and converts panics into errors.
func (l *Link[E]) handle(ctx context.Context, event E, env *Env) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().Any("panic", r).Bytes("stack", debug.Stack()).
				Msg("event handler panicked")
			resp, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	return l.Handle(ctx, event, env)
}

// Chain is an [http.Handler] which dispatches each request to exactly one
// [Route], or to its default handler. It is safe for concurrent use.
type Chain struct {
	env      *Env
	routes   []Route
	fallback http.Handler

	policy      ErrorPolicy
	logger      zerolog.Logger
	maxBodySize int64
}

type Option func(*Chain)

// WithErrorPolicy overrides [DefaultErrorPolicy].
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Chain) {
		c.policy = p
	}
}

// WithLogger overrides the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Chain) {
		c.logger = l
	}
}

// WithMaxBodySize overrides [DefaultMaxBodySize].
func WithMaxBodySize(n int64) Option {
	return func(c *Chain) {
		c.maxBodySize = n
	}
}

// New builds a chain of routes, which are tried in the given order.
func New(env *Env, routes []Route, fallback http.Handler, opts ...Option) *Chain {
	c := &Chain{
		env:         env,
		routes:      routes,
		fallback:    fallback,
		policy:      DefaultErrorPolicy,
		logger:      log.Logger,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the first route that claims the given request,
// and its category. If no route claims it, the result is [Unmatched].
func (c *Chain) Classify(r *Request) (Route, Category) {
	for _, route := range c.routes {
		if route.Match(r) {
			return route, route.Category()
		}
	}
	return nil, Unmatched
}

func (c *Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	l := c.logger.With().Str("http_method", r.Method).Str("url_path", r.URL.EscapedPath()).
		Str("request_id", shortuuid.New()).Logger()
	ctx := l.WithContext(r.Context())

	req, err := NewRequest(w, r.WithContext(ctx), c.maxBodySize)
	if err != nil {
		status := http.StatusBadRequest
		if mbe := new(http.MaxBytesError); errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}
		l.Warn().Err(err).Msg("failed to read HTTP request body")
		w.WriteHeader(status)
		return
	}

	var route Route
	cat := Unmatched
	if err := protect(ctx, cat, func() { route, cat = c.Classify(req) }); err != nil {
		c.translate(ctx, w, Outcome{Err: err})
		return
	}

	l = l.With().Stringer("category", cat).Logger()
	ctx = l.WithContext(ctx)
	l.Info().Msg("received HTTP request")

	if route == nil {
		if err := protect(ctx, cat, func() { c.fallback.ServeHTTP(w, req.Clone(ctx)) }); err != nil {
			c.translate(ctx, w, Outcome{Err: err})
		}
		return
	}

	var o Outcome
	if err := protect(ctx, cat, func() { o = route.Serve(ctx, req, c.env) }); err != nil {
		o = Outcome{Err: err}
	}
	c.translate(ctx, w, o)
}

// protect calls f, and converts a panic into a [HandlerError] of the
// given category, so that no failure escapes the chain.
func protect(ctx context.Context, cat Category, f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if r == http.ErrAbortHandler {
			panic(r)
		}

		zerolog.Ctx(ctx).Error().Any("panic", r).Bytes("stack", debug.Stack()).
			Stringer("category", cat).Msg("route panicked")
		err = &HandlerError{Category: cat, Err: fmt.Errorf("panic: %v", r)}
	}()

	f()
	return nil
}

// translate writes the HTTP response for a route's outcome.
func (c *Chain) translate(ctx context.Context, w http.ResponseWriter, o Outcome) {
	l := zerolog.Ctx(ctx)

	if o.Err == nil {
		if o.Response == nil {
			o.Response = OK()
		}
		if err := o.Response.write(w); err != nil {
			l.Warn().Err(err).Msg("failed to write HTTP response")
		}
		return
	}

	status := c.statusCode(ctx, o.Err)
	l.Debug().Err(o.Err).Int("status_code", status).Msg("request failed")
	w.WriteHeader(status)
}
