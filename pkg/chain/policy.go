package chain

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorPolicy maps any per-request failure to the HTTP status code that is
// reported to the caller. Implementations have full access to the shared
// [Env], e.g. for differentiated responses or side-effecting notifications.
type ErrorPolicy interface {
	StatusCode(ctx context.Context, err error, env *Env) int
}

// ErrorPolicyFunc adapts an ordinary function to the [ErrorPolicy] interface.
type ErrorPolicyFunc func(ctx context.Context, err error, env *Env) int

func (f ErrorPolicyFunc) StatusCode(ctx context.Context, err error, env *Env) int {
	return f(ctx, err, env)
}

// DefaultErrorPolicy logs the error, and reports 400 for all failures.
var DefaultErrorPolicy = ErrorPolicyFunc(func(ctx context.Context, err error, _ *Env) int {
	zerolog.Ctx(ctx).Warn().Err(err).Msg("bad request")
	return http.StatusBadRequest
})

// statusCode applies the error policy, and enforces the invariants that
// callers rely on: malformed or forged requests always get a 4xx status,
// and a broken policy (panic or invalid result) degrades to 500.
func (c *Chain) statusCode(ctx context.Context, err error) (status int) {
	l := zerolog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			l.Error().Any("panic", r).Msg("error policy panicked")
			status = http.StatusInternalServerError
		}
	}()

	status = c.policy.StatusCode(ctx, err, c.env)
	if status < 100 || status > 599 {
		l.Error().Int("status_code", status).Msg("error policy returned an invalid status code")
		return http.StatusInternalServerError
	}

	var ve *VerificationError
	var de *DeserializationError
	if (errors.As(err, &ve) || errors.As(err, &de)) && (status < 400 || status > 499) {
		return http.StatusBadRequest
	}

	return status
}
