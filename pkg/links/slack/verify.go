package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tzrikka/qll/pkg/chain"
)

const (
	timestampHeader = "X-Slack-Request-Timestamp"
	signatureHeader = "X-Slack-Signature"

	// The maximum shift/delay that we allow between an inbound request's
	// timestamp, and our current timestamp, to defend against replay attacks.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	maxDifference = 5 * time.Minute

	// Slack API implementation detail.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	slackSigVersion = "v0"
)

var (
	ErrMissingHeader    = errors.New("missing header")
	ErrInvalidHeader    = errors.New("invalid header value")
	ErrStaleTimestamp   = errors.New("stale timestamp")
	ErrInvalidSignature = errors.New("signature mismatch")
	ErrContentType      = errors.New("unexpected content type")
)

// Verifier checks that inbound interaction and command requests
// were signed by Slack with the app's signing secret.
type Verifier struct {
	signingSecret string
	maxDifference time.Duration
	now           func() time.Time
}

func NewVerifier(signingSecret string) *Verifier {
	return &Verifier{
		signingSecret: signingSecret,
		maxDifference: maxDifference,
		now:           time.Now,
	}
}

// Verify implements https://docs.slack.dev/authentication/verifying-requests-from-slack.
// It has the signature of [chain.Link.Verify].
func (v *Verifier) Verify(ctx context.Context, r *chain.Request, _ *chain.Env) error {
	l := zerolog.Ctx(ctx).With().Str("link_type", "slack").Str("link_medium", "webhook").Logger()

	if err := checkContentTypeHeader(l, r); err != nil {
		return err
	}

	ts, err := v.checkTimestampHeader(l, r)
	if err != nil {
		return err
	}

	return v.checkSignatureHeader(l, r, ts)
}

// checkContentTypeHeader accepts web forms, which is what Slack sends,
// and JSON, which is convenient for local testing and relays.
func checkContentTypeHeader(l zerolog.Logger, r *chain.Request) error {
	switch mt := r.MediaType(); mt {
	case "application/x-www-form-urlencoded", "application/json":
		return nil
	default:
		l.Warn().Str("header", "Content-Type").Str("got", mt).
			Msg("bad request: unexpected header value")
		return fmt.Errorf("%w: %q", ErrContentType, mt)
	}
}

func (v *Verifier) checkTimestampHeader(l zerolog.Logger, r *chain.Request) (string, error) {
	ts := r.Header.Get(timestampHeader)
	if ts == "" {
		l.Warn().Str("header", timestampHeader).Msg("bad request: missing header")
		return "", fmt.Errorf("%w: %s", ErrMissingHeader, timestampHeader)
	}

	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		l.Warn().Str("header", timestampHeader).Str("got", ts).
			Msg("bad request: invalid header value")
		return "", fmt.Errorf("%w: %s", ErrInvalidHeader, timestampHeader)
	}

	d := v.now().Sub(time.Unix(secs, 0))
	if d.Abs() > v.maxDifference {
		l.Warn().Str("header", timestampHeader).Dur("difference", d).
			Msg("bad request: stale header value")
		return "", fmt.Errorf("%w: %s", ErrStaleTimestamp, d)
	}

	return ts, nil
}

func (v *Verifier) checkSignatureHeader(l zerolog.Logger, r *chain.Request, ts string) error {
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		l.Warn().Str("header", signatureHeader).Msg("bad request: missing header")
		return fmt.Errorf("%w: %s", ErrMissingHeader, signatureHeader)
	}

	if !verifySignature(l, v.signingSecret, ts, sig, r.Body) {
		l.Warn().Str("signature", sig).Bool("has_signing_secret", v.signingSecret != "").
			Msg("signature verification failed")
		return ErrInvalidSignature
	}

	return nil
}

// verifySignature implements
// https://docs.slack.dev/authentication/verifying-requests-from-slack.
func verifySignature(l zerolog.Logger, signingSecret, ts, want string, body []byte) bool {
	if signingSecret == "" {
		return false
	}

	got, err := sign(signingSecret, ts, body)
	if err != nil {
		l.Err(err).Msg("HMAC write error")
		return false
	}

	return hmac.Equal([]byte(got), []byte(want))
}

// sign computes the "v0=..." signature of a request's timestamp and body.
func sign(signingSecret, ts string, body []byte) (string, error) {
	mac := hmac.New(sha256.New, []byte(signingSecret))

	if _, err := mac.Write(fmt.Appendf(nil, "%s:%s:", slackSigVersion, ts)); err != nil {
		return "", err
	}
	if _, err := mac.Write(body); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s=%s", slackSigVersion, hex.EncodeToString(mac.Sum(nil))), nil
}
