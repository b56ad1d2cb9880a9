package slack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/tzrikka/qll/pkg/chain"
)

const (
	AuthorizeURL = "https://slack.com/oauth/v2/authorize"

	stateKeyPrefix = "oauth_state/"
	stateTTL       = 10 * time.Minute
)

var (
	ErrUnknownState = errors.New("unknown or already-used OAuth state")
	ErrExpiredState = errors.New("expired OAuth state")
)

// InstallRequest is the (empty) event of the [chain.OAuthInstall] category.
type InstallRequest struct{}

// OAuthCallback is the event of the [chain.OAuthCallback] category, before
// its authorization code is exchanged for an access token. Based on
// https://docs.slack.dev/authentication/installing-with-oauth.
type OAuthCallback struct {
	Code  string
	State string
}

// oauthConfig is used only to construct the authorization URL.
// The code exchange is done by [slackapi.Client.ExchangeCode],
// because Slack's token response carries much more than a token.
func oauthConfig(env *chain.Env, callbackPath string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     env.Credentials.ClientID,
		ClientSecret: env.Credentials.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: AuthorizeURL},
		RedirectURL:  env.Credentials.RedirectURI(callbackPath),
		Scopes:       []string{env.Credentials.BotScope},
	}
}

// startInstall issues a one-time state token, and redirects
// the user to Slack's OAuth authorization page.
func startInstall(callbackPath string) func(context.Context, InstallRequest, *chain.Env) (*chain.Response, error) {
	return func(ctx context.Context, _ InstallRequest, env *chain.Env) (*chain.Response, error) {
		state := shortuuid.New()
		expiry := strconv.FormatInt(time.Now().Add(stateTTL).Unix(), 10)
		if err := env.State.Store(ctx, stateKeyPrefix+state, expiry); err != nil {
			return nil, fmt.Errorf("failed to store OAuth state: %w", err)
		}

		u := oauthConfig(env, callbackPath).AuthCodeURL(state)
		zerolog.Ctx(ctx).Debug().Str("redirect_url", u).Msg("starting OAuth installation")
		return chain.Redirect(u), nil
	}
}

// VerifyOAuthState checks the "state" query parameter of an OAuth callback,
// if there is one: it must match an unexpired token issued by [startInstall].
// Tokens are single-use. Callbacks without a state parameter (e.g. installations
// from the Slack Marketplace) are trusted implicitly.
func VerifyOAuthState(ctx context.Context, r *chain.Request, env *chain.Env) error {
	state := r.URL.Query().Get("state")
	if state == "" {
		return nil
	}

	// Claim the token: concurrent callbacks with the same state can't both win.
	v, ok, err := env.State.LoadAndDelete(ctx, stateKeyPrefix+state)
	if err != nil {
		return fmt.Errorf("failed to claim OAuth state: %w", err)
	}
	if !ok {
		return ErrUnknownState
	}

	expiry, err := strconv.ParseInt(v, 10, 64)
	if err != nil || time.Now().After(time.Unix(expiry, 0)) {
		return ErrExpiredState
	}

	return nil
}

// DecodeOAuthCallback extracts the authorization code from the callback's
// query. If the user didn't approve the installation, Slack reports the
// reason in an "error" parameter instead.
func DecodeOAuthCallback(r *chain.Request) (OAuthCallback, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return OAuthCallback{}, fmt.Errorf("OAuth authorization error: %s", e)
	}

	code := q.Get("code")
	if code == "" {
		return OAuthCallback{}, errors.New("missing OAuth authorization code")
	}

	return OAuthCallback{Code: code, State: q.Get("state")}, nil
}
