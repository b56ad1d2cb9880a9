package slack

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/tzrikka/qll/pkg/chain"
)

// Handlers are the gateway's pluggable event handlers. All of them receive
// the shared [chain.Env], and may call Slack's API through its client.
type Handlers struct {
	OAuth       func(ctx context.Context, resp *slack.OAuthV2Response, env *chain.Env) (*chain.Response, error)
	Interaction func(ctx context.Context, cb *slack.InteractionCallback, env *chain.Env) (*chain.Response, error)
	Command     func(ctx context.Context, cmd *slack.SlashCommand, env *chain.Env) (*chain.Response, error)
}

func OAuthInstallLink(p Paths) *chain.Link[InstallRequest] {
	return &chain.Link[InstallRequest]{
		Kind:     chain.OAuthInstall,
		Classify: p.ClassifyOAuthInstall,
		Decode: func(*chain.Request) (InstallRequest, error) {
			return InstallRequest{}, nil
		},
		Handle: startInstall(p.Callback),
	}
}

// OAuthCallbackLink exchanges the callback's authorization
// code for an access token, before calling the handler.
func OAuthCallbackLink(p Paths, h func(context.Context, *slack.OAuthV2Response, *chain.Env) (*chain.Response, error)) *chain.Link[OAuthCallback] {
	return &chain.Link[OAuthCallback]{
		Kind:     chain.OAuthCallback,
		Classify: p.ClassifyOAuthCallback,
		Verify:   VerifyOAuthState,
		Decode:   DecodeOAuthCallback,
		Handle: func(ctx context.Context, cb OAuthCallback, env *chain.Env) (*chain.Response, error) {
			c := env.Credentials
			resp, err := env.Client.ExchangeCode(ctx, c.ClientID, c.ClientSecret, cb.Code, c.RedirectURI(p.Callback))
			if err != nil {
				return nil, err
			}
			return h(ctx, resp, env)
		},
	}
}

func InteractionLink(p Paths, v *Verifier, h func(context.Context, *slack.InteractionCallback, *chain.Env) (*chain.Response, error)) *chain.Link[*slack.InteractionCallback] {
	return &chain.Link[*slack.InteractionCallback]{
		Kind:     chain.InteractionEvent,
		Classify: p.ClassifyInteraction,
		Verify:   v.Verify,
		Decode:   DecodeInteraction,
		Handle:   h,
	}
}

func CommandLink(p Paths, v *Verifier, h func(context.Context, *slack.SlashCommand, *chain.Env) (*chain.Response, error)) *chain.Link[*slack.SlashCommand] {
	return &chain.Link[*slack.SlashCommand]{
		Kind:     chain.CommandEvent,
		Classify: p.ClassifyCommand,
		Verify:   v.Verify,
		Decode:   DecodeCommand,
		Handle:   h,
	}
}
