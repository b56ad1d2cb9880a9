package links

import (
	"github.com/tzrikka/qll/pkg/chain"
	"github.com/tzrikka/qll/pkg/links/slack"
)

// Routes returns all the webhook links that the gateway supports, in their
// fixed order: OAuth first, then interactions, then commands. The first link
// that matches a request wins, so a path shared by interactions and commands
// is disambiguated by the shape of the payload.
func Routes(p slack.Paths, signingSecret string, h slack.Handlers) []chain.Route {
	v := slack.NewVerifier(signingSecret)
	return []chain.Route{
		slack.OAuthInstallLink(p),
		slack.OAuthCallbackLink(p, h.OAuth),
		slack.InteractionLink(p, v, h.Interaction),
		slack.CommandLink(p, v, h.Command),
	}
}
