package slack

import (
	"net/http"

	"github.com/slack-go/slack"
	"github.com/tidwall/gjson"

	"github.com/tzrikka/qll/pkg/chain"
)

// Paths of the gateway's Slack routes. Interactions and commands may share the
// same path, in which case they are distinguished by the shape of their payload.
type Paths struct {
	Install     string
	Callback    string
	Interaction string
	Command     string
}

var DefaultPaths = Paths{
	Install:     "/auth/install",
	Callback:    "/auth/callback",
	Interaction: "/interaction",
	Command:     "/command",
}

// https://docs.slack.dev/reference/interaction-payloads
var interactionTypes = map[slack.InteractionType]bool{
	slack.InteractionTypeBlockActions:       true,
	slack.InteractionTypeBlockSuggestion:    true,
	slack.InteractionTypeDialogCancellation: true,
	slack.InteractionTypeDialogSubmission:   true,
	slack.InteractionTypeDialogSuggestion:   true,
	slack.InteractionTypeInteractionMessage: true,
	slack.InteractionTypeMessageAction:      true,
	slack.InteractionTypeShortcut:           true,
	slack.InteractionTypeViewClosed:         true,
	slack.InteractionTypeViewSubmission:     true,
}

func (p Paths) ClassifyOAuthInstall(r *chain.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == p.Install
}

func (p Paths) ClassifyOAuthCallback(r *chain.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == p.Callback
}

func (p Paths) ClassifyInteraction(r *chain.Request) bool {
	if r.Method != http.MethodPost || r.URL.Path != p.Interaction {
		return false
	}
	return p.Interaction != p.Command || looksLikeInteraction(r)
}

func (p Paths) ClassifyCommand(r *chain.Request) bool {
	if r.Method != http.MethodPost || r.URL.Path != p.Command {
		return false
	}
	return p.Interaction != p.Command || looksLikeCommand(r)
}

// looksLikeInteraction peeks at the payload without decoding it: Slack sends
// interactions as a web form with a single JSON-encoded "payload" field.
func looksLikeInteraction(r *chain.Request) bool {
	if r.IsJSON() {
		t := gjson.GetBytes(r.Body, "type").String()
		return interactionTypes[slack.InteractionType(t)]
	}
	return r.Form().Has("payload")
}

func looksLikeCommand(r *chain.Request) bool {
	if r.IsJSON() {
		return gjson.GetBytes(r.Body, "command").Exists()
	}
	return r.Form().Has("command")
}
