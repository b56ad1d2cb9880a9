package chain

import "strconv"

// Category identifies the kind of an inbound request. Each request
// maps to exactly one category, [Unmatched] if no route claims it.
type Category int

const (
	Unmatched Category = iota
	OAuthInstall
	OAuthCallback
	InteractionEvent
	CommandEvent
)

func (c Category) String() string {
	switch c {
	case Unmatched:
		return "unmatched"
	case OAuthInstall:
		return "oauth_install"
	case OAuthCallback:
		return "oauth_callback"
	case InteractionEvent:
		return "interaction_event"
	case CommandEvent:
		return "command_event"
	default:
		return "category_" + strconv.Itoa(int(c))
	}
}
