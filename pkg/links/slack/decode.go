package slack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/tzrikka/qll/pkg/chain"
)

// DecodeCommand parses a slash command, sent either as a web form
// (https://docs.slack.dev/interactivity/implementing-slash-commands)
// or as the equivalent JSON object.
func DecodeCommand(r *chain.Request) (*slack.SlashCommand, error) {
	var cmd slack.SlashCommand
	if r.IsJSON() {
		if err := json.Unmarshal(r.Body, &cmd); err != nil {
			return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
		}
	} else {
		var err error
		if cmd, err = slack.SlashCommandParse(r.Clone(r.Context())); err != nil {
			return nil, fmt.Errorf("failed to parse web form: %w", err)
		}
	}

	if !strings.HasPrefix(cmd.Command, "/") {
		return nil, fmt.Errorf("invalid slash command name: %q", cmd.Command)
	}

	return &cmd, nil
}

// DecodeInteraction parses an interaction payload, sent either as the
// "payload" field of a web form (https://docs.slack.dev/interactivity/handling-user-interaction)
// or as a JSON object.
func DecodeInteraction(r *chain.Request) (*slack.InteractionCallback, error) {
	payload := r.Body
	if !r.IsJSON() {
		p := r.Form().Get("payload")
		if p == "" {
			return nil, errors.New("missing payload field in web form")
		}
		payload = []byte(p)
	}

	cb := &slack.InteractionCallback{}
	if err := json.Unmarshal(payload, cb); err != nil {
		return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
	}
	if cb.Type == "" {
		return nil, errors.New("missing interaction type")
	}

	return cb, nil
}
