// Package bot contains the gateway's event handlers. Command handlers
// reply synchronously, within Slack's 3-second deadline, and may post
// follow-up messages asynchronously.
package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/tzrikka/qll/pkg/chain"
	links "github.com/tzrikka/qll/pkg/links/slack"
	"github.com/tzrikka/qll/pkg/slackapi"
)

const (
	DefaultRouteBody = "Hey, this is a default users route handler"

	teamTokenKeyPrefix = "team_token/"
	followUpTimeout    = 10 * time.Second
)

var ErrNoBotToken = errors.New("no bot token for workspace")

// Bot tracks asynchronous follow-ups, so they can be awaited on shutdown.
type Bot struct {
	mu        sync.Mutex
	closed    bool
	followUps sync.WaitGroup
}

func New() *Bot {
	return &Bot{}
}

// Handlers returns the bot's event handlers, to be bound to the gateway's links.
func (b *Bot) Handlers() links.Handlers {
	return links.Handlers{
		OAuth:       b.OAuthInstalled,
		Interaction: b.Interaction,
		Command:     b.Command,
	}
}

// Wait stops accepting new asynchronous follow-ups,
// and blocks until all the pending ones are done.
func (b *Bot) Wait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.followUps.Wait()
}

// startFollowUp reports false after [Bot.Wait] was called.
func (b *Bot) startFollowUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	b.followUps.Add(1)
	return true
}

// DefaultHandler handles all the requests that no link claims.
func DefaultHandler(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Debug().Msg("default route")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(DefaultRouteBody))
}

// OAuthInstalled saves the bot token of a newly-installed workspace
// in the shared state, for subsequent events from that workspace.
func (b *Bot) OAuthInstalled(ctx context.Context, resp *slack.OAuthV2Response, env *chain.Env) (*chain.Response, error) {
	l := zerolog.Ctx(ctx)
	l.Info().Str("team_id", resp.Team.ID).Str("team_name", resp.Team.Name).
		Str("app_id", resp.AppID).Str("bot_user_id", resp.BotUserID).Str("scope", resp.Scope).
		Msg("Slack app installed")

	if err := env.State.Store(ctx, teamTokenKeyPrefix+resp.Team.ID, resp.AccessToken); err != nil {
		return nil, err
	}

	return chain.Text("The app was installed successfully, you may close this window."), nil
}

// Interaction is a placeholder for user interactions: it only logs them.
func (b *Bot) Interaction(ctx context.Context, cb *slack.InteractionCallback, _ *chain.Env) (*chain.Response, error) {
	var actionIDs []string
	for _, a := range cb.ActionCallback.BlockActions {
		actionIDs = append(actionIDs, a.ActionID)
	}

	zerolog.Ctx(ctx).Info().Str("interaction_type", string(cb.Type)).Str("user_id", cb.User.ID).
		Str("team_id", cb.Team.ID).Str("callback_id", cb.CallbackID).Strs("action_ids", actionIDs).
		Msg("received interaction")

	return chain.OK(), nil
}

// Command checks the bot's Slack API access, and replies "Working on it".
// If the command was invoked in a channel, the bot also posts a
// follow-up message in that channel, asynchronously.
func (b *Bot) Command(ctx context.Context, cmd *slack.SlashCommand, env *chain.Env) (*chain.Response, error) {
	l := zerolog.Ctx(ctx).With().Str("command", cmd.Command).Str("team_id", cmd.TeamID).
		Str("user_id", cmd.UserID).Logger()
	l.Info().Str("text", cmd.Text).Msg("received slash command")

	token, err := botToken(ctx, env, cmd.TeamID)
	if err != nil {
		return nil, err
	}

	session := env.Client.Session(token)
	if _, err := session.Test(ctx); err != nil {
		return nil, err
	}

	switch {
	case cmd.ChannelID == "":
	case b.startFollowUp():
		go func() {
			defer b.followUps.Done()
			b.postFollowUp(context.WithoutCancel(ctx), session, cmd.ChannelID)
		}()
	default:
		l.Warn().Str("channel_id", cmd.ChannelID).Msg("shutting down, skipping follow-up message")
	}

	return chain.JSON(slackapi.NewMessage().Text("Working on it").Reply(""))
}

func (b *Bot) postFollowUp(ctx context.Context, s *slackapi.Session, channelID string) {
	ctx, cancel := context.WithTimeout(ctx, followUpTimeout)
	defer cancel()

	m := slackapi.NewMessage().Text("Queue leu leu").Section("Queue leu leu").Divider()
	ts, err := s.PostMessage(ctx, channelID, m)
	if err != nil {
		zerolog.Ctx(ctx).Err(err).Str("channel_id", channelID).Msg("failed to post follow-up message")
		return
	}

	zerolog.Ctx(ctx).Debug().Str("channel_id", channelID).Str("ts", ts).Msg("posted follow-up message")
}

// botToken prefers the token from the workspace's OAuth
// installation, and falls back to the configured token.
func botToken(ctx context.Context, env *chain.Env, teamID string) (string, error) {
	if teamID != "" {
		token, ok, err := env.State.Load(ctx, teamTokenKeyPrefix+teamID)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}

	if env.Credentials.BotToken != "" {
		return env.Credentials.BotToken, nil
	}

	return "", ErrNoBotToken
}
