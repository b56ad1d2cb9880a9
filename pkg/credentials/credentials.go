// Package credentials loads the Slack app's per-deployment secrets once, at
// startup. The resulting [Bundle] is read-only and shared by all requests.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/qll/pkg/thrippy"
)

// ErrMissing indicates that required configuration values are absent.
// The process must not start listening when this error is reported.
var ErrMissing = errors.New("missing required configuration")

// Bundle holds the Slack app's credentials. It must not be modified after [Load].
type Bundle struct {
	SigningSecret string
	ClientID      string
	ClientSecret  string
	BotScope      string
	RedirectHost  *url.URL

	// BotToken is optional: it is used when the shared state
	// doesn't contain a token for the workspace of an event.
	BotToken string
}

// Flags defines CLI flags for the Slack app's credentials. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-signing-secret",
			Usage: "Slack app's signing secret",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_SIGNING_SECRET"),
				toml.TOML("slack.signing_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-client-id",
			Usage: "Slack app's OAuth client ID",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_CLIENT_ID"),
				toml.TOML("slack.client_id", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-client-secret",
			Usage: "Slack app's OAuth client secret",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_CLIENT_SECRET"),
				toml.TOML("slack.client_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-bot-scope",
			Usage: `comma-separated OAuth bot scopes (e.g. "commands,chat:write")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_SCOPE"),
				toml.TOML("slack.bot_scope", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-redirect-host",
			Usage: "public base URL of this server, for OAuth redirects",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_REDIRECT_HOST"),
				toml.TOML("slack.redirect_host", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: "optional fallback bot token, for workspaces without an OAuth installation",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				cli.EnvVar("SLACK_QLL_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
	}
}

// Load initializes a [Bundle] from the CLI flags. If a Thrippy link ID is configured,
// missing values are filled from that link's secrets. The result is validated
// after that, and missing values are reported with [ErrMissing].
func Load(ctx context.Context, cmd *cli.Command) (*Bundle, error) {
	b := &Bundle{
		SigningSecret: cmd.String("slack-signing-secret"),
		ClientID:      cmd.String("slack-client-id"),
		ClientSecret:  cmd.String("slack-client-secret"),
		BotScope:      cmd.String("slack-bot-scope"),
		BotToken:      cmd.String("slack-bot-token"),
	}
	host := cmd.String("slack-redirect-host")

	if id := cmd.String("thrippy-link-id"); id != "" {
		creds, err := thrippy.SecureCreds(cmd)
		if err != nil {
			return nil, err
		}

		link, err := thrippy.SlackLink(ctx, cmd.String("thrippy-server-addr"), creds, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get Thrippy link data: %w", err)
		}

		zerolog.Ctx(ctx).Info().Str("link_id", id).Str("template", link.Template).
			Msg("filling missing Slack credentials from Thrippy link")
		host = b.fill(link.Secrets, host)
	}

	if err := b.setRedirectHost(host); err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// fill sets empty fields based on the secrets of a Thrippy link.
// It returns the redirect host, which is parsed separately.
func (b *Bundle) fill(secrets map[string]string, host string) string {
	set := func(field *string, key string) {
		if *field == "" {
			*field = secrets[key]
		}
	}

	set(&b.SigningSecret, "signing_secret")
	set(&b.ClientID, "client_id")
	set(&b.ClientSecret, "client_secret")
	set(&b.BotScope, "scopes")
	set(&b.BotToken, "bot_token")
	set(&host, "redirect_host")

	return host
}

func (b *Bundle) setRedirectHost(host string) error {
	if host == "" {
		return nil // Reported by [Bundle.Validate].
	}

	u, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return fmt.Errorf("invalid redirect host %q: %w", host, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid redirect host %q: must be an absolute HTTP(S) URL", host)
	}

	b.RedirectHost = u
	return nil
}

// Validate reports all the missing required values in a single error.
func (b *Bundle) Validate() error {
	var missing []string
	if b.SigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if b.ClientID == "" {
		missing = append(missing, "SLACK_CLIENT_ID")
	}
	if b.ClientSecret == "" {
		missing = append(missing, "SLACK_CLIENT_SECRET")
	}
	if b.BotScope == "" {
		missing = append(missing, "SLACK_BOT_SCOPE")
	}
	if b.RedirectHost == nil {
		missing = append(missing, "SLACK_REDIRECT_HOST")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// RedirectURI returns the absolute URL of the given path under the redirect host.
func (b *Bundle) RedirectURI(path string) string {
	u := *b.RedirectHost
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}
