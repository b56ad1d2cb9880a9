package http

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultWebhookHost = "127.0.0.1"
	DefaultWebhookPort = 8080
)

// Flags defines CLI flags to configure the HTTP listener. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "webhook-host",
			Usage: "local interface for the HTTP server to listen on",
			Value: DefaultWebhookHost,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QLL_WEBHOOK_HOST"),
				toml.TOML("http.webhook_host", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "webhook-port",
			Usage: "local port number for the HTTP server to listen on",
			Value: DefaultWebhookPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("QLL_WEBHOOK_PORT"),
				toml.TOML("http.webhook_port", configFilePath),
			),
		},
	}
}
