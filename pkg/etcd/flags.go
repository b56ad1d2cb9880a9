package etcd

import (
	"fmt"
	"net/url"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultEndpoint  = "http://localhost:2379"
	DefaultKeyPrefix = "qll/"
)

// Flags defines CLI flags to configure the etcd-backed shared state. These flags can
// also be set using environment variables and the application's configuration file.
// They are ignored unless the "etcd" state store is selected.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "etcd-endpoint-urls",
			Usage: "one or more etcd server endpoint URLs",
			Value: []string{DefaultEndpoint},
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ETCD_ENDPOINTS"),
				toml.TOML("etcd.endpoint_urls", configFilePath),
			),
			Validator: validateEndpoints,
		},
		&cli.StringFlag{
			Name:  "etcd-key-prefix",
			Usage: "namespace of all the shared state keys in etcd",
			Value: DefaultKeyPrefix,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ETCD_KEY_PREFIX"),
				toml.TOML("etcd.key_prefix", configFilePath),
			),
		},
	}
}

func validateEndpoints(endpoints []string) error {
	for _, e := range endpoints {
		u, err := url.Parse(e)
		if err != nil {
			return fmt.Errorf("invalid etcd endpoint URL %q: %w", e, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid etcd endpoint URL %q: must be an absolute HTTP(S) URL", e)
		}
	}
	return nil
}
