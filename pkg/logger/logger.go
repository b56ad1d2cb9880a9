// Package logger initializes the process-wide [zerolog] logger, and
// hands out component loggers with individually-configurable levels.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultLevel = "debug"
)

// Written only by [Init], before the server starts
// handling requests, and read-only after that.
var (
	defaultLevel    = zerolog.DebugLevel
	componentLevels = map[string]zerolog.Level{}
)

// Flags defines CLI flags to configure logging levels. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "default minimum log level (trace, debug, info, warn, error)",
			Value: DefaultLevel,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOG_LEVEL"),
				toml.TOML("log.level", configFilePath),
			),
		},
		&cli.StringSliceFlag{
			Name:  "log-levels",
			Usage: `per-component minimum log levels (e.g. "slack=trace,http=info")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LOG_LEVELS"),
				toml.TOML("log.component_levels", configFilePath),
			),
		},
	}
}

// Init initializes the global logger, based on whether it's running in development
// mode or not, and on the default and per-component minimum log levels.
func Init(devMode bool, level string, overrides []string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cl, err := ParseComponentLevels(overrides)
	if err != nil {
		return err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if devMode {
		lvl = zerolog.TraceLevel
	}
	defaultLevel = lvl
	componentLevels = cl

	// The global level is a hard floor for all loggers,
	// so it must not filter out any component's level.
	zerolog.SetGlobalLevel(minLevel(lvl, cl))

	if !devMode {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return nil
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
	return nil
}

// ParseComponentLevels parses "component=level" pairs.
func ParseComponentLevels(pairs []string) (map[string]zerolog.Level, error) {
	m := make(map[string]zerolog.Level, len(pairs))
	for _, p := range pairs {
		for _, kv := range strings.Split(p, ",") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}

			name, level, ok := strings.Cut(kv, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid component log level %q", kv)
			}

			lvl, err := zerolog.ParseLevel(strings.TrimSpace(level))
			if err != nil {
				return nil, fmt.Errorf("invalid log level for component %q: %w", name, err)
			}
			m[name] = lvl
		}
	}
	return m, nil
}

// Component returns a child of the global logger, tagged with
// the component's name and filtered by the component's level.
func Component(name string) zerolog.Logger {
	lvl, ok := componentLevels[name]
	if !ok {
		lvl = defaultLevel
	}
	return log.Logger.With().Str("component", name).Logger().Level(lvl)
}

func minLevel(lvl zerolog.Level, m map[string]zerolog.Level) zerolog.Level {
	for _, l := range m {
		if l < lvl {
			lvl = l
		}
	}
	return lvl
}
