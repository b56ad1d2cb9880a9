package http

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/tzrikka/qll/pkg/bot"
	"github.com/tzrikka/qll/pkg/chain"
	"github.com/tzrikka/qll/pkg/credentials"
	"github.com/tzrikka/qll/pkg/etcd"
	"github.com/tzrikka/qll/pkg/logger"
	"github.com/tzrikka/qll/pkg/slackapi"
	"github.com/tzrikka/qll/pkg/state"
)

// Start initializes logging, the gateway's credentials, its Slack
// API client and shared state, and then runs the HTTP server.
// Configuration errors are reported before the server starts listening.
func Start(ctx context.Context, cmd *cli.Command) error {
	if err := logger.Init(cmd.Bool("dev"), cmd.String("log-level"), cmd.StringSlice("log-levels")); err != nil {
		return err
	}

	l := logger.Component("http")
	ctx = l.WithContext(ctx)

	creds, err := credentials.Load(ctx, cmd)
	if err != nil {
		l.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	store, err := newStateStore(cmd)
	if err != nil {
		l.Error().Err(err).Msg("failed to initialize shared state")
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	env := &chain.Env{
		Credentials: creds,
		Client:      slackapi.New(),
		State:       store,
	}

	b := bot.New()
	s := newHTTPServer(cmd, newHandler(env, b, chain.WithLogger(logger.Component("chain"))))
	err = s.run(ctx)

	// Let asynchronous follow-ups finish, even after a shutdown signal.
	b.Wait()
	return err
}

func newStateStore(cmd *cli.Command) (state.Store, error) {
	switch backend := cmd.String("state-store"); backend {
	case state.MemoryBackend:
		return state.NewMemory(), nil
	case state.EtcdBackend:
		return etcd.NewStore(cmd.StringSlice("etcd-endpoint-urls"), cmd.String("etcd-key-prefix"))
	default:
		return nil, fmt.Errorf("unsupported state store %q", backend)
	}
}
