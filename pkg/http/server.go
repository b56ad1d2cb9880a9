package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tzrikka/qll/pkg/bot"
	"github.com/tzrikka/qll/pkg/chain"
	"github.com/tzrikka/qll/pkg/links"
	"github.com/tzrikka/qll/pkg/links/slack"
)

const (
	timeout = 3 * time.Second
)

type httpServer struct {
	addr    string
	handler http.Handler
}

func newHTTPServer(cmd *cli.Command, h http.Handler) *httpServer {
	return &httpServer{
		addr:    net.JoinHostPort(cmd.String("webhook-host"), strconv.Itoa(cmd.Int("webhook-port"))),
		handler: h,
	}
}

// newHandler builds the gateway's handler chain: all the
// Slack links, in order, and then the default route.
func newHandler(env *chain.Env, b *bot.Bot, opts ...chain.Option) http.Handler {
	routes := links.Routes(slack.DefaultPaths, env.Credentials.SigningSecret, b.Handlers())
	return chain.New(env, routes, http.HandlerFunc(bot.DefaultHandler), opts...)
}

// run starts an HTTP server to expose webhooks. This is blocking, to keep
// the server running, until the context is canceled. Failing to bind
// the listener is reported immediately.
func (s *httpServer) run(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		l.Err(err).Msg("failed to bind HTTP listener")
		return err
	}

	l.Info().Msgf("HTTP server listening on %s", lis.Addr())
	return s.serve(ctx, lis)
}

func (s *httpServer) serve(ctx context.Context, lis net.Listener) error {
	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  timeout,
		WriteTimeout: 2 * timeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Err(err).Send()
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		zerolog.Ctx(ctx).Info().Msg("shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return server.Shutdown(ctx)
	})

	return g.Wait()
}
