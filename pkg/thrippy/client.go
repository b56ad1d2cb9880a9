package thrippy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	thrippypb "github.com/tzrikka/thrippy-api/thrippy/v1"
)

const (
	timeout = 3 * time.Second

	slackTemplatePrefix = "slack-"
)

var (
	ErrLinkNotFound = errors.New("link not found in Thrippy")
	ErrNotSlackLink = errors.New("link template is not for Slack")
)

// Link is a Thrippy link of a Slack app, with its saved secrets.
type Link struct {
	ID       string
	Template string
	Secrets  map[string]string
}

// Connection creates a gRPC client connection to the given Thrippy server address.
// It supports both secure and insecure connections, based on the given credentials.
func Connection(addr string, creds credentials.TransportCredentials) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
}

// SlackLink returns the template name and saved secrets of a given Thrippy link.
// It reports [ErrLinkNotFound] if the link doesn't exist, and [ErrNotSlackLink]
// if the link's template isn't one of Thrippy's Slack templates.
func SlackLink(ctx context.Context, grpcAddr string, creds credentials.TransportCredentials, linkID string) (*Link, error) {
	l := zerolog.Ctx(ctx).With().Str("link_id", linkID).Logger()

	conn, err := Connection(grpcAddr, creds)
	if err != nil {
		l.Error().Stack().Err(err).Send()
		return nil, err
	}
	defer conn.Close()

	c := thrippypb.NewThrippyServiceClient(conn)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Template.
	resp1, err := c.GetLink(ctx, thrippypb.GetLinkRequest_builder{
		LinkId: proto.String(linkID),
	}.Build())
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, linkID)
		}
		l.Error().Stack().Err(err).Send()
		return nil, err
	}

	template := resp1.GetTemplate()
	if !strings.HasPrefix(template, slackTemplatePrefix) {
		return nil, fmt.Errorf("%w: %s (template %q)", ErrNotSlackLink, linkID, template)
	}

	// Credentials.
	resp2, err := c.GetCredentials(ctx, thrippypb.GetCredentialsRequest_builder{
		LinkId: proto.String(linkID),
	}.Build())
	if err != nil {
		l.Error().Stack().Err(err).Send()
		return nil, err
	}

	return &Link{ID: linkID, Template: template, Secrets: resp2.GetCredentials()}, nil
}
