// Package state provides the process-wide key-value bag that is passed to
// every event handler, so they can keep cross-request state (e.g. OAuth
// tokens per workspace, or counters) without global variables.
//
// The gateway imposes no transaction semantics on stores: handlers that
// need read-modify-write atomicity are responsible for it.
package state

import (
	"context"
	"fmt"
	"sync"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	MemoryBackend = "memory"
	EtcdBackend   = "etcd"
)

// Store is implemented by [Memory] and by the etcd package.
type Store interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Store(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// LoadAndDelete removes a key and returns its previous value, atomically:
	// when called concurrently with the same key, only one caller gets ok == true.
	LoadAndDelete(ctx context.Context, key string) (string, bool, error)
}

// Flags defines CLI flags to select the shared state backend. These flags can
// also be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "state-store",
			Usage: fmt.Sprintf("shared state backend (%q or %q)", MemoryBackend, EtcdBackend),
			Value: MemoryBackend,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STATE_STORE"),
				toml.TOML("state.store", configFilePath),
			),
			Validator: func(s string) error {
				if s != MemoryBackend && s != EtcdBackend {
					return fmt.Errorf("unsupported state store %q", s)
				}
				return nil
			},
		},
	}
}

// Memory is an in-process [Store], which doesn't survive restarts.
type Memory struct {
	m sync.Map
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := s.m.Load(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *Memory) Store(_ context.Context, key, value string) error {
	s.m.Store(key, value)
	return nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.m.Delete(key)
	return nil
}

func (s *Memory) LoadAndDelete(_ context.Context, key string) (string, bool, error) {
	v, ok := s.m.LoadAndDelete(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}
