package etcd

import (
	"context"
	"errors"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	timeout = 3 * time.Second
)

// Store is a shared state store backed by an etcd cluster,
// for deployments with more than one server instance.
type Store struct {
	client *clientv3.Client
	prefix string
}

// NewStore creates an etcd client. It doesn't wait for a connection to be
// established with the cluster. All keys are stored under the given prefix.
func NewStore(endpoints []string, prefix string) (*Store, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no etcd endpoints")
	}

	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Store{client: c, prefix: prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return "", false, err
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}

	return string(resp.Kvs[0].Value), true, nil
}

func (s *Store) Store(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.client.Put(ctx, s.key(key), value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.client.Delete(ctx, s.key(key))
	return err
}

// LoadAndDelete deletes the key with [clientv3.WithPrevKV]: etcd applies deletes
// in a single order, so only the caller that removed the key gets its value.
func (s *Store) LoadAndDelete(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.client.Delete(ctx, s.key(key), clientv3.WithPrevKV())
	if err != nil {
		return "", false, err
	}
	if len(resp.PrevKvs) == 0 {
		return "", false, nil
	}

	return string(resp.PrevKvs[0].Value), true, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
