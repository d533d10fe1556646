package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisHashKey   = "automeet:settings"
	redisChangesCh = "automeet:changes"

	redisDialTimeout = 3 * time.Second
)

// redisStore keeps the record in a single hash and broadcasts Change
// documents over pub/sub, so change notifications reach subscribers in other
// OS processes too. Writes are not atomic read-modify-write cycles; the store
// coordinates human-paced meeting switches, not concurrent writers.
type redisStore struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	watchers *watchers
	logger   logrus.FieldLogger

	closeOnce sync.Once
	done      chan struct{}
}

func newRedisStore(ctx context.Context, url string, logger logrus.FieldLogger) (*redisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis store URL: %w", err)
	}
	logger = logger.WithField("store", "redis")

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not reach redis at %q: %w", opts.Addr, err)
	}

	s := &redisStore{
		client:   client,
		pubsub:   client.Subscribe(ctx, redisChangesCh),
		watchers: newWatchers(logger),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go s.readChanges()

	logger.WithField("addr", opts.Addr).Debug("opened settings store")
	return s, nil
}

// readChanges forwards pub/sub messages (including our own publishes) to the
// local subscriber registry. It exits when the pubsub connection is closed.
func (s *redisStore) readChanges() {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var change Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			s.logger.WithError(err).Warn("discarding malformed change notification")
			continue
		}
		s.watchers.notify(change)
	}
}

func (s *redisStore) Name() string { return "redis" }

func (s *redisStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return s.client.HGetAll(ctx, redisHashKey).Result()
	}

	result := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.client.HGet(ctx, redisHashKey, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not read store key %q: %w", k, err)
		}
		result[k] = v
	}
	return result, nil
}

func (s *redisStore) Set(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		old, err := s.client.HGet(ctx, redisHashKey, k).Result()
		switch {
		case errors.Is(err, redis.Nil):
			old = ""
		case err != nil:
			return fmt.Errorf("could not read store key %q: %w", k, err)
		case old == v:
			continue
		}

		if err := s.client.HSet(ctx, redisHashKey, k, v).Err(); err != nil {
			return fmt.Errorf("could not write store key %q: %w", k, err)
		}

		payload, err := json.Marshal(Change{Key: k, Old: old, New: v})
		if err != nil {
			return err
		}
		if err := s.client.Publish(ctx, redisChangesCh, payload).Err(); err != nil {
			return fmt.Errorf("could not publish change for key %q: %w", k, err)
		}
		s.logger.WithField("key", k).Debug("store key changed")
	}
	return nil
}

func (s *redisStore) Watch() (uint64, <-chan Change) {
	return s.watchers.subscribe()
}

func (s *redisStore) Unsubscribe(subID uint64) {
	s.watchers.unsubscribe(subID)
}

func (s *redisStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
		<-s.done
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
		s.watchers.closeAll()
	})
	return err
}
