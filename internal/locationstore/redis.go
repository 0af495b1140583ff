package locationstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

const (
	// locationKey is the single well-known record this engine persists.
	locationKey = "snf:delivery_location"

	// changeChannel carries change notifications to other instances.
	changeChannel = "snf:delivery_location:changes"
)

// changeMessage is the wire form of a broadcast. Origin identifies the writing
// instance so subscribers can drop their own writes, matching the semantics of
// a storage-change notification that only fires in other tabs.
type changeMessage struct {
	Origin string                   `json:"origin"`
	Old    *domain.DeliveryLocation `json:"old"`
	New    *domain.DeliveryLocation `json:"new"`
}

// RedisStore persists the delivery location under one Redis key and broadcasts
// replacements over pub/sub.
type RedisStore struct {
	client *redis.Client
	origin string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		origin: uuid.New().String(),
	}
}

func (s *RedisStore) Get(ctx context.Context) (*domain.DeliveryLocation, error) {
	data, err := s.client.Get(ctx, locationKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoLocation
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrCacheError, fmt.Sprintf("read location: %v", err))
	}

	var loc domain.DeliveryLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, domain.NewError(domain.ErrCacheError, fmt.Sprintf("corrupted location record: %v", err))
	}
	return &loc, nil
}

func (s *RedisStore) Put(ctx context.Context, loc *domain.DeliveryLocation) error {
	old, err := s.Get(ctx)
	if err != nil && !errors.Is(err, ErrNoLocation) {
		// A corrupted previous record must not block the overwrite.
		log.Warn().Err(err).Msg("previous location unreadable, overwriting")
		old = nil
	}

	data, err := json.Marshal(loc)
	if err != nil {
		return domain.NewError(domain.ErrCacheError, fmt.Sprintf("marshal location: %v", err))
	}
	if err := s.client.Set(ctx, locationKey, data, 0).Err(); err != nil {
		return domain.NewError(domain.ErrCacheError, fmt.Sprintf("write location: %v", err))
	}

	s.publish(ctx, old, loc)
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	old, err := s.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNoLocation) {
			return nil
		}
		old = nil
	}

	if err := s.client.Del(ctx, locationKey).Err(); err != nil {
		return domain.NewError(domain.ErrCacheError, fmt.Sprintf("clear location: %v", err))
	}

	s.publish(ctx, old, nil)
	return nil
}

// Subscribe streams location changes made by other instances. The returned
// cancel func must be called when the consumer goes away.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	pubsub := s.client.Subscribe(ctx, changeChannel)

	// Force the subscription to be established before returning so callers
	// do not miss writes that race the subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, domain.NewError(domain.ErrCacheError, fmt.Sprintf("subscribe: %v", err))
	}

	events := make(chan ChangeEvent, 8)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var cm changeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
				log.Warn().Err(err).Msg("malformed location change message")
				continue
			}
			if cm.Origin == s.origin {
				continue // our own write
			}
			select {
			case events <- ChangeEvent{Old: cm.Old, New: cm.New}:
			default:
				log.Warn().Msg("location change dropped, subscriber lagging")
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return events, cancel, nil
}

func (s *RedisStore) publish(ctx context.Context, old, next *domain.DeliveryLocation) {
	payload, err := json.Marshal(changeMessage{Origin: s.origin, Old: old, New: next})
	if err != nil {
		log.Error().Err(err).Msg("marshal location change")
		return
	}
	// Broadcast is best-effort; the write itself already succeeded.
	if err := s.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		log.Warn().Err(err).Msg("publish location change")
	}
}
