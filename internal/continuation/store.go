// Package continuation derives the "resume last module" navigation
// target from persisted last-viewed records, and stays live by watching
// the persisted key-value store for changes.
package continuation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Change identifies a key whose value was written.
type Change struct {
	Key string
}

// Store is a string-keyed store of JSON-serialized values. Subscribe
// must observe writes from other processes AND writes made through this
// same process: cross-process notification alone is not enough, because
// same-process writers need to see their own updates without a reload.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Subscribe(ctx context.Context) (<-chan Change, func())
}

// notifier fans a Change out to in-process subscribers. This is the
// same-process signal that complements the cross-process channel.
type notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan Change)}
}

func (n *notifier) notify(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (n *notifier) subscribe() (chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	ch := make(chan Change, 8)
	n.subs[id] = ch
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
}

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]string
	notifier *notifier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		notifier: newNotifier(),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	s.notifier.notify(Change{Key: key})
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context) (<-chan Change, func()) {
	ch, cancel := s.notifier.subscribe()
	return ch, cancel
}

const changeChannel = "portal:store:changes"

// RedisStore persists values in Redis. Every Set publishes the key on a
// pub/sub channel for other processes and notifies in-process
// subscribers directly, so a subscriber sees both remote and local
// writes. Published messages carry the writer's sender id so Subscribe
// can drop this process's own messages coming back over pub/sub; a
// local write is delivered exactly once, through the notifier.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	senderID string
	notifier *notifier
}

// NewRedisStore creates a redis-backed store. prefix namespaces keys.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   prefix,
		senderID: newSenderID(),
		notifier: newNotifier(),
	}
}

func newSenderID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("pid-%d", os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := s.client.Publish(ctx, changeChannel, s.senderID+" "+key).Err(); err != nil {
		return fmt.Errorf("publishing change for %s: %w", key, err)
	}
	s.notifier.notify(Change{Key: key})
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Change, func()) {
	local, cancelLocal := s.notifier.subscribe()

	out := make(chan Change, 8)
	pubsub := s.client.Subscribe(ctx, changeChannel)

	done := make(chan struct{})
	go func() {
		defer close(out)
		remote := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case c, ok := <-local:
				if !ok {
					return
				}
				select {
				case out <- c:
				case <-done:
					return
				}
			case msg, ok := <-remote:
				if !ok {
					return
				}
				sender, key, found := strings.Cut(msg.Payload, " ")
				if !found {
					key = msg.Payload
				} else if sender == s.senderID {
					// Our own write, already delivered via the notifier.
					continue
				}
				select {
				case out <- Change{Key: key}:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			cancelLocal()
			pubsub.Close()
		})
	}
}
