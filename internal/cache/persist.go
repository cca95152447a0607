package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// DefaultImageTTL bounds how long a persisted cache image stays usable.
const DefaultImageTTL = 24 * time.Hour

const imageKeyPrefix = "prospector:cache:"

var codec = sonic.Config{UseInt64: true}.Froze()

// Image is a serializable copy of a cache plus the delta watermark it was
// consistent with.
type Image struct {
	Records   map[string]Fragment `json:"records"`
	Roots     []string            `json:"roots"`
	Watermark int64               `json:"watermark"`
	SavedAt   int64               `json:"savedAt"`
}

// Export returns a deep copy of the cache contents.
func (m *Memory) Export() Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img := Image{
		Records: make(map[string]Fragment, len(m.records)),
		Roots:   make([]string, 0, len(m.roots)),
	}
	for id, rec := range m.records {
		img.Records[id] = rec.Clone()
	}
	for id := range m.roots {
		img.Roots = append(img.Roots, id)
	}
	return img
}

// Import replaces the cache contents with img. Decoded {"__ref": id} objects
// are turned back into Ref values.
func (m *Memory) Import(img Image) {
	records := make(map[string]Fragment, len(img.Records))
	for id, rec := range img.Records {
		records[id] = Fragment(restoreRefs(map[string]any(rec)).(map[string]any))
	}
	roots := make(map[string]struct{}, len(img.Roots))
	for _, id := range img.Roots {
		roots[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
	m.roots = roots
}

func restoreRefs(v any) any {
	if id, ok := refOf(v); ok {
		return Ref{ID: id}
	}
	switch x := v.(type) {
	case Fragment:
		return restoreRefs(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = restoreRefs(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = restoreRefs(item)
		}
		return out
	default:
		return v
	}
}

// RedisPersister stores cache images in Redis, one key per session.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister connects to redisURL and verifies the connection.
func NewRedisPersister(ctx context.Context, redisURL string) (*RedisPersister, error) {
	trimmed := strings.TrimSpace(redisURL)
	if trimmed == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisPersisterFromClient(client, DefaultImageTTL), nil
}

// NewRedisPersisterFromClient wraps an existing client. A non-positive ttl
// uses DefaultImageTTL.
func NewRedisPersisterFromClient(client *redis.Client, ttl time.Duration) *RedisPersister {
	if ttl <= 0 {
		ttl = DefaultImageTTL
	}
	return &RedisPersister{client: client, ttl: ttl}
}

// Save writes img for sessionID, refreshing its TTL.
func (p *RedisPersister) Save(ctx context.Context, sessionID string, img Image) error {
	if img.SavedAt == 0 {
		img.SavedAt = time.Now().UnixMilli()
	}
	payload, err := codec.Marshal(img)
	if err != nil {
		return fmt.Errorf("encode cache image: %w", err)
	}
	if err := p.client.Set(ctx, imageKey(sessionID), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("save cache image: %w", err)
	}
	return nil
}

// Load returns the stored image for sessionID. The boolean is false when no
// image exists.
func (p *RedisPersister) Load(ctx context.Context, sessionID string) (Image, bool, error) {
	payload, err := p.client.Get(ctx, imageKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Image{}, false, nil
		}
		return Image{}, false, fmt.Errorf("load cache image: %w", err)
	}
	var img Image
	if err := codec.Unmarshal(payload, &img); err != nil {
		return Image{}, false, fmt.Errorf("decode cache image: %w", err)
	}
	return img, true, nil
}

// Discard removes the stored image for sessionID.
func (p *RedisPersister) Discard(ctx context.Context, sessionID string) error {
	if err := p.client.Del(ctx, imageKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("discard cache image: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}

func imageKey(sessionID string) string {
	return imageKeyPrefix + sessionID
}
