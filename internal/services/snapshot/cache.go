package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

const snapshotTTL = 24 * time.Hour

// Cache keeps the latest statistics and status of every camera in Redis so
// dashboards can read them without going through the worker
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache connects to Redis and verifies the connection
func NewCache(cfg *config.Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis snapshot cache connected")
	return &Cache{client: client, prefix: cfg.RedisKeyPrefix}, nil
}

// Key builds <prefix>:<session>:<scope>:<kind>
func Key(prefix, sessionID, scope, kind string) string {
	return strings.Join([]string{prefix, sessionID, strings.ToLower(scope), kind}, ":")
}

// UpdatesChannel is where every stored snapshot is announced
func UpdatesChannel(prefix string) string {
	return prefix + ":updates"
}

// keyFor returns the key an envelope is cached under, or "" if the
// envelope is not cached
func keyFor(prefix string, env models.Envelope) string {
	switch env.Type {
	case models.MessageStatistics:
		return Key(prefix, env.SessionID, string(env.Role), "statistics")
	case models.MessageSiteStatistics:
		return Key(prefix, env.SessionID, "site", "statistics")
	case models.MessageStatus:
		return Key(prefix, env.SessionID, string(env.Role), "status")
	case models.MessageSession:
		return prefix + ":session:current"
	default:
		return ""
	}
}

// Publish implements models.MessagePublisher
func (c *Cache) Publish(ctx context.Context, env models.Envelope) error {
	key := keyFor(c.prefix, env)
	if key == "" {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, snapshotTTL)
		pipe.Publish(ctx, UpdatesChannel(c.prefix), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// ErrMiss is returned when nothing is cached under a key
var ErrMiss = errors.New("snapshot not cached")

// Latest decodes the payload of the envelope cached under key into dst
func (c *Cache) Latest(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, ErrMiss)
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodePayload(data, dst)
}

// SiteStatistics returns the cached site statistics of a session
func (c *Cache) SiteStatistics(ctx context.Context, sessionID string) (models.SiteStatistics, error) {
	var stats models.SiteStatistics
	err := c.Latest(ctx, Key(c.prefix, sessionID, "site", "statistics"), &stats)
	return stats, err
}

func decodePayload(data []byte, dst interface{}) error {
	var env struct {
		Type    models.MessageType `json:"type"`
		Payload json.RawMessage    `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return fmt.Errorf("%s envelope without payload: %w", env.Type, ErrMiss)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}

func (c *Cache) Shutdown(ctx context.Context) error {
	if c.client != nil {
		log.Info().Msg("Closing Redis snapshot cache")
		return c.client.Close()
	}
	return nil
}
