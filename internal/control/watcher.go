// Package control watches Redis for remote masking rule manifests.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sipico/payload-masker/internal/config"
)

// ReloadSignal asks the watcher to re-read the manifest key. An empty message
// does the same; any other message is decoded as a manifest itself.
const ReloadSignal = "reload"

// Client is the subset of the Redis client the watcher uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RemoteRules installs a remote rules manifest; nil clears it.
type RemoteRules interface {
	SetRemote(ctx context.Context, remote *config.RulesFile) error
}

// Watcher loads the manifest stored under a Redis key and re-applies it whenever
// a message arrives on the update channel. A manifest uses the rules file shape
// (see config.RulesFile), in YAML or in JSON with the same kebab-case keys.
type Watcher struct {
	client  Client
	channel string
	key     string
	rules   RemoteRules
	logger  *slog.Logger
}

// NewClient returns a Redis client for addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// NewWatcher creates a watcher reading key and listening on channel.
func NewWatcher(client Client, channel, key string, rules RemoteRules, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		client:  client,
		channel: channel,
		key:     key,
		rules:   rules,
		logger:  logger,
	}
}

// Start performs the initial load, subscribes to the update channel and keeps
// applying updates in a goroutine until ctx is cancelled. It returns once the
// subscription is confirmed.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Starting remote rules watcher", "channel", w.channel, "key", w.key)

	if err := w.reload(ctx); err != nil {
		w.logger.Warn("Initial remote rules load failed", "error", err)
	}

	pubsub := w.client.Subscribe(ctx, w.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close() //nolint:errcheck
		return fmt.Errorf("failed to subscribe to %s: %w", w.channel, err)
	}
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				w.logger.Debug("Received rules update signal", "channel", msg.Channel, "bytes", len(msg.Payload))
				if err := w.Handle(ctx, msg.Payload); err != nil {
					w.logger.Error("Ignoring remote rules update", "error", err)
				}
			}
		}
	}()
	return nil
}

// Handle applies one update message.
func (w *Watcher) Handle(ctx context.Context, payload string) error {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || strings.EqualFold(trimmed, ReloadSignal) {
		return w.reload(ctx)
	}
	return w.apply(ctx, []byte(payload))
}

// reload re-reads the manifest key. A missing key clears the remote layer.
func (w *Watcher) reload(ctx context.Context) error {
	val, err := w.client.Get(ctx, w.key).Result()
	if errors.Is(err, redis.Nil) {
		w.logger.Info("No remote rules manifest found", "key", w.key)
		return w.rules.SetRemote(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch rules manifest: %w", err)
	}
	return w.apply(ctx, []byte(val))
}

func (w *Watcher) apply(ctx context.Context, manifest []byte) error {
	remote, err := config.ParseRules(manifest)
	if err != nil {
		return fmt.Errorf("invalid rules manifest: %w", err)
	}
	if err := w.rules.SetRemote(ctx, remote); err != nil {
		return err
	}
	w.logger.Info("Remote rules manifest applied", "fields", len(remote.Masking.Fields))
	return nil
}
