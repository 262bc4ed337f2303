package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Change announces that the value under Key was replaced by the surface
// named Origin.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin,omitempty"`
}

// Notify publishes a change for every key. Other surfaces re-read on
// receipt; nothing is pushed to them directly.
func (l *Local) Notify(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		payload, err := json.Marshal(Change{Key: k, Origin: l.origin})
		if err != nil {
			return err
		}
		if err := l.client.Publish(ctx, l.channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish change for %s: %w", k, err)
		}
	}
	return nil
}

func (l *Local) announce(ctx context.Context, keys ...string) {
	if err := l.Notify(ctx, keys...); err != nil {
		l.logger.Warn("Change notification dropped", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Subscribe streams changes made by other origins until ctx is done. The
// subscription is active when Subscribe returns.
func (l *Local) Subscribe(ctx context.Context) (<-chan Change, error) {
	ps := l.client.Subscribe(ctx, l.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", l.channel, err)
	}

	out := make(chan Change, 32)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					l.logger.Warn("Ignoring malformed change", zap.String("payload", msg.Payload))
					continue
				}
				if l.origin != "" && change.Origin == l.origin {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
