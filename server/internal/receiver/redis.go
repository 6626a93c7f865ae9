package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/heartrelay/heartrelay/pkg/types"
)

// SubscribeRedis subscribes to channel and submits every decodable message
// to in. Undecodable messages and rejected submissions are logged and
// skipped. It blocks until ctx is cancelled or the subscription closes.
func SubscribeRedis(ctx context.Context, rdb *redis.Client, channel string, in *Ingress) error {
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("receiver: redis subscribe %q: %w", channel, err)
	}
	slog.Info("receiver: subscribed to redis channel", "channel", channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			v, err := DecodePayload(msg.Payload)
			if err != nil {
				slog.Warn("receiver: undecodable redis message", "channel", msg.Channel, "err", err)
				continue
			}
			if err := in.Submit(v); err != nil {
				slog.Warn("receiver: reading rejected", "heart_rate", v, "err", err)
			}
		}
	}
}

// DecodePayload accepts `{"heart_rate": 72}` or a bare integer `72`.
func DecodePayload(payload string) (int, error) {
	s := strings.TrimSpace(payload)
	if s == "" {
		return 0, errors.New("empty payload")
	}
	if s[0] != '{' {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("parse integer: %w", err)
		}
		return v, nil
	}

	var sample types.Sample
	if err := json.Unmarshal([]byte(s), &sample); err != nil {
		return 0, fmt.Errorf("decode json: %w", err)
	}
	if sample.HeartRate == nil {
		return 0, errors.New("heart_rate missing")
	}
	return *sample.HeartRate, nil
}
