package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/config"
)

const channelPrefix = "notifications:"

func NewRedis(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Notifier publishes events on the recipient's Redis channel, so every API
// instance's Relay can reach that user's connections.
type Notifier struct {
	RDB *redis.Client
	Log *zap.Logger
}

func NewNotifier(rdb *redis.Client, log *zap.Logger) *Notifier {
	return &Notifier{RDB: rdb, Log: log}
}

// Notify is best effort: failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.Log.Error("marshal event", zap.Error(err))
		return
	}
	if err := n.RDB.Publish(ctx, channelPrefix+userID.String(), payload).Err(); err != nil {
		n.Log.Warn("publish notification failed",
			zap.Error(err),
			zap.String("type", string(ev.Type)),
			zap.Stringer("user_id", userID),
		)
	}
}

// Relay forwards events from Redis into the local hub.
type Relay struct {
	RDB *redis.Client
	Hub *Hub
	Log *zap.Logger
}

// Run blocks until ctx is cancelled or the subscription fails.
func (r *Relay) Run(ctx context.Context) error {
	ps := r.RDB.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg)
		}
	}
}

func (r *Relay) deliver(msg *redis.Message) {
	userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
	if err != nil {
		r.Log.Warn("notification on unexpected channel", zap.String("channel", msg.Channel))
		return
	}
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		r.Log.Warn("malformed notification", zap.Error(err), zap.String("channel", msg.Channel))
		return
	}
	r.Hub.SendToUser(userID, ev)
}
