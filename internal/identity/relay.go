package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRevocationChannel = "dashboard:revocations"

// LocalRevoker ends sessions on this instance only
type LocalRevoker interface {
	RevokeLocal(uid string)
}

type revocation struct {
	UID    string `json:"uid"`
	Origin string `json:"origin"`
}

// Relay decorates a Provider so revocations reach every server instance.
// Revoke publishes to Redis; Start applies revocations published by peers.
type Relay struct {
	Provider
	local   LocalRevoker
	rdb     *redis.Client
	channel string
	origin  string
}

func NewRelay(p interface {
	Provider
	LocalRevoker
}, rdb *redis.Client, channel string) *Relay {
	if channel == "" {
		channel = DefaultRevocationChannel
	}
	return &Relay{
		Provider: p,
		local:    p,
		rdb:      rdb,
		channel:  channel,
		origin:   uuid.NewString(),
	}
}

func (r *Relay) Revoke(ctx context.Context, uid string) error {
	if err := r.Provider.Revoke(ctx, uid); err != nil {
		return err
	}
	payload, err := json.Marshal(revocation{UID: uid, Origin: r.origin})
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish revocation: %w", err)
	}
	return nil
}

// Start subscribes to the revocation channel and blocks until ctx is done.
// ready, if non-nil, is closed once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log.Printf("📡 Listening for revocations on %s", r.channel)
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rev revocation
			if err := json.Unmarshal([]byte(msg.Payload), &rev); err != nil {
				log.Printf("⚠️  Ignoring malformed revocation: %v", err)
				continue
			}
			if rev.Origin == r.origin || rev.UID == "" {
				continue
			}
			log.Printf("🔒 Revocation for %s from peer %s", rev.UID, rev.Origin)
			r.local.RevokeLocal(rev.UID)
		}
	}
}
