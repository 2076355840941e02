package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Live session state stays in-process (the broadcast rooms and the state
//     machine are in-memory constructs); Redis carries a TTL'd liveness
//     marker per join code.
//   - The markers let external tooling see which codes are in play and give
//     a reaper something to key off, without this service evicting anything.
//   - For true distribution you'd pair this with a pub/sub projector that
//     fans out room events across instances.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionRegistry
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionRegistry(),
	}
}

func (r *SessionRegistry) Create(cfg app.SessionConfig) (*app.Session, error) {
	session, err := r.local.Create(cfg)
	if err != nil {
		return nil, err
	}
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.Code()), session.ID(), r.ttl).Err()
	return session, nil
}

func (r *SessionRegistry) Get(code string) (*app.Session, bool) {
	return r.local.Get(code)
}

func (r *SessionRegistry) List() []domain.SessionSummary {
	return r.local.List()
}

func (r *SessionRegistry) key(code string) string {
	return "quiz:session:" + code
}
