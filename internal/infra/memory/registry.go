package memory

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// codeAttempts bounds collision retries when generating join codes. The code
// space holds 32^6 values, so exhausting this means something is badly wrong.
const codeAttempts = 10

// SessionRegistry is the in-memory implementation of app.SessionRegistry,
// keyed by normalized join code.
type SessionRegistry struct {
	mu       sync.RWMutex
	rnd      *rand.Rand
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*app.Session),
	}
}

// Create registers a fresh session. A caller-supplied code is trusted but
// checked: a collision there is a configuration error, not a race to retry.
// Generated codes retry against the current live set.
func (r *SessionRegistry) Create(cfg app.SessionConfig) (*app.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Code != "" {
		code := domain.NormalizeCode(cfg.Code)
		if _, exists := r.sessions[code]; exists {
			return nil, domain.ErrCodeTaken
		}
		cfg.Code = code
	} else {
		code, err := r.generateCodeLocked()
		if err != nil {
			return nil, err
		}
		cfg.Code = code
	}

	session := app.NewSession(cfg)
	r.sessions[cfg.Code] = session
	return session, nil
}

// Get looks a session up case-insensitively.
func (r *SessionRegistry) Get(code string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[domain.NormalizeCode(code)]
	return session, ok
}

// List returns admin summaries for every registered session.
func (r *SessionRegistry) List() []domain.SessionSummary {
	r.mu.RLock()
	sessions := make([]*app.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	return summaries
}

func (r *SessionRegistry) generateCodeLocked() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := domain.NewJoinCode(r.rnd)
		if _, exists := r.sessions[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique join code after %d attempts", codeAttempts)
}
