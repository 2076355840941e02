package app

import (
	"context"
	"time"

	"quiz-session-service/internal/domain"
)

// SessionRegistry abstracts how live sessions are tracked (in-memory, Redis
// liveness, etc). Lookups are by normalized join code.
type SessionRegistry interface {
	Create(cfg SessionConfig) (*Session, error)
	Get(code string) (*Session, bool)
	List() []domain.SessionSummary
}

// QuestionSetRepository loads stored quiz content (from cache/backing store).
type QuestionSetRepository interface {
	GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// SessionService contains the session use cases shared by the realtime
// gateway and the admin API. All session mutation flows through here or
// through the Session methods it hands out; nothing else touches the maps.
type SessionService struct {
	registry      SessionRegistry
	sets          QuestionSetRepository
	resultDisplay time.Duration
}

func NewSessionService(registry SessionRegistry, sets QuestionSetRepository, resultDisplay time.Duration) *SessionService {
	return &SessionService{registry: registry, sets: sets, resultDisplay: resultDisplay}
}

// CreateSessionRequest is the admin create payload. Questions win over
// QuestionSetID; with neither, the built-in demo set is used. Code is
// optional: when a caller brings its own (generated client-side with enough
// entropy), it is trusted; a collision there is a configuration error
// surfaced as ErrCodeTaken, not retried.
type CreateSessionRequest struct {
	Title         string            `json:"title"`
	HostName      string            `json:"hostName"`
	Questions     []domain.Question `json:"questions,omitempty"`
	QuestionSetID string            `json:"questionSetId,omitempty"`
	Code          string            `json:"code,omitempty"`
}

// CreateSession resolves quiz content and registers a fresh session in the
// waiting state.
func (s *SessionService) CreateSession(ctx context.Context, req CreateSessionRequest) (domain.SessionSummary, error) {
	questions := req.Questions
	if len(questions) == 0 && req.QuestionSetID != "" {
		set, err := s.sets.GetQuestionSet(ctx, req.QuestionSetID)
		if err != nil {
			return domain.SessionSummary{}, err
		}
		questions = set.Questions
	}
	if len(questions) == 0 {
		questions = DemoQuestions()
	}

	session, err := s.registry.Create(SessionConfig{
		Code:          req.Code,
		Title:         req.Title,
		HostName:      req.HostName,
		Questions:     questions,
		ResultDisplay: s.resultDisplay,
	})
	if err != nil {
		return domain.SessionSummary{}, err
	}
	return session.Summary(), nil
}

// Join resolves the code and enrolls the participant. The Session is
// returned alongside the snapshot so the connection can route subsequent
// commands without another lookup.
func (s *SessionService) Join(code, participantID, displayName, avatarID string) (*Session, domain.SessionSnapshot, <-chan domain.Event, func(), error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return nil, domain.SessionSnapshot{}, nil, nil, domain.ErrSessionNotFound
	}
	snapshot, events, cancel := session.Join(participantID, displayName, avatarID)
	return session, snapshot, events, cancel, nil
}

// Start begins the quiz identified by code.
func (s *SessionService) Start(code string, autoAdvance bool) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Start(autoAdvance)
}

// Advance manually steps the question timeline.
func (s *SessionService) Advance(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.AdvanceQuestion()
}

// Pause suspends an active session.
func (s *SessionService) Pause(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Pause()
}

// Resume reactivates a paused session.
func (s *SessionService) Resume(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Resume()
}

// Leaderboard returns the current ranking for a session.
func (s *SessionService) Leaderboard(code string) ([]domain.LeaderboardEntry, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Leaderboard(), nil
}

// List returns admin summaries of every live session.
func (s *SessionService) List() []domain.SessionSummary {
	return s.registry.List()
}

// DemoQuestions is the built-in fallback set used when a session is created
// without content; handy for demos and tests.
func DemoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   "demo-q1",
			Text: "What is the capital of France?",
			Options: []domain.Option{
				{ID: "a", Text: "Berlin"},
				{ID: "b", Text: "Paris"},
				{ID: "c", Text: "Madrid"},
				{ID: "d", Text: "Rome"},
			},
			CorrectOptionIDs: []string{"b"},
			TimeLimit:        15,
			Points:           100,
			Type:             domain.QuestionMCQ,
		},
		{
			ID:   "demo-q2",
			Text: "Which of these are prime numbers?",
			Options: []domain.Option{
				{ID: "a", Text: "2"},
				{ID: "b", Text: "6"},
				{ID: "c", Text: "7"},
				{ID: "d", Text: "9"},
			},
			CorrectOptionIDs: []string{"a", "c"},
			TimeLimit:        20,
			Points:           100,
			Type:             domain.QuestionMultiSelect,
		},
		{
			ID:   "demo-q3",
			Text: "The Pacific is the largest ocean on Earth.",
			Options: []domain.Option{
				{ID: "true", Text: "True"},
				{ID: "false", Text: "False"},
			},
			CorrectOptionIDs: []string{"true"},
			TimeLimit:        10,
			Points:           50,
			Type:             domain.QuestionTrueFalse,
		},
	}
}
