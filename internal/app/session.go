package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

// Join adds a participant and subscribes them to the session's room in one
// step. The returned snapshot is the joiner's private quiz:joined payload;
// the rest of the room hears participants:count and participant:joined. The
// returned channel carries every subsequent room event in application order;
// cancel must be called exactly once when the connection goes away (calling
// it again is a no-op).
func (s *Session) Join(participantID, displayName, avatarID string) (domain.SessionSnapshot, <-chan domain.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.participants[participantID]; ok {
		// Rejoin on an existing identity refreshes display metadata only.
		p.DisplayName = displayName
		p.AvatarID = avatarID
		p.Connected = true
	} else {
		s.joinSeq++
		s.participants[participantID] = &domain.Participant{
			ID:          participantID,
			DisplayName: displayName,
			AvatarID:    avatarID,
			Answers:     []domain.Answer{},
			Connected:   true,
			JoinOrder:   s.joinSeq,
		}
	}

	ch := make(chan domain.Event, subscriberBuffer)
	s.subscribers[participantID] = ch

	s.broadcastLocked(domain.Event{Type: domain.EventParticipantsCount, Payload: s.connectedCountLocked()}, "")
	s.broadcastLocked(domain.Event{
		Type: domain.EventParticipantJoined,
		Payload: domain.ParticipantJoinedPayload{
			DisplayName: displayName,
			AvatarID:    avatarID,
		},
	}, participantID)

	cancel := func() { s.unsubscribe(participantID, ch) }
	return s.snapshotLocked(), ch, cancel
}

// Leave marks the participant as disconnected and notifies the room. The
// participant record stays: answers and scores keep counting toward the
// leaderboard after the connection is gone. An explicit leave:quiz and a
// dropped socket take exactly this path.
func (s *Session) Leave(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return
	}
	p.Connected = false
	if ch, ok := s.subscribers[participantID]; ok {
		delete(s.subscribers, participantID)
		close(ch)
	}

	s.broadcastLocked(domain.Event{Type: domain.EventParticipantsCount, Payload: s.connectedCountLocked()}, "")
	s.broadcastLocked(domain.Event{
		Type:    domain.EventParticipantLeft,
		Payload: domain.ParticipantLeftPayload{ParticipantID: participantID},
	}, "")
}

// SubmitAnswer scores a submission for the session's current question and
// unicasts the result to the answerer. Stale answers (wrong question, session
// not active) and duplicates are dropped without a reply — normal network
// jitter, not faults. The duplicate check makes submission at-most-once per
// (participant, question): a retried request can never score twice.
func (s *Session) SubmitAnswer(participantID, questionID string, selectedOptionIDs []string, responseTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if s.status != domain.StatusActive {
		return nil
	}
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		return nil
	}
	question := s.questions[s.currentIndex]
	if question.ID != questionID {
		return nil
	}
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return nil
		}
	}

	isCorrect, points := EvaluateAnswer(question, p.Streak, selectedOptionIDs, responseTime)
	p.Answers = append(p.Answers, domain.Answer{
		QuestionID:        questionID,
		SelectedOptionIDs: selectedOptionIDs,
		IsCorrect:         isCorrect,
		PointsEarned:      points,
		ResponseTime:      responseTime,
	})
	if isCorrect {
		p.Score += points
		p.Streak++
	} else {
		p.Streak = 0
	}

	s.unicastLocked(participantID, domain.Event{
		Type: domain.EventQuizAnswerResult,
		Payload: domain.AnswerResultPayload{
			IsCorrect:        isCorrect,
			CorrectOptionIDs: question.CorrectOptionIDs,
			PointsEarned:     points,
			NewScore:         p.Score,
			NewStreak:        p.Streak,
		},
	})
	return nil
}

// Leaderboard recomputes the ranking from scratch; nothing is cached.
func (s *Session) Leaderboard() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

// Snapshot returns the full reconciliation view a late joiner needs.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Summary is the admin-facing view; never sent to participants.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSummary{
		ID:               s.id,
		Code:             s.code,
		Title:            s.title,
		HostName:         s.hostName,
		TotalQuestions:   len(s.questions),
		ParticipantCount: s.connectedCountLocked(),
		Status:           s.status,
	}
}

// Code returns the session's join code (canonical uppercase form).
func (s *Session) Code() string { return s.code }

// ID returns the server-generated session identifier.
func (s *Session) ID() string { return s.id }

// NewParticipantID mints a connection-scoped participant identity. Identities
// are always server-generated so a client cannot impersonate another
// participant by picking its id.
func NewParticipantID() string { return uuid.NewString() }

func (s *Session) unsubscribe(participantID string, ch chan domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.subscribers[participantID]; ok && current == ch {
		delete(s.subscribers, participantID)
		close(ch)
	}
}

func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	all := make([]*domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		all = append(all, p)
	}
	return ComputeLeaderboard(all)
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	profiles := make([]domain.ParticipantProfile, 0, len(s.participants))
	for _, p := range s.participants {
		if !p.Connected {
			continue
		}
		profiles = append(profiles, domain.ParticipantProfile{
			DisplayName: p.DisplayName,
			AvatarID:    p.AvatarID,
		})
	}

	snap := domain.SessionSnapshot{
		ID:                   s.id,
		Code:                 s.code,
		Title:                s.title,
		HostName:             s.hostName,
		Status:               s.status,
		CurrentQuestionIndex: s.currentIndex,
		TotalQuestions:       len(s.questions),
		Participants:         profiles,
		CreatedAt:            s.createdAt,
	}
	if s.status != domain.StatusWaiting && s.currentIndex >= 0 && s.currentIndex < len(s.questions) {
		q := s.questions[s.currentIndex]
		snap.CurrentQuestion = &q
	}
	return snap
}

func (s *Session) connectedCountLocked() int {
	count := 0
	for _, p := range s.participants {
		if p.Connected {
			count++
		}
	}
	return count
}

// broadcastLocked fans an event out to every subscriber except excludeID.
// Each subscriber channel receives events in the order operations applied
// them; a subscriber whose buffer is full has this event dropped rather than
// blocking the room.
func (s *Session) broadcastLocked(event domain.Event, excludeID string) {
	for id, ch := range s.subscribers {
		if id == excludeID {
			continue
		}
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Session) unicastLocked(participantID string, event domain.Event) {
	ch, ok := s.subscribers[participantID]
	if !ok {
		return
	}
	select {
	case ch <- event:
	default:
	}
}

const subscriberBuffer = 64

// Session holds all live state for one quiz being played. Every mutation
// runs to completion under the session mutex, including enqueueing its
// broadcasts, which is what preserves the per-room FIFO the clients rely on.
type Session struct {
	id        string
	code      string
	title     string
	hostName  string
	createdAt time.Time
	now       func() time.Time

	mu            sync.Mutex
	status        domain.SessionStatus
	questions     []domain.Question
	currentIndex  int
	participants  map[string]*domain.Participant
	joinSeq       int
	subscribers   map[string]chan domain.Event
	resultDisplay time.Duration

	// auto-advance scheduler state, see lifecycle.go
	autoAdvance    bool
	timer          *time.Timer
	timerGen       uint64
	timerDeadline  time.Time
	timerSuspended bool
	timerRemaining time.Duration
}

// SessionConfig carries everything needed to construct a session.
type SessionConfig struct {
	Code          string
	Title         string
	HostName      string
	Questions     []domain.Question
	ResultDisplay time.Duration
	Now           func() time.Time
}

// NewSession is exported for registries that construct sessions.
func NewSession(cfg SessionConfig) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:            uuid.NewString(),
		code:          domain.NormalizeCode(cfg.Code),
		title:         cfg.Title,
		hostName:      cfg.HostName,
		createdAt:     now(),
		now:           now,
		status:        domain.StatusWaiting,
		questions:     cfg.Questions,
		currentIndex:  -1,
		participants:  make(map[string]*domain.Participant),
		subscribers:   make(map[string]chan domain.Event),
		resultDisplay: cfg.ResultDisplay,
	}
}
