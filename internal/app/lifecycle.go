package app

import (
	"log"
	"time"

	"quiz-session-service/internal/domain"
)

// Lifecycle: waiting → active ⇄ paused, active → ended (terminal). Invalid
// transitions return domain.ErrInvalidTransition and change nothing — a
// misfired admin call must never crash the process or corrupt a session.

// Start moves the session out of waiting, reveals the first question, and
// optionally arms the auto-advance scheduler.
func (s *Session) Start(autoAdvance bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusWaiting {
		log.Printf("session %s: start ignored in status %s", s.code, s.status)
		return domain.ErrInvalidTransition
	}
	if len(s.questions) == 0 {
		log.Printf("session %s: start ignored, no questions", s.code)
		return domain.ErrInvalidTransition
	}
	s.status = domain.StatusActive
	s.currentIndex = 0
	s.autoAdvance = autoAdvance

	s.broadcastLocked(domain.Event{Type: domain.EventQuizStarted}, "")
	s.broadcastLocked(domain.Event{Type: domain.EventQuizQuestion, Payload: s.questions[0]}, "")
	if s.autoAdvance {
		s.armAdvanceLocked(s.questionWindowLocked())
	}
	return nil
}

// AdvanceQuestion moves the timeline forward one step. A manual call clears
// any pending auto-advance first so the timeline can never double-step.
func (s *Session) AdvanceQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		log.Printf("session %s: advance ignored in status %s", s.code, s.status)
		return domain.ErrInvalidTransition
	}
	s.cancelAdvanceLocked()
	s.advanceLocked()
	return nil
}

// Pause suspends the session. The auto-advance countdown is captured and
// held so paused time never counts against the question window.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusActive {
		log.Printf("session %s: pause ignored in status %s", s.code, s.status)
		return domain.ErrInvalidTransition
	}
	s.status = domain.StatusPaused
	if s.timer != nil {
		s.timerSuspended = true
		s.timerRemaining = s.timerDeadline.Sub(s.now())
		if s.timerRemaining < 0 {
			s.timerRemaining = 0
		}
		s.cancelAdvanceLocked()
	}
	s.broadcastLocked(domain.Event{Type: domain.EventHostPaused}, "")
	return nil
}

// Resume reactivates a paused session and re-arms the scheduler with
// whatever budget the question had left when it was paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPaused {
		log.Printf("session %s: resume ignored in status %s", s.code, s.status)
		return domain.ErrInvalidTransition
	}
	s.status = domain.StatusActive
	if s.autoAdvance && s.timerSuspended {
		s.armAdvanceLocked(s.timerRemaining)
		s.timerSuspended = false
		s.timerRemaining = 0
	}
	s.broadcastLocked(domain.Event{Type: domain.EventHostResumed}, "")
	return nil
}

// advanceLocked performs the index step. currentIndex only ever grows; once
// the session ends no path mutates it again.
func (s *Session) advanceLocked() {
	s.currentIndex++

	if s.currentIndex < len(s.questions) {
		// Clients reconcile in exactly this order: state, then question,
		// then leaderboard.
		s.broadcastLocked(domain.Event{
			Type: domain.EventSessionUpdate,
			Payload: domain.SessionUpdatePayload{
				CurrentQuestionIndex: s.currentIndex,
				Status:               s.status,
			},
		}, "")
		s.broadcastLocked(domain.Event{Type: domain.EventQuizQuestion, Payload: s.questions[s.currentIndex]}, "")
		s.broadcastLocked(domain.Event{Type: domain.EventQuizLeaderboard, Payload: s.leaderboardLocked()}, "")
		if s.autoAdvance {
			s.armAdvanceLocked(s.questionWindowLocked())
		}
		return
	}

	s.status = domain.StatusEnded
	s.cancelAdvanceLocked()

	entries := s.leaderboardLocked()
	total := len(entries)
	// Each participant learns their own standing only; the generic final
	// notice follows for everyone.
	for _, entry := range entries {
		s.unicastLocked(entry.ParticipantID, domain.Event{
			Type: domain.EventQuizEnded,
			Payload: domain.QuizEndedPayload{
				Rank:              entry.Rank,
				TotalParticipants: total,
				Score:             entry.Score,
			},
		})
	}
	s.broadcastLocked(domain.Event{Type: domain.EventQuizEnded, Payload: domain.QuizEndedPayload{Final: true}}, "")
}

// questionWindowLocked is how long the current question stays up when the
// scheduler drives the timeline: the answer window plus a grace period for
// clients to render the reveal.
func (s *Session) questionWindowLocked() time.Duration {
	limit := time.Duration(s.questions[s.currentIndex].TimeLimit) * time.Second
	return limit + s.resultDisplay
}

// armAdvanceLocked schedules an automatic advance. The generation counter is
// the cancellation token: a fired callback whose generation is stale was
// cancelled (or superseded) after scheduling and must do nothing — a timer
// firing into an ended or re-armed session would double-advance.
func (s *Session) armAdvanceLocked(d time.Duration) {
	s.timerGen++
	gen := s.timerGen
	s.timerDeadline = s.now().Add(d)
	s.timer = time.AfterFunc(d, func() {
		s.fireAdvance(gen)
	})
}

// cancelAdvanceLocked is safe to call any number of times, including when no
// timer is pending or the timer already fired.
func (s *Session) cancelAdvanceLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) fireAdvance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.status != domain.StatusActive {
		return
	}
	s.timer = nil
	s.advanceLocked()
}
