package app

import (
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func threeQuestions() []domain.Question {
	qs := make([]domain.Question, 3)
	for i, id := range []string{"q1", "q2", "q3"} {
		qs[i] = domain.Question{
			ID:   id,
			Text: "question " + id,
			Options: []domain.Option{
				{ID: "a", Text: "right"},
				{ID: "b", Text: "wrong"},
			},
			CorrectOptionIDs: []string{"a"},
			TimeLimit:        15,
			Points:           100,
			Type:             domain.QuestionMCQ,
		}
	}
	return qs
}

func testSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(SessionConfig{
		Code:      "ABCDEF",
		Title:     "Test Quiz",
		HostName:  "Host",
		Questions: threeQuestions(),
	})
}

func (s *Session) stateForTest() (domain.SessionStatus, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.currentIndex
}

func drain(ch <-chan domain.Event) []domain.Event {
	var events []domain.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestJoinSnapshotAndNotices(t *testing.T) {
	s := testSession(t)

	snap1, ch1, cancel1 := s.Join("p1", "Alice", "fox")
	defer cancel1()
	if snap1.Status != domain.StatusWaiting || snap1.CurrentQuestionIndex != -1 {
		t.Fatalf("unexpected snapshot for fresh session: %+v", snap1)
	}
	if snap1.CurrentQuestion != nil {
		t.Fatalf("waiting session must not reveal a question")
	}

	snap2, ch2, cancel2 := s.Join("p2", "Bob", "owl")
	defer cancel2()
	if len(snap2.Participants) != 2 {
		t.Fatalf("expected 2 profiles in snapshot, got %d", len(snap2.Participants))
	}

	// The earlier joiner hears the count update and the join notice.
	events := drain(ch1)
	if len(events) < 2 {
		t.Fatalf("expected count and join notice, got %+v", events)
	}
	sawJoin := false
	for _, e := range events {
		if e.Type == domain.EventParticipantJoined {
			sawJoin = true
			payload := e.Payload.(domain.ParticipantJoinedPayload)
			if payload.DisplayName != "Bob" || payload.AvatarID != "owl" {
				t.Fatalf("join notice leaked wrong data: %+v", payload)
			}
		}
	}
	if !sawJoin {
		t.Fatalf("expected participant:joined on the room, got %+v", events)
	}

	// The joiner must not receive their own join notice.
	for _, e := range drain(ch2) {
		if e.Type == domain.EventParticipantJoined {
			t.Fatalf("joiner received their own participant:joined")
		}
	}
}

func TestSubmitAnswerIdempotent(t *testing.T) {
	s := testSession(t)
	_, ch, cancel := s.Join("p1", "Alice", "fox")
	defer cancel()
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("duplicate submit must be a silent no-op, got %v", err)
	}

	p := s.participants["p1"]
	if len(p.Answers) != 1 {
		t.Fatalf("expected one recorded answer, got %d", len(p.Answers))
	}
	if p.Score != 130 {
		t.Fatalf("expected score 130 after duplicate, got %d", p.Score)
	}

	results := 0
	for _, e := range drain(ch) {
		if e.Type == domain.EventQuizAnswerResult {
			results++
		}
	}
	if results != 1 {
		t.Fatalf("expected exactly one answer-result event, got %d", results)
	}
}

func TestSubmitAnswerConcurrentDuplicates(t *testing.T) {
	s := testSession(t)
	_, _, cancel := s.Join("p1", "Alice", "fox")
	defer cancel()
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SubmitAnswer("p1", "q1", []string{"a"}, 5)
		}()
	}
	wg.Wait()

	p := s.participants["p1"]
	if len(p.Answers) != 1 || p.Score != 130 {
		t.Fatalf("racing duplicates must score once: answers=%d score=%d", len(p.Answers), p.Score)
	}
}

func TestStaleAnswersDropped(t *testing.T) {
	s := testSession(t)
	_, _, cancel := s.Join("p1", "Alice", "fox")
	defer cancel()

	// Before start: session isn't active yet.
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("pre-start submit should be dropped silently, got %v", err)
	}
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Wrong question id.
	if err := s.SubmitAnswer("p1", "q2", []string{"a"}, 5); err != nil {
		t.Fatalf("stale submit should be dropped silently, got %v", err)
	}
	if len(s.participants["p1"].Answers) != 0 {
		t.Fatalf("dropped answers must not be recorded")
	}

	// While paused.
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("paused submit should be dropped silently, got %v", err)
	}
	if len(s.participants["p1"].Answers) != 0 {
		t.Fatalf("paused answers must not be recorded")
	}

	// Unknown participant is an error for the gateway to report.
	if err := s.SubmitAnswer("ghost", "q1", []string{"a"}, 5); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	s := testSession(t)

	if err := s.Pause(); err != domain.ErrInvalidTransition {
		t.Fatalf("pause from waiting must be rejected, got %v", err)
	}
	if err := s.AdvanceQuestion(); err != domain.ErrInvalidTransition {
		t.Fatalf("advance from waiting must be rejected, got %v", err)
	}
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(false); err != domain.ErrInvalidTransition {
		t.Fatalf("double start must be rejected, got %v", err)
	}
	if err := s.Resume(); err != domain.ErrInvalidTransition {
		t.Fatalf("resume while active must be rejected, got %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.Pause(); err != domain.ErrInvalidTransition {
		t.Fatalf("double pause must be rejected, got %v", err)
	}
	if err := s.AdvanceQuestion(); err != domain.ErrInvalidTransition {
		t.Fatalf("advance while paused must be rejected, got %v", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	status, _ := s.stateForTest()
	if status != domain.StatusActive {
		t.Fatalf("expected active after resume, got %s", status)
	}
}

func TestMonotonicIndexAndTerminalEnd(t *testing.T) {
	s := testSession(t)
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}

	last := 0
	for i := 0; i < 10; i++ {
		err := s.AdvanceQuestion()
		_, idx := s.stateForTest()
		if idx < last {
			t.Fatalf("currentQuestionIndex went backwards: %d -> %d", last, idx)
		}
		last = idx
		if err == domain.ErrInvalidTransition {
			break
		}
	}

	status, idx := s.stateForTest()
	if status != domain.StatusEnded {
		t.Fatalf("expected ended, got %s", status)
	}
	if idx != len(threeQuestions()) {
		t.Fatalf("expected terminal index %d, got %d", len(threeQuestions()), idx)
	}

	// Once ended nothing moves the index again.
	for i := 0; i < 3; i++ {
		if err := s.AdvanceQuestion(); err != domain.ErrInvalidTransition {
			t.Fatalf("advance after end must be rejected, got %v", err)
		}
	}
	if _, after := s.stateForTest(); after != idx {
		t.Fatalf("index mutated after end: %d -> %d", idx, after)
	}
}

func TestAdvanceBroadcastOrder(t *testing.T) {
	s := testSession(t)
	_, ch, cancel := s.Join("p1", "Alice", "fox")
	defer cancel()
	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}
	drain(ch)

	if err := s.AdvanceQuestion(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	events := drain(ch)
	want := []string{domain.EventSessionUpdate, domain.EventQuizQuestion, domain.EventQuizLeaderboard}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events)
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], e.Type)
		}
	}

	update := events[0].Payload.(domain.SessionUpdatePayload)
	if update.CurrentQuestionIndex != 1 || update.Status != domain.StatusActive {
		t.Fatalf("unexpected session:update payload: %+v", update)
	}
	question := events[1].Payload.(domain.Question)
	if question.ID != "q2" {
		t.Fatalf("expected q2 payload, got %s", question.ID)
	}
}

func TestEndedEventsPersonalizedThenFinal(t *testing.T) {
	s := testSession(t)
	_, ch1, cancel1 := s.Join("p1", "Alice", "fox")
	defer cancel1()
	_, ch2, cancel2 := s.Join("p2", "Bob", "owl")
	defer cancel2()

	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.AdvanceQuestion(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	drainEnd := func(ch <-chan domain.Event) (personal *domain.QuizEndedPayload, final bool) {
		for _, e := range drain(ch) {
			if e.Type != domain.EventQuizEnded {
				continue
			}
			payload := e.Payload.(domain.QuizEndedPayload)
			if payload.Final {
				if personal == nil {
					// personalized standing must precede the final notice
					return nil, true
				}
				final = true
				continue
			}
			p := payload
			personal = &p
		}
		return personal, final
	}

	p1, final1 := drainEnd(ch1)
	if p1 == nil || !final1 {
		t.Fatalf("p1 missing personalized or final ended event")
	}
	if p1.Rank != 1 || p1.TotalParticipants != 2 || p1.Score != 130 {
		t.Fatalf("unexpected standing for p1: %+v", p1)
	}

	p2, final2 := drainEnd(ch2)
	if p2 == nil || !final2 {
		t.Fatalf("p2 missing personalized or final ended event")
	}
	if p2.Rank != 2 || p2.Score != 0 {
		t.Fatalf("unexpected standing for p2: %+v", p2)
	}
}

func TestDisconnectKeepsHistory(t *testing.T) {
	s := testSession(t)
	_, _, cancel1 := s.Join("p1", "Alice", "fox")
	defer cancel1()
	_, _, cancel2 := s.Join("p2", "Bob", "owl")
	defer cancel2()

	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Alice drops before Q2.
	s.Leave("p1")
	if got := s.Summary().ParticipantCount; got != 1 {
		t.Fatalf("expected live count 1 after leave, got %d", got)
	}

	for i := 0; i < 3; i++ {
		if err := s.AdvanceQuestion(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	entries := s.Leaderboard()
	if len(entries) != 2 {
		t.Fatalf("departed participant dropped from leaderboard: %+v", entries)
	}
	if entries[0].ParticipantID != "p1" || entries[0].CorrectCount != 1 {
		t.Fatalf("expected p1 first with their answer counted, got %+v", entries)
	}
}

func TestAutoAdvanceFires(t *testing.T) {
	qs := threeQuestions()
	qs[0].TimeLimit = 1
	s := NewSession(SessionConfig{Code: "AUTOFL", Title: "t", HostName: "h", Questions: qs})

	if err := s.Start(true); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, idx := s.stateForTest(); idx == 1 {
			return
		}
		if time.Now().After(deadline) {
			_, idx := s.stateForTest()
			t.Fatalf("auto-advance never fired, index still %d", idx)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestManualAdvanceCancelsTimer(t *testing.T) {
	qs := threeQuestions()
	for i := range qs {
		qs[i].TimeLimit = 1
	}
	s := NewSession(SessionConfig{Code: "CANCEL", Title: "t", HostName: "h", Questions: qs})

	if err := s.Start(true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.AdvanceQuestion(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// The original q1 timer would fire around the 1s mark; by then the
	// manual advance must have replaced it, so only the q2 timer can step
	// the index, and only once.
	time.Sleep(1200 * time.Millisecond)
	if _, idx := s.stateForTest(); idx != 2 {
		t.Fatalf("expected a single timer step after manual advance, index=%d", idx)
	}
}

func TestNoTimerFiresAfterEnd(t *testing.T) {
	qs := threeQuestions()[:1]
	qs[0].TimeLimit = 1
	s := NewSession(SessionConfig{Code: "ENDTMR", Title: "t", HostName: "h", Questions: qs})

	if err := s.Start(true); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Manual advance past the end cancels the pending timer.
	if err := s.AdvanceQuestion(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	status, idx := s.stateForTest()
	if status != domain.StatusEnded {
		t.Fatalf("expected ended, got %s", status)
	}

	time.Sleep(1500 * time.Millisecond)
	statusAfter, idxAfter := s.stateForTest()
	if statusAfter != status || idxAfter != idx {
		t.Fatalf("ended session mutated by a timer: %s/%d -> %s/%d", status, idx, statusAfter, idxAfter)
	}
}

func TestPauseSuspendsCountdown(t *testing.T) {
	qs := threeQuestions()
	qs[0].TimeLimit = 1
	s := NewSession(SessionConfig{Code: "PAUSED", Title: "t", HostName: "h", Questions: qs})

	if err := s.Start(true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Well past the original deadline, the paused session must not move.
	time.Sleep(1500 * time.Millisecond)
	if _, idx := s.stateForTest(); idx != 0 {
		t.Fatalf("paused session advanced to %d", idx)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, idx := s.stateForTest(); idx == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("resumed countdown never fired")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// End-to-end: two players, one answers the first question, the host steps
// through the deck, and the standings come out accuracy-first.
func TestFullQuizRun(t *testing.T) {
	s := testSession(t)
	_, _, cancel1 := s.Join("p1", "Alice", "fox")
	defer cancel1()
	_, _, cancel2 := s.Join("p2", "Bob", "owl")
	defer cancel2()

	if err := s.Start(false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.SubmitAnswer("p1", "q1", []string{"a"}, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Bob never answers: timeout, zero points, streak stays 0.

	for i := 0; i < 3; i++ {
		if err := s.AdvanceQuestion(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	status, _ := s.stateForTest()
	if status != domain.StatusEnded {
		t.Fatalf("expected ended, got %s", status)
	}

	entries := s.Leaderboard()
	if entries[0].ParticipantID != "p1" || entries[0].Score != 130 || entries[0].CorrectCount != 1 {
		t.Fatalf("expected p1 leading with 130, got %+v", entries[0])
	}
	if entries[1].ParticipantID != "p2" || entries[1].Score != 0 {
		t.Fatalf("expected p2 second with 0, got %+v", entries[1])
	}

	alice := s.participants["p1"]
	if alice.Streak != 1 {
		t.Fatalf("expected streak 1 after one correct answer, got %d", alice.Streak)
	}
	bob := s.participants["p2"]
	if bob.Streak != 0 || len(bob.Answers) != 0 {
		t.Fatalf("expected bob untouched, got streak=%d answers=%d", bob.Streak, len(bob.Answers))
	}
}
