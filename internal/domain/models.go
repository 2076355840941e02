package domain

import "time"

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusActive  SessionStatus = "active"
	StatusPaused  SessionStatus = "paused"
	StatusEnded   SessionStatus = "ended"
)

// QuestionType discriminates question flavors. Scoring is exact-match for
// every type; the discriminator is carried for clients.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionMultiSelect QuestionType = "multi-select"
	QuestionTrueFalse   QuestionType = "true-false"
	QuestionPoll        QuestionType = "poll"
)

// Option is one selectable answer within a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models a single timed question.
type Question struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	Options          []Option     `json:"options"`
	CorrectOptionIDs []string     `json:"correctOptionIds"`
	TimeLimit        int          `json:"timeLimit"` // seconds, > 0
	Points           int          `json:"points"`
	Type             QuestionType `json:"type"`
}

// QuestionSet is stored quiz content a session can be seeded from.
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Answer is one participant's recorded submission for one question.
// IsCorrect and PointsEarned are server-derived, never client-supplied.
type Answer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
	IsCorrect         bool     `json:"isCorrect"`
	PointsEarned      int      `json:"pointsEarned"`
	ResponseTime      float64  `json:"responseTime"` // seconds from reveal to submit
}

// Participant holds one player's play state for the life of a session.
// Connected flips to false on leave/disconnect but the record stays so the
// leaderboard keeps counting their answers.
type Participant struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	AvatarID    string   `json:"avatarId"`
	Score       int      `json:"score"`
	Streak      int      `json:"streak"`
	Answers     []Answer `json:"answers"`
	Connected   bool     `json:"connected"`
	JoinOrder   int      `json:"-"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	ParticipantID     string  `json:"participantId"`
	DisplayName       string  `json:"displayName"`
	AvatarID          string  `json:"avatarId"`
	Score             int     `json:"score"`
	CorrectCount      int     `json:"correctCount"`
	TotalResponseTime float64 `json:"totalResponseTime"`
}

// SessionSummary is the admin-facing view of a session. Never broadcast to
// participants.
type SessionSummary struct {
	ID               string        `json:"id"`
	Code             string        `json:"code"`
	Title            string        `json:"title"`
	HostName         string        `json:"hostName"`
	TotalQuestions   int           `json:"totalQuestions"`
	ParticipantCount int           `json:"participantCount"`
	Status           SessionStatus `json:"status"`
}

// SessionSnapshot is the full state a joiner needs to reconcile without a
// separate catch-up protocol.
type SessionSnapshot struct {
	ID                   string               `json:"id"`
	Code                 string               `json:"code"`
	Title                string               `json:"title"`
	HostName             string               `json:"hostName"`
	Status               SessionStatus        `json:"status"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	TotalQuestions       int                  `json:"totalQuestions"`
	CurrentQuestion      *Question            `json:"currentQuestion,omitempty"`
	Participants         []ParticipantProfile `json:"participants"`
	CreatedAt            time.Time            `json:"createdAt"`
}

// ParticipantProfile is the display-only slice of a participant shared with
// the room. Scores and answers stay private.
type ParticipantProfile struct {
	DisplayName string `json:"displayName"`
	AvatarID    string `json:"avatarId"`
}
