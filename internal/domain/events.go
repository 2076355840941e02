package domain

// Server-to-client event names. Clients rely on the emission order documented
// on each lifecycle operation, so these are part of the wire contract.
const (
	EventConnectionEstablished = "connection:established"
	EventConnectionError       = "connection:error"
	EventQuizJoined            = "quiz:joined"
	EventParticipantsCount     = "participants:count"
	EventParticipantJoined     = "participant:joined"
	EventParticipantLeft       = "participant:left"
	EventQuizStarted           = "quiz:started"
	EventSessionUpdate         = "session:update"
	EventQuizQuestion          = "quiz:question"
	EventQuizAnswerResult      = "quiz:answer-result"
	EventQuizLeaderboard       = "quiz:leaderboard"
	EventQuizEnded             = "quiz:ended"
	EventHostPaused            = "host:paused"
	EventHostResumed           = "host:resumed"
)

// Client-to-server command names.
const (
	CommandJoinQuiz     = "join:quiz"
	CommandSubmitAnswer = "submit:answer"
	CommandLeaveQuiz    = "leave:quiz"
)

// Event is one outbound message for a single subscriber.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// SessionUpdatePayload carries the fields of a session:update broadcast.
type SessionUpdatePayload struct {
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	Status               SessionStatus `json:"status"`
}

// AnswerResultPayload is unicast to the answerer after scoring.
type AnswerResultPayload struct {
	IsCorrect        bool     `json:"isCorrect"`
	CorrectOptionIDs []string `json:"correctOptionIds"`
	PointsEarned     int      `json:"pointsEarned"`
	NewScore         int      `json:"newScore"`
	NewStreak        int      `json:"newStreak"`
}

// QuizEndedPayload is the personalized final standing unicast to each
// participant before the generic final broadcast.
type QuizEndedPayload struct {
	Rank              int  `json:"rank"`
	TotalParticipants int  `json:"totalParticipants"`
	Score             int  `json:"score"`
	Final             bool `json:"final,omitempty"`
}

// ParticipantJoinedPayload is broadcast to the room when someone joins.
// Display metadata only; scores and answers are never shared this way.
type ParticipantJoinedPayload struct {
	DisplayName string `json:"displayName"`
	AvatarID    string `json:"avatarId"`
}

// ParticipantLeftPayload is broadcast when a participant leaves or drops.
type ParticipantLeftPayload struct {
	ParticipantID string `json:"participantId"`
}
