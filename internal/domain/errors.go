package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches a join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCodeTaken is returned when a caller-supplied join code collides with a live session.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrInvalidTransition indicates a lifecycle operation incompatible with the current status.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrQuestionSetNotFound indicates stored quiz content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
