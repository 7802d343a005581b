package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Every error in the attempt core is recoverable at the session level,
// either by retrying or by abandoning the attempt.
// -----------------------------------------------------------------------------

// Resolution errors
var (
	ErrNoQuizSpecified = errors.New("no quiz specified")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrQuizLoadFailed  = errors.New("quiz load failed")
	ErrInvalidQuiz     = errors.New("invalid quiz")
)

// Attempt errors
var (
	ErrIncompleteAttempt  = errors.New("not every question has been answered")
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
	ErrUnknownQuestion    = errors.New("question not in quiz")
	ErrUnknownOption      = errors.New("option not in question")
	ErrIndexOutOfRange    = errors.New("question index out of range")
)

// Session errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
)

// Generation errors
var (
	ErrEmptyTopic        = errors.New("topic is required")
	ErrInvalidDifficulty = errors.New("difficulty must be one of EASY, MEDIUM, HARD")
)
