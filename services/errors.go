package services

import "errors"

// Precondition errors raised by the exam session state machine and the
// assignment/reassignment engines. Controllers catch these at the endpoint
// boundary and surface them as 400-class responses.
var (
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrNotOwner             = errors.New("assignment does not belong to the caller")
	ErrWrongState           = errors.New("assignment is not in a valid state for this operation")
	ErrAttemptsExhausted    = errors.New("no attempts remaining")
	ErrAttemptWindowElapsed = errors.New("attempt time window has elapsed")
	ErrNoQuestions          = errors.New("not enough questions to build the requested set")
	ErrQuestionNotInSet     = errors.New("question is not part of the current attempt")
	ErrMalformedOptions     = errors.New("question has malformed answer options")
	ErrAlreadyReassigned    = errors.New("assignment was already reassigned")
	ErrConflict             = errors.New("assignment was modified concurrently")
	ErrAgencyNotFound       = errors.New("agency not found")
)

// Machine-readable item error codes returned by the assignment engine
const (
	ErrCodeAlreadyAssigned = "ALREADY_ASSIGNED"
	ErrCodeDoesNotExist    = "COMPETENCY_DOES_NOT_EXIST"
	ErrCodeCreateFailed    = "CREATE_FAILED"
)
