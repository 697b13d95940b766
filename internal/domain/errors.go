package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz name does not resolve to a loadable
	// definition (missing or malformed resource, never a partial quiz).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveAttempt is returned when a submission arrives without a
	// matching in-progress attempt for that student and quiz.
	ErrNoActiveAttempt = errors.New("no active attempt for quiz")
	// ErrQuizCompleted signals a scored re-entry into an already completed
	// quiz; callers redirect to the completion view instead.
	ErrQuizCompleted = errors.New("quiz already completed")
	// ErrAnswerOutOfStep is returned when the submitted question index does
	// not match the attempt's current position.
	ErrAnswerOutOfStep = errors.New("answer does not match current question")
	// ErrInvalidNemesis rejects a nemesis outside the caller's group or the
	// caller themselves; the existing nemesis is left unchanged.
	ErrInvalidNemesis = errors.New("nemesis must be another student in the same group")
	// ErrStudentNotFound indicates an unknown student id or name.
	ErrStudentNotFound = errors.New("student not found")
	// ErrGroupNotFound indicates an unknown group id.
	ErrGroupNotFound = errors.New("group not found")
	// ErrRoleDenied rejects an operation the caller's role does not permit,
	// before any state mutation.
	ErrRoleDenied = errors.New("operation not permitted for role")
	// ErrInvalidCredentials rejects empty account fields or a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
