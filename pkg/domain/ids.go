// Package domain provides typed identifiers shared across modules.
//
// Typed IDs prevent cross-type assignment at compile time: a UserID cannot be
// passed where an AttemptID is expected. Construct via the Parse functions at
// trust boundaries; direct casting bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "amora/pkg/domain-errors"
)

// UserID identifies an account holder.
type UserID uuid.UUID

// AttemptID identifies a single screening attempt record.
type AttemptID uuid.UUID

// QuestionID identifies a screening question. The runtime form is prefixed
// ("q_12"); rule-authoring tooling may reference the bare numeric form ("12").
type QuestionID string

// AnswerID identifies an answer option of a question ("a_34" at runtime).
type AnswerID string

// ParseUserID constructs a UserID from external input.
// Errors with CodeInvalidInput on empty, malformed, or nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseAttemptID constructs an AttemptID from external input.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID(s, "attempt_id")
	return AttemptID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be the nil UUID")
	}
	return u, nil
}

// NewUserID generates a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewAttemptID generates a fresh random AttemptID.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// IsNil reports whether the ID is the zero UUID.
func (u UserID) IsNil() bool { return uuid.UUID(u) == uuid.Nil }

func (u UserID) String() string { return uuid.UUID(u).String() }

// IsNil reports whether the ID is the zero UUID.
func (a AttemptID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

func (a AttemptID) String() string { return uuid.UUID(a).String() }

// ParseQuestionID constructs a QuestionID from external input.
func ParseQuestionID(s string) (QuestionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "question_id cannot be empty")
	}
	return QuestionID(s), nil
}

// ParseAnswerID constructs an AnswerID from external input.
func ParseAnswerID(s string) (AnswerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "answer_id cannot be empty")
	}
	return AnswerID(s), nil
}

func (q QuestionID) String() string { return string(q) }

func (a AnswerID) String() string { return string(a) }
