package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "amora/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})

	t.Run("attempt id follows the same rules", func(t *testing.T) {
		_, err := ParseAttemptID("nope")
		require.Error(t, err)

		validUUID := uuid.New()
		id, err := ParseAttemptID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, AttemptID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	attemptID := AttemptID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = attemptID   // compile error
	// var _ AttemptID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(attemptID))
}

func TestParseQuestionAndAnswerIDs(t *testing.T) {
	t.Run("rejects empty and whitespace ids", func(t *testing.T) {
		_, err := ParseQuestionID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParseAnswerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts prefixed runtime form", func(t *testing.T) {
		q, err := ParseQuestionID("q_12")
		require.NoError(t, err)
		assert.Equal(t, QuestionID("q_12"), q)

		a, err := ParseAnswerID("a_34")
		require.NoError(t, err)
		assert.Equal(t, AnswerID("a_34"), a)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		q, err := ParseQuestionID(" q_7 ")
		require.NoError(t, err)
		assert.Equal(t, QuestionID("q_7"), q)
	})
}
