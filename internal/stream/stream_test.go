package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmissionFlatFields(t *testing.T) {
	sub, err := ParseSubmission(&StreamMessage{ID: "1-0", Fields: map[string]string{
		"labId":     "12",
		"studentId": "34",
		"path":      "main.py",
		"content":   "print(1)",
	}})
	require.NoError(t, err)
	assert.Equal(t, "12", sub.LabID)
	assert.Equal(t, "34", sub.StudentID)
	assert.Equal(t, "main.py", sub.Path)
	assert.Equal(t, "print(1)", sub.Content)
	assert.Empty(t, sub.Encoding)
}

func TestParseSubmissionPayload(t *testing.T) {
	sub, err := ParseSubmission(&StreamMessage{ID: "1-0", Fields: map[string]string{
		"payload": `{"labId":"12","studentId":"34","path":"a.cpp","content":"aW50","encoding":"base64"}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, "a.cpp", sub.Path)
	assert.Equal(t, "base64", sub.Encoding)
}

func TestParseSubmissionInvalid(t *testing.T) {
	_, err := ParseSubmission(&StreamMessage{ID: "1-0", Fields: map[string]string{"payload": "{"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = ParseSubmission(&StreamMessage{ID: "1-0", Fields: map[string]string{"labId": "1"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func testRetryHandler(letters *[]DeadLetter) *RetryHandler {
	return &RetryHandler{
		maxRetries: 3,
		baseDelay:  time.Millisecond,
		maxDelay:   2 * time.Millisecond,
		deadLetter: func(_ context.Context, entry DeadLetter) error {
			*letters = append(*letters, entry)
			return nil
		},
	}
}

func TestRetryWithBackoffEventuallySucceeds(t *testing.T) {
	var letters []DeadLetter
	h := testRetryHandler(&letters)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, "1-0", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Empty(t, letters)
}

func TestRetryWithBackoffDeadLetters(t *testing.T) {
	var letters []DeadLetter
	h := testRetryHandler(&letters)

	calls := 0
	boom := errors.New("mongo down")
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return boom
	}, "2-0", map[string]interface{}{"labId": "1"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	require.Len(t, letters, 1)
	assert.Equal(t, "2-0", letters[0].MessageID)
	assert.Equal(t, 3, letters[0].Attempts)
	assert.Equal(t, "mongo down", letters[0].Error)
}

func TestRetryWithBackoffSkipsInvalidInput(t *testing.T) {
	var letters []DeadLetter
	h := testRetryHandler(&letters)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: bad path", apperr.ErrInvalidArgument)
	}, "3-0", nil)

	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Equal(t, 1, calls)
	assert.Len(t, letters, 1)
}
