package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageKeepsBothErrors(t *testing.T) {
	err := Storage("put run", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "STORAGE_FAILURE", Code(err))
}

func TestStorageDoesNotDoubleWrap(t *testing.T) {
	first := Storage("get", io.EOF)
	assert.Same(t, first, Storage("again", first))
	assert.Nil(t, Storage("noop", nil))
}

func TestMalformedSourceError(t *testing.T) {
	var err error = &MalformedSourceError{Path: "Main.java", Line: 3, Column: 7, Reason: "unterminated string literal"}

	assert.ErrorIs(t, err, ErrMalformedSource)
	assert.Equal(t, "Main.java:3:7: unterminated string literal", err.Error())

	var mse *MalformedSourceError
	assert.True(t, errors.As(fmt.Errorf("tokenize: %w", err), &mse))
	assert.Equal(t, 3, mse.Line)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "UNSUPPORTED_LANGUAGE", Code(fmt.Errorf("x: %w", ErrUnsupportedLanguage)))
	assert.Equal(t, "SUBMISSIONS_NOT_FOUND", Code(ErrSubmissionsNotFound))
	assert.Equal(t, "NOT_FOUND", Code(ErrNotFound))
	assert.Equal(t, "INVALID_REQUEST", Code(ErrInvalidArgument))
	assert.Equal(t, "INTERNAL_ERROR", Code(errors.New("boom")))
}
