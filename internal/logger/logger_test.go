package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	Init("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Init(" WARN ")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	Init("verbose")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	Init("")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
