package internal

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("*")
	req.NoError(err)
	req.Equal('*', r)

	r, err = CharacterRune("█")
	req.NoError(err)
	req.Equal('█', r)

	_, err = CharacterRune("")
	req.Error(err)

	_, err = CharacterRune("**")
	req.Error(err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "debug", input: "DEBUG", want: slog.LevelDebug},
		{name: "lowercase", input: "debug", want: slog.LevelDebug},
		{name: "padded", input: " warn ", want: slog.LevelWarn},
		{name: "warning alias", input: "WARNING", want: slog.LevelWarn},
		{name: "error", input: "ERROR", want: slog.LevelError},
		{name: "unknown falls back", input: "VERBOSE", want: slog.LevelInfo},
		{name: "empty falls back", input: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}
