package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeJSString(t *testing.T) {
	cases := map[string]string{
		"plain":          `"plain"`,
		"line1\nline2":   `"line1\nline2"`,
		`back\slash`:     `"back\\slash"`,
		`quote"inside`:   `"quote\"inside"`,
		"tab\there":      `"tab\there"`,
		"tick`inside":    "\"tick\\`inside\"",
		"return\rhere":   `"return\rhere"`,
		"acentuado José": `"acentuado José"`,
	}
	for input, want := range cases {
		assert.Equal(t, want, escapeJSString(input), "input %q", input)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := NewSession(&Config{})
	assert.Equal(t, StateUninitialized, s.State())

	s.Close()
	assert.Equal(t, StateClosed, s.State())
	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSetupFailureRemovesWorkspace(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	config := &Config{}
	config.Browser.ChromePath = "/nonexistent/chrome-binary"
	config.Browser.Headless = true
	config.Browser.PageLoadSeconds = 2

	s := NewSession(config)
	err := s.Setup()
	require.ErrorIs(t, err, ErrSetupFailed)

	// The failed setup must not leave its temporary profile behind.
	entries, readErr := os.ReadDir(tmp)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestSendTextRequiresOpenChat(t *testing.T) {
	s := NewSession(&Config{})
	err := s.SendText("hola")
	assert.ErrorIs(t, err, ErrTextSendFailed)
}
