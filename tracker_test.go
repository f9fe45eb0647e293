package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentLogMarkAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.csv")
	contacts := testContacts(3)

	log, err := NewSentLog(path, "Hola {nombre}")
	require.NoError(t, err)
	assert.Equal(t, 0, log.NextStartIndex(contacts))
	assert.False(t, log.IsSent(contacts[0]))

	require.NoError(t, log.MarkSent(contacts[0]))
	require.NoError(t, log.MarkSent(contacts[1]))
	assert.True(t, log.IsSent(contacts[0]))
	assert.Equal(t, 2, log.NextStartIndex(contacts))

	// A fresh instance reading the same file sees the same state.
	reloaded, err := NewSentLog(path, "Hola {nombre}")
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.SentCount())
	assert.True(t, reloaded.IsSent(contacts[0]))
	assert.True(t, reloaded.IsSent(contacts[1]))
	assert.False(t, reloaded.IsSent(contacts[2]))
	assert.Equal(t, 2, reloaded.NextStartIndex(contacts))
}

func TestSentLogTemplateChangeInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.csv")
	contact := testContacts(1)[0]

	log, err := NewSentLog(path, "campaign one")
	require.NoError(t, err)
	require.NoError(t, log.MarkSent(contact))

	other, err := NewSentLog(path, "campaign two")
	require.NoError(t, err)
	assert.False(t, other.IsSent(contact), "a new template means a new campaign")
}

func TestNextStartIndexIgnoresOtherCampaigns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.csv")
	contacts := testContacts(3)

	log, err := NewSentLog(path, "campaign one")
	require.NoError(t, err)
	require.NoError(t, log.MarkSent(contacts[0]))
	require.NoError(t, log.MarkSent(contacts[1]))

	// After the template changes, nobody counts as sent, so a resumed run
	// must start over instead of skipping past the old log's entries.
	other, err := NewSentLog(path, "campaign two")
	require.NoError(t, err)
	assert.Equal(t, 0, other.NextStartIndex(contacts))

	// Under the original template the recorded progress still holds.
	same, err := NewSentLog(path, "campaign one")
	require.NoError(t, err)
	assert.Equal(t, 2, same.NextStartIndex(contacts))
}

func TestSentLogMissingFileIsEmpty(t *testing.T) {
	log, err := NewSentLog(filepath.Join(t.TempDir(), "nope.csv"), "t")
	require.NoError(t, err)
	assert.Equal(t, 0, log.SentCount())
	assert.Equal(t, 0, log.NextStartIndex(testContacts(2)))
}
