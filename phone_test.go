package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefixesLocalNumber(t *testing.T) {
	n := NewPhoneNormalizer("51", 9)

	phone, ok := n.Normalize("987654321")
	require.True(t, ok)
	assert.Equal(t, "51987654321", phone)
}

func TestNormalizeIdempotentOnCanonical(t *testing.T) {
	n := NewPhoneNormalizer("51", 9)

	first, ok := n.Normalize("987654321")
	require.True(t, ok)

	second, ok := n.Normalize(first)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestNormalizePassesThroughPrefixed(t *testing.T) {
	n := NewPhoneNormalizer("51", 9)

	phone, ok := n.Normalize("51987654322")
	require.True(t, ok)
	assert.Equal(t, "51987654322", phone)
}

func TestNormalizeHandlesSpreadsheetArtifacts(t *testing.T) {
	n := NewPhoneNormalizer("51", 9)

	cases := map[string]string{
		" 987654321 ":   "51987654321",
		"987654321.0":   "51987654321",
		"51987654321.0": "51987654321",
		"+51987654321":  "51987654321",
	}
	for input, want := range cases {
		phone, ok := n.Normalize(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, phone, "input %q", input)
	}
}

func TestNormalizeRejectsWrongShapes(t *testing.T) {
	n := NewPhoneNormalizer("51", 9)

	for _, input := range []string{
		"",
		"abc",
		"12345",
		"9876543210",   // 10 digits
		"52987654321",  // 11 digits, wrong prefix
		"519876543211", // 12 digits
		"98765432a",    // letter inside
		"987654321.5",  // real fraction
		"987 654 321",  // inner spaces
	} {
		_, ok := n.Normalize(input)
		assert.False(t, ok, "input %q should be rejected", input)
	}
}
