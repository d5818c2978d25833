package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYears(t *testing.T) {
	start, end, err := parseYears("2025")
	require.NoError(t, err)
	assert.Equal(t, 2025, start)
	assert.Equal(t, 2025, end)

	start, end, err = parseYears("2024-2026")
	require.NoError(t, err)
	assert.Equal(t, 2024, start)
	assert.Equal(t, 2026, end)

	for _, bad := range []string{"", "next", "2026-2024", "2024-x"} {
		_, _, err := parseYears(bad)
		assert.Error(t, err, bad)
	}
}
