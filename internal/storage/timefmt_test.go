package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeSortsLexically(t *testing.T) {
	early := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(1500 * time.Millisecond)
	assert.Less(t, FormatTime(early), FormatTime(late))
	assert.Len(t, FormatTime(early), len(FormatTime(late)))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)

	got, err := ParseTime(FormatTime(want))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTime("2025-01-02T05:04:05.000000006+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParseTime("not a time")
	assert.Error(t, err)
}
