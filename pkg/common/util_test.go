package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperReducerFilter(t *testing.T) {
	items := []int{1, 2, 3, 4}

	assert.Equal(t, []string{"1", "2", "3", "4"}, Mapper(items, func(i int) string {
		return string(rune('0' + i))
	}))
	assert.Equal(t, 10, Reducer(items, func(acc int, i int) int { return acc + i }, 0))
	assert.Equal(t, []int{2, 4}, Filter(items, func(i int) bool { return i%2 == 0 }))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 1.2346, Round(1.23456, 4))
	assert.Equal(t, 2.0, Round(2, 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abcdefghijkl", Truncate("abcdefghijklmnop", 12))
	assert.Equal(t, "abc", Truncate("abc", 12))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 10, 11, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2026-03-10T11:30:00Z",
		"2026-03-10T13:30:00+02:00",
		"2026-03-10T11:30:00",
		"2026-03-10 11:30:00",
		"2026-03-10T11:30:00.000Z",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(want), s)
		assert.Equal(t, time.UTC, got.Location(), s)
	}

	_, err := ParseTimestamp("10/03/2026")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	assert.Equal(t, filepath.Join(home, ".costmeter", "x.db"), ExpandHome("~/.costmeter/x.db"))
	assert.Equal(t, "/var/lib/x.db", ExpandHome("/var/lib/x.db"))
	assert.Equal(t, "~", ExpandHome("~"))
}
