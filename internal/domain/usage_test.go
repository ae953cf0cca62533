package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 5))
	require.Equal(t, "abcde", Truncate("abcdefgh", 5))
	require.Equal(t, "", Truncate("", 5))
}

func TestTruncateCountsCharactersNotBytes(t *testing.T) {
	// 60 two-byte runes = 120 bytes but only 60 characters: under the
	// limit, must pass through untouched.
	under := strings.Repeat("é", 60)
	require.Equal(t, under, Truncate(under, MaxUserLen))

	// Over the limit, the cut is at a character boundary.
	over := strings.Repeat("é", 150)
	got := Truncate(over, MaxUserLen)
	require.Equal(t, MaxUserLen, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got), "truncation must not split a rune")
	require.Equal(t, strings.Repeat("é", MaxUserLen), got)
}

func TestTruncateFieldsKeepsMultibyteUnderLimit(t *testing.T) {
	r := UsageRecord{User: strings.Repeat("ü", 80)}
	require.Equal(t, r.User, r.TruncateFields().User)
}

func TestTruncateFields(t *testing.T) {
	r := UsageRecord{
		MonitorAppVersion:  strings.Repeat("v", 60),
		Platform:           strings.Repeat("p", 60),
		User:               strings.Repeat("u", 150),
		ApplicationName:    strings.Repeat("a", 150),
		ApplicationVersion: strings.Repeat("w", 60),
		LogDate:            "2024-01-01T00:00:00Z",
	}

	got := r.TruncateFields()
	require.Len(t, got.MonitorAppVersion, MaxMonitorAppVersionLen)
	require.Len(t, got.Platform, MaxPlatformLen)
	require.Len(t, got.User, MaxUserLen)
	require.Len(t, got.ApplicationName, MaxApplicationNameLen)
	require.Len(t, got.ApplicationVersion, MaxApplicationVersionLen)
	require.Equal(t, "2024-01-01T00:00:00Z", got.LogDate, "non-capped fields untouched")
}
