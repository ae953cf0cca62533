package domain

import "unicode/utf8"

// Maximum stored lengths, in characters, for usage record string fields.
// Oversized values are truncated before persistence, never rejected.
const (
	MaxMonitorAppVersionLen  = 50
	MaxPlatformLen           = 50
	MaxUserLen               = 100
	MaxApplicationNameLen    = 100
	MaxApplicationVersionLen = 50
)

// Duration bounds for a single usage observation (24 hours max).
const (
	MinDurationSeconds = 0
	MaxDurationSeconds = 86400
)

// UsageRecord is one observation of an application session.
type UsageRecord struct {
	ID                 int64  `json:"id"`
	MonitorAppVersion  string `json:"monitor_app_version"`
	Platform           string `json:"platform"`
	User               string `json:"user"`
	ApplicationName    string `json:"application_name"`
	ApplicationVersion string `json:"application_version"`
	LogDate            string `json:"log_date"`
	LegacyApp          bool   `json:"legacy_app"`
	DurationSeconds    int64  `json:"duration_seconds"`
	CreatedAt          string `json:"created_at"`
}

// Truncate returns s cut to at most max characters. Counting runes, not
// bytes, keeps multibyte input intact up to the limit and never splits a
// rune at the cut point.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// TruncateFields returns a copy of r with every string field cut to its
// stored maximum length.
func (r UsageRecord) TruncateFields() UsageRecord {
	r.MonitorAppVersion = Truncate(r.MonitorAppVersion, MaxMonitorAppVersionLen)
	r.Platform = Truncate(r.Platform, MaxPlatformLen)
	r.User = Truncate(r.User, MaxUserLen)
	r.ApplicationName = Truncate(r.ApplicationName, MaxApplicationNameLen)
	r.ApplicationVersion = Truncate(r.ApplicationVersion, MaxApplicationVersionLen)
	return r
}
