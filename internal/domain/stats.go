package domain

// StoreStats aggregates exact counts over the usage table plus store-level
// metadata. Counts are computed per query, never sampled.
type StoreStats struct {
	TotalRecords            int64            `json:"total_records"`
	UniqueUsers             int64            `json:"unique_users"`
	UniqueApplications      int64            `json:"unique_applications"`
	LegacyApplicationsUsage int64            `json:"legacy_applications_usage"`
	PlatformDistribution    map[string]int64 `json:"platform_distribution"`
	DatabaseSizeBytes       int64            `json:"database_size_bytes"`
	LastBackup              string           `json:"last_backup"`
	RateLimiting            string           `json:"rate_limiting"`
}
