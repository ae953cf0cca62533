package domain

// AuditEntry records a mutating action for traceability. Entries are
// append-only; record_id may reference a row that no longer exists.
type AuditEntry struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	TableName string `json:"table_name"`
	RecordID  *int64 `json:"record_id"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details"`
}

// Audit action constants.
const (
	AuditActionInsert = "INSERT"
	AuditActionDelete = "DELETE"
)
