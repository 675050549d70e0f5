package database

// SQL schemas for the local archive tables

const (
	// DetectionEventsTableSQL creates the detection_events table
	DetectionEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS detection_events (
			timestamp DateTime64(3),
			source_id String,
			violation_type LowCardinality(String),
			confidence Float64,
			event_id String,
			frame_number UInt64
		) ENGINE = MergeTree()
		ORDER BY (source_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// SourceStatusTableSQL keeps the last reported status per source
	SourceStatusTableSQL = `
		CREATE TABLE IF NOT EXISTS source_status (
			source_id String,
			status LowCardinality(String),
			fps Float64,
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY source_id
	`

	// ScreeningResultsTableSQL creates the screening_results table
	ScreeningResultsTableSQL = `
		CREATE TABLE IF NOT EXISTS screening_results (
			timestamp DateTime64(3),
			session_id String,
			employee_id String,
			site String,
			passed Bool,
			detected_ppe Array(String),
			missing_ppe Array(String),
			all_detections String,
			method LowCardinality(String)
		) ENGINE = MergeTree()
		ORDER BY (site, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		DetectionEventsTableSQL,
		SourceStatusTableSQL,
		ScreeningResultsTableSQL,
	}
}
