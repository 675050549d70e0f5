package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/ry4ntr1/ppe-violation-detection/internal/models"
)

// ClickHouseDB archives what the console observed
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Archive: connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}
	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the archive tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Archive: schema initialized")
	return nil
}

// SaveDetectionEvent saves a pushed detection
func (db *ClickHouseDB) SaveDetectionEvent(ctx context.Context, event *models.DetectionEvent) error {
	query := `
		INSERT INTO detection_events (timestamp, source_id, violation_type, confidence, event_id, frame_number)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		event.Timestamp,
		event.SourceID,
		event.ViolationType,
		event.Confidence,
		event.EventID,
		uint64(event.FrameNumber),
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection event: %w", err)
	}

	return nil
}

// SaveSourceUpdate records the latest status of a source
func (db *ClickHouseDB) SaveSourceUpdate(ctx context.Context, update *models.SourceUpdate, at time.Time) error {
	query := `
		INSERT INTO source_status (source_id, status, fps, updated_at)
		VALUES (?, ?, ?, ?)
	`

	if err := db.conn.Exec(ctx, query, update.SourceID, string(update.Status), update.FPS, at); err != nil {
		return fmt.Errorf("failed to insert source status: %w", err)
	}

	return nil
}

// SaveScreeningResult saves a completed screening
func (db *ClickHouseDB) SaveScreeningResult(ctx context.Context, sessionID string, record models.ScreeningRecord) error {
	row, err := newScreeningRow(sessionID, record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO screening_results (timestamp, session_id, employee_id, site, passed, detected_ppe, missing_ppe, all_detections, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		row.Timestamp,
		row.SessionID,
		row.EmployeeID,
		row.Site,
		row.Passed,
		row.DetectedPPE,
		row.MissingPPE,
		row.AllDetections,
		row.Method,
	)
	if err != nil {
		return fmt.Errorf("failed to insert screening result: %w", err)
	}

	return nil
}

// ViolationCounts returns the number of archived detections per source since a time
func (db *ClickHouseDB) ViolationCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query := `
		SELECT source_id, count() AS total
		FROM detection_events
		WHERE timestamp >= ?
		GROUP BY source_id
	`

	rows, err := db.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query violation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var (
			sourceID string
			total    uint64
		)
		if err := rows.Scan(&sourceID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan violation count: %w", err)
		}
		counts[sourceID] = total
	}

	return counts, rows.Err()
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}

// screeningRow is a ScreeningRecord in column form
type screeningRow struct {
	Timestamp     time.Time
	SessionID     string
	EmployeeID    string
	Site          string
	Passed        bool
	DetectedPPE   []string
	MissingPPE    []string
	AllDetections string // JSON object
	Method        string
}

func newScreeningRow(sessionID string, record models.ScreeningRecord) (screeningRow, error) {
	timestamp, err := models.ParseTimestamp(record.Timestamp)
	if err != nil {
		return screeningRow{}, fmt.Errorf("invalid screening timestamp: %w", err)
	}

	detections, err := json.Marshal(record.AllDetections)
	if err != nil {
		return screeningRow{}, fmt.Errorf("failed to marshal detections: %w", err)
	}

	row := screeningRow{
		Timestamp:     timestamp,
		SessionID:     sessionID,
		EmployeeID:    record.EmployeeID,
		Site:          record.Site,
		Passed:        record.Passed,
		DetectedPPE:   record.DetectedPPE,
		MissingPPE:    record.MissingPPE,
		AllDetections: string(detections),
		Method:        record.Method,
	}
	if row.DetectedPPE == nil {
		row.DetectedPPE = []string{}
	}
	if row.MissingPPE == nil {
		row.MissingPPE = []string{}
	}
	if row.Method == "" {
		row.Method = "live"
	}

	return row, nil
}
