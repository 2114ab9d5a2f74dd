package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentforge/orchestrator/pkg/models"
)

// PerfDB mirrors the performance log into a small SQLite table for
// ad-hoc querying (`agentforge agents --history`). The JSON document
// remains the system of record; this index is rebuildable from it at
// any time and is never read back into the orchestrator's own state.
type PerfDB struct {
	conn *sql.DB
}

const perfDBFileName = "performance.db"

// OpenPerfDB opens (creating if necessary) the performance index
// database under dir, in WAL mode to keep concurrent reads cheap.
func OpenPerfDB(dir string) (*PerfDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating memory dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, perfDBFileName))
	if err != nil {
		return nil, fmt.Errorf("opening performance db: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := conn.Exec(performanceSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating performance schema: %w", err)
	}

	return &PerfDB{conn: conn}, nil
}

const performanceSchema = `
CREATE TABLE IF NOT EXISTS performance_records (
	agent_id TEXT NOT NULL,
	category TEXT NOT NULL,
	task_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_performance_agent ON performance_records(agent_id);
CREATE INDEX IF NOT EXISTS idx_performance_category ON performance_records(agent_id, category);
`

// Close closes the underlying connection.
func (p *PerfDB) Close() error {
	return p.conn.Close()
}

// RecordScore inserts one scored observation into the index.
func (p *PerfDB) RecordScore(agentID, category string, rec models.PerformanceRecord) error {
	_, err := p.conn.Exec(
		`INSERT INTO performance_records (agent_id, category, task_id, score, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		agentID, category, rec.TaskID, rec.Score, rec.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording performance score: %w", err)
	}
	return nil
}

// AgentHistoryRow is one row of a per-agent score history query.
type AgentHistoryRow struct {
	Category   string
	TaskID     string
	Score      int
	RecordedAt time.Time
}

// AgentHistory returns every recorded score for agentID, most recent first.
func (p *PerfDB) AgentHistory(agentID string) ([]AgentHistoryRow, error) {
	rows, err := p.conn.Query(
		`SELECT category, task_id, score, recorded_at FROM performance_records WHERE agent_id = ? ORDER BY recorded_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agent history: %w", err)
	}
	defer rows.Close()

	var out []AgentHistoryRow
	for rows.Next() {
		var row AgentHistoryRow
		var recordedAt string
		if err := rows.Scan(&row.Category, &row.TaskID, &row.Score, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning agent history row: %w", err)
		}
		row.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		out = append(out, row)
	}
	return out, rows.Err()
}
