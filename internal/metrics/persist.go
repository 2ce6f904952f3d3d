package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

const (
	pruneMaxAge   = 30 * 24 * time.Hour
	dbFileName    = "metrics.db"
	dbOpenOptions = "?_busy_timeout=5000"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS metrics (
	path       TEXT NOT NULL,
	type       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (path, type)
)`

// DefaultDBPath returns ~/.speechkit/metrics.db.
func DefaultDBPath() (string, error) {
	return paths.DataPath(dbFileName)
}

// Open attaches the SQLite database at dbPath, merges the persisted metrics
// into memory and prunes entries not updated for 30 days. Both CLIs share the
// file, so busy waits are allowed.
func (m *MetricsManager) Open(dbPath string) error {
	if err := paths.EnsureParentDir(dbPath); err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", dbPath+dbOpenOptions)
	if err != nil {
		return fmt.Errorf("metrics: open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("metrics: create schema: %w", err)
	}

	m.db = db

	if pruned, err := m.prune(); err != nil {
		L_warn("metrics: failed to prune stale data", "error", err)
	} else if pruned > 0 {
		L_debug("metrics: pruned stale metrics", "count", pruned)
	}

	loaded, err := m.load()
	if err != nil {
		L_warn("metrics: failed to load persisted data", "error", err)
	} else {
		L_debug("metrics: loaded persisted data", "path", dbPath, "count", loaded)
	}
	return nil
}

// Close performs a final save and closes the DB.
// Safe to call even if Open was never called.
func (m *MetricsManager) Close() error {
	if m.db == nil {
		return nil
	}
	if err := m.Save(); err != nil {
		L_warn("metrics: final save failed", "error", err)
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// Save writes all metrics to the database in a single transaction.
func (m *MetricsManager) Save() error {
	if m.db == nil {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO metrics (path, type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path, type) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := saveMapEntries(stmt, now, m.timings, TypeTiming, marshalTiming); err != nil {
		return err
	}
	if err := saveMapEntries(stmt, now, m.successFail, TypeSuccessFail, marshalSuccessFail); err != nil {
		return err
	}
	return tx.Commit()
}

// saveMapEntries serializes all entries in a metric map and upserts them.
func saveMapEntries[T any](stmt *sql.Stmt, now int64, metrics map[string]*T, metricType MetricType, marshal func(*T) ([]byte, error)) error {
	for path, metric := range metrics {
		data, err := marshal(metric)
		if err != nil {
			L_warn("metrics: failed to marshal metric", "path", path, "type", metricType, "error", err)
			continue
		}
		if _, err := stmt.Exec(path, string(metricType), data, now); err != nil {
			return err
		}
	}
	return nil
}

// load reads all persisted metrics and adds them to what is in memory.
func (m *MetricsManager) load() (int, error) {
	rows, err := m.db.Query("SELECT path, type, data FROM metrics")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for rows.Next() {
		var path, metricType string
		var data []byte
		if err := rows.Scan(&path, &metricType, &data); err != nil {
			L_warn("metrics: failed to scan row", "error", err)
			continue
		}
		if err := m.restoreMetric(path, MetricType(metricType), data); err != nil {
			L_warn("metrics: failed to restore metric", "path", path, "type", metricType, "error", err)
			continue
		}
		count++
	}
	return count, rows.Err()
}

// prune deletes metrics not updated within the retention period.
func (m *MetricsManager) prune() (int, error) {
	cutoff := time.Now().Add(-pruneMaxAge).Unix()
	result, err := m.db.Exec("DELETE FROM metrics WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// restoreMetric merges a persisted metric into memory.
// Must be called with m.mu held.
func (m *MetricsManager) restoreMetric(path string, metricType MetricType, data []byte) error {
	switch metricType {
	case TypeTiming:
		saved, err := unmarshalTiming(data)
		if err != nil {
			return err
		}
		if cur, ok := m.timings[path]; ok && cur.Count > 0 {
			if saved.Min < cur.Min {
				cur.Min = saved.Min
			}
			if saved.Max > cur.Max {
				cur.Max = saved.Max
			}
			cur.Count += saved.Count
			cur.Total += saved.Total
			return nil
		}
		m.timings[path] = saved

	case TypeSuccessFail:
		saved, err := unmarshalSuccessFail(data)
		if err != nil {
			return err
		}
		if cur, ok := m.successFail[path]; ok {
			cur.Success += saved.Success
			cur.Failures += saved.Failures
			for reason, n := range saved.FailureReasons {
				cur.FailureReasons[reason] += n
			}
			if cur.LastSuccess.IsZero() {
				cur.LastSuccess = saved.LastSuccess
			}
			if cur.LastFailure.IsZero() {
				cur.LastFailure = saved.LastFailure
			}
			return nil
		}
		m.successFail[path] = saved

	default:
		return fmt.Errorf("unknown metric type %q", metricType)
	}
	return nil
}

type persistTiming struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	Last  int64 `json:"last"`
}

type persistSuccessFail struct {
	Success        int64            `json:"success"`
	Failures       int64            `json:"failures"`
	LastSuccess    int64            `json:"lastSuccess"`
	LastFailure    int64            `json:"lastFailure"`
	FailureReasons map[string]int64 `json:"failureReasons,omitempty"`
}

func marshalTiming(m *TimingMetric) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(persistTiming{
		Count: m.Count, Total: int64(m.Total), Min: int64(m.Min), Max: int64(m.Max), Last: int64(m.Last),
	})
}

func marshalSuccessFail(m *SuccessFailMetric) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(persistSuccessFail{
		Success:        m.Success,
		Failures:       m.Failures,
		LastSuccess:    unixOrZero(m.LastSuccess),
		LastFailure:    unixOrZero(m.LastFailure),
		FailureReasons: m.FailureReasons,
	})
}

func unmarshalTiming(data []byte) (*TimingMetric, error) {
	var p persistTiming
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &TimingMetric{
		Count: p.Count,
		Total: time.Duration(p.Total),
		Min:   time.Duration(p.Min),
		Max:   time.Duration(p.Max),
		Last:  time.Duration(p.Last),
	}, nil
}

func unmarshalSuccessFail(data []byte) (*SuccessFailMetric, error) {
	var p persistSuccessFail
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	m := &SuccessFailMetric{
		Success:        p.Success,
		Failures:       p.Failures,
		LastSuccess:    timeOrZero(p.LastSuccess),
		LastFailure:    timeOrZero(p.LastFailure),
		FailureReasons: p.FailureReasons,
	}
	if m.FailureReasons == nil {
		m.FailureReasons = make(map[string]int64)
	}
	return m, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
