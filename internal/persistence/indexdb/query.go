package indexdb

import (
	"database/sql"
)

type RunRow struct {
	ID        string
	Scenario  string
	StartedAt string
	Agents    int
	Obstacles int
	EndTick   sql.NullInt64
}

type ArrivalRow struct {
	AgentID int
	Tick    uint64
	Name    string
	X, Z    float64
}

// RunSummary aggregates the indexed ticks of one run.
type RunSummary struct {
	Ticks     int
	Arrivals  int
	LastTick  uint64
	MeanMoved float64
	MaxHeld   int
	MaxSkip   int
}

// Queries read committed rows only; call Sync first to include queued writes.

func (s *SQLiteIndex) Runs() ([]RunRow, error) {
	rows, err := s.db.Query(`SELECT run_id, scenario, started_at, agents, obstacles, end_tick FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.Scenario, &r.StartedAt, &r.Agents, &r.Obstacles, &r.EndTick); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Arrivals(runID string) ([]ArrivalRow, error) {
	rows, err := s.db.Query(`SELECT agent_id, tick, name, x, z FROM arrivals WHERE run_id=? ORDER BY tick, agent_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArrivalRow
	for rows.Next() {
		var a ArrivalRow
		var tick int64
		if err := rows.Scan(&a.AgentID, &tick, &a.Name, &a.X, &a.Z); err != nil {
			return nil, err
		}
		a.Tick = uint64(tick)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Summary(runID string) (RunSummary, error) {
	var (
		sum       RunSummary
		lastTick  sql.NullInt64
		meanMoved sql.NullFloat64
		maxHeld   sql.NullInt64
		maxSkip   sql.NullInt64
	)
	err := s.db.QueryRow(`SELECT COUNT(*), MAX(tick), AVG(moved), MAX(held), MAX(skipped) FROM ticks WHERE run_id=?`, runID).
		Scan(&sum.Ticks, &lastTick, &meanMoved, &maxHeld, &maxSkip)
	if err != nil {
		return sum, err
	}
	sum.LastTick = uint64(lastTick.Int64)
	sum.MeanMoved = meanMoved.Float64
	sum.MaxHeld = int(maxHeld.Int64)
	sum.MaxSkip = int(maxSkip.Int64)
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM arrivals WHERE run_id=?`, runID).Scan(&sum.Arrivals); err != nil {
		return sum, err
	}
	return sum, nil
}

// SnapshotAt returns the path of the latest snapshot at or before tick.
func (s *SQLiteIndex) SnapshotAt(runID string, tick uint64) (string, uint64, error) {
	var path string
	var at int64
	err := s.db.QueryRow(`SELECT path, tick FROM snapshots WHERE run_id=? AND tick<=? ORDER BY tick DESC LIMIT 1`, runID, int64(tick)).Scan(&path, &at)
	if err != nil {
		return "", 0, err
	}
	return path, uint64(at), nil
}
