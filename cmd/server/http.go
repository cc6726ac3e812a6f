package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"crowdfield.ai/internal/persistence/indexdb"
	"crowdfield.ai/internal/sim/world"
	"crowdfield.ai/internal/transport/observer"
)

func newMux(w *world.World, idx *indexdb.SQLiteIndex, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w, idx)
	})
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			RunID    string             `json:"run_id"`
			Scenario string             `json:"scenario"`
			Tick     uint64             `json:"tick"`
			Metrics  world.WorldMetrics `json:"metrics"`
		}{
			RunID:    w.ID(),
			Scenario: w.Config().Scenario,
			Tick:     w.CurrentTick(),
			Metrics:  w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	observer.NewServer(w, logger).Register(mux)
	return mux
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, w *world.World, idx *indexdb.SQLiteIndex) {
	id := w.ID()
	m := w.Metrics()

	fmt.Fprintf(rw, "# HELP crowdfield_tick Current simulation tick.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_tick gauge\n")
	fmt.Fprintf(rw, "crowdfield_tick{run=%q} %d\n", id, m.Tick)

	fmt.Fprintf(rw, "# HELP crowdfield_agents Agents in the run by state.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_agents gauge\n")
	fmt.Fprintf(rw, "crowdfield_agents{run=%q,state=%q} %d\n", id, "active", m.Active)
	fmt.Fprintf(rw, "crowdfield_agents{run=%q,state=%q} %d\n", id, "finished", m.Agents-m.Active)

	fmt.Fprintf(rw, "# HELP crowdfield_step_agents Agents by outcome in the last tick.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_step_agents gauge\n")
	fmt.Fprintf(rw, "crowdfield_step_agents{run=%q,outcome=%q} %d\n", id, "moved", m.Moved)
	fmt.Fprintf(rw, "crowdfield_step_agents{run=%q,outcome=%q} %d\n", id, "held", m.Held)
	fmt.Fprintf(rw, "crowdfield_step_agents{run=%q,outcome=%q} %d\n", id, "skipped", m.Skipped)

	fmt.Fprintf(rw, "# HELP crowdfield_observers Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_observers gauge\n")
	fmt.Fprintf(rw, "crowdfield_observers{run=%q} %d\n", id, m.Observers)

	fmt.Fprintf(rw, "# HELP crowdfield_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_step_ms gauge\n")
	fmt.Fprintf(rw, "crowdfield_step_ms{run=%q} %.3f\n", id, m.StepMS)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP crowdfield_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "crowdfield_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP crowdfield_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_index_dropped_total counter\n")
	fmt.Fprintf(rw, "crowdfield_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "crowdfield_index_dropped_total{kind=%q} %d\n", "arrival", s.DropArrivalTotal)
	fmt.Fprintf(rw, "crowdfield_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)

	fmt.Fprintf(rw, "# HELP crowdfield_index_write_errors_total Failed index statements.\n")
	fmt.Fprintf(rw, "# TYPE crowdfield_index_write_errors_total counter\n")
	fmt.Fprintf(rw, "crowdfield_index_write_errors_total %d\n", s.WriteErrorTotal)
}
