// Package health reports process, database and cache status.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"client-registry/internal/httpx"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 3 * time.Second
)

// countedTables are reported by the database health endpoint.
var countedTables = []string{"users", "login_attempts", "clients", "states", "organizations", "pnumber_requests"}

type Handler struct {
	db      *sql.DB
	redis   redis.UniversalClient
	started time.Time
	now     func() time.Time
}

func NewHandler(database *sql.DB, started time.Time) *Handler {
	return &Handler{db: database, started: started, now: time.Now}
}

func (h *Handler) WithRedis(client redis.UniversalClient) *Handler {
	h.redis = client
	return h
}

type SystemHealth struct {
	Status     string           `json:"status"`
	Timestamp  time.Time        `json:"timestamp"`
	Uptime     float64          `json:"uptime_seconds"`
	Memory     MemoryStats      `json:"memory"`
	CPU        CPUStats         `json:"cpu"`
	Goroutines int              `json:"goroutines"`
	Database   DependencyStatus `json:"database"`
	Redis      *DependencyState `json:"redis,omitempty"`
}

type MemoryStats struct {
	Alloc     uint64 `json:"alloc"`
	HeapInUse uint64 `json:"heap_in_use"`
	Sys       uint64 `json:"sys"`
	NumGC     uint32 `json:"num_gc"`
}

type CPUStats struct {
	Cores      int `json:"cores"`
	GOMAXPROCS int `json:"gomaxprocs"`
}

type DependencyState struct {
	Status string `json:"status"`
}

type DependencyStatus struct {
	DependencyState
	Connections ConnectionStats `json:"connections"`
}

type ConnectionStats struct {
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
	MaxOpen int `json:"max_open"`
}

func connectionStats(stats sql.DBStats) ConnectionStats {
	return ConnectionStats{
		Open:    stats.OpenConnections,
		InUse:   stats.InUse,
		Idle:    stats.Idle,
		MaxOpen: stats.MaxOpenConnections,
	}
}

func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := h.now().UTC()
	report := SystemHealth{
		Status:    StatusHealthy,
		Timestamp: now,
		Uptime:    now.Sub(h.started).Seconds(),
		Memory: MemoryStats{
			Alloc:     mem.Alloc,
			HeapInUse: mem.HeapInuse,
			Sys:       mem.Sys,
			NumGC:     mem.NumGC,
		},
		CPU: CPUStats{
			Cores:      runtime.NumCPU(),
			GOMAXPROCS: runtime.GOMAXPROCS(0),
		},
		Goroutines: runtime.NumGoroutine(),
		Database: DependencyStatus{
			DependencyState: DependencyState{Status: "connected"},
			Connections:     connectionStats(h.db.Stats()),
		},
	}

	if err := h.db.PingContext(ctx); err != nil {
		report.Status = StatusUnhealthy
		report.Database.Status = "disconnected"
	}

	if h.redis != nil {
		report.Redis = &DependencyState{Status: "connected"}
		if err := h.redis.Ping(ctx).Err(); err != nil {
			report.Status = StatusUnhealthy
			report.Redis.Status = "disconnected"
		}
	}

	status := http.StatusOK
	if report.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, report)
}

type DatabaseHealth struct {
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Tables      []TableStats    `json:"tables"`
	Connections ConnectionStats `json:"connections"`
	WaitCount   int64           `json:"wait_count"`
	WaitMillis  int64           `json:"wait_duration_ms"`
}

type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

func (h *Handler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	tables := make([]TableStats, 0, len(countedTables))
	for _, table := range countedTables {
		var rows int64
		// table names come from the fixed list above
		if err := h.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&rows); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    StatusUnhealthy,
				"timestamp": h.now().UTC(),
				"error":     "database unavailable",
			})
			return
		}
		tables = append(tables, TableStats{Name: table, Rows: rows})
	}

	stats := h.db.Stats()
	httpx.WriteJSON(w, http.StatusOK, DatabaseHealth{
		Status:      StatusHealthy,
		Timestamp:   h.now().UTC(),
		Tables:      tables,
		Connections: connectionStats(stats),
		WaitCount:   stats.WaitCount,
		WaitMillis:  stats.WaitDuration.Milliseconds(),
	})
}
