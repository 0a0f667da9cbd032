package models

import "time"

// DashboardStats is the admin console summary: active entity counts plus
// today's activity counters.
type DashboardStats struct {
	Courses            int           `json:"courses"`
	Classes            int           `json:"classes"`
	Materials          int           `json:"materials"`
	Teachers           int           `json:"teachers"`
	LoginsToday        int           `json:"logins_today"`
	MaterialViewsToday int           `json:"material_views_today"`
	System             SystemMetrics `json:"system"`
	GeneratedAt        time.Time     `json:"generated_at"`
}

// SystemMetrics is a lightweight aggregate snapshot of the process,
// derived from the Prometheus collectors.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
