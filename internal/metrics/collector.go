package metrics

import (
	"runtime"
	"sync/atomic"
	"time"
)

// HealthStatus mirrors the traffic-light status the debug endpoint reports.
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusCritical HealthStatus = "critical"
)

// GoRuntimeMetrics reports basic Go runtime health.
type GoRuntimeMetrics struct {
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heapAllocMB"`
	HeapSysMB   float64 `json:"heapSysMB"`
	NumGC       uint32  `json:"numGC"`
}

// ProxyMetrics reports counters specific to the SiriusXM proxy's own
// operations: there is no container fleet or database pool to watch here,
// only the session and catalog pipeline (§9 Non-goals — no persistent
// storage, no multi-tenant accounts to meter).
type ProxyMetrics struct {
	Logins           int64 `json:"logins"`
	Reauthentications int64 `json:"reauthentications"`
	ReauthFailures   int64 `json:"reauthFailures"`
	PlaylistRequests int64 `json:"playlistRequests"`
	SegmentRequests  int64 `json:"segmentRequests"`
	SegmentRetries   int64 `json:"segmentRetries"`
	UpstreamErrors   int64 `json:"upstreamErrors"`
}

// SystemMetrics is the full snapshot served from the debug endpoint.
type SystemMetrics struct {
	Timestamp     time.Time        `json:"timestamp"`
	OverallStatus HealthStatus     `json:"overallStatus"`
	Proxy         ProxyMetrics     `json:"proxy"`
	GoRuntime     GoRuntimeMetrics `json:"goRuntime"`
}

// Collector accumulates counters for the proxy's own operations. All
// counters are atomic so the HTTP handlers and the session/playlist
// pipeline can update them from any goroutine without a lock.
type Collector struct {
	logins            atomic.Int64
	reauthentications atomic.Int64
	reauthFailures    atomic.Int64
	playlistRequests  atomic.Int64
	segmentRequests   atomic.Int64
	segmentRetries    atomic.Int64
	upstreamErrors    atomic.Int64
}

// NewCollector creates a new, zeroed metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncLogin()            { c.logins.Add(1) }
func (c *Collector) IncReauth()           { c.reauthentications.Add(1) }
func (c *Collector) IncReauthFailure()    { c.reauthFailures.Add(1) }
func (c *Collector) IncPlaylistRequest()  { c.playlistRequests.Add(1) }
func (c *Collector) IncSegmentRequest()   { c.segmentRequests.Add(1) }
func (c *Collector) IncSegmentRetry()     { c.segmentRetries.Add(1) }
func (c *Collector) IncUpstreamError()    { c.upstreamErrors.Add(1) }

// Collect gathers a snapshot of both the proxy counters and the Go runtime.
func (c *Collector) Collect() *SystemMetrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	proxy := ProxyMetrics{
		Logins:            c.logins.Load(),
		Reauthentications: c.reauthentications.Load(),
		ReauthFailures:    c.reauthFailures.Load(),
		PlaylistRequests:  c.playlistRequests.Load(),
		SegmentRequests:   c.segmentRequests.Load(),
		SegmentRetries:    c.segmentRetries.Load(),
		UpstreamErrors:    c.upstreamErrors.Load(),
	}

	status := HealthStatusHealthy
	if proxy.ReauthFailures > 0 {
		status = HealthStatusWarning
	}
	if proxy.Reauthentications > 0 && proxy.ReauthFailures == proxy.Reauthentications {
		status = HealthStatusCritical
	}

	return &SystemMetrics{
		Timestamp:     time.Now(),
		OverallStatus: status,
		Proxy:         proxy,
		GoRuntime: GoRuntimeMetrics{
			Goroutines:  runtime.NumGoroutine(),
			HeapAllocMB: float64(memStats.HeapAlloc) / (1024 * 1024),
			HeapSysMB:   float64(memStats.HeapSys) / (1024 * 1024),
			NumGC:       memStats.NumGC,
		},
	}
}
