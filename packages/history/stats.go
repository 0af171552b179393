package history

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	// 10 minutes
	maxLatencyUs = 600_000_000
)

// Stats aggregates latency over history entries. Only entries that produced
// a response contribute latency; failures are counted separately.
type Stats struct {
	total     int64
	failures  int64
	histogram *hdrhistogram.Histogram
	endpoints map[string]*EndpointStats
}

// EndpointStats holds the figures for one "METHOD URL" label.
type EndpointStats struct {
	Label     string
	Total     int64
	Failures  int64
	Histogram *hdrhistogram.Histogram
}

// Summary is a printable view of Stats.
type Summary struct {
	Total     int64
	Responses int64
	Failures  int64
	Min       time.Duration
	Max       time.Duration
	Mean      time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Endpoints []EndpointSummary
}

// EndpointSummary is the per-endpoint part of Summary.
type EndpointSummary struct {
	Label    string
	Total    int64
	Failures int64
	P50      time.Duration
	P95      time.Duration
}

func newHistogram() *hdrhistogram.Histogram {
	// microsecond precision, 3 significant digits
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

func NewStats() *Stats {
	return &Stats{
		histogram: newHistogram(),
		endpoints: make(map[string]*EndpointStats),
	}
}

// StatsFor builds Stats over entries.
func StatsFor(entries []Entry) *Stats {
	s := NewStats()
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add records one entry.
func (s *Stats) Add(e Entry) {
	s.total++
	ep, ok := s.endpoints[e.Label()]
	if !ok {
		ep = &EndpointStats{Label: e.Label(), Histogram: newHistogram()}
		s.endpoints[e.Label()] = ep
	}
	ep.Total++

	if !e.Succeeded() {
		s.failures++
		ep.Failures++
		return
	}

	latencyUs := clampLatency(time.Duration(e.TimeMs) * time.Millisecond)
	_ = s.histogram.RecordValue(latencyUs)
	_ = ep.Histogram.RecordValue(latencyUs)
}

func clampLatency(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	if h.TotalCount() == 0 {
		return 0
	}
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

// Summary computes percentiles. Endpoints are ordered by count, then label.
func (s *Stats) Summary() Summary {
	sum := Summary{
		Total:     s.total,
		Responses: s.histogram.TotalCount(),
		Failures:  s.failures,
		P50:       quantile(s.histogram, 50),
		P95:       quantile(s.histogram, 95),
		P99:       quantile(s.histogram, 99),
	}
	if sum.Responses > 0 {
		sum.Min = time.Duration(s.histogram.Min()) * time.Microsecond
		sum.Max = time.Duration(s.histogram.Max()) * time.Microsecond
		sum.Mean = time.Duration(s.histogram.Mean()) * time.Microsecond
	}

	for _, ep := range s.endpoints {
		sum.Endpoints = append(sum.Endpoints, EndpointSummary{
			Label:    ep.Label,
			Total:    ep.Total,
			Failures: ep.Failures,
			P50:      quantile(ep.Histogram, 50),
			P95:      quantile(ep.Histogram, 95),
		})
	}
	sort.Slice(sum.Endpoints, func(i, j int) bool {
		if sum.Endpoints[i].Total != sum.Endpoints[j].Total {
			return sum.Endpoints[i].Total > sum.Endpoints[j].Total
		}
		return sum.Endpoints[i].Label < sum.Endpoints[j].Label
	})
	return sum
}
