package scanner

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// WorkerStat describes one finished worker.
type WorkerStat struct {
	WorkerID     int           `json:"worker_id"`
	PrimaryBytes int           `json:"primary_bytes"`
	ScannedBytes int           `json:"scanned_bytes"`
	Matches      int           `json:"matches"`
	Duration     time.Duration `json:"duration_ns"`
}

// SignatureHits is a per-signature match count.
type SignatureHits struct {
	Signature string `json:"signature"`
	Hits      int64  `json:"hits"`
}

// StatsCollector accumulates worker statistics across runs.
// Records are taken after each run's join, never from inside a worker's scan loop.
type StatsCollector struct {
	mu      sync.Mutex
	workers []WorkerStat
	hits    map[string]int64
}

// NewStatsCollector initializes a collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{hits: make(map[string]int64)}
}

// Record stores one worker's stat and counts its matches per signature.
func (s *StatsCollector) Record(ws WorkerStat, matches []Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, ws)
	for _, m := range matches {
		s.hits[m.Signature]++
	}
}

// Workers returns the recorded stats ordered by worker id.
func (s *StatsCollector) Workers() []WorkerStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.workers)
	slices.SortStableFunc(out, func(a, b WorkerStat) int { return cmp.Compare(a.WorkerID, b.WorkerID) })
	return out
}

// Summary is a point-in-time view of the collected stats.
type Summary struct {
	Workers        int             `json:"workers"`
	TotalMatches   int64           `json:"total_matches"`
	TotalScanned   int64           `json:"total_scanned_bytes"`
	MeanDuration   time.Duration   `json:"mean_duration_ns"`
	MedianDuration time.Duration   `json:"median_duration_ns"`
	MaxDuration    time.Duration   `json:"max_duration_ns"`
	StdDevDuration time.Duration   `json:"stddev_duration_ns"`
	ThroughputBPS  float64         `json:"throughput_bps"`
	TopSignatures  []SignatureHits `json:"top_signatures"`
}

// Summary aggregates worker durations. ThroughputBPS is owned bytes over the slowest
// worker, which bounds wall time for a run.
func (s *StatsCollector) Summary(topN int) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum Summary
	if len(s.workers) == 0 {
		return sum, nil
	}
	durations := make(stats.Float64Data, 0, len(s.workers))
	var owned int64
	for _, w := range s.workers {
		durations = append(durations, w.Duration.Seconds())
		owned += int64(w.PrimaryBytes)
		sum.TotalScanned += int64(w.ScannedBytes)
		sum.TotalMatches += int64(w.Matches)
	}
	sum.Workers = len(s.workers)

	mean, err := stats.Mean(durations)
	if err != nil {
		return sum, err
	}
	median, err := stats.Median(durations)
	if err != nil {
		return sum, err
	}
	maxDur, err := stats.Max(durations)
	if err != nil {
		return sum, err
	}
	sd, err := stats.StandardDeviation(durations)
	if err != nil {
		return sum, err
	}
	sum.MeanDuration = seconds(mean)
	sum.MedianDuration = seconds(median)
	sum.MaxDuration = seconds(maxDur)
	sum.StdDevDuration = seconds(sd)
	if maxDur > 0 {
		sum.ThroughputBPS = float64(owned) / maxDur
	}
	sum.TopSignatures = s.topN(topN)
	return sum, nil
}

func (s *StatsCollector) topN(n int) []SignatureHits {
	all := make([]SignatureHits, 0, len(s.hits))
	for sig, h := range s.hits {
		all = append(all, SignatureHits{Signature: sig, Hits: h})
	}
	slices.SortFunc(all, func(a, b SignatureHits) int {
		if c := cmp.Compare(b.Hits, a.Hits); c != 0 {
			return c
		}
		return cmp.Compare(a.Signature, b.Signature)
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }
