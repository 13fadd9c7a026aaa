package metrics

import (
	"sync"
	"time"
)

// Store is an in-memory Collector. Recent records are kept in a fixed-size
// circular buffer while aggregates cover every record since start.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	store.Record(rec)
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	history []ExtractionRecord
	cap     int
	head    int
	size    int

	total      int64
	success    int64
	failed     int64
	attempts   int64
	lastResort int64
	byFormat   map[string]*formatStats
	byReason   map[string]int64
	byTier     map[string]int64

	startTime time.Time
	version   string
}

type formatStats struct {
	count         int64
	successCount  int64
	attempts      int64
	scoreSum      int64
	totalDuration time.Duration
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// HistoryCapacity is the number of records retained for Recent
	HistoryCapacity int
	// Version is reported in Summary
	Version string
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 100,
		Version:         "dev",
	}
}

// NewStore creates a Store. A capacity below 1 falls back to 100.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		history:   make([]ExtractionRecord, capacity),
		cap:       capacity,
		byFormat:  make(map[string]*formatStats),
		byReason:  make(map[string]int64),
		byTier:    make(map[string]int64),
		startTime: startTime,
		version:   config.Version,
	}
}

func (s *Store) Record(rec ExtractionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = rec
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.total++
	s.attempts += int64(rec.Attempts)
	if rec.LastResort {
		s.lastResort++
	}
	if rec.Status == StatusSuccess {
		s.success++
	} else {
		s.failed++
		if rec.Reason != "" {
			s.byReason[rec.Reason]++
		}
	}
	if rec.Tier != "" {
		s.byTier[rec.Tier]++
	}

	stats, ok := s.byFormat[rec.Format]
	if !ok {
		stats = &formatStats{}
		s.byFormat[rec.Format] = stats
	}
	stats.count++
	if rec.Status == StatusSuccess {
		stats.successCount++
	}
	stats.attempts += int64(rec.Attempts)
	stats.scoreSum += int64(rec.Score)
	stats.totalDuration += rec.Duration
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		TotalProcessed: s.total,
		TotalSuccess:   s.success,
		TotalFailed:    s.failed,
		TotalAttempts:  s.attempts,
		LastResortRuns: s.lastResort,
		ByFormat:       make(map[string]*FormatMetrics, len(s.byFormat)),
		ByReason:       make(map[string]int64, len(s.byReason)),
		ByTier:         make(map[string]int64, len(s.byTier)),
		Version:        s.version,
		Uptime:         time.Since(s.startTime),
	}

	for format, stats := range s.byFormat {
		n := float64(stats.count)
		sum.ByFormat[format] = &FormatMetrics{
			Count:       stats.count,
			SuccessRate: float64(stats.successCount) / n * 100,
			AvgDuration: stats.totalDuration / time.Duration(stats.count),
			AvgAttempts: float64(stats.attempts) / n,
			AvgScore:    float64(stats.scoreSum) / n,
		}
	}
	for k, v := range s.byReason {
		sum.ByReason[k] = v
	}
	for k, v := range s.byTier {
		sum.ByTier[k] = v
	}
	return sum
}

// Recent returns the newest limit records, oldest first.
func (s *Store) Recent(limit int) []ExtractionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []ExtractionRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	result := make([]ExtractionRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - limit + i + s.cap) % s.cap
		result[i] = s.history[idx]
	}
	return result
}
