package stores

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	statsOnce    sync.Once
	defaultStats *StatsStore
)

// StatsStore accumulates run counters for the HTTP API. Prometheus keeps
// the operational view; this keeps the humane one.
type StatsStore struct {
	startedAt time.Time

	documentsProcessed uint64
	pairsEmitted       uint64
	noticesEmitted     uint64
	valuesDropped      uint64
	streamFailures     uint64
}

func GetStatsStore() *StatsStore {
	statsOnce.Do(func() {
		defaultStats = &StatsStore{startedAt: time.Now()}
	})
	return defaultStats
}

func (s *StatsStore) CountDocument() { atomic.AddUint64(&s.documentsProcessed, 1) }
func (s *StatsStore) CountPair()     { atomic.AddUint64(&s.pairsEmitted, 1) }
func (s *StatsStore) CountNotice()   { atomic.AddUint64(&s.noticesEmitted, 1) }

func (s *StatsStore) CountDroppedValues(n int) {
	if n > 0 {
		atomic.AddUint64(&s.valuesDropped, uint64(n))
	}
}

func (s *StatsStore) CountStreamFailure() { atomic.AddUint64(&s.streamFailures, 1) }

func (s *StatsStore) DocumentsProcessed() uint64 { return atomic.LoadUint64(&s.documentsProcessed) }
func (s *StatsStore) PairsEmitted() uint64       { return atomic.LoadUint64(&s.pairsEmitted) }
func (s *StatsStore) NoticesEmitted() uint64     { return atomic.LoadUint64(&s.noticesEmitted) }
func (s *StatsStore) ValuesDropped() uint64      { return atomic.LoadUint64(&s.valuesDropped) }
func (s *StatsStore) StreamFailures() uint64     { return atomic.LoadUint64(&s.streamFailures) }
func (s *StatsStore) Uptime() time.Duration      { return time.Since(s.startedAt) }
