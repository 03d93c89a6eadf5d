package utils

import (
	"sync/atomic"
	"time"

	"github.com/pairline/pairline/stores"
)

// RecordSampler derives a pairs-per-second rate from the cumulative
// counter of the stats store, sampled once per second.
type RecordSampler struct {
	ticker         *time.Ticker
	doneChannel    chan bool
	store          *stores.StatsStore
	lastValue      uint64
	lastTimestamp  time.Time
	pairsPerSecond int64
}

func NewRecordSampler(store *stores.StatsStore) *RecordSampler {
	result := &RecordSampler{
		ticker:      time.NewTicker(1000 * time.Millisecond),
		store:       store,
		doneChannel: make(chan bool),
	}

	go result.tick()
	return result
}

// GetSample is safe to call from any goroutine.
func (rs *RecordSampler) GetSample() int {
	return int(atomic.LoadInt64(&rs.pairsPerSecond))
}

func (rs *RecordSampler) Close() {
	close(rs.doneChannel)
	rs.ticker.Stop()
}

func (rs *RecordSampler) tick() {
	for {
		select {
		case <-rs.doneChannel:
			return
		case <-rs.ticker.C:
			timeNow := time.Now()
			newValue := rs.store.PairsEmitted()
			if rs.lastValue > 0 {
				elapsedTime := timeNow.Sub(rs.lastTimestamp)
				atomic.StoreInt64(&rs.pairsPerSecond, int64(float64(newValue-rs.lastValue)/elapsedTime.Seconds()))
			}
			rs.lastValue = newValue
			rs.lastTimestamp = timeNow
		}
	}
}
