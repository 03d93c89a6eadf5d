package sinks

import (
	"context"
	"sync"

	"github.com/pairline/pairline/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type NullConfig struct{}

// null counts and discards everything it receives. Useful for measuring
// pipeline throughput without an output path.
type null struct {
	pipeline.Publisher
	pipeline.Consumer
	log *zap.SugaredLogger
}

var discardedRecords = prometheus.NewCounter(prometheus.CounterOpts{
	Subsystem: "pairline_sinks_null",
	Name:      "records_total",
	Help:      "Total number of records discarded.",
})

func init() {
	prometheus.MustRegister(discardedRecords)
	pipeline.RegisterComponent("sinks.null", func() interface{} {
		return &NullConfig{}
	}, func(interface{}) pipeline.Component {
		return NewNull()
	})
}

func NewNull() *null {
	return &null{
		log: zap.L().Sugar().With("service", "sinks.null"),
	}
}

func (s *null) Run(wg *sync.WaitGroup, ctx context.Context) {
	s.log.Info("Starting pipeline.sinks.null")
	defer wg.Done()
	defer s.log.Info("Shutting down pipeline.sinks.null")

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.Consumes:
			if !ok {
				return
			}
			discardedRecords.Inc()
		}
	}
}

func (s *null) Close() {
	s.Publisher.Close()
}
