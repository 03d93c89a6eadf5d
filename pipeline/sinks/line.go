package sinks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pairline/pairline/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultBufferSize matches the write buffer the converters have always
// used in front of stdout.
const DefaultBufferSize = 8 * 1024 * 1024

type LineConfig struct {
	// Path of the output file; empty means stdout.
	Path          string        `yaml:"path"`
	BufferSize    int           `yaml:"buffer-size"`
	FlushInterval time.Duration `yaml:"flush-interval"`
}

// line renders pair records and notices as whitespace-delimited text,
// one record per line, in the order they arrive.
type line struct {
	pipeline.Publisher
	pipeline.Consumer
	config LineConfig
	out    io.Writer // test override; nil selects Path/stdout
	writer *bufio.Writer
	file   *os.File
	mu     sync.Mutex
	log    *zap.SugaredLogger
}

var writtenLines = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pairline_sinks_line",
	Name:      "lines_total",
	Help:      "Total number of output lines written.",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(writtenLines)
	pipeline.RegisterComponent("sinks.line", func() interface{} {
		return &LineConfig{
			BufferSize:    DefaultBufferSize,
			FlushInterval: time.Second,
		}
	}, func(config interface{}) pipeline.Component {
		return NewLine(*config.(*LineConfig))
	})
}

func NewLine(config LineConfig) *line {
	return &line{
		config: config,
		log:    zap.L().Sugar().With("service", "sinks.line"),
	}
}

func (s *line) Run(wg *sync.WaitGroup, ctx context.Context) {
	s.log.Info("Starting pipeline.sinks.line")
	defer wg.Done()
	defer s.log.Info("Shutting down pipeline.sinks.line")

	if err := s.open(); err != nil {
		s.log.Errorw("could not open output", "path", s.config.Path, "error", err)
		return
	}

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		case input, ok := <-s.Consumes:
			if !ok {
				s.flush()
				return
			}
			s.write(input)
		}
	}
}

func (s *line) open() error {
	out := s.out
	if out == nil {
		if s.config.Path == "" {
			out = os.Stdout
		} else {
			f, err := os.Create(s.config.Path)
			if err != nil {
				return err
			}
			s.file = f
			out = f
		}
	}

	size := s.config.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	s.mu.Lock()
	s.writer = bufio.NewWriterSize(out, size)
	s.mu.Unlock()
	return nil
}

func (s *line) write(input interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch record := input.(type) {
	case pipeline.PairRecord:
		writtenLines.WithLabelValues("pair").Inc()
		if record.Indexed {
			fmt.Fprintf(s.writer, "%d ", record.Index)
		}
		if record.SubLabel != "" {
			fmt.Fprintf(s.writer, "%s %s %s %s\n", record.Label, record.SubLabel, record.First, record.Second)
			return
		}
		fmt.Fprintf(s.writer, "%s %s %s\n", record.Label, record.First, record.Second)
	case pipeline.Notice:
		writtenLines.WithLabelValues("notice").Inc()
		fmt.Fprintln(s.writer, record.Text)
	default:
		s.log.Errorw("Expected pipeline.PairRecord or pipeline.Notice input", "input", input)
	}
}

func (s *line) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.log.Errorw("could not flush output", "error", err)
	}
}

func (s *line) Close() {
	s.flush()
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.log.Errorw("could not close output file", "error", err)
		}
	}
	s.Publisher.Close()
}
