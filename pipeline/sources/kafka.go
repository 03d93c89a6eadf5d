package sources

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/pairline/pairline/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	goKafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/scram"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers        string        `yaml:"brokers"`
	Tls            bool          `yaml:"tls"`
	GroupID        string        `yaml:"group-id"`
	Topic          string        `yaml:"topic"`
	MinBytes       int           `yaml:"min-bytes"`
	MaxBytes       int           `yaml:"max-bytes"`
	CommitInterval time.Duration `yaml:"commit-interval"`
	Timeout        time.Duration `yaml:"timeout"`
	SaslConfig     *struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"sasl-config"`
}

type kafka struct {
	pipeline.Consumer
	pipeline.Publisher
	Config    KafkaConfig
	Reader    *goKafka.Reader
	closeOnce sync.Once
	log       *zap.SugaredLogger
}

var receivedKafkaDocuments = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pairline_sources_kafka",
	Name:      "documents_total",
	Help:      "Total number of received feed documents.",
}, []string{"broker", "topic", "group_id"})

var receivedKafkaErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "pairline_sources_kafka",
	Name:      "errors_total",
	Help:      "Total number of reads that produced an error.",
}, []string{"broker", "topic", "group_id"})

var lastReceivedKafkaDocument = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "pairline_sources_kafka",
	Name:      "last_received_document",
	Help:      "Last received feed document for this source.",
}, []string{"broker", "topic", "group_id"})

func init() {
	prometheus.MustRegister(receivedKafkaDocuments, receivedKafkaErrors, lastReceivedKafkaDocument)
	pipeline.RegisterComponent("sources.kafka", func() interface{} {
		return &KafkaConfig{
			MinBytes:       1,
			MaxBytes:       10 << 20,
			CommitInterval: time.Second,
			Timeout:        10 * time.Second,
		}
	}, func(config interface{}) pipeline.Component {
		return NewKafka(*config.(*KafkaConfig))
	})
}

func NewKafka(config KafkaConfig) *kafka {
	return &kafka{
		Config: config,
		log:    zap.L().Sugar().With("service", "sources.kafka"),
	}
}

func (s *kafka) Close() {
	s.closeReader()
	s.Publisher.Close()
}

// closeReader closes the topic reader exactly once; both the end of Run
// and Close reach it.
func (s *kafka) closeReader() {
	if s.Reader == nil {
		return
	}
	s.closeOnce.Do(func() {
		if err := s.Reader.Close(); err != nil {
			s.log.Errorw("Failed to close kafka source reader", "error", err)
		}
	})
}

func (s *kafka) Link(parent chan interface{}) {
	panic("A source component must not be linked to a parent pipeline component")
}

// Run consumes the topic; every message value is one complete XML feed
// document.
func (s *kafka) Run(wg *sync.WaitGroup, ctx context.Context) {
	s.log.Info("Starting pipeline.sources.kafka")
	defer wg.Done()
	defer s.log.Info("Shutting down pipeline.sources.kafka")

	dialer := &goKafka.Dialer{
		Timeout:   s.Config.Timeout,
		DualStack: true,
	}

	if s.Config.Tls {
		dialer.TLS = &tls.Config{}
	}

	if s.Config.SaslConfig != nil {
		mechanism, err := scram.Mechanism(scram.SHA512, s.Config.SaslConfig.Username, s.Config.SaslConfig.Password)
		if err != nil {
			s.log.Errorw("could not build SASL mechanism", "error", err)
			return
		}

		dialer.SASLMechanism = mechanism
	}

	s.Reader = goKafka.NewReader(goKafka.ReaderConfig{
		Dialer:         dialer,
		Brokers:        strings.Split(s.Config.Brokers, ","),
		GroupID:        s.Config.GroupID,
		Topic:          s.Config.Topic,
		MinBytes:       s.Config.MinBytes,
		MaxBytes:       s.Config.MaxBytes,
		CommitInterval: s.Config.CommitInterval,
	})

	brokerList := s.Config.Brokers

	for {
		m, err := s.Reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				s.log.Info("Shutting down kafka source..")
			} else {
				receivedKafkaErrors.WithLabelValues(brokerList, s.Config.Topic, s.Config.GroupID).Inc()
				s.log.Errorw("An unexpected error occurred during ReadMessage", "error", err)
			}
			break
		}

		receivedKafkaDocuments.WithLabelValues(brokerList, s.Config.Topic, s.Config.GroupID).Inc()
		lastReceivedKafkaDocument.WithLabelValues(brokerList, s.Config.Topic, s.Config.GroupID).SetToCurrentTime()

		s.Publish(pipeline.Document{Source: s.Config.Topic, Body: bytes.NewReader(m.Value)})
	}

	s.closeReader()
}
