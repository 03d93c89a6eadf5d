package sources

import (
	"testing"

	goKafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestKafkaReaderClosedOnce(t *testing.T) {
	s := NewKafka(KafkaConfig{Brokers: "localhost:9092", Topic: "feed", GroupID: "extractor"})
	s.Reader = goKafka.NewReader(goKafka.ReaderConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "feed",
		GroupID: "extractor",
	})

	// the reader is closed at the end of Run and again via Close; the
	// second close must be a no-op
	s.closeReader()
	s.Close()
}

func TestKafkaCloseWithoutRun(t *testing.T) {
	s := NewKafka(KafkaConfig{})
	require.Nil(t, s.Reader)
	s.Close()
}
