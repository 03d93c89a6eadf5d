package sources

import (
	"context"
	"os"
	"sync"

	"github.com/pairline/pairline/pipeline"
	"go.uber.org/zap"
)

type StdinConfig struct{}

// stdin publishes standard input as a single streaming document: the
// one-shot conversion mode, for piping a feed straight through the
// extractor to stdout.
type stdin struct {
	pipeline.Consumer
	pipeline.Publisher
	log *zap.SugaredLogger
}

func init() {
	pipeline.RegisterComponent("sources.stdin", func() interface{} {
		return &StdinConfig{}
	}, func(interface{}) pipeline.Component {
		return NewStdin()
	})
}

func NewStdin() *stdin {
	return &stdin{
		log: zap.L().Sugar().With("service", "sources.stdin"),
	}
}

func (s *stdin) Link(parent chan interface{}) {
	panic("A source component must not be linked to a parent pipeline component")
}

func (s *stdin) Close() {
	s.Publisher.Close()
}

func (s *stdin) Run(wg *sync.WaitGroup, ctx context.Context) {
	s.log.Info("Starting pipeline.sources.stdin")
	defer wg.Done()
	defer s.log.Info("Shutting down pipeline.sources.stdin")

	// os.Stdin is handed over unread; the consuming extractor streams it
	s.Publish(pipeline.Document{Source: "stdin", Body: os.Stdin})

	<-ctx.Done()
}
