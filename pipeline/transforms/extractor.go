package transforms

import (
	"context"
	"io"
	"sync"

	"github.com/pairline/pairline/extract"
	"github.com/pairline/pairline/pipeline"
	"github.com/pairline/pairline/stores"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ExtractorConfig names the element vocabulary and the queueing policy of
// one extraction engine. The defaults are the traffic telemetry
// deployment (speed/flow pairs per measurement site).
type ExtractorConfig struct {
	BlockElement    string   `yaml:"block-element"`
	LabelElement    string   `yaml:"label-element"`
	LabelAttribute  string   `yaml:"label-attribute"`
	SubLabelElement string   `yaml:"sub-label-element"`
	FirstElement    string   `yaml:"first-element"`
	FirstKind       string   `yaml:"first-kind"`
	SecondElement   string   `yaml:"second-element"`
	SecondKind      string   `yaml:"second-kind"`
	Passthrough     []string `yaml:"passthrough-elements"`

	Strategy       string `yaml:"strategy"`
	FirstCapacity  int    `yaml:"first-capacity"`
	SecondCapacity int    `yaml:"second-capacity"`

	Indexed         bool   `yaml:"indexed"`
	UnknownLabel    string `yaml:"unknown-label"`
	UnknownSubLabel string `yaml:"unknown-sub-label"`
	MaxTextLength   int    `yaml:"max-text-length"`
}

type extractor struct {
	pipeline.Publisher
	pipeline.Consumer
	config ExtractorConfig
	runner *extract.Runner
	engine *extract.Dispatcher
	stats  *stores.StatsStore
	log    *zap.SugaredLogger
}

var (
	extractedDocuments = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "pairline_transforms_extractor",
		Name:      "documents_total",
		Help:      "Total number of feed documents processed.",
	})
	extractorStreamFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "pairline_transforms_extractor",
		Name:      "stream_failures_total",
		Help:      "Total number of documents abandoned on a structural read failure.",
	})
)

func init() {
	prometheus.MustRegister(extractedDocuments, extractorStreamFailures)
	pipeline.RegisterComponent("transforms.extractor", func() interface{} {
		vocab := extract.DefaultVocabulary()
		return &ExtractorConfig{
			BlockElement:   vocab.BlockElement,
			LabelElement:   vocab.LabelElement,
			LabelAttribute: vocab.LabelAttribute,
			FirstElement:   vocab.FirstElement,
			FirstKind:      vocab.FirstKind.String(),
			SecondElement:  vocab.SecondElement,
			SecondKind:     vocab.SecondKind.String(),
			Passthrough:    vocab.Passthrough,
		}
	}, func(config interface{}) pipeline.Component {
		return NewExtractor(*config.(*ExtractorConfig))
	})
}

func NewExtractor(config ExtractorConfig) *extractor {
	log := zap.L().Sugar().With("service", "transforms.extractor")

	firstKind, err := extract.ParseKind(config.FirstKind)
	if err != nil {
		log.Errorw("invalid first series kind, using float", "error", err)
	}
	secondKind, err := extract.ParseKind(config.SecondKind)
	if err != nil {
		log.Errorw("invalid second series kind, using float", "error", err)
	}
	strategy, err := extract.ParseStrategy(config.Strategy)
	if err != nil {
		log.Errorw("invalid queue strategy, using bounded", "error", err)
	}

	ex := &extractor{
		config: config,
		stats:  stores.GetStatsStore(),
		log:    log,
	}

	block := extract.NewBlock(extract.BlockConfig{
		Strategy:         strategy,
		FirstCapacity:    config.FirstCapacity,
		SecondCapacity:   config.SecondCapacity,
		Sentinel:         config.UnknownLabel,
		MaxTextLength:    config.MaxTextLength,
		SubLabel:         config.SubLabelElement != "",
		SubLabelSentinel: config.UnknownSubLabel,
		OnDrop: func(reason string, count int) {
			ex.stats.CountDroppedValues(count)
		},
	}, ex)

	ex.engine = extract.NewDispatcher(extract.Vocabulary{
		BlockElement:    config.BlockElement,
		LabelElement:    config.LabelElement,
		LabelAttribute:  config.LabelAttribute,
		SubLabelElement: config.SubLabelElement,
		FirstElement:    config.FirstElement,
		FirstKind:       firstKind,
		SecondElement:   config.SecondElement,
		SecondKind:      secondKind,
		Passthrough:     config.Passthrough,
	}, block, ex)
	ex.runner = extract.NewRunner(ex.engine)

	return ex
}

// EmitPair forwards one matched pair downstream, in emission order.
func (ex *extractor) EmitPair(p extract.Pair) {
	ex.stats.CountPair()
	ex.Publish(pipeline.PairRecord{
		Index:    p.Index,
		Indexed:  ex.config.Indexed,
		Label:    p.Label,
		SubLabel: p.SubLabel,
		First:    p.First,
		Second:   p.Second,
	})
}

// EmitNotice forwards a side-channel line downstream.
func (ex *extractor) EmitNotice(text string) {
	ex.stats.CountNotice()
	ex.Publish(pipeline.Notice{Text: text})
}

func (ex *extractor) Run(wg *sync.WaitGroup, ctx context.Context) {
	ex.log.Info("Starting pipeline.transforms.extractor")
	defer wg.Done()
	defer ex.log.Info("Shutting down pipeline.transforms.extractor")

	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-ex.Consumes:
			if !ok {
				return
			}

			doc, isDoc := input.(pipeline.Document)
			if !isDoc {
				ex.log.Errorw("Expected pipeline.Document input", "input", input)
				continue
			}

			ex.process(doc)
		}
	}
}

// process drives the engine over one document. A structural read failure
// abandons that document only; pairs flushed before the failure stand.
func (ex *extractor) process(doc pipeline.Document) {
	extractedDocuments.Inc()
	ex.stats.CountDocument()

	err := ex.runner.Run(doc.Body)
	if closer, isCloser := doc.Body.(io.Closer); isCloser {
		closer.Close()
	}

	// leftovers of an unterminated block never pair across documents
	ex.engine.Reset()

	if err != nil {
		extractorStreamFailures.Inc()
		ex.stats.CountStreamFailure()
		ex.log.Errorw("abandoning document on stream failure", "source", doc.Source, "error", err)
	}
}

func (ex *extractor) Close() {
	ex.Publisher.Close()
}
