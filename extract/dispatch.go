package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// StartEvent is one element-entered notification from the tokenizer.
// Attr fetches a named attribute of the element; Text fetches the
// accumulated text between the element's start and end tags, consuming
// the element in the underlying token stream.
type StartEvent struct {
	Name string
	Attr func(name string) (string, bool)
	Text func() (string, error)
}

// Vocabulary names the elements the dispatcher acts on. Everything else
// in the stream is ignored, which for real-world markup is the common
// case.
type Vocabulary struct {
	BlockElement   string
	LabelElement   string
	LabelAttribute string
	FirstElement   string
	FirstKind      Kind
	SecondElement  string
	SecondKind     Kind
	// SubLabelElement, when set, names an element whose text becomes the
	// secondary label on emitted pairs (e.g. a site record version date).
	SubLabelElement string
	// Passthrough elements are echoed verbatim as notices, independent
	// of block state (e.g. a document-level publication timestamp).
	Passthrough []string
}

// DefaultVocabulary is the traffic telemetry deployment: speed/flow pairs
// per measurement site.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		BlockElement:   "siteMeasurements",
		LabelElement:   "measurementSiteReference",
		LabelAttribute: "id",
		FirstElement:   "speed",
		FirstKind:      KindFloat,
		SecondElement:  "vehicleFlowRate",
		SecondKind:     KindInt,
		Passthrough:    []string{"publicationTime"},
	}
}

var (
	unparsableValues = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pairline_extract",
		Name:      "unparsable_values_total",
		Help:      "Total number of value elements whose text did not parse.",
	}, []string{"series"})
	missingAttributes = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "pairline_extract",
		Name:      "missing_attributes_total",
		Help:      "Total number of label elements without the label attribute.",
	})
)

func init() {
	prometheus.MustRegister(unparsableValues, missingAttributes)
}

// Dispatcher routes tokenizer notifications to block mutations through a
// name-to-handler table. It owns no control flow: the caller drives it
// one notification at a time.
type Dispatcher struct {
	block   *Block
	emitter Emitter
	maxText int
	start   map[string]func(StartEvent)
	end     map[string]func()
	log     *zap.SugaredLogger
}

func NewDispatcher(vocab Vocabulary, block *Block, emitter Emitter) *Dispatcher {
	d := &Dispatcher{
		block:   block,
		emitter: emitter,
		maxText: block.maxText,
		start:   make(map[string]func(StartEvent)),
		end:     make(map[string]func()),
		log:     zap.L().Sugar().With("service", "extract"),
	}

	// handlers for the same element name chain in registration order, so
	// a vocabulary whose label attribute lives on the block element both
	// resets and relabels on that element's start
	add := func(name string, h func(StartEvent)) {
		if prev, ok := d.start[name]; ok {
			d.start[name] = func(ev StartEvent) {
				prev(ev)
				h(ev)
			}
			return
		}
		d.start[name] = h
	}

	add(vocab.BlockElement, func(StartEvent) { d.block.Reset() })
	d.end[vocab.BlockElement] = d.block.FlushAndReset

	add(vocab.LabelElement, func(ev StartEvent) {
		val, ok := ev.Attr(vocab.LabelAttribute)
		if !ok {
			missingAttributes.Inc()
			d.log.Debugw("label element without attribute", "element", ev.Name, "attribute", vocab.LabelAttribute)
		}
		// a missing attribute clears the label, so the sentinel shows
		d.block.SetLabel(val)
	})

	if vocab.SubLabelElement != "" {
		add(vocab.SubLabelElement, func(ev StartEvent) {
			text, err := ev.Text()
			if err != nil {
				d.log.Debugw("unreadable sub-label element", "element", ev.Name, "error", err)
				text = ""
			}
			d.block.SetSubLabel(text)
		})
	}

	add(vocab.FirstElement, d.valueHandler("first", vocab.FirstKind, d.block.PushFirst))
	add(vocab.SecondElement, d.valueHandler("second", vocab.SecondKind, d.block.PushSecond))

	for _, name := range vocab.Passthrough {
		add(name, func(ev StartEvent) {
			text, err := ev.Text()
			if err != nil {
				d.log.Debugw("unreadable passthrough element", "element", ev.Name, "error", err)
				return
			}
			d.emitter.EmitNotice(truncate(text, d.maxText))
		})
	}

	return d
}

func (d *Dispatcher) valueHandler(series string, kind Kind, push func(Value)) func(StartEvent) {
	return func(ev StartEvent) {
		text, err := ev.Text()
		if err != nil {
			unparsableValues.WithLabelValues(series).Inc()
			d.block.noteDrop("unparsable", 1)
			d.log.Debugw("unreadable value element", "element", ev.Name, "error", err)
			return
		}

		v, err := ParseValue(kind, text)
		if err != nil {
			unparsableValues.WithLabelValues(series).Inc()
			d.block.noteDrop("unparsable", 1)
			d.log.Debugw("dropping unparsable value", "element", ev.Name, "kind", kind.String(), "text", truncate(text, 64))
			return
		}
		push(v)
	}
}

// HandleStart routes an element-entered notification. Unrecognized
// element names are a no-op.
func (d *Dispatcher) HandleStart(ev StartEvent) {
	if h, ok := d.start[ev.Name]; ok {
		h(ev)
	}
}

// HandleEnd routes an element-exited notification.
func (d *Dispatcher) HandleEnd(name string) {
	if h, ok := d.end[name]; ok {
		h()
	}
}

// Reset clears the dispatcher's block. Used between documents, where any
// unmatched leftovers of an unterminated block are abandoned.
func (d *Dispatcher) Reset() {
	d.block.Reset()
}
