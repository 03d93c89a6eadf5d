package extract

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultSentinel is the label printed for pairs of a block that never saw
// an explicit site identifier.
const DefaultSentinel = "(unknown_site)"

// DefaultSubSentinel is printed in place of a sub-label that was never set
// in deployments that carry one (e.g. a site record version date).
const DefaultSubSentinel = "(unknown_date)"

// DefaultMaxTextLength bounds retained label and side-channel text.
const DefaultMaxTextLength = 512

// Pair is one matched output row: the oldest unmatched value of each
// series, tagged with the block label current at emission time.
type Pair struct {
	Index uint64 // 1-based within the block
	Label string
	// SubLabel is a secondary, text-sourced block field (empty unless the
	// deployment configures one).
	SubLabel string
	First    Value
	Second   Value
}

// Emitter receives engine output strictly in emission order.
type Emitter interface {
	EmitPair(Pair)
	EmitNotice(text string)
}

var (
	pairsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "pairline_extract",
		Name:      "pairs_emitted_total",
		Help:      "Total number of matched pairs emitted.",
	})
	droppedValues = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pairline_extract",
		Name:      "dropped_values_total",
		Help:      "Total number of series values dropped without pairing.",
	}, []string{"series", "reason"})
)

func init() {
	prometheus.MustRegister(pairsEmitted, droppedValues)
}

// BlockConfig carries the per-deployment knobs of a block.
type BlockConfig struct {
	Strategy       Strategy
	FirstCapacity  int // only meaningful for Bounded
	SecondCapacity int
	Sentinel       string
	MaxTextLength  int
	// SubLabel enables the secondary label field on emitted pairs.
	SubLabel         bool
	SubLabelSentinel string
	// OnDrop observes every value lost without pairing (overflow, reset
	// leftovers, unparsable text). Optional.
	OnDrop func(reason string, count int)
}

// Block holds the state of the currently open site block: the label, the
// two series queues and the per-block pair counter. There is exactly one
// live Block per engine; it is reset at block boundaries, never recreated.
type Block struct {
	label       string
	subLabel    string
	first       *Queue[Value]
	second      *Queue[Value]
	idx         uint64
	sentinel    string
	subEnabled  bool
	subSentinel string
	maxText     int
	emitter     Emitter
	onDrop      func(reason string, count int)
	log         *zap.SugaredLogger
}

func NewBlock(cfg BlockConfig, emitter Emitter) *Block {
	sentinel := cfg.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	subSentinel := cfg.SubLabelSentinel
	if subSentinel == "" {
		subSentinel = DefaultSubSentinel
	}
	maxText := cfg.MaxTextLength
	if maxText <= 0 {
		maxText = DefaultMaxTextLength
	}

	return &Block{
		first:       NewQueue[Value](cfg.Strategy, cfg.FirstCapacity),
		second:      NewQueue[Value](cfg.Strategy, cfg.SecondCapacity),
		idx:         1,
		sentinel:    sentinel,
		subEnabled:  cfg.SubLabel,
		subSentinel: subSentinel,
		maxText:     maxText,
		emitter:     emitter,
		onDrop:      cfg.OnDrop,
		log:         zap.L().Sugar().With("service", "extract"),
	}
}

func (b *Block) noteDrop(reason string, count int) {
	if b.onDrop != nil && count > 0 {
		b.onDrop(reason, count)
	}
}

// SetLabel replaces the block label. Subsequent pairs carry the new label
// until the next reset. Over-long labels are truncated, never rejected.
func (b *Block) SetLabel(text string) {
	b.label = truncate(text, b.maxText)
}

// SetSubLabel replaces the secondary label. A no-op unless the block was
// configured with one.
func (b *Block) SetSubLabel(text string) {
	b.subLabel = truncate(text, b.maxText)
}

func (b *Block) labelOrSentinel() string {
	if b.label == "" {
		return b.sentinel
	}
	return b.label
}

func (b *Block) subLabelOrSentinel() string {
	if !b.subEnabled {
		return ""
	}
	if b.subLabel == "" {
		return b.subSentinel
	}
	return b.subLabel
}

// PushFirst appends a value to the first series and pairs greedily. An
// overflowing push is reported and dropped; the block keeps processing.
func (b *Block) PushFirst(v Value) {
	b.push(b.first, "first", v)
}

// PushSecond appends a value to the second series and pairs greedily.
func (b *Block) PushSecond(v Value) {
	b.push(b.second, "second", v)
}

func (b *Block) push(q *Queue[Value], series string, v Value) {
	if err := q.PushBack(v); err != nil {
		if errors.Is(err, ErrQueueFull) {
			droppedValues.WithLabelValues(series, "overflow").Inc()
			b.noteDrop("overflow", 1)
			b.log.Warnw("series queue full, dropping value", "series", series, "len", q.Len())
			return
		}
		b.log.Errorw("push failed", "series", series, "error", err)
		return
	}
	b.flushPairs()
}

// flushPairs drains matched pairs while both queues hold values. Values
// are matched strictly by arrival order and a pair is never taken back.
func (b *Block) flushPairs() {
	for b.first.Len() > 0 && b.second.Len() > 0 {
		f, _ := b.first.PopFront()
		s, _ := b.second.PopFront()
		b.emitter.EmitPair(Pair{
			Index:    b.idx,
			Label:    b.labelOrSentinel(),
			SubLabel: b.subLabelOrSentinel(),
			First:    f,
			Second:   s,
		})
		b.idx++
		pairsEmitted.Inc()
	}
}

// FlushAndReset emits any final matched pairs and resets the block. It is
// the block-end transition; leftovers that never found a partner are
// discarded.
func (b *Block) FlushAndReset() {
	b.flushPairs()
	b.Reset()
}

// Reset clears both queues, the label and the pair counter. Callable
// repeatedly and from any state.
func (b *Block) Reset() {
	if b.first.Len() > 0 {
		droppedValues.WithLabelValues("first", "reset").Add(float64(b.first.Len()))
	}
	if b.second.Len() > 0 {
		droppedValues.WithLabelValues("second", "reset").Add(float64(b.second.Len()))
	}
	if n := b.first.Len() + b.second.Len(); n > 0 {
		b.noteDrop("reset", n)
		b.log.Debugw("discarding unmatched values at block boundary", "count", n, "label", b.labelOrSentinel())
	}

	b.first.Clear()
	b.second.Clear()
	b.label = ""
	b.subLabel = ""
	b.idx = 1
}

// PendingFirst reports how many first-series values await a partner.
func (b *Block) PendingFirst() int { return b.first.Len() }

// PendingSecond reports how many second-series values await a partner.
func (b *Block) PendingSecond() int { return b.second.Len() }

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
