package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, vocab Vocabulary, cfg BlockConfig) (*Dispatcher, *capture) {
	t.Helper()
	out := &capture{}
	block := NewBlock(cfg, out)
	return NewDispatcher(vocab, block, out), out
}

func startEvent(name string, attrs map[string]string, text string) StartEvent {
	return StartEvent{
		Name: name,
		Attr: func(n string) (string, bool) {
			v, ok := attrs[n]
			return v, ok
		},
		Text: func() (string, error) {
			return text, nil
		},
	}
}

func TestDispatcherRoutesFullBlock(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})

	d.HandleStart(startEvent("siteMeasurements", nil, ""))
	d.HandleStart(startEvent("measurementSiteReference", map[string]string{"id": "RWS01"}, ""))
	d.HandleStart(startEvent("speed", nil, "88.5"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "1200"))
	d.HandleEnd("siteMeasurements")

	require.Len(t, out.pairs, 1)
	require.Equal(t, "RWS01", out.pairs[0].Label)
	require.Equal(t, 88.5, out.pairs[0].First.F)
	require.Equal(t, int64(1200), out.pairs[0].Second.I)
}

func TestDispatcherIgnoresUnknownElements(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("basicData", nil, "whatever"))
	d.HandleStart(startEvent("averageVehicleSpeed", nil, "42"))
	d.HandleEnd("basicData")
	require.Empty(t, out.pairs)
	require.Empty(t, out.notices)
}

func TestDispatcherDropsMalformedNumerals(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("speed", nil, "not-a-number"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "12.5")) // not an int
	d.HandleStart(startEvent("vehicleFlowRate", nil, "17"))
	require.Empty(t, out.pairs)

	d.HandleStart(startEvent("speed", nil, " 33.3 "))
	require.Len(t, out.pairs, 1)
	require.Equal(t, 33.3, out.pairs[0].First.F)
	require.Equal(t, int64(17), out.pairs[0].Second.I)
}

func TestDispatcherUnreadableTextIsDropped(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(StartEvent{
		Name: "speed",
		Attr: func(string) (string, bool) { return "", false },
		Text: func() (string, error) { return "", errors.New("boom") },
	})
	require.Empty(t, out.pairs)

	// the engine keeps going afterwards
	d.HandleStart(startEvent("speed", nil, "1"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "2"))
	require.Len(t, out.pairs, 1)
}

func TestDispatcherMissingLabelAttributeUsesSentinel(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("measurementSiteReference", nil, ""))
	d.HandleStart(startEvent("speed", nil, "1.0"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "2"))
	require.Len(t, out.pairs, 1)
	require.Equal(t, DefaultSentinel, out.pairs[0].Label)
}

func TestDispatcherPassthrough(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("publicationTime", nil, "2024-03-01T06:00:00Z"))
	require.Equal(t, []string{"2024-03-01T06:00:00Z"}, out.notices)
	require.Empty(t, out.pairs)
}

func TestDispatcherBlockStartSupersedesOpenBlock(t *testing.T) {
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("siteMeasurements", nil, ""))
	d.HandleStart(startEvent("measurementSiteReference", map[string]string{"id": "A"}, ""))
	d.HandleStart(startEvent("speed", nil, "1.0")) // unmatched leftover

	// a new block-start implicitly resets the prior block
	d.HandleStart(startEvent("siteMeasurements", nil, ""))
	d.HandleStart(startEvent("measurementSiteReference", map[string]string{"id": "B"}, ""))
	d.HandleStart(startEvent("speed", nil, "2.0"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "20"))

	require.Len(t, out.pairs, 1)
	require.Equal(t, "B", out.pairs[0].Label)
	require.Equal(t, 2.0, out.pairs[0].First.F)
}

func TestDispatcherPushBeforeAnyBlockStart(t *testing.T) {
	// a stream without an enclosing block element mutates the implicit
	// default block and must not fail
	d, out := newTestDispatcher(t, DefaultVocabulary(), BlockConfig{})
	d.HandleStart(startEvent("speed", nil, "3.5"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "35"))
	require.Len(t, out.pairs, 1)
	require.Equal(t, DefaultSentinel, out.pairs[0].Label)
}

func TestDispatcherSubLabel(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.SubLabelElement = "measurementTimeDefault"
	d, out := newTestDispatcher(t, vocab, BlockConfig{SubLabel: true})

	d.HandleStart(startEvent("siteMeasurements", nil, ""))
	d.HandleStart(startEvent("speed", nil, "1.0"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "10"))
	require.Equal(t, DefaultSubSentinel, out.pairs[0].SubLabel)

	d.HandleStart(startEvent("measurementTimeDefault", nil, "2024-03-01T06:00:00Z"))
	d.HandleStart(startEvent("speed", nil, "2.0"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "20"))
	require.Equal(t, "2024-03-01T06:00:00Z", out.pairs[1].SubLabel)

	// cleared with the block
	d.HandleEnd("siteMeasurements")
	d.HandleStart(startEvent("speed", nil, "3.0"))
	d.HandleStart(startEvent("vehicleFlowRate", nil, "30"))
	require.Equal(t, DefaultSubSentinel, out.pairs[2].SubLabel)
}

func TestDispatcherCustomVocabulary(t *testing.T) {
	vocab := Vocabulary{
		BlockElement:   "measurementSiteRecord",
		LabelElement:   "measurementSiteRecord",
		LabelAttribute: "id",
		FirstElement:   "latitude",
		FirstKind:      KindFloat,
		SecondElement:  "longitude",
		SecondKind:     KindFloat,
	}
	d, out := newTestDispatcher(t, vocab, BlockConfig{})

	d.HandleStart(startEvent("measurementSiteRecord", map[string]string{"id": "GEO1"}, ""))
	d.HandleStart(startEvent("latitude", nil, "52.370216"))
	d.HandleStart(startEvent("longitude", nil, "4.895168"))
	d.HandleEnd("measurementSiteRecord")

	require.Len(t, out.pairs, 1)
	require.Equal(t, "GEO1", out.pairs[0].Label)
	require.Equal(t, 52.370216, out.pairs[0].First.F)
	require.Equal(t, 4.895168, out.pairs[0].Second.F)
}
