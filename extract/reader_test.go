package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runDocument(t *testing.T, vocab Vocabulary, cfg BlockConfig, doc string) (*capture, error) {
	t.Helper()
	out := &capture{}
	block := NewBlock(cfg, out)
	runner := NewRunner(NewDispatcher(vocab, block, out))
	return out, runner.Run(strings.NewReader(doc))
}

const trafficDoc = `<?xml version="1.0" encoding="UTF-8"?>
<payloadPublication>
  <publicationTime>2024-03-01T06:00:00Z</publicationTime>
  <siteMeasurements>
    <measurementSiteReference id="RWS01_MONIBAS"/>
    <measuredValue index="1">
      <basicData>
        <speed>88.5</speed>
      </basicData>
    </measuredValue>
    <measuredValue index="2">
      <basicData>
        <vehicleFlowRate>1200</vehicleFlowRate>
      </basicData>
    </measuredValue>
  </siteMeasurements>
  <siteMeasurements>
    <measurementSiteReference id="RWS02"/>
    <speed>70</speed>
    <speed>71.25</speed>
    <vehicleFlowRate>900</vehicleFlowRate>
  </siteMeasurements>
</payloadPublication>`

func TestRunnerFullDocument(t *testing.T) {
	out, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, trafficDoc)
	require.NoError(t, err)

	require.Equal(t, []string{"2024-03-01T06:00:00Z"}, out.notices)
	require.Len(t, out.pairs, 2)

	require.Equal(t, uint64(1), out.pairs[0].Index)
	require.Equal(t, "RWS01_MONIBAS", out.pairs[0].Label)
	require.Equal(t, "88.5", out.pairs[0].First.String())
	require.Equal(t, "1200", out.pairs[0].Second.String())

	// second block: 71.25 stays unmatched and is discarded at block end
	require.Equal(t, uint64(1), out.pairs[1].Index)
	require.Equal(t, "RWS02", out.pairs[1].Label)
	require.Equal(t, "70", out.pairs[1].First.String())
	require.Equal(t, "900", out.pairs[1].Second.String())
}

func TestRunnerCharacterReferences(t *testing.T) {
	doc := `<siteMeasurements>` +
		`<measurementSiteReference id="A&amp;B"/>` +
		`<speed> 12.5 </speed><vehicleFlowRate>3</vehicleFlowRate>` +
		`</siteMeasurements>`
	out, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, doc)
	require.NoError(t, err)
	require.Len(t, out.pairs, 1)
	require.Equal(t, "A&B", out.pairs[0].Label)
}

func TestRunnerMalformedMarkupIsFatal(t *testing.T) {
	doc := `<siteMeasurements><speed>1.0</speed><vehicleFlowRate>5</vehicleFlowRate><broken`
	out, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, doc)
	require.ErrorIs(t, err, ErrMalformedStream)

	// pairs flushed before the failure remain valid output
	require.Len(t, out.pairs, 1)
}

func TestRunnerTruncatedValueElement(t *testing.T) {
	doc := `<siteMeasurements><speed>1.0`
	_, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, doc)
	require.ErrorIs(t, err, ErrMalformedStream)
}

func TestRunnerEmptyValueElementDropped(t *testing.T) {
	doc := `<siteMeasurements>` +
		`<speed/><speed>2.0</speed><vehicleFlowRate>7</vehicleFlowRate>` +
		`</siteMeasurements>`
	out, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, doc)
	require.NoError(t, err)
	require.Len(t, out.pairs, 1)
	require.Equal(t, 2.0, out.pairs[0].First.F)
}

func TestRunnerFloatPrecisionRoundTrips(t *testing.T) {
	doc := `<siteMeasurements>` +
		`<speed>104.63333333333334</speed><vehicleFlowRate>1</vehicleFlowRate>` +
		`</siteMeasurements>`
	out, err := runDocument(t, DefaultVocabulary(), BlockConfig{}, doc)
	require.NoError(t, err)
	require.Equal(t, "104.63333333333334", out.pairs[0].First.String())
}

func TestRunnerCoordinateVocabulary(t *testing.T) {
	vocab := Vocabulary{
		BlockElement:    "measurementSiteTable",
		LabelElement:    "measurementSiteRecord",
		LabelAttribute:  "id",
		SubLabelElement: "measurementSiteRecordVersionTime",
		FirstElement:    "latitude",
		FirstKind:       KindFloat,
		SecondElement:   "longitude",
		SecondKind:      KindFloat,
		Passthrough:     []string{"publicationTime"},
	}
	doc := `<d2LogicalModel>
  <publicationTime>2024-03-01</publicationTime>
  <measurementSiteTable>
    <measurementSiteRecord id="GEO1"/>
    <measurementSiteRecordVersionTime>2023-11-01</measurementSiteRecordVersionTime>
    <latitude>52.370216</latitude>
    <longitude>4.895168</longitude>
  </measurementSiteTable>
</d2LogicalModel>`
	out, err := runDocument(t, vocab, BlockConfig{SubLabel: true}, doc)
	require.NoError(t, err)
	require.Len(t, out.pairs, 1)
	require.Equal(t, "GEO1", out.pairs[0].Label)
	require.Equal(t, "2023-11-01", out.pairs[0].SubLabel)
	require.Equal(t, "52.370216", out.pairs[0].First.String())
	require.Equal(t, "4.895168", out.pairs[0].Second.String())
}
