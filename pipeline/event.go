package pipeline

import (
	"io"

	"github.com/pairline/pairline/extract"
)

// Document is one input feed payload handed from a source to an
// extractor. Body is consumed exactly once, by the first component that
// reads it.
type Document struct {
	Source string
	Body   io.Reader
}

// PairRecord is one matched pair on its way to a sink.
type PairRecord struct {
	Index    uint64
	Indexed  bool // whether sinks should print the index field
	Label    string
	SubLabel string
	First    extract.Value
	Second   extract.Value
}

// Notice is a side-channel line (e.g. a publication timestamp) echoed
// verbatim by sinks, in arrival order relative to pair records.
type Notice struct {
	Text string
}
