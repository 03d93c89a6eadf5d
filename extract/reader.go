// Package extract implements the paired-stream extraction engine: a
// reactive, single-threaded core that pairs two interleaved numeric
// series per site block, in strict arrival order, driven by pull-parser
// events.
package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedStream marks a structural read failure of the input stream:
// corrupt markup or premature termination. It is fatal for the session;
// pairs emitted before the failure remain valid output.
var ErrMalformedStream = errors.New("malformed input stream")

// Runner drives one tokenizer session through a dispatcher. The engine
// has no thread of control of its own; Run blocks until the stream ends
// or fails.
type Runner struct {
	dispatcher *Dispatcher
}

func NewRunner(d *Dispatcher) *Runner {
	return &Runner{dispatcher: d}
}

// Run tokenizes src and routes every element notification to the
// dispatcher. A clean end of stream returns nil; anything else returns an
// error wrapping ErrMalformedStream.
func (r *Runner) Run(src io.Reader) error {
	dec := xml.NewDecoder(src)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrMalformedStream, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := t.Attr
			r.dispatcher.HandleStart(StartEvent{
				Name: t.Name.Local,
				Attr: func(name string) (string, bool) {
					for _, a := range attrs {
						if a.Name.Local == name {
							return a.Value, true
						}
					}
					return "", false
				},
				Text: func() (string, error) {
					return readElementText(dec)
				},
			})
		case xml.EndElement:
			r.dispatcher.HandleEnd(t.Name.Local)
		}
	}
}

// readElementText accumulates the character data of the current element
// up to its end tag, tolerating nested markup. Character references are
// already resolved by the tokenizer.
func readElementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: unexpected end of element", ErrMalformedStream)
			}
			return "", fmt.Errorf("%w: %v", ErrMalformedStream, err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}
