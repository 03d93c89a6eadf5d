package stores

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Position fingerprints the last fully processed state of a feed file, so
// a restarted daemon does not reconvert content it already emitted.
type Position struct {
	Size    int64     `msgpack:"size"`
	ModTime time.Time `msgpack:"mod_time"`
	Digest  uint64    `msgpack:"digest"`
}

// Equal reports whether the file looks unchanged.
func (p Position) Equal(other Position) bool {
	return p.Size == other.Size && p.ModTime.Equal(other.ModTime) && p.Digest == other.Digest
}

func positionKey(source string) []byte {
	return []byte(fmt.Sprintf("source-position-%s", source))
}

// GetPosition loads the stored fingerprint for a source. The bool is
// false when none is stored.
func (kv *KvStore) GetPosition(source string) (Position, bool) {
	raw, err := kv.Get(positionKey(source))
	if err != nil {
		return Position{}, false
	}

	var p Position
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return Position{}, false
	}
	return p, true
}

// SetPosition stores the fingerprint for a source.
func (kv *KvStore) SetPosition(source string, p Position) error {
	raw, err := msgpack.Marshal(p)
	if err != nil {
		return err
	}
	return kv.Set(positionKey(source), raw)
}
