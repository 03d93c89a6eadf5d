package stores

import (
	"testing"
	"time"

	"github.com/pairline/pairline/storage"
	"github.com/stretchr/testify/require"
)

func TestPositionRoundTrip(t *testing.T) {
	kv := NewKvStore(storage.NewMemoryStorage())

	_, ok := kv.GetPosition("feed.xml")
	require.False(t, ok)

	want := Position{
		Size:    4711,
		ModTime: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
		Digest:  0xdeadbeef,
	}
	require.NoError(t, kv.SetPosition("feed.xml", want))

	got, ok := kv.GetPosition("feed.xml")
	require.True(t, ok)
	require.True(t, want.Equal(got))

	// a different source does not see it
	_, ok = kv.GetPosition("other.xml")
	require.False(t, ok)
}

func TestPositionEqual(t *testing.T) {
	now := time.Now()
	p := Position{Size: 1, ModTime: now, Digest: 2}
	require.True(t, p.Equal(Position{Size: 1, ModTime: now, Digest: 2}))
	require.False(t, p.Equal(Position{Size: 2, ModTime: now, Digest: 2}))
	require.False(t, p.Equal(Position{Size: 1, ModTime: now.Add(time.Second), Digest: 2}))
	require.False(t, p.Equal(Position{Size: 1, ModTime: now, Digest: 3}))
}
