package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherFansOutToAllSubscribers(t *testing.T) {
	var p Publisher
	first := p.Subscribe()
	second := p.Subscribe()

	p.Publish("msg")
	require.Equal(t, "msg", <-first)
	require.Equal(t, "msg", <-second)

	p.Close()
	_, ok := <-first
	require.False(t, ok)
	_, ok = <-second
	require.False(t, ok)
}

func TestSubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	var p Publisher
	p.Close()

	ch := p.Subscribe()
	require.NotNil(t, ch)

	// a consumer linked to this channel sees shutdown immediately
	_, ok := <-ch
	require.False(t, ok)
}

func TestInstantiateUnknownComponent(t *testing.T) {
	_, err := InstantiateComponent("sinks.unheard_of", nil)
	require.Error(t, err)
}
