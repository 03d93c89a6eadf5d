package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/mitchellh/mapstructure"
)

var (
	registeredComponents = make(map[string]RegisteredComponent)
)

const (
	CHANNEL_BUFFER_SIZE = 1
)

type RegisteredComponent struct {
	NewConfig       func() interface{}
	InitializerFunc func(interface{}) Component
}

type Component interface {
	Run(*sync.WaitGroup, context.Context)
	Link(parent chan interface{})
	Subscribe() chan interface{}
	Close()
}

// RegisterComponent makes a component instantiable by name from the
// config tree. NewConfig returns a pointer to a fresh config struct with
// defaults applied; the component's yaml node is decoded over it.
func RegisterComponent(name string, newConfig func() interface{}, initializerFunc func(interface{}) Component) {
	registeredComponents[name] = RegisteredComponent{
		NewConfig:       newConfig,
		InitializerFunc: initializerFunc,
	}
}

func InstantiateComponent(name string, args map[string]interface{}) (Component, error) {
	comp, found := registeredComponents[name]
	if !found {
		return nil, errors.New("pipeline component not defined: " + name)
	}

	cfg := comp.NewConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           cfg,
	})

	if err != nil {
		return nil, err
	}

	if err = dec.Decode(args); err != nil {
		return nil, err
	}

	return comp.InitializerFunc(cfg), nil
}

type Consumer struct {
	Consumes chan interface{}
}

func (c *Consumer) Link(parent chan interface{}) {
	c.Consumes = parent
}

type Publisher struct {
	sync.RWMutex
	subs   []chan interface{}
	closed bool
}

func (c *Publisher) Subscribe() chan interface{} {
	c.Lock()
	defer c.Unlock()

	// a closed publisher hands out an already-closed channel, so a late
	// subscriber observes shutdown instead of blocking forever
	if c.closed {
		ch := make(chan interface{})
		close(ch)
		return ch
	}

	ch := make(chan interface{}, CHANNEL_BUFFER_SIZE)
	c.subs = append(c.subs, ch)
	return ch
}

// Publish fans the message out to every subscriber.
func (c *Publisher) Publish(msg interface{}) {
	c.RLock()
	defer c.RUnlock()

	if c.closed {
		return
	}

	for _, ch := range c.subs {
		ch <- msg
	}
}

func (c *Publisher) Close() {
	c.Lock()
	defer c.Unlock()

	if !c.closed {
		c.closed = true
		for _, ch := range c.subs {
			close(ch)
		}
	}
}
