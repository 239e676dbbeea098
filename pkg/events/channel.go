package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roomtone/roomtone-go/pkg/log"
)

const (
	// DefaultPingInterval is how often a ping is written on an idle channel.
	DefaultPingInterval = 30 * time.Second

	// DefaultInitialBackoff is the delay before the first reconnect attempt.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the doubling reconnect backoff.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultWriteTimeout bounds control frame writes.
	DefaultWriteTimeout = 10 * time.Second
)

// Channel errors.
var (
	ErrAlreadyStarted = errors.New("event channel already started")
	ErrEmptyURL       = errors.New("event channel URL is empty")
)

// Config holds the event channel parameters.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://amp.local:8090/api/v1/events".
	URL string

	PingInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the default channel parameters for the given URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		PingInterval:   DefaultPingInterval,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		WriteTimeout:   DefaultWriteTimeout,
	}
}

// Handler receives a decoded push event.
type Handler func(event Event)

// Channel is the push event channel. It owns a reconnecting websocket and
// dispatches decoded events to subscribed handlers.
type Channel struct {
	mu     sync.Mutex
	config Config
	logger log.Logger
	dialer *websocket.Dialer

	handlers  map[string]map[uint64]Handler
	nextSub   uint64
	onConnect func(connectionID string)
	onOffline func()

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

// NewChannel creates an event channel. It does not connect until Start.
func NewChannel(config Config, logger log.Logger) *Channel {
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	return &Channel{
		config:   config,
		logger:   log.OrNoop(logger),
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Subscribe registers a handler for one event type. The returned function
// removes the subscription.
func (c *Channel) Subscribe(eventType string, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	if c.handlers[eventType] == nil {
		c.handlers[eventType] = make(map[uint64]Handler)
	}
	c.handlers[eventType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[eventType], id)
	}
}

// OnConnect sets the callback invoked after each successful (re)connect,
// with a fresh connection ID. Higher layers use it to resync state that may
// have changed while the channel was down.
func (c *Channel) OnConnect(cb func(connectionID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = cb
}

// OnOffline sets the callback invoked when an established connection drops.
func (c *Channel) OnOffline(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOffline = cb
}

// Start opens the channel and keeps it connected until Stop.
func (c *Channel) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyStarted
	}
	if c.config.URL == "" {
		return ErrEmptyURL
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})
	c.running = true
	go c.run()
	return nil
}

// Stop closes the channel and waits for the connection loop to exit.
func (c *Channel) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// run is the connection loop: dial, read until failure, back off, repeat.
func (c *Channel) run() {
	defer close(c.done)

	backoff := c.config.InitialBackoff
	for {
		conn, _, err := c.dialer.DialContext(c.ctx, c.config.URL, nil)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Log(log.ErrorEvent("", "event_connect", err))
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
			continue
		}

		backoff = c.config.InitialBackoff
		connectionID := uuid.NewString()

		e := log.NewEvent(log.CategoryPush)
		e.Direction = log.DirectionIn
		e.Message = "channel connected " + connectionID
		c.logger.Log(e)

		c.mu.Lock()
		onConnect := c.onConnect
		c.mu.Unlock()
		if onConnect != nil {
			onConnect(connectionID)
		}

		c.serve(conn)

		c.mu.Lock()
		onOffline := c.onOffline
		c.mu.Unlock()
		if c.ctx.Err() != nil {
			return
		}
		if onOffline != nil {
			onOffline()
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// serve reads events from an established connection until it fails or the
// channel is stopped. It returns with the connection closed.
func (c *Channel) serve(conn *websocket.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(c.ctx)
	defer connCancel()

	// Keepalive writer. A write failure is unrecoverable for the socket, so
	// it tears the connection down and lets the outer loop reconnect.
	go func() {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(c.config.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					connCancel()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Log(log.ErrorEvent("", "event_read", err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage decodes one frame and dispatches it. Malformed frames are
// warned about and dropped.
func (c *Channel) handleMessage(message []byte) {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		c.logger.Log(log.WarnEvent(fmt.Sprintf("malformed push event: %v", err)))
		return
	}
	if event.Type == "" {
		c.logger.Log(log.WarnEvent("push event without type"))
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e := log.NewEvent(log.CategoryPush)
	e.Direction = log.DirectionIn
	e.Target = event.Source
	e.Message = event.Type
	c.logger.Log(e)

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[event.Type]))
	for _, h := range c.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
