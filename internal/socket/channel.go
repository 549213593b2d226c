// Package socket maintains the realtime connection for one open board.
// A Channel owns a single websocket subscription to the board's event
// stream, decodes inbound wire messages into domain deltas, encodes
// outbound mutations, and reconnects with exponential backoff after
// unexpected disconnects.
//
// Events missed while disconnected are not replayed by the server. Each
// time the subscription (re)opens the channel inserts a board.EventResync
// marker into the events stream, ahead of any delta from the new
// connection; the consumer must re-fetch a full board snapshot over REST
// at the marker before trusting the deltas that follow.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/finleyb/corkboard/internal/session"
	"github.com/finleyb/corkboard/pkg/board"
)

// ErrNotConnected is returned by Send when the channel is not open.
// Outbound messages are never queued; callers re-issue after the channel
// reopens.
var ErrNotConnected = errors.New("socket channel is not open")

// ConnState is the lifecycle state of a channel.
type ConnState string

const (
	// StateConnecting is the initial state, before the first dial succeeds.
	StateConnecting ConnState = "connecting"

	// StateOpen means the subscription is live and deltas are flowing.
	StateOpen ConnState = "open"

	// StateReconnecting follows an unexpected disconnect while backoff
	// retries are in progress.
	StateReconnecting ConnState = "reconnecting"

	// StateClosed is terminal: explicit teardown or reconnect give-up.
	StateClosed ConnState = "closed"
)

// Conn is the subset of a websocket connection the channel needs.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc establishes one websocket connection. The default uses the
// gorilla dialer with the session's bearer token.
type DialFunc func(ctx context.Context, url string, token string) (Conn, error)

func gorillaDial(ctx context.Context, url string, token string) (Conn, error) {
	header := map[string][]string{}
	if token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options tune channel behavior. The zero value selects defaults.
type Options struct {
	Dial            DialFunc      // connection factory, gorilla by default
	InitialInterval time.Duration // first backoff delay (default 500ms)
	MaxInterval     time.Duration // backoff cap (default 30s)
	MaxElapsedTime  time.Duration // reconnect give-up bound (default 5m)
}

// Channel is one board's realtime subscription.
// Construction starts dialing immediately; callers consume Events,
// Errors, and StateChanges until Close.
type Channel struct {
	url       string
	projectID string
	sess      *session.Session
	log       *logrus.Entry
	opts      Options

	mu    sync.Mutex
	conn  Conn
	state ConnState

	writeMu sync.Mutex

	events chan *board.Delta
	errs   chan error
	states chan ConnState

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// New opens a realtime channel for the given board. The channel starts in
// StateConnecting and dials in the background. Caller must Close when done.
func New(socketURL, projectID string, sess *session.Session, logger *logrus.Logger, opts Options) *Channel {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Dial == nil {
		opts.Dial = gorillaDial
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.MaxElapsedTime == 0 {
		opts.MaxElapsedTime = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		url:       socketURL,
		projectID: projectID,
		sess:      sess,
		log:       logger.WithFields(logrus.Fields{"component": "socket", "project": projectID}),
		opts:      opts,
		state:     StateConnecting,
		events:    make(chan *board.Delta, 32),
		errs:      make(chan error, 16),
		states:    make(chan ConnState, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go c.run(ctx)
	return c
}

// Events returns the channel of decoded inbound deltas. Closed on teardown.
func (c *Channel) Events() <-chan *board.Delta {
	return c.events
}

// Errors returns the channel of non-fatal errors (decode failures,
// disconnects) plus the single terminal reconnect give-up error.
func (c *Channel) Errors() <-chan error {
	return c.errs
}

// StateChanges returns the channel of connection-state transitions, for
// observers (status lines, logs). Re-bootstrap decisions key off the
// EventResync marker in Events, not off this channel, because state
// transitions are not ordered against the event stream.
func (c *Channel) StateChanges() <-chan ConnState {
	return c.states
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send encodes and writes one outbound delta. Fails fast with
// ErrNotConnected when the channel is not open; nothing is queued.
func (c *Channel) Send(d *board.Delta) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}

	data, err := board.EncodeEvent(d)
	if err != nil {
		return fmt.Errorf("failed to encode outbound event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write outbound event: %w", err)
	}
	return nil
}

// Close tears the channel down. Safe to call multiple times.
// Transitions to StateClosed and closes all outbound channels.
func (c *Channel) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	<-c.done
	return nil
}

// subscribeMessage is the outbound frame that attaches this connection to
// the board's event stream. Sent after every successful dial.
type subscribeMessage struct {
	Event   string `json:"event"`
	Payload struct {
		ProjectID string `json:"project_id"`
	} `json:"payload"`
}

// run is the connection loop: dial with backoff, subscribe, read until
// failure, repeat. Exits on context cancellation or reconnect give-up.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)
	defer close(c.errs)
	defer close(c.states)

	for {
		conn, err := c.dialWithBackoff(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Errorf("reconnect attempts exhausted: %v", err)
				c.deliverError(ctx, fmt.Errorf("reconnect attempts exhausted: %w", err))
			}
			c.setState(StateClosed)
			return
		}

		if err := c.subscribe(conn); err != nil {
			c.log.Warnf("failed to subscribe: %v", err)
			conn.Close()
			c.setState(StateReconnecting)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(StateOpen)
		c.log.Info("channel open")

		// The reopen marker travels in the events stream itself, so a
		// consumer sees it strictly before any delta read from the new
		// connection and cannot apply those deltas against stale state.
		select {
		case c.events <- &board.Delta{Kind: board.EventResync}:
		case <-ctx.Done():
		}

		readErr := c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}

		c.log.Warnf("connection lost: %v", readErr)
		c.deliverError(ctx, fmt.Errorf("connection lost: %w", readErr))
		c.setState(StateReconnecting)
	}
}

// dialWithBackoff retries the dial with capped exponential backoff until
// success, context cancellation, or the elapsed-time bound.
func (c *Channel) dialWithBackoff(ctx context.Context) (Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.InitialInterval
	bo.MaxInterval = c.opts.MaxInterval
	bo.MaxElapsedTime = c.opts.MaxElapsedTime

	var conn Conn
	operation := func() error {
		dialed, err := c.opts.Dial(ctx, c.url, c.sess.Token())
		if err != nil {
			c.log.Debugf("dial failed: %v", err)
			return err
		}
		conn = dialed
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

// subscribe attaches the fresh connection to the board's event stream.
func (c *Channel) subscribe(conn Conn) error {
	msg := subscribeMessage{Event: "subscribe"}
	msg.Payload.ProjectID = c.projectID

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal subscribe message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop decodes inbound messages until the connection fails.
// A single malformed or unrecognized message is logged and dropped; it
// never tears down the channel.
func (c *Channel) readLoop(ctx context.Context, conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		delta, err := board.DecodeEvent(data)
		if err != nil {
			if errors.Is(err, board.ErrUnknownEvent) {
				c.log.Debugf("ignoring unrecognized event: %v", err)
			} else {
				c.log.Warnf("dropping malformed message: %v", err)
				c.deliverError(ctx, err)
			}
			continue
		}

		select {
		case c.events <- delta:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// setState records and publishes a state transition. Publishing never
// blocks the connection loop; with a full buffer the oldest unread
// transition is dropped in favor of the newest.
func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	for {
		select {
		case c.states <- s:
			return
		default:
			select {
			case <-c.states:
			default:
			}
		}
	}
}

// deliverError publishes a non-fatal error without blocking the loop.
func (c *Channel) deliverError(ctx context.Context, err error) {
	select {
	case c.errs <- err:
	case <-ctx.Done():
	default:
	}
}
