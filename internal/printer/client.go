package printer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"printwatch/internal/logger"
)

// Defaults matching the FlashForge Adventurer 3 control protocol.
const (
	DefaultPort = 8899

	defaultDialTimeout    = 5 * time.Second
	defaultReadTimeout    = 5 * time.Second
	defaultPollInterval   = 5 * time.Second
	defaultReconnectDelay = 1 * time.Second

	// stopJoinTimeout bounds how long Disconnect waits for the poll goroutine.
	stopJoinTimeout = 2 * time.Second

	handshakeCommand = "M601 S1"
)

// Observer receives a state snapshot once per poll cycle. Observers run
// synchronously on the polling goroutine; a panicking observer is recovered
// and logged without disturbing the cycle or the other observers.
type Observer func(State)

// Client is a stateful control-session client for one printer. It owns the
// TCP connection, serializes all command/response exchanges, polls telemetry
// in the background and reconstructs the lifecycle status.
//
// Two locks with distinct jobs: ioMu grants the right to use the transport
// (one exchange in flight, total ordering of device interactions) and guards
// conn; stateMu guards the shared state. Snapshot readers only ever take
// stateMu, so reads never wait out a multi-second socket timeout. Lock order
// is always ioMu before stateMu.
type Client struct {
	address string
	log     *logger.Logger

	dialTimeout    time.Duration
	readTimeout    time.Duration
	pollInterval   time.Duration
	reconnectDelay time.Duration
	now            func() time.Time
	sleep          func(time.Duration)

	ioMu sync.Mutex
	conn net.Conn

	stateMu sync.Mutex
	state   State

	obsMu     sync.Mutex
	observers []Observer

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the fixed telemetry polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithReadTimeout overrides the per-read deadline on command responses.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithDialTimeout overrides the TCP connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithReconnectDelay overrides the pause before the single reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.reconnectDelay = d
		}
	}
}

// New builds a client for the printer at address ("host" or "host:port"; the
// control port is appended when missing). The client starts disconnected;
// call Connect, then StartPolling.
func New(address string, log *logger.Logger, opts ...Option) *Client {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = fmt.Sprintf("%s:%d", address, DefaultPort)
	}
	c := &Client{
		address:        address,
		log:            log,
		dialTimeout:    defaultDialTimeout,
		readTimeout:    defaultReadTimeout,
		pollInterval:   defaultPollInterval,
		reconnectDelay: defaultReconnectDelay,
		now:            time.Now,
		sleep:          time.Sleep,
		state:          State{Status: StatusDisconnected, LedOn: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the printer address the client talks to.
func (c *Client) Address() string { return c.address }

// Connect dials the control port and performs the M601 S1 handshake. It
// reports success; all failure modes (dial error, rejected handshake, read
// timeout) close the socket, leave the state disconnected and return false.
func (c *Client) Connect() bool {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	return c.connectLocked()
}

// connectLocked performs the dial+handshake under ioMu.
func (c *Client) connectLocked() bool {
	if c.conn != nil {
		c.closeConnLocked()
	}

	conn, err := net.DialTimeout("tcp", c.address, c.dialTimeout)
	if err != nil {
		c.log.Warnw("printer_dial_failed", "addr", c.address, "err", err)
		return false
	}
	c.conn = conn

	resp, err := c.exchange(handshakeCommand)
	if err != nil || !isAck(resp) {
		if err == nil {
			err = ErrHandshake
		}
		c.log.Warnw("printer_handshake_failed", "addr", c.address, "err", err, "resp", resp)
		c.closeConnLocked()
		return false
	}

	c.stateMu.Lock()
	c.state.Connected = true
	c.state.Status = StatusIdle
	c.state.ErrorMessage = ""
	c.stateMu.Unlock()

	c.log.Infow("printer_connected", "addr", c.address)
	return true
}

// Reconnect closes any existing session and performs a fresh connect.
func (c *Client) Reconnect() bool {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	c.closeConnLocked()
	return c.connectLocked()
}

// Disconnect stops polling, closes the socket and resets the state.
// It is idempotent.
func (c *Client) Disconnect() {
	c.StopPolling()
	c.ioMu.Lock()
	c.closeConnLocked()
	c.ioMu.Unlock()
}

// closeConnLocked closes the socket under ioMu and resets the connection
// fields of the state. Telemetry values are kept; stale-but-valid beats wrong.
func (c *Client) closeConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.stateMu.Lock()
	c.state.Connected = false
	c.state.Status = StatusDisconnected
	c.stateMu.Unlock()
}

// Snapshot returns an immutable copy of the current state.
func (c *Client) Snapshot() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// RegisterObserver adds a callback invoked once per poll cycle.
func (c *Client) RegisterObserver(fn Observer) {
	if fn == nil {
		return
	}
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// StartPolling launches the background telemetry loop. Calling it while the
// loop is already running is a no-op.
func (c *Client) StartPolling() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.pollLoop(c.stop, c.done)
}

// StopPolling asks the poll goroutine to exit and waits for it, bounded by
// stopJoinTimeout. A goroutine that fails to exit within the bound is a
// resource leak and is logged as such.
func (c *Client) StopPolling() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if !c.running {
		return
	}
	close(c.stop)
	select {
	case <-c.done:
	case <-time.After(stopJoinTimeout):
		c.log.Errorw("printer_poll_loop_leaked", "timeout", stopJoinTimeout)
	}
	c.running = false
}

// pollLoop runs one cycle immediately, then every pollInterval.
func (c *Client) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		c.pollOnce()
		c.notifyObservers(c.Snapshot())
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// pollOnce performs the three telemetry round-trips of one cycle:
// temperatures (M105), status (M119), SD progress (M27). A transport error on
// the first two triggers the reconnect path and aborts the cycle; the
// progress query is optional and only logged on failure.
func (c *Client) pollOnce() {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	if c.conn == nil {
		// Disconnected from a previous failure; each scheduled cycle retries
		// once until the session is back.
		if !c.connectLocked() {
			return
		}
	}

	resp, err := c.exchange(cmdTemperature)
	if err != nil {
		c.handleIOErrorLocked(err)
		return
	}
	c.applyTemperatures(resp)

	resp, err = c.exchange(cmdStatus)
	if err != nil {
		c.handleIOErrorLocked(err)
		return
	}
	c.applyStatus(resp)

	resp, err = c.exchange(cmdProgress)
	if err != nil {
		c.log.Warnw("printer_progress_poll_failed", "err", err)
	} else {
		c.applyProgress(resp)
	}

	c.stateMu.Lock()
	c.state.LastUpdate = c.now()
	c.stateMu.Unlock()
}

// handleIOErrorLocked runs the reconnection policy: close, short fixed delay,
// exactly one reconnect attempt. No backoff; a failed attempt leaves the
// client disconnected until the next cycle or a manual Reconnect.
func (c *Client) handleIOErrorLocked(err error) {
	c.log.Warnw("printer_io_error", "err", err)
	c.closeConnLocked()
	c.sleep(c.reconnectDelay)
	c.connectLocked()
}

// applyTemperatures folds a parsed M105 response into the state. Fields that
// did not parse keep their previous values.
func (c *Client) applyTemperatures(resp string) {
	tf := parseTemperatures(resp)
	c.stateMu.Lock()
	if tf.nozzleOK {
		c.state.NozzleTemp = tf.nozzleCur
		c.state.NozzleTarget = tf.nozzleTgt
	}
	if tf.bedOK {
		c.state.BedTemp = tf.bedCur
		c.state.BedTarget = tf.bedTgt
	}
	c.stateMu.Unlock()
	if !tf.nozzleOK || !tf.bedOK {
		c.log.Warnw("printer_temperature_parse_incomplete",
			"nozzle_ok", tf.nozzleOK, "bed_ok", tf.bedOK, "resp", resp)
	}
}

// applyStatus folds an M119 response into the state. Without an explicit
// keyword the status is reconstructed from the thermal trajectory and the
// progress of the previous cycle.
func (c *Client) applyStatus(resp string) {
	kw, found := parseStatusKeyword(resp)
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if found {
		c.state.Status = kw
		return
	}
	if !c.state.Connected {
		return
	}
	c.state.Status = InferStatus(Reading{
		NozzleTemp:   c.state.NozzleTemp,
		NozzleTarget: c.state.NozzleTarget,
		BedTemp:      c.state.BedTemp,
		BedTarget:    c.state.BedTarget,
		Progress:     c.state.Progress,
	})
}

// applyProgress folds an M27 response into the state. A "not printing" answer
// resets progress only when no print is in flight.
func (c *Client) applyProgress(resp string) {
	pu := parseProgress(resp)
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	switch {
	case pu.hasPercent:
		c.state.Progress = pu.percent
	case pu.notPrinting:
		if c.state.Status != StatusPrinting && c.state.Status != StatusPaused {
			c.state.Progress = 0
		}
	}
}

// notifyObservers invokes every registered observer with the snapshot,
// isolating panics per callback.
func (c *Client) notifyObservers(snap State) {
	c.obsMu.Lock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.obsMu.Unlock()

	for i, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorw("printer_observer_panicked", "observer", i, "panic", r)
				}
			}()
			fn(snap)
		}()
	}
}
