package printer

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"printwatch/internal/logger"
)

// fakeDevice is a scripted TCP printer: it answers each received command line
// with a canned response and counts accepted connections.
type fakeDevice struct {
	ln net.Listener

	mu        sync.Mutex
	responses map[string]string
	received  []string
	conns     int
	dropAfter int // close the connection after this many answered commands (0 = never)
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	d := &fakeDevice{
		ln: ln,
		responses: map[string]string{
			"~M601 S1": "CMD M601 Received.\r\nControl Success.\r\nok\r\n",
			"~M105":    "CMD M105 Received.\r\nT0:210/210 B:60/60\r\nok\r\n",
			"~M119":    "CMD M119 Received.\r\nEndstop: X-max:0 Y-max:0 Z-max:0\r\nok\r\n",
			"~M27":     "CMD M27 Received.\r\nSD printing byte 512/1024\r\nok\r\n",
		},
	}
	go d.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return d
}

func (d *fakeDevice) addr() string { return d.ln.Addr().String() }

func (d *fakeDevice) set(cmd, resp string) {
	d.mu.Lock()
	d.responses[cmd] = resp
	d.mu.Unlock()
}

func (d *fakeDevice) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns
}

func (d *fakeDevice) receivedLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.received))
	copy(out, d.received)
	return out
}

func (d *fakeDevice) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.conns++
		d.mu.Unlock()
		go d.handle(conn)
	}
}

func (d *fakeDevice) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	answered := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		d.mu.Lock()
		d.received = append(d.received, cmd)
		resp, ok := d.responses[cmd]
		drop := d.dropAfter
		d.mu.Unlock()
		if !ok {
			resp = "ok\r\n"
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
		answered++
		if drop > 0 && answered >= drop {
			return
		}
	}
}

func newTestClient(t *testing.T, addr string, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithDialTimeout(time.Second),
		WithReadTimeout(500 * time.Millisecond),
		WithPollInterval(time.Hour), // only the immediate first cycle runs
		WithReconnectDelay(0),
	}
	c := New(addr, logger.Nop(), append(base, opts...)...)
	c.sleep = func(time.Duration) {}
	t.Cleanup(c.Disconnect)
	return c
}

func TestConnect_Handshake(t *testing.T) {
	dev := newFakeDevice(t)
	c := newTestClient(t, dev.addr())

	if !c.Connect() {
		t.Fatal("Connect failed against healthy device")
	}
	st := c.Snapshot()
	if !st.Connected || st.Status != StatusIdle {
		t.Fatalf("unexpected state after connect: %+v", st)
	}
}

func TestConnect_HandshakeRejected(t *testing.T) {
	dev := newFakeDevice(t)
	dev.set("~M601 S1", "CMD M601 Received.\r\nControl failed.\r\nerror\r\n")
	c := newTestClient(t, dev.addr())

	if c.Connect() {
		t.Fatal("Connect succeeded despite rejected handshake")
	}
	st := c.Snapshot()
	if st.Connected || st.Status != StatusDisconnected {
		t.Fatalf("unexpected state after rejection: %+v", st)
	}
}

func TestConnect_DialFailure(t *testing.T) {
	dev := newFakeDevice(t)
	addr := dev.addr()
	_ = dev.ln.Close() // nothing listening anymore

	c := newTestClient(t, addr)
	if c.Connect() {
		t.Fatal("Connect succeeded against closed port")
	}
	if c.Snapshot().Connected {
		t.Fatal("state marked connected after dial failure")
	}
}

func TestNew_AppendsDefaultPort(t *testing.T) {
	c := New("192.168.1.50", logger.Nop())
	if c.Address() != "192.168.1.50:8899" {
		t.Fatalf("address = %q", c.Address())
	}
	c = New("192.168.1.50:9000", logger.Nop())
	if c.Address() != "192.168.1.50:9000" {
		t.Fatalf("address = %q", c.Address())
	}
}

func TestPolling_UpdatesTelemetry(t *testing.T) {
	dev := newFakeDevice(t)
	c := newTestClient(t, dev.addr())
	if !c.Connect() {
		t.Fatal("Connect failed")
	}

	snaps := make(chan State, 1)
	c.RegisterObserver(func(st State) {
		select {
		case snaps <- st:
		default:
		}
	})
	c.StartPolling()

	var st State
	select {
	case st = <-snaps:
	case <-time.After(3 * time.Second):
		t.Fatal("no observer callback within deadline")
	}

	if st.NozzleTemp != 210 || st.NozzleTarget != 210 {
		t.Fatalf("nozzle telemetry not applied: %+v", st)
	}
	if st.BedTemp != 60 || st.BedTarget != 60 {
		t.Fatalf("bed telemetry not applied: %+v", st)
	}
	if st.Progress != 50 {
		t.Fatalf("progress = %d, want 50", st.Progress)
	}
	if st.LastUpdate.IsZero() {
		t.Fatal("LastUpdate not stamped")
	}
}

func TestPolling_StatusKeywordWins(t *testing.T) {
	dev := newFakeDevice(t)
	dev.set("~M119", "CMD M119 Received.\r\nMachineStatus: PRINTING\r\nok\r\n")
	c := newTestClient(t, dev.addr())
	if !c.Connect() {
		t.Fatal("Connect failed")
	}

	snaps := make(chan State, 1)
	c.RegisterObserver(func(st State) {
		select {
		case snaps <- st:
		default:
		}
	})
	c.StartPolling()

	select {
	case st := <-snaps:
		if st.Status != StatusPrinting {
			t.Fatalf("status = %s, want %s", st.Status, StatusPrinting)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no observer callback within deadline")
	}
}

func TestIOError_SingleReconnectAttempt(t *testing.T) {
	dev := newFakeDevice(t)
	dev.mu.Lock()
	dev.dropAfter = 1 // every session dies after answering the handshake
	dev.mu.Unlock()

	c := newTestClient(t, dev.addr())
	if !c.Connect() {
		t.Fatal("Connect failed")
	}
	before := dev.connCount()

	// First telemetry exchange hits the dropped socket; the client closes,
	// reconnects exactly once (handshake answered, then dropped again) and
	// gives up until the next cycle.
	c.pollOnce()

	after := dev.connCount()
	if after-before != 1 {
		t.Fatalf("reconnect attempts = %d, want exactly 1", after-before)
	}
}

func TestObserverPanicIsolated(t *testing.T) {
	dev := newFakeDevice(t)
	c := newTestClient(t, dev.addr())

	called := make(chan struct{}, 1)
	c.RegisterObserver(func(State) { panic("boom") })
	c.RegisterObserver(func(State) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	c.notifyObservers(c.Snapshot())

	select {
	case <-called:
	default:
		t.Fatal("second observer not invoked after first panicked")
	}
}

func TestStartStopPolling_Idempotent(t *testing.T) {
	dev := newFakeDevice(t)
	c := newTestClient(t, dev.addr())
	if !c.Connect() {
		t.Fatal("Connect failed")
	}

	c.StartPolling()
	c.StartPolling() // no-op
	c.StopPolling()
	c.StopPolling() // no-op

	// The loop must be joinable again after a restart.
	c.StartPolling()
	c.StopPolling()
}
