package service

import (
	"context"
	"time"

	"printwatch"
	"printwatch/internal/printer"
)

// fakeController is an in-memory PrinterController. Command methods return the
// configured ack result and record what was called.
type fakeController struct {
	address string
	state   printer.State
	ack     bool

	position printer.Position
	files    []printer.FileEntry

	calls        []string
	lastNozzle   int
	lastBed      int
	lastUpload   string
	lastContent  []byte
	lastStarted  string
	lastDeleted  string
	reconnectOK  bool
	reconnects   int
}

func newFakeController() *fakeController {
	return &fakeController{
		address:     "192.168.1.50:8899",
		state:       printer.State{Connected: true, Status: printer.StatusIdle},
		ack:         true,
		reconnectOK: true,
	}
}

func (f *fakeController) record(name string) bool {
	f.calls = append(f.calls, name)
	return f.ack
}

func (f *fakeController) Address() string { return f.address }
func (f *fakeController) Connect() bool   { return f.record("connect") }
func (f *fakeController) Disconnect()     { f.calls = append(f.calls, "disconnect") }

func (f *fakeController) Snapshot() printer.State              { return f.state }
func (f *fakeController) RegisterObserver(fn printer.Observer) {}
func (f *fakeController) StartPolling()                        {}
func (f *fakeController) StopPolling()                         {}

func (f *fakeController) EmergencyStop() bool { return f.record("emergency_stop") }
func (f *fakeController) Pause() bool         { return f.record("pause") }
func (f *fakeController) Resume() bool        { return f.record("resume") }
func (f *fakeController) FanOn() bool         { return f.record("fan_on") }
func (f *fakeController) FanOff() bool        { return f.record("fan_off") }
func (f *fakeController) DisableMotors() bool { return f.record("disable_motors") }
func (f *fakeController) HomeAxes() bool      { return f.record("home") }

func (f *fakeController) GetPosition() printer.Position  { return f.position }
func (f *fakeController) ListFiles() []printer.FileEntry { return f.files }

func (f *fakeController) Reconnect() bool {
	f.reconnects++
	return f.reconnectOK
}

func (f *fakeController) SetLED(on bool) bool {
	if on {
		return f.record("led_on")
	}
	return f.record("led_off")
}

func (f *fakeController) SetNozzleTemp(temp int) bool {
	f.lastNozzle = temp
	return f.record("set_nozzle")
}

func (f *fakeController) SetBedTemp(temp int) bool {
	f.lastBed = temp
	return f.record("set_bed")
}

func (f *fakeController) UploadFile(filename string, content []byte) bool {
	f.lastUpload = filename
	f.lastContent = content
	return f.record("upload")
}

func (f *fakeController) StartPrint(filename string) bool {
	f.lastStarted = filename
	return f.record("start_print")
}

func (f *fakeController) DeleteFile(filename string) bool {
	f.lastDeleted = filename
	return f.record("delete")
}

func (f *fakeController) called(name string) bool {
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

// fakeEventRepo records appended events in memory.
type fakeEventRepo struct {
	appended  []printwatch.PrintEvent
	appendErr error
	listResp  []printwatch.PrintEvent
	listErr   error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
}

func (f *fakeEventRepo) Append(ctx context.Context, e printwatch.PrintEvent) error {
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]printwatch.PrintEvent, error) {
	f.lastFrom, f.lastTo, f.lastType = from, to, typ
	return f.listResp, f.listErr
}

func (f *fakeEventRepo) lastAppended() (printwatch.PrintEvent, bool) {
	if len(f.appended) == 0 {
		return printwatch.PrintEvent{}, false
	}
	return f.appended[len(f.appended)-1], true
}

// fakeJobRepo is an in-memory JobRepo keyed by filename.
type fakeJobRepo struct {
	saved     []printwatch.PrintJob
	saveErr   error
	marked    map[string]time.Time
	markErr   error
	latest    printwatch.PrintJob
	latestErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{marked: map[string]time.Time{}}
}

func (f *fakeJobRepo) Save(ctx context.Context, j printwatch.PrintJob) error {
	f.saved = append(f.saved, j)
	return f.saveErr
}

func (f *fakeJobRepo) MarkStarted(ctx context.Context, filename string, at time.Time) error {
	f.marked[filename] = at
	return f.markErr
}

func (f *fakeJobRepo) Latest(ctx context.Context) (printwatch.PrintJob, error) {
	return f.latest, f.latestErr
}

func (f *fakeJobRepo) List(ctx context.Context) ([]printwatch.PrintJob, error) {
	return f.saved, nil
}

// fakeAuthRepo stores one user in memory.
type fakeAuthRepo struct {
	nextID    int
	createErr error
	user      *printwatch.User
	getErr    error

	lastUsername string
	lastHash     string
}

func (f *fakeAuthRepo) Create(username, hash string) (int, error) {
	f.lastUsername, f.lastHash = username, hash
	return f.nextID, f.createErr
}

func (f *fakeAuthRepo) GetByUsername(username string) (*printwatch.User, error) {
	return f.user, f.getErr
}
