package service

import (
	"context"
	"time"

	"printwatch"
	"printwatch/internal/gcode"
	"printwatch/internal/logger"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
)

// PrinterController is the device-facing surface the services consume. The
// concrete implementation is *printer.Client; tests substitute a fake.
type PrinterController interface {
	Address() string
	Connect() bool
	Reconnect() bool
	Disconnect()
	Snapshot() printer.State
	RegisterObserver(fn printer.Observer)
	StartPolling()
	StopPolling()

	EmergencyStop() bool
	SetLED(on bool) bool
	Pause() bool
	Resume() bool
	FanOn() bool
	FanOff() bool
	DisableMotors() bool
	HomeAxes() bool
	SetNozzleTemp(temp int) bool
	SetBedTemp(temp int) bool
	GetPosition() printer.Position

	ListFiles() []printer.FileEntry
	UploadFile(filename string, content []byte) bool
	StartPrint(filename string) bool
	DeleteFile(filename string) bool
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes direct printer commands (stop, LED, pause, fan, homing,
// temperature set-points).
type Control interface {
	Execute(ctx context.Context, command string) error
	SetTemperature(ctx context.Context, p TemperatureParams) error
	Position(ctx context.Context) (printer.Position, error)
	Reconnect(ctx context.Context) error
}

// Monitoring exposes the current snapshot with the remaining-time estimate.
type Monitoring interface {
	Status(ctx context.Context) (StatusReport, error)
}

// Files exposes the device file operations plus the job catalog.
type Files interface {
	List(ctx context.Context) ([]printer.FileEntry, error)
	Upload(ctx context.Context, p UploadParams) (gcode.Metadata, error)
	StartPrint(ctx context.Context, filename string) error
	Delete(ctx context.Context, filename string) error
}

// EventLog exposes append-only history with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]printwatch.PrintEvent, error)
}

// Notifier watches status transitions, records them and pushes webhooks.
// HandleState is registered as a printer observer.
type Notifier interface {
	HandleState(st printer.State)
	Test(ctx context.Context) error
}

// TemperatureParams selects a heater and its set-point.
type TemperatureParams struct {
	Target string // "nozzle" | "bed"
	Value  int    // °C
}

// UploadParams carries an uploaded G-code file and what to do with it.
type UploadParams struct {
	Filename   string
	Content    []byte
	ToPrinter  bool // stream to device storage
	StartAfter bool // start printing once stored
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", STATUS_CHANGE, PRINT_STARTED, UPLOAD, CONNECTION, ERROR
}

// StatusReport is the snapshot plus derived job information.
type StatusReport struct {
	printer.State
	TimeRemainingSeconds   int    `json:"time_remaining_seconds"`
	TimeRemainingFormatted string `json:"time_remaining_formatted"`
	JobFilename            string `json:"gcode_filename,omitempty"`
}

// Config carries the service-level knobs read from the config file.
type Config struct {
	SigningKey string
	TokenTTL   time.Duration
	Notify     NotifierConfig
}

// Root Service aggregates all sub-services.
type Service struct {
	Control
	Monitoring
	Files
	EventLog
	Notifier
	Authorization
}

// NewService wires the printer client and repository layer into concrete services.
func NewService(ctrl PrinterController, repos *repository.Repository, cfg Config, log *logger.Logger) *Service {
	return &Service{
		Control:       NewControlService(ctrl, repos.EventRepo, log),
		Monitoring:    NewMonitoringService(ctrl, repos.JobRepo),
		Files:         NewFilesService(ctrl, repos.JobRepo, repos.EventRepo, log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Notifier:      NewNotifierService(cfg.Notify, ctrl.Address(), repos.EventRepo, log),
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey, cfg.TokenTTL),
	}
}
