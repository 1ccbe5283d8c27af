package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printwatch"
	"printwatch/internal/logger"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
)

// Named commands accepted by Execute.
const (
	CmdEmergencyStop = "emergency_stop"
	CmdLedOn         = "led_on"
	CmdLedOff        = "led_off"
	CmdPause         = "pause"
	CmdResume        = "resume"
	CmdFanOn         = "fan_on"
	CmdFanOff        = "fan_off"
	CmdDisableMotors = "disable_motors"
	CmdHome          = "home"
)

const (
	TargetNozzle = "nozzle"
	TargetBed    = "bed"
)

var (
	// ErrNotConnected is surfaced to callers when no control session exists.
	// The complete absence of a connection is the one failure the serving
	// layer reports explicitly instead of a plain rejection.
	ErrNotConnected = errors.New("printer is not connected")

	ErrUnknownCommand = errors.New("unknown command")
	ErrRejected       = errors.New("printer rejected command")

	errInvalidTarget = errors.New("invalid target: must be nozzle or bed")
)

type ControlService struct {
	printer   PrinterController
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewControlService(ctrl PrinterController, eventRepo repository.EventRepo, log *logger.Logger) *ControlService {
	return &ControlService{printer: ctrl, eventRepo: eventRepo, log: log}
}

// Execute runs a named control command. The commands map one-to-one onto
// single acknowledged device exchanges; success is the device's ack.
func (s *ControlService) Execute(ctx context.Context, command string) error {
	if !s.printer.Snapshot().Connected {
		return ErrNotConnected
	}

	var ok bool
	switch command {
	case CmdEmergencyStop:
		ok = s.printer.EmergencyStop()
	case CmdLedOn:
		ok = s.printer.SetLED(true)
	case CmdLedOff:
		ok = s.printer.SetLED(false)
	case CmdPause:
		ok = s.printer.Pause()
	case CmdResume:
		ok = s.printer.Resume()
	case CmdFanOn:
		ok = s.printer.FanOn()
	case CmdFanOff:
		ok = s.printer.FanOff()
	case CmdDisableMotors:
		ok = s.printer.DisableMotors()
	case CmdHome:
		ok = s.printer.HomeAxes()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRejected, command)
	}
	if command == CmdEmergencyStop {
		_ = s.eventRepo.Append(ctx, printwatch.PrintEvent{
			Type:        printwatch.EventError,
			Description: "Emergency stop issued",
		})
	}
	return nil
}

// SetTemperature sets a heater target. Clamping to safe bounds happens in the
// printer client.
func (s *ControlService) SetTemperature(ctx context.Context, p TemperatureParams) error {
	if !s.printer.Snapshot().Connected {
		return ErrNotConnected
	}
	var ok bool
	switch p.Target {
	case TargetNozzle:
		ok = s.printer.SetNozzleTemp(p.Value)
	case TargetBed:
		ok = s.printer.SetBedTemp(p.Value)
	default:
		return errInvalidTarget
	}
	if !ok {
		return fmt.Errorf("%w: set %s temperature", ErrRejected, p.Target)
	}
	return nil
}

// Position returns the current toolhead position.
func (s *ControlService) Position(ctx context.Context) (printer.Position, error) {
	if !s.printer.Snapshot().Connected {
		return printer.Position{}, ErrNotConnected
	}
	return s.printer.GetPosition(), nil
}

// Reconnect tears down and re-establishes the control session, logging the
// outcome to the event history.
func (s *ControlService) Reconnect(ctx context.Context) error {
	ok := s.printer.Reconnect()
	desc := "Reconnected to printer"
	if !ok {
		desc = "Reconnect attempt failed"
	}
	_ = s.eventRepo.Append(ctx, printwatch.PrintEvent{
		Type:        printwatch.EventConnection,
		Description: desc,
		Metadata:    map[string]any{"address": s.printer.Address(), "ok": ok, "at": time.Now().UTC()},
	})
	if !ok {
		return fmt.Errorf("reconnect to %s failed", s.printer.Address())
	}
	return nil
}
