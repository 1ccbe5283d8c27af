package printer

import "time"

// Status is the coarse lifecycle state of the printer.
//
// The firmware does not reliably self-report what it is doing, especially for
// prints started from the touchscreen, so most of these values are
// reconstructed from temperature trajectories and SD progress rather than read
// off the wire.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusPreheating   Status = "preheating"
	StatusHeating      Status = "heating"
	StatusCooling      Status = "cooling"
	StatusReady        Status = "ready"
	StatusPrinting     Status = "printing"
	StatusPaused       Status = "paused"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// State is the printer snapshot exposed to callers. Values are copied out of
// the client under its state lock; a State never aliases live client state.
type State struct {
	Connected    bool      `json:"connected"`
	Status       Status    `json:"status"`
	NozzleTemp   float64   `json:"nozzle_temp"`   // °C
	NozzleTarget float64   `json:"nozzle_target"` // °C
	BedTemp      float64   `json:"bed_temp"`      // °C
	BedTarget    float64   `json:"bed_target"`    // °C
	Progress     int       `json:"progress"`      // 0..100
	LedOn        bool      `json:"led_on"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LastUpdate   time.Time `json:"last_update"`
}

// Position is the toolhead position reported by M114.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FileEntry is a single file from the printer's storage listing.
type FileEntry struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

// Reading is the full input to the status inference engine.
type Reading struct {
	NozzleTemp   float64
	NozzleTarget float64
	BedTemp      float64
	BedTarget    float64
	Progress     int    // 0..100
	Keyword      Status // explicit device-reported status; empty if none
}

// Thermal thresholds in °C.
const (
	tempToleranceC  = 3.0  // "at temperature" band around a target
	preheatBandC    = 10.0 // below target by more than this counts as preheating
	targetSetFloorC = 30.0 // targets above ambient are intentional set-points
	coolingFloorC   = 40.0 // below this, "cooling" is just ambient noise
)

// InferStatus derives the lifecycle status from a telemetry reading.
// Rules apply first-match-wins:
//
//  1. SD progress between 1 and 99 means a print is running, whatever the
//     firmware claims. M119 under-reports prints started from the device.
//  2. An explicit status keyword from M119 is trusted next.
//  3. Otherwise the thermal trajectory decides: preheating when both heaters
//     are far below an intentional target, heating when either still climbs,
//     ready when every set heater sits inside the tolerance band, cooling when
//     a heater is hot and above target, else idle.
func InferStatus(r Reading) Status {
	if r.Progress > 0 && r.Progress < 100 {
		return StatusPrinting
	}
	if r.Keyword != "" {
		return r.Keyword
	}

	nozzleDelta := r.NozzleTarget - r.NozzleTemp
	bedDelta := r.BedTarget - r.BedTemp

	nozzleSet := r.NozzleTarget > targetSetFloorC
	bedSet := r.BedTarget > targetSetFloorC

	nozzlePreheating := nozzleSet && nozzleDelta > preheatBandC
	bedPreheating := bedSet && bedDelta > preheatBandC
	if nozzlePreheating && bedPreheating {
		return StatusPreheating
	}

	nozzleHeating := nozzleSet && nozzleDelta > tempToleranceC
	bedHeating := bedSet && bedDelta > tempToleranceC
	if nozzleHeating || bedHeating {
		return StatusHeating
	}

	nozzleReady := nozzleSet && abs(nozzleDelta) <= tempToleranceC
	bedReady := bedSet && abs(bedDelta) <= tempToleranceC
	if (nozzleReady || !nozzleSet) && (bedReady || !bedSet) && (nozzleSet || bedSet) {
		return StatusReady
	}

	nozzleCooling := r.NozzleTemp > r.NozzleTarget+tempToleranceC && r.NozzleTemp > coolingFloorC
	bedCooling := r.BedTemp > r.BedTarget+tempToleranceC && r.BedTemp > coolingFloorC
	if nozzleCooling || bedCooling {
		return StatusCooling
	}

	return StatusIdle
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
