package printer

import "fmt"

// Command surface consumed from the device.
const (
	cmdTemperature   = "M105"
	cmdStatus        = "M119"
	cmdProgress      = "M27"
	cmdEmergencyStop = "M112"
	cmdPause         = "M25"
	cmdResume        = "M24"
	cmdFanOn         = "M106"
	cmdFanOff        = "M107"
	cmdMotorsOff     = "M18"
	cmdHomeAxes      = "G28"
	cmdPosition      = "M114"
	cmdLEDOn         = "M146 r255 g255 b255 F0"
	cmdLEDOff        = "M146 r0 g0 b0 F0"
	cmdListFiles     = "M20"
	cmdSelectFile    = "M23" // + filename
	cmdStartPrint    = "M24"
	cmdBeginWrite    = "M28" // + filename
	cmdEndWrite      = "M29"
	cmdDeleteFile    = "M30" // + filename
)

// Safety clamps for temperature set-points, °C.
const (
	maxNozzleTempC = 300
	maxBedTempC    = 120
)

// sendAcked runs one exchange and reports whether the device acknowledged.
func (c *Client) sendAcked(cmd string) bool {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	return c.sendAckedLocked(cmd)
}

func (c *Client) sendAckedLocked(cmd string) bool {
	resp, err := c.exchange(cmd)
	if err != nil {
		c.log.Warnw("printer_command_failed", "cmd", cmd, "err", err)
		return false
	}
	return isAck(resp)
}

// EmergencyStop halts the machine immediately (M112).
func (c *Client) EmergencyStop() bool { return c.sendAcked(cmdEmergencyStop) }

// Pause pauses the running print job (M25).
func (c *Client) Pause() bool { return c.sendAcked(cmdPause) }

// Resume resumes a paused print job (M24).
func (c *Client) Resume() bool { return c.sendAcked(cmdResume) }

// FanOn turns the part-cooling fan on (M106).
func (c *Client) FanOn() bool { return c.sendAcked(cmdFanOn) }

// FanOff turns the part-cooling fan off (M107).
func (c *Client) FanOff() bool { return c.sendAcked(cmdFanOff) }

// DisableMotors releases the steppers for manual movement (M18).
func (c *Client) DisableMotors() bool { return c.sendAcked(cmdMotorsOff) }

// HomeAxes homes all axes (G28).
func (c *Client) HomeAxes() bool { return c.sendAcked(cmdHomeAxes) }

// SetLED drives the chamber light full white or dark (M146).
func (c *Client) SetLED(on bool) bool {
	cmd := cmdLEDOff
	if on {
		cmd = cmdLEDOn
	}
	if !c.sendAcked(cmd) {
		return false
	}
	c.stateMu.Lock()
	c.state.LedOn = on
	c.stateMu.Unlock()
	return true
}

// SetNozzleTemp sets the nozzle target (M104), clamped to [0, 300] °C.
// The state target is updated optimistically; the next M105 poll confirms it.
func (c *Client) SetNozzleTemp(temp int) bool {
	temp = clampTemp(temp, maxNozzleTempC)
	if !c.sendAcked(fmt.Sprintf("M104 S%d", temp)) {
		return false
	}
	c.stateMu.Lock()
	c.state.NozzleTarget = float64(temp)
	c.stateMu.Unlock()
	return true
}

// SetBedTemp sets the bed target (M140), clamped to [0, 120] °C.
func (c *Client) SetBedTemp(temp int) bool {
	temp = clampTemp(temp, maxBedTempC)
	if !c.sendAcked(fmt.Sprintf("M140 S%d", temp)) {
		return false
	}
	c.stateMu.Lock()
	c.state.BedTarget = float64(temp)
	c.stateMu.Unlock()
	return true
}

// GetPosition queries the toolhead position (M114). Axes that fail to parse
// come back zero.
func (c *Client) GetPosition() Position {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	resp, err := c.exchange(cmdPosition)
	if err != nil {
		c.log.Warnw("printer_position_failed", "err", err)
		return Position{}
	}
	return parsePosition(resp)
}

func clampTemp(temp, max int) int {
	if temp < 0 {
		return 0
	}
	if temp > max {
		return max
	}
	return temp
}
