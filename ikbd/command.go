package ikbd

// command pairs an opcode with its total length, command byte
// included, and the handler run once that many bytes have arrived.
// Opcodes not in this table are treated as NOPs by the controller:
// the input buffer is cleared and nothing is reported back.
type command struct {
	op      byte
	length  int
	handler func(*Engine)
}

var commands = []command{
	{0x80, 2, (*Engine).cmdReset},
	{0x07, 2, (*Engine).cmdSetMouseAction},
	{0x08, 1, (*Engine).cmdRelMouseMode},
	{0x09, 5, (*Engine).cmdAbsMouseMode},
	{0x0A, 3, (*Engine).cmdMouseKeycodeMode},
	{0x0B, 3, (*Engine).cmdSetMouseThreshold},
	{0x0C, 3, (*Engine).cmdSetMouseScale},
	{0x0D, 1, (*Engine).cmdReadAbsMousePos},
	{0x0E, 6, (*Engine).cmdSetInternalMousePos},
	{0x0F, 1, (*Engine).cmdSetYAxisDown},
	{0x10, 1, (*Engine).cmdSetYAxisUp},
	{0x11, 1, (*Engine).cmdResumeOutput},
	{0x12, 1, (*Engine).cmdDisableMouse},
	{0x13, 1, (*Engine).cmdPauseOutput},
	{0x14, 1, (*Engine).cmdJoystickAuto},
	{0x15, 1, (*Engine).cmdJoystickInterrogation},
	{0x16, 1, (*Engine).cmdReadJoystick},
	{0x17, 2, (*Engine).cmdJoystickMonitoring},
	{0x18, 1, (*Engine).cmdFireButtonMonitoring},
	{0x19, 7, (*Engine).cmdJoystickKeycodeMode},
	{0x1A, 1, (*Engine).cmdDisableJoysticks},
	{0x1B, 7, (*Engine).cmdSetClock},
	{0x1C, 1, (*Engine).cmdReadClock},
	{0x20, 4, (*Engine).cmdLoadMemory},
	{0x21, 3, (*Engine).cmdReadMemory},
	{0x22, 3, (*Engine).cmdExecute},

	// Status inquiries (top bit set): report a current setting.
	{0x87, 1, (*Engine).reportMouseAction},
	{0x88, 1, (*Engine).reportMouseMode},
	{0x89, 1, (*Engine).reportMouseMode},
	{0x8A, 1, (*Engine).reportMouseMode},
	{0x8B, 1, (*Engine).reportMouseThreshold},
	{0x8C, 1, (*Engine).reportMouseScale},
	{0x8F, 1, (*Engine).reportMouseVertical},
	{0x90, 1, (*Engine).reportMouseVertical},
	{0x92, 1, (*Engine).reportMouseAvailability},
	{0x94, 1, (*Engine).reportJoystickMode},
	{0x95, 1, (*Engine).reportJoystickMode},
	{0x99, 1, (*Engine).reportJoystickMode},
	{0x9A, 1, (*Engine).reportJoystickAvailability},
}

// runCommand buffers one received byte and dispatches a command once
// the buffer holds a complete one. A full buffer drops new bytes; an
// unrecognised first byte clears the buffer without any reply.
func (e *Engine) runCommand(b byte) {
	if e.bufLen < len(e.buf) {
		e.buf[e.bufLen] = b
		e.bufLen++
	}

	for _, c := range commands {
		if c.op != e.buf[0] {
			continue
		}
		if c.length == e.bufLen {
			// Any complete valid command resumes paused output.
			e.paused = false
			c.handler(e)
			e.bufLen = 0
		}
		return
	}

	e.bufLen = 0
}

// sendStatus emits a status packet: the 0xF6 header, the given bytes,
// and zero padding up to 8 bytes total.
func (e *Engine) sendStatus(vals ...byte) {
	e.send(0xF6)
	for _, v := range vals {
		e.send(v)
	}
	for n := len(vals); n < 7; n++ {
		e.send(0)
	}
}

// RESET (0x80 0x01). Re-runs the ROM boot code, keeping the clock.
// Any other second byte is ignored.
func (e *Engine) cmdReset() {
	if e.buf[1] == 0x01 {
		e.bootROM(false)
	}
}

// SET MOUSE BUTTON ACTION (0x07): bit 0 report absolute position on
// press, bit 1 on release, bit 2 buttons act like keys.
func (e *Engine) cmdSetMouseAction() {
	e.mouse.action = e.buf[1]
	e.abs.prevButtons = absPrevButtons
}

// SET RELATIVE MOUSE POSITION REPORTING (0x08).
func (e *Engine) cmdRelMouseMode() {
	e.mouseMode = mouseRelative

	// Some games (Barbarian by Psygnosis, for one) enable mouse and
	// joystick back to back right after a reset and expect both
	// packet types afterwards. Remember the enable so the joystick
	// command can honour that.
	if e.criticalWindow {
		e.mouseEnabledDuringReset = true
	}
}

// SET ABSOLUTE MOUSE POSITIONING (0x09), with inclusive X/Y maxima.
func (e *Engine) cmdAbsMouseMode() {
	e.mouseMode = mouseAbsolute
	e.abs.maxX = int(e.buf[1])<<8 | int(e.buf[2])
	e.abs.maxY = int(e.buf[3])<<8 | int(e.buf[4])
}

// SET MOUSE KEYCODE MODE (0x0A): motion is reported as cursor key
// presses, one per deltax/deltay of movement.
func (e *Engine) cmdMouseKeycodeMode() {
	e.mouseMode = mouseCursor
	e.mouse.keyCodeDeltaX = e.buf[1]
	e.mouse.keyCodeDeltaY = e.buf[2]
}

// SET MOUSE THRESHOLD (0x0B).
func (e *Engine) cmdSetMouseThreshold() {
	e.mouse.xThreshold = int(e.buf[1])
	e.mouse.yThreshold = int(e.buf[2])
}

// SET MOUSE SCALE (0x0C): ticks per reported unit.
func (e *Engine) cmdSetMouseScale() {
	e.mouse.xScale = int(e.buf[1])
	e.mouse.yScale = int(e.buf[2])
}

// INTERROGATE MOUSE POSITION (0x0D). The button byte holds edge bits
// relative to the previous interrogation:
//
//	0000dcba  a right down since last, b right up,
//	          c left down, d left up
func (e *Engine) cmdReadAbsMousePos() {
	var buttons byte
	if e.rButton != 0 {
		buttons |= 0x01
	} else {
		buttons |= 0x02
	}
	if e.lButton != 0 {
		buttons |= 0x04
	} else {
		buttons |= 0x08
	}
	prev := e.abs.prevButtons
	e.abs.prevButtons = buttons
	buttons &^= prev

	e.send(0xF7)
	e.send(buttons)
	e.send(byte(e.abs.x >> 8))
	e.send(byte(e.abs.x))
	e.send(byte(e.abs.y >> 8))
	e.send(byte(e.abs.y))
}

// LOAD MOUSE POSITION (0x0E). The position is not clipped here; that
// happens on the next motion update.
func (e *Engine) cmdSetInternalMousePos() {
	e.abs.x = int(e.buf[2])<<8 | int(e.buf[3])
	e.abs.y = int(e.buf[4])<<8 | int(e.buf[5])
}

// SET Y=0 AT BOTTOM (0x0F).
func (e *Engine) cmdSetYAxisDown() {
	e.mouse.yAxis = -1
}

// SET Y=0 AT TOP (0x10).
func (e *Engine) cmdSetYAxisUp() {
	e.mouse.yAxis = 1
}

// RESUME (0x11). Redundant in practice, since any valid command also
// resumes output.
func (e *Engine) cmdResumeOutput() {
	e.paused = false
}

// DISABLE MOUSE (0x12).
func (e *Engine) cmdDisableMouse() {
	e.mouseMode = mouseOff
	e.mouseDisabled = true
	e.checkResetDisableBug()
}

// PAUSE OUTPUT (0x13). Ignored during the reset window; the loader of
// 'Just Bugging' by ACF depends on that.
func (e *Engine) cmdPauseOutput() {
	if e.criticalWindow {
		return
	}
	e.paused = true
}

// SET JOYSTICK EVENT REPORTING (0x14).
func (e *Engine) cmdJoystickAuto() {
	e.joyMode = joyAuto
	e.mouseMode = mouseOff

	if e.criticalWindow && e.mouseEnabledDuringReset {
		// Mouse was enabled within the reset window (0x08): it stays
		// on (Barbarian).
		e.mouseMode = mouseRelative
		e.bothMouseAndJoy = true
	} else if e.criticalWindow && e.mouseDisabled {
		// Mouse was disabled within the reset window (0x12): it is
		// turned back on (Hammerfist).
		e.mouseMode = mouseRelative
		e.bothMouseAndJoy = true
	}

	e.joy.prev = [2]byte{}

	// Sample and report immediately. Utopos and Double Bubble 2000
	// expect joystick data shortly after this command without
	// checking whether the serial port has a byte first.
	e.readJoysticks()
	e.sendAutoJoysticks()
}

// SET JOYSTICK INTERROGATION MODE (0x15): auto reports off, data only
// on request.
func (e *Engine) cmdJoystickInterrogation() {
	e.joyMode = joyOff
}

// JOYSTICK INTERROGATE (0x16).
func (e *Engine) cmdReadJoystick() {
	e.send(0xFD)
	e.send(e.joy.data[0])
	e.send(e.joy.data[1])
}

// SET JOYSTICK MONITORING (0x17). The parameter is the sample period
// in hundredths of a second; the host drives the actual tick rate,
// see ReportInterval.
func (e *Engine) cmdJoystickMonitoring() {
	rate := e.buf[1]
	if rate == 0 {
		rate = 1
	}
	e.joyMode = joyMonitoring
	e.mouseMode = mouseOff
	e.monitorRate = rate
}

// SET FIRE BUTTON MONITORING (0x18). Accepted but not implemented,
// like the emulation this was validated against.
func (e *Engine) cmdFireButtonMonitoring() {
}

// SET JOYSTICK KEYCODE MODE (0x19). Accepted but not implemented.
func (e *Engine) cmdJoystickKeycodeMode() {
}

// DISABLE JOYSTICKS (0x1A).
func (e *Engine) cmdDisableJoysticks() {
	e.joyMode = joyOff
	e.joystickDisabled = true
	e.checkResetDisableBug()
}

// checkResetDisableBug reproduces a hardware quirk: disabling both
// the mouse and the joysticks within the reset window turns both back
// on. A number of games rely on it to receive mouse and joystick
// packets at the same time.
func (e *Engine) checkResetDisableBug() {
	if e.mouseDisabled && e.joystickDisabled && e.criticalWindow {
		e.mouseMode = mouseRelative
		e.joyMode = joyAuto
		e.bothMouseAndJoy = true
	}
}

// TIME-OF-DAY CLOCK SET (0x1B), six BCD bytes. A byte that is not
// valid BCD is dropped; the rest of the packet is still stored. The
// controller never range checks, so a month of 0x55 is accepted.
func (e *Engine) cmdSetClock() {
	for i := 1; i <= 6; i++ {
		if val := e.buf[i]; bcdValid(val) {
			e.clock[i-1] = val
		}
	}
}

// INTERROGATE TIME-OF-DAY CLOCK (0x1C).
func (e *Engine) cmdReadClock() {
	e.send(0xFC)
	for _, b := range e.clock {
		e.send(b)
	}
}

// MEMORY LOAD (0x20): destination address, then a count of raw bytes
// that follow outside the command framing. See loadMemoryByte.
func (e *Engine) cmdLoadMemory() {
	addr := int(e.buf[1])<<8 | int(e.buf[2])
	n := int(e.buf[3])
	e.custom.beginLoad(addr, n)
}

// MEMORY READ (0x21): returns 6 bytes of controller memory starting
// at the given address. Unmapped addresses read as zero.
func (e *Engine) cmdReadMemory() {
	addr := int(e.buf[1])<<8 | int(e.buf[2])
	var data [6]byte
	for i := range data {
		if p := e.memAt(addr + i); p != nil {
			data[i] = *p
		}
	}
	e.sendStatus(0x20, data[0], data[1], data[2], data[3], data[4], data[5])
}

// CONTROLLER EXECUTE (0x22). Only acts when a known program was
// recognised during the preceding memory load; anything else uploaded
// to controller RAM is inert.
func (e *Engine) cmdExecute() {
	if e.custom.phase == execMatched {
		e.custom.phase = execBoot
	}
}

// REPORT MOUSE BUTTON ACTION (0x87).
func (e *Engine) reportMouseAction() {
	e.sendStatus(7, e.mouse.action)
}

// REPORT MOUSE MODE (0x88, 0x89, 0x8A).
func (e *Engine) reportMouseMode() {
	switch e.mouseMode {
	case mouseRelative:
		e.sendStatus(8)
	case mouseAbsolute:
		e.sendStatus(9,
			byte(e.abs.maxX>>8), byte(e.abs.maxX),
			byte(e.abs.maxY>>8), byte(e.abs.maxY))
	case mouseCursor:
		e.sendStatus(10, e.mouse.keyCodeDeltaX, e.mouse.keyCodeDeltaY)
	default:
		// Mouse disabled: the ROM replies with a bare header.
		e.send(0xF6)
	}
}

// REPORT MOUSE THRESHOLD (0x8B).
func (e *Engine) reportMouseThreshold() {
	e.sendStatus(0x0B, byte(e.mouse.xThreshold), byte(e.mouse.yThreshold))
}

// REPORT MOUSE SCALE (0x8C).
func (e *Engine) reportMouseScale() {
	e.sendStatus(0x0C, byte(e.mouse.xScale), byte(e.mouse.yScale))
}

// REPORT MOUSE VERTICAL COORDINATES (0x8F, 0x90).
func (e *Engine) reportMouseVertical() {
	if e.mouse.yAxis == -1 {
		e.sendStatus(0x0F)
	} else {
		e.sendStatus(0x10)
	}
}

// REPORT MOUSE AVAILABILITY (0x92).
func (e *Engine) reportMouseAvailability() {
	if e.mouseMode == mouseOff {
		e.sendStatus(0x12)
	} else {
		e.sendStatus(0x00)
	}
}

// REPORT JOYSTICK MODE (0x94, 0x95, 0x99).
func (e *Engine) reportJoystickMode() {
	if e.joyMode == joyAuto {
		e.sendStatus(0x14)
	} else {
		e.sendStatus(0x15)
	}
}

// REPORT JOYSTICK AVAILABILITY (0x9A).
func (e *Engine) reportJoystickAvailability() {
	if e.joyMode == joyOff {
		e.sendStatus(0x1A)
	} else {
		e.sendStatus(0x00)
	}
}
