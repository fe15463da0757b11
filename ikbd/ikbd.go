// Package ikbd emulates the Atari ST's HD6301 keyboard controller
// (the IKBD) as seen from the host side of its serial link.
//
// The Engine consumes the host's command bytes one at a time via
// Submit, and produces the controller's reply and event bytes through
// an emit callback. Tick advances the controller by one report cycle,
// sampling the live mouse and joystick state from an Input and
// emitting whatever packets the current reporting modes call for.
// There is no instruction-level 6301 emulation: the documented command
// set is implemented directly, and the handful of known programs that
// games upload into the controller's RAM are recognised by checksum
// and replaced with behavioural stand-ins (see custom.go).
//
// The Engine is not safe for concurrent use. The host must serialise
// Submit, Tick, KeyEvent and Reset, typically by driving them all
// from one loop.
package ikbd

import "time"

// romVersion is the byte reported when the controller's self test
// completes. Only very early STs shipped the 0xF0 ROM; 0xF1 is the
// common case and some programs explicitly wait for it.
const romVersion = 0xF1

// resetTicks is the number of report cycles between a reset and the
// boot-complete byte. Commands received inside this window trigger
// the quirks handled in command.go.
const resetTicks = 40

// Initial absolute mouse state after reset. The limits are
// placeholders: the host must send an absolute mode command before
// they are ever used.
const (
	absMaxXOnReset = 320
	absMaxYOnReset = 200

	// Initial "previously reported" button mask, chosen so the first
	// position interrogation reports no buttons released.
	absPrevButtons = 0x02 | 0x08
)

// Joystick direction and fire bits as they appear in report packets.
const (
	joyBitUp    = 0x01
	joyBitDown  = 0x02
	joyBitLeft  = 0x04
	joyBitRight = 0x08
	joyBitFire  = 0x80
)

// Input supplies the live input state the controller samples on each
// Tick. Implementations are read by the Engine and never mutated,
// except that MouseDelta and WheelDelta hand over accumulated motion
// and are expected to zero it.
type Input interface {
	// MouseDelta returns the relative motion accumulated since the
	// previous call and resets the accumulator.
	MouseDelta() (dx, dy int)
	// MouseButtons returns the current button mask: bit 0 is the
	// right button, bit 1 the left, bits 2-4 are the extra buttons
	// reported as key codes.
	MouseButtons() byte
	// WheelDelta returns the wheel motion accumulated since the
	// previous call, in notches, and resets the accumulator.
	WheelDelta() int
	// Joystick returns the raw digital input register for lane 0
	// or 1. Bit positions are translated through the joypad maps.
	Joystick(lane int) uint16
}

type mouseMode int

const (
	mouseOff mouseMode = iota
	mouseRelative
	mouseAbsolute
	mouseCursor
)

type joystickMode int

const (
	joyOff joystickMode = iota
	joyAuto
	joyMonitoring
)

// button is a mask rather than a bool so that a press coming from the
// mouse and one duplicated from a joystick fire button combine with
// OR instead of replacing each other.
type button byte

const (
	buttonMouse    button = 0x01
	buttonJoystick button = 0x02
)

func buttonsDiffer(a, b button) bool { return (a != 0) != (b != 0) }

type absState struct {
	x, y        int
	maxX, maxY  int // inclusive
	prevButtons byte
}

type mouseState struct {
	deltaX, deltaY int // pending delta, consumed by report packets
	xScale, yScale int
	xThreshold     int
	yThreshold     int
	keyCodeDeltaX  byte
	keyCodeDeltaY  byte
	yAxis          int  // +1 origin at top, -1 origin at bottom
	action         byte // button action bits, command 0x07
}

type joyState struct {
	data [2]byte // current direction/fire masks
	prev [2]byte // last masks sent as auto packets
}

// joypad is one of the four virtual controllers reachable through the
// memory map. Pads 0 and 1 are fed from the two live registers; pads
// 2 and 3 exist only as load/read targets.
type joypad struct {
	scanMap [16]byte // per-bit key code, 0 = no key
	joyMap  [16]byte // per-bit joystick report bits
	state   uint16   // last sampled register value
	out     byte     // direction/fire mask derived this tick
}

// Engine is one emulated keyboard controller. All state is owned by
// value; two Engines never share anything.
type Engine struct {
	emit func(byte)
	in   Input

	// Logf, when set, receives a trace line for every emitted byte.
	Logf func(format string, args ...any)

	mouseMode    mouseMode
	joyMode      joystickMode
	abs          absState
	mouse        mouseState
	joy          joyState
	pads         [4]joypad
	scancodes    [128]byte // default key code table at 0xA000
	keyDown      [128]bool
	clock        [6]byte // BCD: year month day hour minute second
	monitorRate  byte    // joystick monitoring rate, 1/100ths of a second

	lButton, rButton       button
	oldLButton, oldRButton button
	oldExtraButtons        byte

	paused bool
	buf    [8]byte
	bufLen int

	resetCounter            int
	criticalWindow          bool
	mouseDisabled           bool
	joystickDisabled        bool
	bothMouseAndJoy         bool
	mouseEnabledDuringReset bool

	custom customState
}

// New returns an Engine wired to the given output sink and live input
// source, and starts a cold reset. The boot-complete byte appears
// after the reset window has been ticked down.
func New(emit func(byte), in Input) *Engine {
	e := &Engine{emit: emit, in: in}
	e.scancodes = defaultScancodes
	e.pads[0], e.pads[2] = defaultPadA, defaultPadA
	e.pads[1], e.pads[3] = defaultPadB, defaultPadB
	e.custom.init()
	e.Reset(true)
	return e
}

// Reset performs a hardware reset. A cold reset additionally clears
// the time-of-day clock; a warm one keeps it, like the real
// controller's RAM test.
func (e *Engine) Reset(cold bool) {
	e.bootROM(cold)
}

// bootROM emulates the controller's ROM boot code, entered on a
// hardware reset or on the reset command (0x80 0x01).
func (e *Engine) bootROM(clearAllRAM bool) {
	if clearAllRAM {
		e.clock = [6]byte{}
	}

	e.mouseMode = mouseRelative
	e.joyMode = joyAuto

	e.abs = absState{
		maxX:        absMaxXOnReset,
		maxY:        absMaxYOnReset,
		prevButtons: absPrevButtons,
	}
	e.mouse = mouseState{
		xThreshold:    1,
		yThreshold:    1,
		keyCodeDeltaX: 1,
		keyCodeDeltaY: 1,
		yAxis:         1,
	}
	e.joy.prev = [2]byte{}
	e.keyDown = [128]bool{}

	e.bufLen = 0
	e.paused = false
	e.lButton, e.rButton = 0, 0
	e.oldLButton, e.oldRButton = 0, 0

	e.mouseDisabled, e.joystickDisabled = false, false
	e.resetCounter = resetTicks
	e.criticalWindow = true
	e.bothMouseAndJoy = false
	e.mouseEnabledDuringReset = false
	e.monitorRate = 2

	e.custom.teardown()
}

// Submit feeds one byte received from the host into the controller.
// Routing depends on the custom-execution phase: while a program is
// loading the byte lands in controller RAM, while one is executing it
// goes to that program's write handler, and otherwise it is part of a
// command.
func (e *Engine) Submit(b byte) {
	switch e.custom.phase {
	case execBoot, execMain:
		e.customWrite(b)
	case execLoading:
		e.loadMemoryByte(b)
	default:
		e.runCommand(b)
	}
}

// KeyEvent reports a host key press or release. The low 7 bits select
// the key, the high bit set means release. The code is forwarded
// verbatim and the press table updated, except in joystick monitoring
// mode where keys are not reported at all.
func (e *Engine) KeyEvent(code byte) {
	if e.joyMode == joyMonitoring {
		return
	}
	e.keyDown[code&0x7f] = code&0x80 == 0
	e.send(code)
	e.customReadEvent()
}

// ReportInterval is the time between report cycles requested by the
// host, either the default rate or the one set by the joystick
// monitoring command. The host's tick loop may use it to retime
// itself.
func (e *Engine) ReportInterval() time.Duration {
	return time.Duration(e.monitorRate) * 10 * time.Millisecond
}

// send emits one byte to the host unless output is paused.
func (e *Engine) send(b byte) {
	if e.paused {
		return
	}
	if e.Logf != nil {
		e.Logf("-> %02x", b)
	}
	e.emit(b)
}

// UpdateClockOnVBL is where the real controller advances its
// time-of-day clock once per second. The ROM's BCD propagation is
// deliberately not performed here: the clock only changes through the
// set-clock command, matching the behaviour this emulation was
// validated against. bcdAdjust is kept for the day this is revisited.
func (e *Engine) UpdateClockOnVBL() {
}

// bcdValid reports whether both nibbles of val are decimal digits.
func bcdValid(val byte) bool {
	return val&0x0f <= 0x09 && val&0xf0 <= 0x90
}

// bcdAdjust propagates out-of-range nibbles after integer arithmetic
// on a BCD value, like the 6301's DAA instruction.
func bcdAdjust(val byte) byte {
	if val&0x0f > 0x09 {
		val += 0x06
	}
	if val&0xf0 > 0x90 {
		val += 0x60
	}
	return val
}
