package ikbd

// Tick advances the controller by one report cycle: the reset
// countdown, then live input sampling and whatever packets the
// current modes call for. The host calls it at the rate given by
// ReportInterval.
func (e *Engine) Tick() {
	if e.resetCounter > 0 {
		e.resetCounter--
		if e.resetCounter == 0 {
			e.criticalWindow = false
			e.mouseEnabledDuringReset = false
			// Boot is complete; this byte bypasses a paused output,
			// but still shows up in the byte trace.
			if e.Logf != nil {
				e.Logf("-> %02x", byte(romVersion))
			}
			e.emit(romVersion)
		}
		return
	}

	buttons := e.in.MouseButtons()
	e.lButton, e.rButton = 0, 0
	if buttons&0x02 != 0 {
		e.lButton = buttonMouse
	}
	if buttons&0x01 != 0 {
		e.rButton = buttonMouse
	}

	e.readJoysticks()
	e.duplicateFireButtons()
	e.sendMouseAction()
	e.updateMousePosition()

	// Monitoring mode reports joysticks and nothing else.
	if e.joyMode == joyMonitoring {
		e.sendJoysticksMonitoring()
		return
	}

	if e.joyMode == joyAuto {
		e.sendAutoJoysticks()
	}
	switch e.mouseMode {
	case mouseRelative:
		e.sendRelMousePacket()
	case mouseCursor:
		e.sendCursorMousePacket()
	}

	e.oldLButton, e.oldRButton = e.lButton, e.rButton

	for wheel := e.in.WheelDelta(); wheel != 0; {
		if wheel > 0 {
			e.sendWheelBurst(0x59)
			wheel--
		} else {
			e.sendWheelBurst(0x5A)
			wheel++
		}
	}

	// The extra mouse buttons are reported as plain key codes on
	// press and release edges.
	diff := buttons ^ e.oldExtraButtons
	if diff&0x04 != 0 {
		e.KeyEvent(0x37 | releaseBit(buttons&0x04 == 0))
	}
	if diff&0x08 != 0 {
		e.KeyEvent(0x5E | releaseBit(buttons&0x08 == 0))
	}
	if diff&0x10 != 0 {
		e.KeyEvent(0x5F | releaseBit(buttons&0x10 == 0))
	}
	e.oldExtraButtons = buttons

	// A custom program's read handler runs after, never instead of,
	// the standard processing.
	e.customReadEvent()
}

func releaseBit(released bool) byte {
	if released {
		return 0x80
	}
	return 0
}

// sendWheelBurst reports one wheel notch. The real driver-side
// decoder wants the 0xF6 0x05 prelude before the arrow key code.
func (e *Engine) sendWheelBurst(code byte) {
	for _, b := range [8]byte{0xF6, 0x05, 0, 0, 0, 0, 0, code} {
		e.KeyEvent(b)
	}
}

// readJoysticks samples the two live registers, translates changed
// bits through the joypad key code maps (emitting press/release
// codes), and derives the direction/fire masks for this tick.
func (e *Engine) readJoysticks() {
	for i := 0; i < 2; i++ {
		p := &e.pads[i]
		state := e.in.Joystick(i)
		changed := p.state ^ state
		p.state = state
		p.out = 0

		for j := 0; changed != 0 || state != 0; j, changed, state = j+1, changed>>1, state>>1 {
			if state&1 != 0 {
				p.out |= p.joyMap[j]
			}
			if changed&1 == 0 {
				continue
			}
			scan := p.scanMap[j]
			if scan == 0 {
				continue
			}
			if state&1 == 0 {
				scan |= 0x80
			}
			e.send(scan)
		}
	}

	e.joy.data[1] = e.pads[1].out

	// Lane 0 shares the port with the mouse: it only reports when the
	// mouse is off, or in the dual-report state set up by the reset
	// window quirks.
	if e.mouseMode == mouseOff || (e.bothMouseAndJoy && e.mouseMode == mouseRelative) {
		e.joy.data[0] = e.pads[0].out
	} else {
		e.joy.data[0] = 0
	}
}

// duplicateFireButtons ties joystick 1's fire button and the right
// mouse button together: with the mouse off, mouse buttons press the
// fire bits, and with the mouse on, either source presses both (Big
// Run needs the mouse-button form).
func (e *Engine) duplicateFireButtons() {
	if e.mouseMode == mouseOff {
		if e.rButton&buttonMouse != 0 {
			e.joy.data[1] |= joyBitFire
		}
		if e.lButton&buttonMouse != 0 {
			e.joy.data[0] |= joyBitFire
		}
		return
	}

	if e.joy.data[1]&joyBitFire != 0 || e.rButton&buttonMouse != 0 {
		e.joy.data[1] |= joyBitFire
		e.rButton |= buttonJoystick
	} else {
		e.joy.data[1] &^= joyBitFire
		e.rButton &^= buttonJoystick
	}
}

// sendMouseAction handles the button action bits set by command 0x07.
// With bit 2 set the buttons report as key codes; otherwise bits 0
// and 1 request an absolute position report on press or release.
func (e *Engine) sendMouseAction() {
	if e.mouse.action&0x4 != 0 {
		if buttonsDiffer(e.lButton, e.oldLButton) {
			e.send(0x74 | releaseBit(e.lButton == 0))
		}
		if buttonsDiffer(e.rButton, e.oldRButton) {
			e.send(0x75 | releaseBit(e.rButton == 0))
		}
		// Bits 0-1 are ignored in this mode.
		return
	}

	if e.mouse.action&0x3 == 0 {
		return
	}

	report := false
	if e.mouse.action&0x1 != 0 {
		if e.lButton != 0 && e.oldLButton == 0 {
			report = true
			e.abs.prevButtons &^= 0x04
			e.abs.prevButtons |= 0x02
		}
		if e.rButton != 0 && e.oldRButton == 0 {
			report = true
			e.abs.prevButtons &^= 0x01
			e.abs.prevButtons |= 0x08
		}
	}
	if e.mouse.action&0x2 != 0 {
		if e.lButton == 0 && e.oldLButton != 0 {
			report = true
			e.abs.prevButtons &^= 0x08
			e.abs.prevButtons |= 0x01
		}
		if e.rButton == 0 && e.oldRButton != 0 {
			report = true
			e.abs.prevButtons &^= 0x02
			e.abs.prevButtons |= 0x04
		}
	}

	if report && e.mouseMode == mouseAbsolute {
		e.cmdReadAbsMousePos()
	}
}

// updateMousePosition folds the sampled motion into the pending delta
// and the clamped absolute position. The Y contribution follows the
// configured axis direction.
func (e *Engine) updateMousePosition() {
	dx, dy := e.in.MouseDelta()
	e.mouse.deltaX = dx
	e.mouse.deltaY = dy

	if e.mouse.xScale > 1 {
		e.abs.x += dx * e.mouse.xScale
	} else {
		e.abs.x += dx
	}
	e.abs.x = clamp(e.abs.x, e.abs.maxX)

	if e.mouse.yScale > 1 {
		e.abs.y += dy * e.mouse.yAxis * e.mouse.yScale
	} else {
		e.abs.y += dy * e.mouse.yAxis
	}
	e.abs.y = clamp(e.abs.y, e.abs.maxY)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// sendRelMousePacket reports pending motion as one or more signed
// 3-byte packets. Deltas beyond a signed byte are split over several
// packets; the loop is bounded by the delta magnitude.
func (e *Engine) sendRelMousePacket() {
	for {
		relX := int8(e.mouse.deltaX)
		relY := int8(e.mouse.deltaY)

		over := relX < 0 && int(relX) <= -e.mouse.xThreshold ||
			relX > 0 && int(relX) >= e.mouse.xThreshold ||
			relY < 0 && int(relY) <= -e.mouse.yThreshold ||
			relY > 0 && int(relY) >= e.mouse.yThreshold
		if !over &&
			!buttonsDiffer(e.oldLButton, e.lButton) &&
			!buttonsDiffer(e.oldRButton, e.rButton) {
			return
		}

		header := byte(0xF8)
		if e.lButton != 0 {
			header |= 0x02
		}
		if e.rButton != 0 {
			header |= 0x01
		}
		e.send(header)
		e.send(byte(relX))
		e.send(byte(int(relY) * e.mouse.yAxis))

		e.mouse.deltaX -= int(relX)
		e.mouse.deltaY -= int(relY)
		e.oldLButton, e.oldRButton = e.lButton, e.rButton
	}
}

// sendCursorMousePacket reports pending motion as cursor key
// press/release pairs, one pair per configured step. The loop is
// capped: host pointers can hand over far larger deltas per tick than
// the controller was ever built for.
func (e *Engine) sendCursorMousePacket() {
	for i := 0; i < 10; i++ {
		if e.mouse.deltaX == 0 && e.mouse.deltaY == 0 &&
			!buttonsDiffer(e.oldLButton, e.lButton) &&
			!buttonsDiffer(e.oldRButton, e.rButton) {
			return
		}

		if dx := int(e.mouse.keyCodeDeltaX); e.mouse.deltaX != 0 {
			if e.mouse.deltaX <= -dx {
				e.send(0x4B) // cursor left
				e.send(0x4B | 0x80)
				e.mouse.deltaX += dx
			}
			if e.mouse.deltaX >= dx {
				e.send(0x4D) // cursor right
				e.send(0x4D | 0x80)
				e.mouse.deltaX -= dx
			}
		}
		if dy := int(e.mouse.keyCodeDeltaY); e.mouse.deltaY != 0 {
			if e.mouse.deltaY <= -dy {
				e.send(0x48) // cursor up
				e.send(0x48 | 0x80)
				e.mouse.deltaY += dy
			}
			if e.mouse.deltaY >= dy {
				e.send(0x50) // cursor down
				e.send(0x50 | 0x80)
				e.mouse.deltaY -= dy
			}
		}

		if buttonsDiffer(e.lButton, e.oldLButton) {
			e.send(0x74 | releaseBit(e.lButton == 0))
		}
		if buttonsDiffer(e.rButton, e.oldRButton) {
			e.send(0x75 | releaseBit(e.rButton == 0))
		}
		e.oldLButton, e.oldRButton = e.lButton, e.rButton
	}
}

// sendAutoJoysticks reports each lane that changed since its last
// report as a 2-byte packet.
func (e *Engine) sendAutoJoysticks() {
	if d := e.joy.data[0]; d != e.joy.prev[0] {
		e.send(0xFE) // joystick 0 / mouse port
		e.send(d)
		e.joy.prev[0] = d
	}
	if d := e.joy.data[1]; d != e.joy.prev[1] {
		e.send(0xFF) // joystick 1
		e.send(d)
		e.joy.prev[1] = d
	}
}

// sendJoysticksMonitoring reports both lanes every cycle as a compact
// 2-byte packet:
//
//	%000000xy  y = lane 1 fire, x = lane 0 fire
//	%nnnnmmmm  m = lane 1 directions, n = lane 0 directions
func (e *Engine) sendJoysticksMonitoring() {
	e.send((e.joy.data[0]&joyBitFire)>>6 | (e.joy.data[1]&joyBitFire)>>7)
	e.send((e.joy.data[0]&0x0f)<<4 | e.joy.data[1]&0x0f)
}
