package ikbd

func (m mouseMode) String() string {
	switch m {
	case mouseOff:
		return "off"
	case mouseRelative:
		return "relative"
	case mouseAbsolute:
		return "absolute"
	case mouseCursor:
		return "cursor"
	}
	return "unknown"
}

func (m joystickMode) String() string {
	switch m {
	case joyOff:
		return "off"
	case joyAuto:
		return "auto"
	case joyMonitoring:
		return "monitoring"
	}
	return "unknown"
}

// Status is a snapshot of the externally observable controller state,
// for monitors and debugging. It carries no references into the
// Engine.
type Status struct {
	MouseMode    string
	JoystickMode string
	AbsX, AbsY   int
	MaxX, MaxY   int
	Paused       bool
	Booting      bool   // still inside the reset countdown
	Program      string // name of the executing custom program, if any
}

func (e *Engine) Status() Status {
	s := Status{
		MouseMode:    e.mouseMode.String(),
		JoystickMode: e.joyMode.String(),
		AbsX:         e.abs.x,
		AbsY:         e.abs.y,
		MaxX:         e.abs.maxX,
		MaxY:         e.abs.maxY,
		Paused:       e.paused,
		Booting:      e.resetCounter > 0,
	}
	switch e.custom.phase {
	case execBoot:
		s.Program = "(boot stub)"
	case execMain:
		s.Program = programs[e.custom.prog].name
	}
	return s
}
