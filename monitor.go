package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// runMonitor runs the interactive monitor: the terminal mouse drives
// the emulated mouse, the controller's output bytes stream into a
// pane, and a command line injects host commands.
func runMonitor(r *runner) error {
	m := newMonitorView(r)
	log.SetPrefix("")
	log.SetOutput(m.log)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetPrefix("ikbd: ")
	}()

	r.addSink(m.emitByte)
	go r.run()
	go m.statusLoop()
	return m.app.Run()
}

type monitorView struct {
	r *runner

	log    *tview.TextView
	bytes  *tview.TextView
	status *tview.TextView
	input  *tview.InputField
	cols   *tview.Flex
	rows   *tview.Flex
	app    *tview.Application

	lastX, lastY int
	haveMouse    bool
}

func newMonitorView(r *runner) *monitorView {
	m := &monitorView{
		r: r,
		log: tview.NewTextView().
			SetMaxLines(1000),
		bytes: tview.NewTextView().
			SetMaxLines(1000),
		status: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	m.log.SetChangedFunc(func() { m.app.Draw() })
	m.bytes.SetChangedFunc(func() { m.app.Draw() })
	m.status.SetBackgroundColor(tcell.ColorDarkBlue)
	m.cols.
		AddItem(m.bytes, 0, 1, false).
		AddItem(m.log, 0, 2, false)
	m.rows.
		AddItem(m.cols, 0, 1, false).
		AddItem(m.status, 2, 0, false).
		AddItem(m.input, 1, 0, true)
	m.app.SetRoot(m.rows, true)
	m.app.EnableMouse(true)
	m.app.SetMouseCapture(m.mouseCapture)

	m.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := m.input.GetText()
		if cmd == "" {
			return
		}
		m.input.SetText("")
		if cmd == "exit" {
			m.app.Stop()
			return
		}
		if err := m.command(cmd); err != nil {
			log.Printf("%v", err)
		}
	})
	return m
}

// emitByte may be called from the runner's goroutines; the TextView
// writer is safe for that.
func (m *monitorView) emitByte(b byte) {
	fmt.Fprintf(m.bytes, "%02x ", b)
}

func (m *monitorView) statusLoop() {
	for range time.Tick(100 * time.Millisecond) {
		s := m.r.Status()
		line := fmt.Sprintf("mouse: %-8s joystick: %-10s abs: %d,%d / %d,%d",
			s.MouseMode, s.JoystickMode, s.AbsX, s.AbsY, s.MaxX, s.MaxY)
		if s.Booting {
			line += "  [boot]"
		}
		if s.Paused {
			line += "  [paused]"
		}
		if s.Program != "" {
			line += "\nrunning: " + s.Program
		}
		m.app.QueueUpdateDraw(func() {
			m.status.SetText(line)
		})
	}
}

// mouseCapture translates terminal mouse events into the emulated
// mouse. Events still reach the UI afterwards.
func (m *monitorView) mouseCapture(ev *tcell.EventMouse, act tview.MouseAction) (*tcell.EventMouse, tview.MouseAction) {
	x, y := ev.Position()
	if m.haveMouse {
		m.r.input.Move(x-m.lastX, y-m.lastY)
	}
	m.lastX, m.lastY = x, y
	m.haveMouse = true

	var b byte
	if ev.Buttons()&tcell.ButtonPrimary != 0 {
		b |= 0x02
	}
	if ev.Buttons()&tcell.ButtonSecondary != 0 {
		b |= 0x01
	}
	if ev.Buttons()&tcell.ButtonMiddle != 0 {
		b |= 0x04
	}
	m.r.input.SetButtons(b)

	if ev.Buttons()&tcell.WheelUp != 0 {
		m.r.input.Wheel(1)
	}
	if ev.Buttons()&tcell.WheelDown != 0 {
		m.r.input.Wheel(-1)
	}
	return ev, act
}

var joyBits = map[string]uint16{
	"up":    1 << 14,
	"down":  1 << 12,
	"left":  1 << 15,
	"right": 1 << 13,
	"fire":  1 << 0,
}

// command interprets one monitor command line:
//
//	08 0b 02 02      send bytes to the controller
//	key 39 [up]      press (or release) a key
//	joy0 up fire     hold joystick directions, empty list releases
//	reset [cold]     hardware reset
func (m *monitorView) command(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "reset":
		m.r.Reset(len(fields) > 1 && fields[1] == "cold")
		return nil
	case "key":
		if len(fields) < 2 {
			return fmt.Errorf("key: missing code")
		}
		code, err := strconv.ParseUint(fields[1], 16, 8)
		if err != nil {
			return fmt.Errorf("key: %q: %v", fields[1], err)
		}
		if len(fields) > 2 && fields[2] == "up" {
			code |= 0x80
		}
		m.r.Key(byte(code))
		return nil
	case "joy0", "joy1":
		var bits uint16
		for _, f := range fields[1:] {
			b, ok := joyBits[f]
			if !ok {
				return fmt.Errorf("%s: unknown direction %q", fields[0], f)
			}
			bits |= b
		}
		m.r.input.SetJoystick(int(fields[0][3]-'0'), bits)
		return nil
	}

	for _, f := range fields {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return fmt.Errorf("%q: %v", f, err)
		}
		m.r.Submit(byte(b))
	}
	return nil
}
