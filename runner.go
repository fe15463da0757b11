package main

import (
	"sync"
	"time"

	"github.com/stengine/ikbd/ikbd"
)

// runner owns an Engine and serialises all access to it: commands from
// the UI, the script player or the serial bridge, and the report tick
// loop. Emitted bytes fan out to the registered sinks.
type runner struct {
	mu    sync.Mutex
	eng   *ikbd.Engine
	input *hostInput
	sinks []func(byte)
}

func newRunner() *runner {
	r := &runner{input: &hostInput{}}
	r.eng = ikbd.New(r.emit, r.input)
	return r
}

// emit is only called with r.mu held, via the Engine.
func (r *runner) emit(b byte) {
	for _, f := range r.sinks {
		f(b)
	}
}

// addSink registers an output sink. Sinks must be in place before run
// is started.
func (r *runner) addSink(f func(byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, f)
}

// run drives the report loop at whatever rate the controller currently
// asks for. It never returns.
func (r *runner) run() {
	for {
		r.mu.Lock()
		r.eng.Tick()
		d := r.eng.ReportInterval()
		r.mu.Unlock()
		time.Sleep(d)
	}
}

func (r *runner) Submit(b byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eng.Submit(b)
}

func (r *runner) Key(code byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eng.KeyEvent(code)
}

func (r *runner) Reset(cold bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eng.Reset(cold)
}

func (r *runner) Status() ikbd.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.Status()
}

// hostInput collects live input state from the UI thread for the
// Engine to sample on its own schedule.
type hostInput struct {
	mu      sync.Mutex
	dx, dy  int
	buttons byte
	wheel   int
	joy     [2]uint16
}

func (in *hostInput) MouseDelta() (int, int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	dx, dy := in.dx, in.dy
	in.dx, in.dy = 0, 0
	return dx, dy
}

func (in *hostInput) MouseButtons() byte {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.buttons
}

func (in *hostInput) WheelDelta() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	w := in.wheel
	in.wheel = 0
	return w
}

func (in *hostInput) Joystick(lane int) uint16 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.joy[lane]
}

func (in *hostInput) Move(dx, dy int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.dx += dx
	in.dy += dy
}

func (in *hostInput) SetButtons(b byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buttons = b
}

func (in *hostInput) Wheel(n int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.wheel += n
}

func (in *hostInput) SetJoystick(lane int, bits uint16) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.joy[lane] = bits
}
