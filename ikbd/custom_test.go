package ikbd

import (
	"bytes"
	"testing"
)

func crcOf(bs []byte) uint32 {
	crc := uint32(crcInit)
	for _, b := range bs {
		crc = crcAdd(crc, b)
	}
	return crc
}

func progIndex(t *testing.T, b behavior) int {
	t.Helper()
	for i, p := range programs {
		if p.behavior == b {
			return i
		}
	}
	t.Fatalf("no program with behavior %d", b)
	return -1
}

// runProgram puts a booted engine directly into the steady state of
// the given program.
func runProgram(t *testing.T, b behavior) (*Engine, *testInput, *output) {
	e, in, out := newTestEngine(t)
	e.custom.phase = execMain
	e.custom.prog = progIndex(t, b)
	return e, in, out
}

func TestCustomProgramLifecycle(t *testing.T) {
	stub := []byte{0x86, 0x0C, 0x02, 0x97}
	main := []byte{0xDE, 0x97, 0x03}

	defer func(old []program) { programs = old }(programs)
	programs = append(append([]program{}, programs...), program{
		loadCRC:  crcOf(stub),
		mainLen:  len(main),
		mainCRC:  crcOf(main),
		behavior: behaviorAudioSculptureColor,
		name:     "test entry",
	})

	e, _, out := newTestEngine(t)

	// Memory load of the boot stub; the target address is unmapped, so
	// the bytes only feed the checksum.
	submit(e, 0x20, 0x08, 0x00, byte(len(stub)))
	submit(e, stub...)
	if e.custom.phase != execMatched {
		t.Fatalf("phase %d after stub load, want %d", e.custom.phase, execMatched)
	}

	// Matched but not yet executed: a warm reset must not forget it.
	submit(e, 0x80, 0x01)
	for i := 0; i < resetTicks; i++ {
		e.Tick()
	}
	out.take()
	if e.custom.phase != execMatched {
		t.Fatalf("phase %d after reset, want %d", e.custom.phase, execMatched)
	}

	submit(e, 0x22, 0x00, 0x00)
	if e.custom.phase != execBoot {
		t.Fatalf("phase %d after execute, want %d", e.custom.phase, execBoot)
	}
	if s := e.Status(); s.Program != "(boot stub)" {
		t.Errorf("Status().Program == %q during boot", s.Program)
	}

	// The main program arrives as raw bytes.
	submit(e, main...)
	if e.custom.phase != execMain {
		t.Fatalf("phase %d after main upload, want %d", e.custom.phase, execMain)
	}
	if s := e.Status(); s.Program != "test entry" {
		t.Errorf("Status().Program == %q, want %q", s.Program, "test entry")
	}

	// Steady state: the magic byte gets the two-byte key.
	submit(e, 0x42)
	if got, want := out.take(), []byte{0x4B, 0x13}; !bytes.Equal(got, want) {
		t.Errorf("emitted %x, want %x", got, want)
	}
}

func TestUnknownUploadIsInert(t *testing.T) {
	e, _, out := newTestEngine(t)
	submit(e, 0x12) // mouse off, to observe the command below
	submit(e, 0x20, 0x08, 0x00, 0x03)
	submit(e, 0x11, 0x22, 0x33)
	if e.custom.phase != execStandard {
		t.Fatalf("phase %d after unknown upload, want %d", e.custom.phase, execStandard)
	}
	submit(e, 0x22, 0x00, 0x00)
	if e.custom.phase != execStandard {
		t.Fatalf("execute armed phase %d for an unknown upload", e.custom.phase)
	}
	// Command dispatch still works.
	submit(e, 0x08)
	if e.mouseMode != mouseRelative {
		t.Error("command dispatch broken after inert upload")
	}
	out.take()
}

func TestMemoryLoadReadRoundTrip(t *testing.T) {
	e, _, out := newTestEngine(t)
	submit(e, 0x20, 0xB2, 0x00, 0x04)
	submit(e, 0x09, 0x08, 0x07, 0x06)
	if e.pads[2].scanMap[0] != 0x09 || e.pads[2].scanMap[3] != 0x06 {
		t.Fatalf("load did not land in pad memory: %x", e.pads[2].scanMap[:4])
	}
	submit(e, 0x21, 0xB2, 0x00)
	want := []byte{0xF6, 0x20, 0x09, 0x08, 0x07, 0x06, 0x00, 0x00}
	if got := out.take(); !bytes.Equal(got, want) {
		t.Errorf("memory read emitted %x, want %x", got, want)
	}
}

func TestFroggies(t *testing.T) {
	e, _, out := runProgram(t, behaviorFroggies)

	e.keyDown[0x48] = true // cursor up
	e.Submit(1)
	if got, want := out.take(), []byte{0x7A}; !bytes.Equal(got, want) {
		t.Errorf("short poll emitted %x, want %x", got, want)
	}

	e.Submit(4)
	if got, want := out.take(), []byte{0xFC, 0x00, 0x00, 0x7A}; !bytes.Equal(got, want) {
		t.Errorf("long poll emitted %x, want %x", got, want)
	}

	// Left button sets bit 7 in every status byte.
	e.keyDown[0x48] = false
	e.lButton = buttonMouse
	e.Submit(4)
	if got, want := out.take(), []byte{0xFC, 0x80, 0x80, 0x80}; !bytes.Equal(got, want) {
		t.Errorf("button poll emitted %x, want %x", got, want)
	}

	// Top bit set means exit.
	e.Submit(0x81)
	if e.custom.phase != execStandard || e.resetCounter != resetTicks {
		t.Error("exit byte did not reboot the controller")
	}
}

func TestTransbeauce2(t *testing.T) {
	e, _, out := runProgram(t, behaviorTransbeauce2)
	e.keyDown[0x39] = true // space
	e.Tick()
	if got, want := out.take(), []byte{0x80}; !bytes.Equal(got, want) {
		t.Errorf("poll emitted %x, want %x", got, want)
	}
}

func TestDragonnels(t *testing.T) {
	e, in, out := runProgram(t, behaviorDragonnels)
	// The menu runs with mouse reporting off; with it on, the relative
	// packet path would consume the sampled delta before the write
	// handler gets to read it.
	e.mouseMode = mouseOff

	in.dy = -1
	e.Tick()
	if got := out.take(); len(got) != 0 {
		t.Fatalf("report cycle emitted %x", got)
	}
	e.Submit(0x00)
	if got, want := out.take(), []byte{0xFC}; !bytes.Equal(got, want) {
		t.Errorf("mouse-up poll emitted %x, want %x", got, want)
	}

	e.lButton = buttonMouse
	e.Submit(0x00)
	if got, want := out.take(), []byte{0x80}; !bytes.Equal(got, want) {
		t.Errorf("button poll emitted %x, want %x", got, want)
	}
}

func TestChaosDecoder(t *testing.T) {
	e, _, out := runProgram(t, behaviorChaosAD)

	// The program announces itself once.
	e.Tick()
	if got, want := out.take(), []byte{0xFE}; !bytes.Equal(got, want) {
		t.Errorf("first cycle emitted %x, want %x", got, want)
	}
	e.Tick()
	if got := out.take(); len(got) != 0 {
		t.Errorf("second cycle emitted %x", got)
	}

	// The first 8 writes are swallowed.
	for i := 0; i < 8; i++ {
		e.Submit(0xAA)
	}
	if got := out.take(); len(got) != 0 {
		t.Errorf("swallowed bytes echoed %x", got)
	}

	// Then each byte comes back XORed with the rotating key.
	for i, b := range []byte{0x00, 0x12, 0xFF} {
		e.Submit(b)
		want := []byte{b ^ chaosKey[i]}
		if got := out.take(); !bytes.Equal(got, want) {
			t.Errorf("byte %d echoed %x, want %x", i, got, want)
		}
	}
}

func TestAudioSculpture(t *testing.T) {
	t.Run("color reports space only", func(t *testing.T) {
		e, _, out := runProgram(t, behaviorAudioSculptureColor)
		e.keyDown[0x2C] = true
		e.Tick()
		if got := out.take(); len(got) != 0 {
			t.Errorf("non-space key reported %x", got)
		}
		e.keyDown[0x39] = true
		e.Tick()
		if got, want := out.take(), []byte{0x39}; !bytes.Equal(got, want) {
			t.Errorf("space poll emitted %x, want %x", got, want)
		}
	})

	t.Run("mono reports any key", func(t *testing.T) {
		e, _, out := runProgram(t, behaviorAudioSculptureMono)
		e.keyDown[0x2C] = true
		e.Tick()
		if got, want := out.take(), []byte{0x39}; !bytes.Equal(got, want) {
			t.Errorf("any-key poll emitted %x, want %x", got, want)
		}
	})

	t.Run("magic byte then exit", func(t *testing.T) {
		e, _, out := runProgram(t, behaviorAudioSculptureColor)
		e.Submit(0x42)
		if got, want := out.take(), []byte{0x4B, 0x13}; !bytes.Equal(got, want) {
			t.Errorf("magic reply %x, want %x", got, want)
		}
		e.Tick() // first read after the magic
		e.Tick() // second read exits
		if e.custom.phase != execStandard || e.resetCounter != resetTicks {
			t.Error("program did not exit on the second read")
		}
	})
}
