package ikbd

import "testing"

func TestMemAt(t *testing.T) {
	e, _, _ := newTestEngine(t)
	for _, c := range []struct {
		addr   int
		mapped bool
	}{
		{0x0000, false},
		{0x9FFF, false},
		{0xA000, true},
		{0xA07F, true},
		{0xA080, false},
		{0xAFFF, false},
		{0xB000, true},
		{0xB00F, true},
		{0xB010, true},
		{0xB01F, true},
		{0xB020, false},
		{0xB0FF, false},
		{0xB315, true},
		{0xB400, false},
	} {
		if got := e.memAt(c.addr) != nil; got != c.mapped {
			t.Errorf("memAt(%#x) mapped == %v, want %v", c.addr, got, c.mapped)
		}
	}
}

func TestMemAtBacking(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if p := e.memAt(0xA005); p != &e.scancodes[5] {
		t.Error("0xA005 does not alias the key code table")
	}
	if p := e.memAt(0xB110); p != &e.pads[1].joyMap[0] {
		t.Error("0xB110 does not alias pad 1's joystick map")
	}
	if p := e.memAt(0xB304); p != &e.pads[3].scanMap[4] {
		t.Error("0xB304 does not alias pad 3's key code map")
	}
}

// Reprogramming a live pad through the memory map changes what the
// next report cycle emits.
func TestPadReprogramming(t *testing.T) {
	e, in, out := newTestEngine(t)
	// Put a key code on bit 12 of the lane 1 pad: 0xB100 + 12.
	submit(e, 0x20, 0xB1, 0x0C, 0x01)
	submit(e, 0x42)
	in.joy[1] = 1 << 12
	e.Tick()
	got := out.take()
	if len(got) == 0 || got[0] != 0x42 {
		t.Errorf("reprogrammed pad emitted %x, want key code 42 first", got)
	}
}
