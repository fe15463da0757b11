package ikbd

// The memory load and read commands address a 16-bit controller
// space. Only a few ranges are backed: each virtual joypad's key code
// and joystick-bit maps at 0xB000 + pad*0x100, and the default key
// code table at 0xA000. Everything else is unmapped: reads return
// zero and writes are discarded.

// memAt resolves a controller address to the backing byte, or nil if
// the address is unmapped.
func (e *Engine) memAt(addr int) *byte {
	switch {
	case addr >= 0xA000 && addr < 0xA080:
		return &e.scancodes[addr-0xA000]
	case addr >= 0xB000 && addr < 0xB400:
		pad := &e.pads[(addr>>8)&3]
		switch off := addr & 0xFF; {
		case off < 0x10:
			return &pad.scanMap[off]
		case off < 0x20:
			return &pad.joyMap[off-0x10]
		}
	}
	return nil
}

// defaultScancodes maps raw key numbers to the key codes reported to
// the host. Zero entries are keys with no mapping.
var defaultScancodes = [128]byte{
	0x5B, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x29, 0x00, 0x70,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
	0x18, 0x19, 0x1A, 0x1B, 0x00, 0x6D, 0x6E, 0x6F,
	0x1E, 0x1F, 0x20, 0x21, 0x22, 0x23, 0x24, 0x25,
	0x26, 0x27, 0x28, 0x2B, 0x00, 0x6A, 0x6B, 0x6C,
	0x60, 0x2C, 0x2D, 0x2E, 0x2F, 0x30, 0x31, 0x32,
	0x33, 0x34, 0x35, 0x00, 0x71, 0x67, 0x68, 0x69,
	0x39, 0x0E, 0x0F, 0x72, 0x1C, 0x01, 0x53, 0x00,
	0x00, 0x00, 0x4A, 0x62, 0x48, 0x50, 0x4D, 0x4B,
	0x3B, 0x3C, 0x3D, 0x3E, 0x3F, 0x40, 0x41, 0x42,
	0x43, 0x44, 0x63, 0x64, 0x65, 0x66, 0x4E, 0x62,
	0x2A, 0x36, 0x3A, 0x1D, 0x38, 0x4C, 0x56, 0x57,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x61,
	0x47, 0x52, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x59, 0x5A, 0x5C, 0x5D, 0x37, 0x00,
}

// defaultPadA feeds lanes 0 and 2: a plain joystick with fire on bit
// 0 and directions on bits 12-15, no key codes.
var defaultPadA = joypad{
	joyMap: [16]byte{
		0: joyBitFire,
		12: joyBitDown, 13: joyBitRight, 14: joyBitUp, 15: joyBitLeft,
	},
}

// defaultPadB feeds lanes 1 and 3: a CD32-style pad whose shoulder
// and colour buttons double as key codes 20-25 and 30-31, with the
// red/blue buttons also mapping onto fire+direction combinations.
var defaultPadB = joypad{
	scanMap: [16]byte{
		4: 20, 5: 21, 6: 22, 7: 23,
		8: 24, 9: 25, 10: 30, 11: 31,
	},
	joyMap: [16]byte{
		0: joyBitFire,
		1: joyBitUp,
		2: joyBitFire | joyBitUp,
		3: joyBitFire | joyBitDown,
		12: joyBitDown, 13: joyBitRight, 14: joyBitUp, 15: joyBitLeft,
	},
}
