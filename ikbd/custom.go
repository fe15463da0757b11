package ikbd

// A minority of games and demos upload their own 6301 machine code
// into the controller's RAM and run it in place of the ROM. The code
// itself is not emulated; instead the upload is checksummed, and a
// recognised program gets a behavioural stand-in that reproduces its
// observable byte protocol.
//
// Running a program is a two step process on the real controller: a
// small boot stub is sent with the memory load command and started
// with execute, then the stub itself receives the main program over
// the serial line and jumps to it. That maps onto the phases below:
// the load-stage checksum identifies the boot stub, after which every
// raw byte feeds a second checksum until it and the byte count match
// a known main program, whose read/write behaviour then takes over.
// The only ways back out are a reset from the host or the program's
// own exit action.

// crcPoly is the cyclic checksum polynomial used to fingerprint
// uploads: CRC-32, most significant bit first, seeded with all ones
// and with no final complement.
const (
	crcPoly = 0x04C11DB7
	crcInit = 0xFFFFFFFF
)

func crcAdd(crc uint32, b byte) uint32 {
	for bit := 0; bit < 8; bit++ {
		if (b&0x80 != 0) != (crc&0x80000000 != 0) {
			crc = crc<<1 ^ crcPoly
		} else {
			crc <<= 1
		}
		b <<= 1
	}
	return crc
}

type execPhase int

const (
	execStandard execPhase = iota // commands dispatch normally
	execLoading                   // raw bytes land in controller RAM
	execMatched                   // boot stub recognised, awaiting execute
	execBoot                      // executing; accumulating the main program
	execMain                      // executing a recognised program
)

// behavior selects which program's stand-in handles reads and writes
// while in execMain.
type behavior int

const (
	behaviorFroggies behavior = iota
	behaviorTransbeauce2
	behaviorDragonnels
	behaviorChaosAD
	behaviorAudioSculptureColor
	behaviorAudioSculptureMono
)

type program struct {
	loadCRC  uint32 // checksum of the boot stub sent via memory load
	mainLen  int    // length of the main program
	mainCRC  uint32 // checksum of the main program
	behavior behavior
	name     string
}

var programs = []program{
	{0x2EFB11B1, 167, 0xE7110B6D, behaviorFroggies, "Froggies Over The Fence Main Menu"},
	{0xADB6B503, 165, 0x5617C33C, behaviorTransbeauce2, "Transbeauce 2 Main Menu"},
	{0x33C23CDF, 83, 0xDF3E5A88, behaviorDragonnels, "Dragonnels Main Menu"},
	{0x9AD7FCDF, 109, 0xA11D8BE5, behaviorChaosAD, "Chaos A.D."},
	{0xBC0C206D, 91, 0x119B26ED, behaviorAudioSculptureColor, "Audio Sculpture Color"},
	{0xBC0C206D, 91, 0x63B5F4DF, behaviorAudioSculptureMono, "Audio Sculpture Mono"},
}

type customState struct {
	phase execPhase
	prog  int // index into programs, valid in execMain

	loadAddr      int
	loadRemaining int
	crc           uint32
	bootCount     int

	// Per-program state. Initialised once per Engine, never on reset,
	// matching the one-shot lifetime of the programs it stands in for.
	chaosFirstRead bool
	chaosIgnore    int
	chaosIndex     int
	chaosCount     int
	asMagic        bool
	asReadCount    int
}

func (c *customState) init() {
	c.chaosFirstRead = true
	c.chaosIgnore = 8
}

// teardown drops an in-progress load or a running program on reset.
// A boot stub that was matched but not yet executed stays armed, as
// it does on the real hardware path this reproduces.
func (c *customState) teardown() {
	switch c.phase {
	case execLoading, execBoot, execMain:
		c.phase = execStandard
		c.loadRemaining = 0
	}
}

func (c *customState) beginLoad(addr, n int) {
	c.loadAddr = addr
	c.loadRemaining = n
	c.crc = crcInit
	if n > 0 {
		c.phase = execLoading
	}
}

// loadMemoryByte stores one raw byte of a memory load, folding it
// into the load-stage checksum. When the final byte arrives the
// checksum either identifies a known boot stub or the upload is left
// inert.
func (e *Engine) loadMemoryByte(b byte) {
	c := &e.custom
	c.crc = crcAdd(c.crc, b)

	if p := e.memAt(c.loadAddr); p != nil {
		*p = b
	}
	c.loadAddr++

	c.loadRemaining--
	if c.loadRemaining > 0 {
		return
	}

	for _, p := range programs {
		if p.loadCRC == c.crc {
			c.phase = execMatched
			c.crc = crcInit
			c.bootCount = 0
			return
		}
	}
	c.phase = execStandard
}

// bootWrite accumulates the main program while the boot stub runs.
// Byte count and checksum together select the steady-state behaviour;
// until they match, bytes keep accumulating.
func (e *Engine) bootWrite(b byte) {
	c := &e.custom
	c.crc = crcAdd(c.crc, b)
	c.bootCount++

	for i, p := range programs {
		if p.mainLen == c.bootCount && p.mainCRC == c.crc {
			c.phase = execMain
			c.prog = i
			return
		}
	}
}

// customWrite handles a raw inbound byte while a program is
// executing; the standard dispatcher is bypassed entirely.
func (e *Engine) customWrite(b byte) {
	if e.custom.phase == execBoot {
		e.bootWrite(b)
		return
	}
	switch programs[e.custom.prog].behavior {
	case behaviorFroggies:
		e.froggiesWrite(b)
	case behaviorDragonnels:
		e.dragonnelsWrite(b)
	case behaviorChaosAD:
		e.chaosWrite(b)
	case behaviorAudioSculptureColor, behaviorAudioSculptureMono:
		e.audioSculptureWrite(b)
	case behaviorTransbeauce2:
		// Writes are ignored; the menu only polls.
	}
}

// customReadEvent runs the executing program's read handler after a
// tick or key event. The boot stub has none.
func (e *Engine) customReadEvent() {
	if e.custom.phase != execMain {
		return
	}
	switch programs[e.custom.prog].behavior {
	case behaviorTransbeauce2:
		e.transbeauce2Read()
	case behaviorChaosAD:
		e.chaosRead()
	case behaviorAudioSculptureColor:
		e.audioSculptureRead(true)
	case behaviorAudioSculptureMono:
		e.audioSculptureRead(false)
	}
}

// Froggies Over The Fence menu. Writing a byte with the top bit set
// makes the program exit back to the ROM. Writing n in 1..4 asks for
// the top n bytes of a 4-byte status block: mouse/cursor vertical
// motion, horizontal motion, left button state and a fixed 0xFC. The
// menu asks for 1 byte, then 4, and uses the last two.
func (e *Engine) froggiesWrite(b byte) {
	if b&0x80 != 0 {
		e.bootROM(false)
		return
	}

	var res80, res81, res82 byte
	const res83 = 0xFC // fixed filler, read but unused

	if e.mouse.deltaY < 0 {
		res80 = 0x7A // mouse up
	}
	if e.mouse.deltaY > 0 {
		res80 = 0x06 // mouse down
	}
	if e.mouse.deltaX < 0 {
		res81 = 0x7A // mouse left
	}
	if e.mouse.deltaX > 0 {
		res81 = 0x06 // mouse right
	}
	if e.lButton&buttonMouse != 0 {
		res82 |= 0x80
	}

	if e.keyDown[0x48] {
		res80 |= 0x7A // up
	}
	if e.keyDown[0x50] {
		res80 |= 0x06 // down
	}
	if e.keyDown[0x4B] {
		res81 |= 0x7A // left
	}
	if e.keyDown[0x4D] {
		res81 |= 0x06 // right
	}
	if e.keyDown[0x70] {
		res82 |= 0x80 // keypad 0
	}

	res80 |= res82 // bit 7 carries the left button everywhere
	res81 |= res82

	switch b {
	case 1:
		e.send(res80)
	case 4:
		e.send(res83)
		e.send(res82)
		e.send(res81)
		e.send(res80)
	}
}

// Transbeauce 2 menu: one byte per poll with cursor keys, help and
// space on bits 0-3 and 6-7, merged with joystick 1's directions and
// fire.
func (e *Engine) transbeauce2Read() {
	var res byte
	if e.keyDown[0x48] {
		res |= 0x01 // up
	}
	if e.keyDown[0x50] {
		res |= 0x02 // down
	}
	if e.keyDown[0x4B] {
		res |= 0x04 // left
	}
	if e.keyDown[0x4D] {
		res |= 0x08 // right
	}
	if e.keyDown[0x62] {
		res |= 0x40 // help
	}
	if e.keyDown[0x39] {
		res |= 0x80 // space
	}
	res |= e.joy.data[1] & 0x8F
	e.send(res)
}

// Dragonnels menu: any write is answered with one byte holding the
// vertical mouse direction, or 0x80 while the left button is down.
func (e *Engine) dragonnelsWrite(byte) {
	var res byte
	if e.mouse.deltaY < 0 {
		res = 0xFC // mouse up
	}
	if e.mouse.deltaY > 0 {
		res = 0x04 // mouse down
	}
	if e.lButton&buttonMouse != 0 {
		res = 0x80
	}
	e.send(res)
}

// Chaos A.D.'s copy protection decoder. The program announces itself
// with 0xFE, swallows the 8 key bytes it already holds, then XORs the
// following 6081 bytes against the rotating key and echoes each one.
// After the stream, a write of 0x08 terminates it.
var chaosKey = [8]byte{0xCA, 0x0A, 0xBC, 0x00, 0xDE, 0xDE, 0xFE, 0xCA}

func (e *Engine) chaosRead() {
	if e.custom.chaosFirstRead {
		e.send(0xFE)
	}
	e.custom.chaosFirstRead = false
}

func (e *Engine) chaosWrite(b byte) {
	c := &e.custom
	if c.chaosIgnore > 0 {
		c.chaosIgnore--
		return
	}

	if c.chaosCount <= 6080 {
		c.chaosCount++
		b ^= chaosKey[c.chaosIndex]
		c.chaosIndex = (c.chaosIndex + 1) & 0x07
		e.send(b)
		return
	}

	if b == 0x08 {
		e.bootROM(false)
	}
}

// Audio Sculpture's decryption helper. The intro stage reports the
// space key (colour mode) or any key at all (mono mode). Sending the
// magic byte 0x42 answers with the two key bytes 0x4B 0x13, after
// which the program exits on the second read.
func (e *Engine) audioSculptureRead(colorMode bool) {
	c := &e.custom
	if c.asMagic {
		c.asReadCount++
		if c.asReadCount == 2 {
			e.bootROM(false)
			c.asMagic = false
			c.asReadCount = 0
		}
		return
	}

	if (!colorMode && e.anyKeyDown()) || e.keyDown[0x39] {
		e.send(0x39) // space
	}
}

func (e *Engine) audioSculptureWrite(b byte) {
	if b == 0x42 {
		e.custom.asMagic = true
		e.send(0x4B)
		e.send(0x13)
	}
}

func (e *Engine) anyKeyDown() bool {
	for _, down := range e.keyDown {
		if down {
			return true
		}
	}
	return false
}
