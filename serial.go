package main

import (
	"fmt"
	"log"

	"github.com/jacobsa/go-serial/serial"
)

// bridgeSerial connects the controller to a real serial device: bytes
// read from the device are host commands, and everything the
// controller emits is written back. This lets an actual ST (or
// anything speaking the protocol) use the emulated controller.
func (r *runner) bridgeSerial(dev string, baud uint) error {
	options := serial.OpenOptions{
		PortName:        dev,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("serial: %v", err)
	}

	r.addSink(func(b byte) {
		if _, err := port.Write([]byte{b}); err != nil {
			log.Printf("serial: write: %v", err)
		}
	})

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := port.Read(buf)
			if err != nil {
				log.Fatalf("serial: read: %v", err)
			}
			for _, b := range buf[:n] {
				r.Submit(b)
			}
		}
	}()
	return nil
}
