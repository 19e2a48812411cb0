// Package transport provides the newline-delimited serial links to the host
// controller and the local diagnostic console.
package transport

import (
	"io"

	"go.bug.st/serial"
)

// Porter is the minimal interface needed for a serial port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Open opens a real serial port at path with the link settings used by the
// CP front-end (115200 8N1).
func Open(path string) (Porter, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(path, mode)
}
