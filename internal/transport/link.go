package transport

import (
	"fmt"
	"log"
)

// MaxLineLen bounds a buffered partial line. Longer lines are discarded so a
// corrupted stream cannot grow the buffer without bound.
const MaxLineLen = 240

// Link frames one serial port into newline-delimited messages. A background
// goroutine feeds complete lines into Lines; the single control loop drains
// the channel and writes replies inline, so one frame is in flight per link.
type Link struct {
	name  string
	port  Porter
	lines chan string
}

// NewLink wraps port. name appears in logs only.
func NewLink(name string, port Porter) *Link {
	return &Link{
		name:  name,
		port:  port,
		lines: make(chan string, 16),
	}
}

// Name returns the link's log name.
func (l *Link) Name() string { return l.name }

// Lines yields complete inbound frames.
func (l *Link) Lines() <-chan string { return l.lines }

// Start launches the background reader. It returns when the port errors or
// reaches EOF.
func (l *Link) Start() {
	go l.readLoop()
}

func (l *Link) readLoop() {
	buf := make([]byte, 256)
	line := make([]byte, 0, MaxLineLen)
	for {
		n, err := l.port.Read(buf)
		for _, c := range buf[:n] {
			switch {
			case c == '\n':
				if len(line) > 0 {
					l.lines <- string(line)
					line = line[:0]
				}
			case c == '\r':
				// ignored per framing
			case len(line) < MaxLineLen:
				line = append(line, c)
			default:
				// runaway line: drop everything up to the next newline
				line = line[:0]
			}
		}
		if err != nil {
			log.Printf("%s: read: %v", l.name, err)
			return
		}
	}
}

// WriteLine frames and sends one outbound message.
func (l *Link) WriteLine(frame []byte) error {
	out := make([]byte, 0, len(frame)+1)
	out = append(out, frame...)
	out = append(out, '\n')
	if _, err := l.port.Write(out); err != nil {
		return fmt.Errorf("%s: write: %w", l.name, err)
	}
	return nil
}

// Close closes the underlying port, which also stops the reader.
func (l *Link) Close() error {
	return l.port.Close()
}
