package commands

import (
	"bytes"
	"context"
	"io"
	"os"

	"golang.org/x/term"
)

// Interactive key bindings of the run command.
const (
	keyStats = 's'
	keyFlush = 'f'
	keyQuit  = 'q'
	keyCtrlC = 0x03 // Raw mode delivers Ctrl+C as a byte instead of SIGINT
)

// keyboard reads single key presses from a terminal in raw mode.
type keyboard struct {
	fd    int
	state *term.State
	keys  chan byte
}

// openKeyboard switches f to raw mode and starts reading keys. It returns
// nil if f is not a terminal.
func openKeyboard(ctx context.Context, f *os.File) *keyboard {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil
	}
	k := &keyboard{fd: fd, state: state, keys: make(chan byte, 1)}
	go k.read(ctx, f)
	return k
}

// read forwards key presses until ctx ends or the terminal closes. The
// goroutine stays blocked in Read after ctx ends until the next key.
func (k *keyboard) read(ctx context.Context, r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		select {
		case k.keys <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

// Keys returns the key press channel. A nil keyboard yields a nil channel,
// which blocks forever in a select.
func (k *keyboard) Keys() <-chan byte {
	if k == nil {
		return nil
	}
	return k.keys
}

// Close restores the terminal state.
func (k *keyboard) Close() {
	if k == nil {
		return
	}
	term.Restore(k.fd, k.state)
}

// crlfWriter translates "\n" into "\r\n" while the terminal is in raw mode,
// which disables output post-processing.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
