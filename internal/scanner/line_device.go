package scanner

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/pkg/errors"
)

type line struct {
	uid     string
	payload string
	err     error
}

// LineDevice adapts readers that emit one tag per line, such as USB
// keyboard-wedge RFID readers or a serial bridge. A line is either "uid"
// or "uid<TAB>payload". End of input means the device is gone.
type LineDevice struct {
	src      io.Reader
	lines    chan line
	done     chan struct{}
	pumpDone chan struct{}
	close    sync.Once
}

func NewLineDevice(r io.Reader) *LineDevice {
	d := &LineDevice{
		src:      r,
		lines:    make(chan line),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go d.pump()
	return d
}

// OpenLineDevice opens path, or stdin when path is empty or "-".
func OpenLineDevice(path string) (*LineDevice, error) {
	if path == "" || path == "-" {
		return NewLineDevice(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrDeviceAbsent, "open %s: %v", path, err)
	}
	return NewLineDevice(f), nil
}

func (d *LineDevice) pump() {
	defer close(d.pumpDone)
	defer close(d.lines)
	sc := bufio.NewScanner(d.src)
	for sc.Scan() {
		uid, payload, _ := strings.Cut(sc.Text(), "\t")
		if !d.send(line{uid: uid, payload: payload}) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		d.send(line{err: errors.Wrap(domain.ErrDeviceAbsent, err.Error())})
	}
}

// send hands a line to Read, giving up once the device is closed.
func (d *LineDevice) send(l line) bool {
	select {
	case d.lines <- l:
		return true
	case <-d.done:
		return false
	}
}

func (d *LineDevice) Read(ctx context.Context) (string, string, error) {
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case l, ok := <-d.lines:
		if !ok {
			return "", "", domain.ErrDeviceAbsent
		}
		return l.uid, l.payload, l.err
	}
}

// Close releases the source. Stdin is left open, its pump exits after the
// next line.
func (d *LineDevice) Close() error {
	d.close.Do(func() { close(d.done) })
	if c, ok := d.src.(io.Closer); ok && d.src != os.Stdin {
		return c.Close()
	}
	return nil
}

// Unavailable stands in for a reader that could not be opened. Every Read
// fails with ErrDeviceAbsent, so the kiosk reports the reader as lost and
// keeps serving the rest of the flow.
func Unavailable(cause error) Device {
	return unavailable{cause: cause}
}

type unavailable struct {
	cause error
}

func (u unavailable) Read(context.Context) (string, string, error) {
	return "", "", errors.Wrap(domain.ErrDeviceAbsent, u.cause.Error())
}

func (unavailable) Close() error { return nil }
