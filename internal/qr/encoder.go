// Package qr renders payment payloads as scannable PNG images.
package qr

import (
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 300

type Encoder struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewEncoder returns an encoder producing size x size PNGs at the high
// error correction level.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Encoder{size: size, level: qrcode.High}
}

func (e *Encoder) Encode(payload []byte) ([]byte, error) {
	png, err := qrcode.Encode(string(payload), e.level, e.size)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr")
	}
	return png, nil
}
