// Package iohelper releases HTTP response bodies so pooled connections can
// be reused between probes.
package iohelper

import (
	"errors"
	"io"
)

// DrainLimit caps how much of a body is read before closing. A body larger
// than this costs its connection instead of stalling the probe loop.
const DrainLimit int64 = 64 * 1024

// DrainAndClose discards up to DrainLimit bytes of r, closes it when it is
// an io.ReadCloser and returns the number of bytes read along with any read
// error other than io.EOF.
func DrainAndClose(r io.Reader) (int64, error) {
	return DrainAndCloseN(r, DrainLimit)
}

// DrainAndCloseN is DrainAndClose with an explicit limit. A limit <= 0
// closes without reading.
func DrainAndCloseN(r io.Reader, limit int64) (int64, error) {
	if r == nil {
		return 0, nil
	}

	var (
		n   int64
		err error
	)
	if limit > 0 {
		n, err = io.Copy(io.Discard, io.LimitReader(r, limit))
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}

	if rc, ok := r.(io.ReadCloser); ok {
		_ = rc.Close()
	}
	return n, err
}
