// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// readBinaryPayload reads exactly size bytes of payload from r. A short read
// fails with ErrTruncatedPayload unless fillMissing is set, in which case the
// remainder is zero-padded and the short read is reported via the truncated
// flag and a warning.
func readBinaryPayload(r io.Reader, size int, fillMissing bool) ([]byte, bool, error) {
	if size < 0 {
		return nil, false, fmt.Errorf("%w: negative size %d", ErrTruncatedPayload, size)
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return buf, false, nil
	}

	if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("read payload: %w", err)
	}

	if !fillMissing {
		return nil, false, fmt.Errorf("%w: read %d of %d bytes", ErrTruncatedPayload, n, size)
	}

	glog.Warningf("radolan: truncated payload recovered: read %d of %d bytes, zero-padding remainder", n, size)
	clear(buf[n:])

	return buf, true, nil
}
