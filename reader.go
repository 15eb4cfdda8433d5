// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
)

// Reader provides access to one RADOLAN composite product. The header is
// parsed eagerly; the payload is decoded on the first Grid call. An open
// Reader whose Grid was never called is the deferred-read handle for
// header-only workflows: the stream stays open until Close.
type Reader struct {
	// br reads decompressed product bytes.
	br *bufio.Reader
	// gz is set when the source was gzip-compressed.
	gz *gzip.Reader
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// header is the eagerly parsed product header.
	header *CompositeHeader
	// grid caches the decoded payload.
	grid *Grid
	// name is the source path when opened from disk.
	name string
	// opts are the decode options fixed at open time.
	opts Options
	// mu guards lazy decode state and close.
	mu sync.Mutex
	// loaded reports whether the payload was already decoded.
	loaded bool
	// closed reports whether Close was already called.
	closed bool
}

// Open opens a RADOLAN product file, transparently decompressing gzip, and
// parses its header. The caller must Close the returned Reader.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions opens a RADOLAN product file using explicit decode options.
func OpenWithOptions(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open RADOLAN: %w", err)
	}

	r, err := newReader(f, path, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReader parses a RADOLAN product header from an existing stream,
// transparently decompressing gzip. The stream stays caller-owned.
func NewReader(rd io.Reader) (*Reader, error) {
	return NewReaderWithOptions(rd, Options{})
}

// NewReaderWithOptions parses a RADOLAN product header from an existing
// stream using explicit decode options.
func NewReaderWithOptions(rd io.Reader, opts Options) (*Reader, error) {
	return newReader(rd, "", opts)
}

// newReader resolves compression, reads and parses the header.
func newReader(rd io.Reader, name string, opts Options) (*Reader, error) {
	br, gz, err := resolveStream(rd)
	if err != nil {
		return nil, err
	}

	headerText, err := readHeader(br)
	if err != nil {
		if gz != nil {
			_ = gz.Close()
		}
		return nil, err
	}

	header, err := ParseCompositeHeader(headerText)
	if err != nil {
		if gz != nil {
			_ = gz.Close()
		}
		return nil, err
	}

	return &Reader{br: br, gz: gz, header: header, name: name, opts: opts}, nil
}

// resolveStream wraps rd into a buffered reader, transparently stacking a
// gzip reader when the leading magic bytes indicate compression.
func resolveStream(rd io.Reader) (*bufio.Reader, *gzip.Reader, error) {
	br := bufio.NewReader(rd)

	magic, err := br.Peek(2)
	if err != nil || magic[0] != gzipMagic0 || magic[1] != gzipMagic1 {
		// Not compressed (or too short to tell; the header read will fail
		// with a precise error).
		return br, nil, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip: %w", err)
	}

	return bufio.NewReader(gz), gz, nil
}

// Name returns the source path when the Reader was opened from disk.
func (r *Reader) Name() string {
	if r == nil {
		return ""
	}

	return r.name
}

// Header returns the parsed product header.
func (r *Reader) Header() *CompositeHeader {
	if r == nil {
		return nil
	}

	return r.header
}

// Grid decodes the payload into a grid of shape (Rows, Cols). The result is
// cached; repeated calls return the same grid. Decoding attaches the no-data
// sentinel to the header's NoDataFlag.
func (r *Reader) Grid() (*Grid, error) {
	if r == nil {
		return nil, ErrNilReader
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.loaded {
		return r.grid, nil
	}

	grid, err := r.decode()
	if err != nil {
		return nil, err
	}

	r.grid = grid
	r.loaded = true
	return grid, nil
}

// decode reads the payload and dispatches to the encoding of the product
// family.
func (r *Reader) decode() (*Grid, error) {
	h := r.header

	enc, ok := productEncoding[h.Product]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProduct, h.Product)
	}

	if h.Rows <= 0 || h.Cols <= 0 {
		return nil, fmt.Errorf("%w: GP", ErrMissingToken)
	}

	if h.RadarID != compositeRadarID {
		glog.Warningf("radolan: %s product from radar %s is not a composite; results may be incomplete", h.Product, h.RadarID)
	}

	payload, truncated, err := readBinaryPayload(r.br, h.DataSize, r.opts.FillMissing)
	if err != nil {
		return nil, err
	}

	missing := r.opts.missingFor(enc)
	grid := &Grid{Rows: h.Rows, Cols: h.Cols, Truncated: truncated}

	switch enc {
	case encodingRaw8:
		err = decodeRaw8(payload, grid, missing, r.opts.FillMissing)
	case encodingRaw16:
		err = decodeRaw16(payload, grid, h.precisionOrUnit(), missing, r.opts.FillMissing)
	case encodingRunLength:
		grid.Data, err = decodeRunLengthGrid(payload, h.Rows, h.Cols, float64(missing), r.opts.FillMissing)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedProduct, h.Product)
	}
	if err != nil {
		return nil, err
	}

	h.NoDataFlag = &missing
	return grid, nil
}

// precisionOrUnit returns the PR scale factor, or 1 when the header carries
// no PR token so raw integer codes pass through unscaled.
func (h *CompositeHeader) precisionOrUnit() float64 {
	if h.Precision != 0 {
		return h.Precision
	}

	return 1
}

// decodeRaw8 unpacks one unsigned byte per cell (RVP6 units). The payload is
// stored south to north and is flipped so row 0 is the northernmost row.
func decodeRaw8(payload []byte, grid *Grid, missing int, fillMissing bool) error {
	cells := grid.Rows * grid.Cols
	if len(payload) < cells {
		if !fillMissing {
			return fmt.Errorf("%w: %d payload bytes for %d cells", ErrTruncatedPayload, len(payload), cells)
		}
		payload = append(payload, make([]byte, cells-len(payload))...)
		grid.Truncated = true
	}

	grid.Data = make([]float64, cells)
	for row := 0; row < grid.Rows; row++ {
		src := (grid.Rows - 1 - row) * grid.Cols
		dst := row * grid.Cols
		for col := 0; col < grid.Cols; col++ {
			b := payload[src+col]
			idx := dst + col

			switch b {
			case clutterValue8:
				grid.ClutterMask = append(grid.ClutterMask, idx)
				grid.Data[idx] = float64(b)
			case noDataValue8:
				grid.Data[idx] = float64(missing)
			default:
				grid.Data[idx] = float64(b)
			}
		}
	}

	return nil
}

// decodeRaw16 unpacks one little-endian uint16 per cell. Flag bits are
// extracted before the precision scale is applied; the negative flag negates
// the 12-bit value, the no-data flag substitutes the missing sentinel.
// The payload is stored south to north and is flipped so row 0 is the
// northernmost row.
func decodeRaw16(payload []byte, grid *Grid, precision float64, missing int, fillMissing bool) error {
	cells := grid.Rows * grid.Cols
	if len(payload) < cells*2 {
		if !fillMissing {
			return fmt.Errorf("%w: %d payload bytes for %d cells", ErrTruncatedPayload, len(payload), cells)
		}
		payload = append(payload, make([]byte, cells*2-len(payload))...)
		grid.Truncated = true
	}

	grid.Data = make([]float64, cells)
	for row := 0; row < grid.Rows; row++ {
		src := (grid.Rows - 1 - row) * grid.Cols
		dst := row * grid.Cols
		for col := 0; col < grid.Cols; col++ {
			raw := binary.LittleEndian.Uint16(payload[(src+col)*2:])
			idx := dst + col

			if raw&flagSecondary != 0 {
				grid.Secondary = append(grid.Secondary, idx)
			}
			if raw&flagClutter != 0 {
				grid.ClutterMask = append(grid.ClutterMask, idx)
			}

			value := float64(raw & valueMask)
			if raw&flagNegative != 0 {
				value = -value
			}
			value *= precision

			if raw&flagNoData != 0 {
				value = float64(missing)
			}
			grid.Data[idx] = value
		}
	}

	return nil
}

// Close closes underlying resources the Reader owns. Streams passed to
// NewReader stay open and remain caller-owned.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var gzErr error
	if r.gz != nil {
		gzErr = r.gz.Close()
	}

	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
	}

	return gzErr
}

// ReadFile decodes one RADOLAN product file into a grid and header. The file
// handle is released on every exit path.
func ReadFile(path string) (*Grid, *CompositeHeader, error) {
	return ReadFileWithOptions(path, Options{})
}

// ReadFileWithOptions decodes one RADOLAN product file using explicit decode
// options.
func ReadFileWithOptions(path string, opts Options) (*Grid, *CompositeHeader, error) {
	r, err := OpenWithOptions(path, opts)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = r.Close() }()

	grid, err := r.Grid()
	if err != nil {
		return nil, nil, err
	}

	return grid, r.Header(), nil
}

// Read decodes one RADOLAN product from an existing caller-owned stream.
func Read(rd io.Reader, opts Options) (*Grid, *CompositeHeader, error) {
	r, err := NewReaderWithOptions(rd, opts)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = r.Close() }()

	grid, err := r.Grid()
	if err != nil {
		return nil, nil, err
	}

	return grid, r.Header(), nil
}

// ReadHeaderFile parses only the header of one RADOLAN product file and
// releases the handle immediately. The returned header carries no NoDataFlag
// because no data was decoded.
func ReadHeaderFile(path string) (*CompositeHeader, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Header(), nil
}
