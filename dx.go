// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DX 16-bit word layout.
const (
	// dxAzimuthMarker starts a new beam when a word equals it exactly.
	dxAzimuthMarker = 0x2000
	// dxZeroRunFlag marks a zero-compression word whose low 12 bits hold the
	// run length.
	dxZeroRunFlag = 0x1000
	// dxValueMask extracts the 12-bit payload of marker and run words.
	dxValueMask = 0x0FFF
	// dxClutterFlag marks clutter-filtered bins.
	dxClutterFlag = 0x8000
	// dxDataMask extracts the 13-bit RVP6 bin value.
	dxDataMask = 0x1FFF
	// dxBeamHeaderWords is the per-beam prefix: marker, azimuth, elevation.
	dxBeamHeaderWords = 3
	// dxElevProfileLen is the number of fixed-width EP elevation fields.
	dxElevProfileLen = 8
)

// DXHeader is the parsed metadata record of one DX polar product file.
type DXHeader struct {
	// ClutterMap is the CO clutter map flag.
	ClutterMap *int `json:"clutter_map,omitempty" yaml:"clutter_map,omitempty"`
	// DopplerFilter is the CD doppler filter flag.
	DopplerFilter *int `json:"doppler_filter,omitempty" yaml:"doppler_filter,omitempty"`
	// StatFilter is the CS statistic filter flag.
	StatFilter *int `json:"stat_filter,omitempty" yaml:"stat_filter,omitempty"`

	// Product is the two-letter product code ("DX").
	Product string `json:"product" yaml:"product"`
	// RadarID is the five-digit radar site id.
	RadarID string `json:"radar_id" yaml:"radar_id"`
	// Version is the VS format version field.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Message is free-form trailing header text.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Timestamp is the scan time in UTC.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// ElevProfile lists the EP scan elevations in degrees.
	ElevProfile []float64 `json:"elev_profile,omitempty" yaml:"elev_profile,omitempty"`

	// ByteCount is the total product length declared by BY.
	ByteCount int `json:"byte_count" yaml:"byte_count"`
}

// DXScan is one decoded DX polar scan.
type DXScan struct {
	// Header is the parsed file header.
	Header *DXHeader `json:"header" yaml:"header"`
	// Beams holds per-beam reflectivity in dBZ.
	Beams [][]float64 `json:"beams" yaml:"beams"`
	// Clutter flags clutter-filtered bins, aligned with Beams.
	Clutter [][]bool `json:"clutter" yaml:"clutter"`
	// Azimuths lists per-beam azimuth angles in degrees.
	Azimuths []float64 `json:"azimuths" yaml:"azimuths"`
	// Elevations lists per-beam elevation angles in degrees.
	Elevations []float64 `json:"elevations" yaml:"elevations"`
}

// ReadDX decodes one DX polar product file, transparently decompressing
// gzip. The handle is released on every exit path.
func ReadDX(path string) (*DXScan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DX: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadDXFrom(f)
}

// ReadDXFrom decodes one DX polar product from an existing caller-owned
// stream.
func ReadDXFrom(rd io.Reader) (*DXScan, error) {
	br, gz, err := resolveStream(rd)
	if err != nil {
		return nil, err
	}
	if gz != nil {
		defer func() { _ = gz.Close() }()
	}

	headerText, etxCount, err := readDXHeader(br)
	if err != nil {
		return nil, err
	}

	header, err := ParseDXHeader(headerText)
	if err != nil {
		return nil, err
	}

	// Some DX files carry a second ETX; with an even declared length that
	// leaves one stray byte which must not shift the 16-bit word stream.
	dataLen := header.ByteCount - len(headerText) - etxCount
	if dataLen < 0 {
		return nil, fmt.Errorf("%w: BY %d shorter than header", ErrInvalidTokenValue, header.ByteCount)
	}
	dataLen -= dataLen % 2

	payload, _, err := readBinaryPayload(br, dataLen, false)
	if err != nil {
		return nil, err
	}

	scan := &DXScan{Header: header}
	decodeDXBeams(payload, scan)

	return scan, nil
}

// readDXHeader consumes the ASCII header up to the ETX terminator and
// returns the text plus the number of consecutive ETX bytes consumed.
func readDXHeader(br *bufio.Reader) (string, int, error) {
	text, err := readHeader(br)
	if err != nil {
		return "", 0, err
	}

	etxCount := 1
	for {
		next, err := br.Peek(1)
		if err != nil || next[0] != etx {
			break
		}

		_, _ = br.ReadByte()
		etxCount++
	}

	return text, etxCount, nil
}

// ParseDXHeader parses one DX header string (without ETX terminators) into
// a DXHeader. Fields of absent tokens stay unset.
func ParseDXHeader(header string) (*DXHeader, error) {
	if len(header) < prefixSize {
		return nil, fmt.Errorf("%w: %d of %d prefix characters", ErrHeaderTooShort, len(header), prefixSize)
	}

	h := &DXHeader{
		Product: header[0:2],
		RadarID: header[8:13],
	}

	ts, err := parseHeaderTimestamp(header)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts

	if err := parseDXTokens(header, h); err != nil {
		return nil, err
	}

	if h.ByteCount == 0 {
		return nil, fmt.Errorf("%w: BY", ErrMissingToken)
	}

	return h, nil
}

// dxTokenIndex returns the leftmost anchor of key past the fixed prefix.
func dxTokenIndex(header, key string) int {
	pos := strings.Index(header[prefixSize:], key)
	if pos < 0 {
		return -1
	}

	return pos + prefixSize
}

// parseDXTokens fills h from the fixed-width DX token fields.
func parseDXTokens(header string, h *DXHeader) error {
	if pos := dxTokenIndex(header, "BY"); pos >= 0 {
		count, err := atoiTrim(sliceField(header, pos+2, 5))
		if err != nil {
			return tokenErr("BY", sliceField(header, pos+2, 5))
		}
		h.ByteCount = count
	}

	if pos := dxTokenIndex(header, "VS"); pos >= 0 {
		h.Version = strings.TrimSpace(sliceField(header, pos+2, 2))
	}

	for _, flag := range []struct {
		dst **int
		key string
	}{
		{&h.ClutterMap, "CO"},
		{&h.DopplerFilter, "CD"},
		{&h.StatFilter, "CS"},
	} {
		pos := dxTokenIndex(header, flag.key)
		if pos < 0 {
			continue
		}

		value, err := atoiTrim(sliceField(header, pos+2, 1))
		if err != nil {
			return tokenErr(Token(flag.key), sliceField(header, pos+2, 1))
		}
		*flag.dst = &value
	}

	if pos := dxTokenIndex(header, "EP"); pos >= 0 {
		profile := make([]float64, 0, dxElevProfileLen)
		for i := 0; i < dxElevProfileLen; i++ {
			field := sliceField(header, pos+2+3*i, 3)
			elev, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return tokenErr("EP", field)
			}
			profile = append(profile, elev)
		}
		h.ElevProfile = profile
	}

	if pos := dxTokenIndex(header, "MS"); pos >= 0 {
		// MS carries a 3-character count followed by the message text.
		if pos+5 <= len(header) {
			h.Message = header[pos+5:]
		}
	}

	return nil
}

// sliceField returns the fixed-width field at pos, clamped to the header.
func sliceField(header string, pos, width int) string {
	if pos >= len(header) {
		return ""
	}
	if pos+width > len(header) {
		return header[pos:]
	}

	return header[pos : pos+width]
}

// decodeDXBeams splits the 16-bit word stream at azimuth markers and unpacks
// each beam's zero runs, clutter flags and RVP6 values (converted to dBZ).
func decodeDXBeams(payload []byte, scan *DXScan) {
	words := make([]uint16, len(payload)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(payload[i*2:])
	}

	starts := make([]int, 0, 512)
	for i, w := range words {
		if w == dxAzimuthMarker {
			starts = append(starts, i)
		}
	}
	starts = append(starts, len(words))

	for i := 0; i+1 < len(starts); i++ {
		start, end := starts[i], starts[i+1]
		if start+dxBeamHeaderWords > end {
			continue
		}

		scan.Azimuths = append(scan.Azimuths, float64(words[start+1]&dxValueMask)/10)
		scan.Elevations = append(scan.Elevations, float64(words[start+2]&dxValueMask)/10)

		bins := unpackDXBeam(words[start+dxBeamHeaderWords : end])
		beam := make([]float64, len(bins))
		clutter := make([]bool, len(bins))
		for j, w := range bins {
			clutter[j] = w&dxClutterFlag != 0
			// RVP6 units to dBZ.
			beam[j] = float64(w&dxDataMask)*0.5 - 32.5
		}

		scan.Beams = append(scan.Beams, beam)
		scan.Clutter = append(scan.Clutter, clutter)
	}
}

// unpackDXBeam expands the zero-compression words of one beam.
func unpackDXBeam(words []uint16) []uint16 {
	out := make([]uint16, 0, 128)
	for _, w := range words {
		if w&dxZeroRunFlag != 0 {
			run := int(w & dxValueMask)
			for i := 0; i < run; i++ {
				out = append(out, 0)
			}
			continue
		}

		out = append(out, w)
	}

	return out
}

// TimestampFromFilename extracts the UTC timestamp embedded in a RADOLAN or
// DX filename such as "raa00-dx_10488-0608050000-drs---bin". Both ten-digit
// (two-digit year, 1970 pivot) and twelve-digit forms are recognized.
func TimestampFromFilename(name string) (time.Time, error) {
	parts := strings.Split(filepath.Base(name), "-")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	ts := parts[2]
	var year int
	switch len(ts) {
	case 12:
		y, err := atoiStrict(ts[0:4])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
		}
		year, ts = y, ts[4:]
	case 10:
		yy, err := atoiStrict(ts[0:2])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
		}
		year, ts = expandYear(yy), ts[2:]
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	month, err1 := atoiStrict(ts[0:2])
	day, err2 := atoiStrict(ts[2:4])
	hour, err3 := atoiStrict(ts[4:6])
	minute, err4 := atoiStrict(ts[6:8])
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

// DXTimestamp extracts the UTC scan time from a DX product filename.
func DXTimestamp(name string) (time.Time, error) {
	return TimestampFromFilename(name)
}
