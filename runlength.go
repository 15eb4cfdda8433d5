// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Run-length byte layout: the first payload byte of each line is the line
// number, the second is the nodata offset biased by 16 (0xFF continues the
// offset into following bytes). Every remaining byte packs a run width in
// the high nibble and a 4-bit cell value in the low nibble. A line feed
// terminates the line, a single EOT byte terminates the payload.
const (
	runLengthOffsetBias   = 16
	runLengthOffsetExtend = 0xFF
)

// readRunLengthLine returns the next newline-framed encoded line from br,
// excluding the line feed. It returns nil at the EOT marker or end of stream.
func readRunLengthLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes(lineFeed)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read run-length line: %w", err)
	}

	line = bytes.TrimSuffix(line, []byte{lineFeed})
	if len(line) == 0 || line[0] == eot {
		return nil, nil
	}

	return line, nil
}

// decodeRunLengthLine expands one encoded line (without its line feed) into
// cols cell values. Offset cells and any trailing shortfall are filled with
// the nodata sentinel; overlong lines are truncated to cols.
func decodeRunLengthLine(line []byte, cols int, nodata float64) []float64 {
	out := make([]float64, 0, cols)

	// line[0] is the line number and carries no cell data.
	pos := 1
	if pos >= len(line) {
		return fillCells(out, cols-len(out), nodata)
	}

	offset := int(line[pos]) - runLengthOffsetBias
	for line[pos] == runLengthOffsetExtend {
		pos++
		if pos >= len(line) {
			return fillCells(out, cols-len(out), nodata)
		}
		offset += int(line[pos]) - runLengthOffsetBias
	}
	pos++

	// The offset pixels were not measured.
	out = fillCells(out, offset, nodata)

	for _, b := range line[pos:] {
		width := int(b >> 4)
		value := float64(b & 0x0F)
		for i := 0; i < width && len(out) < cols; i++ {
			out = append(out, value)
		}
	}

	if len(out) > cols {
		out = out[:cols]
	}

	return fillCells(out, cols-len(out), nodata)
}

// decodeRunLengthGrid expands a run-length payload into a rows*cols cell
// array, first encoded line on top. A payload with fewer lines than rows
// fails with ErrTruncatedPayload unless fillMissing pads the remainder.
func decodeRunLengthGrid(payload []byte, rows, cols int, nodata float64, fillMissing bool) ([]float64, error) {
	br := bufio.NewReader(bytes.NewReader(payload))
	out := make([]float64, 0, rows*cols)

	decoded := 0
	for decoded < rows {
		line, err := readRunLengthLine(br)
		if err != nil {
			return nil, err
		}
		if line == nil {
			break
		}

		out = append(out, decodeRunLengthLine(line, cols, nodata)...)
		decoded++
	}

	if decoded < rows {
		if !fillMissing {
			return nil, fmt.Errorf("%w: run-length payload holds %d of %d lines", ErrTruncatedPayload, decoded, rows)
		}
		out = fillCells(out, (rows-decoded)*cols, nodata)
	}

	return out, nil
}

// fillCells appends n copies of value to cells.
func fillCells(cells []float64, n int, value float64) []float64 {
	for i := 0; i < n; i++ {
		cells = append(cells, value)
	}

	return cells
}
