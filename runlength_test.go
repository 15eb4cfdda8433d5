package radolan

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

// rleTestLine encodes one 460-cell line: line number, offset 136, then
// 18 runs of 15 nines and one run of 13 nines.
var rleTestLine = append(append([]byte{0x10, 0x98}, bytes.Repeat([]byte{0xf9}, 18)...), 0xd9)

func TestDecodeRunLengthLine_Golden(t *testing.T) {
	t.Parallel()

	got := decodeRunLengthLine(rleTestLine, 460, 0)
	if len(got) != 460 {
		t.Fatalf("len=%d, want 460", len(got))
	}

	for i := 0; i < 136; i++ {
		if got[i] != 0 {
			t.Fatalf("cell %d=%v, want 0 (offset)", i, got[i])
		}
	}
	for i := 136; i < 136+283; i++ {
		if got[i] != 9 {
			t.Fatalf("cell %d=%v, want 9", i, got[i])
		}
	}
	for i := 136 + 283; i < 460; i++ {
		if got[i] != 0 {
			t.Fatalf("cell %d=%v, want 0 (shortfall)", i, got[i])
		}
	}
}

func TestDecodeRunLengthLine_LineNumberOnly(t *testing.T) {
	t.Parallel()

	got := decodeRunLengthLine([]byte{0x10}, 460, 0)
	if len(got) != 460 {
		t.Fatalf("len=%d, want 460", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("cell %d=%v, want 0", i, v)
		}
	}
}

func TestDecodeRunLengthLine_NoDataSentinel(t *testing.T) {
	t.Parallel()

	// Offset 2, then two cells of value 3.
	got := decodeRunLengthLine([]byte{0x00, 0x12, 0x23}, 6, 255)
	want := []float64{255, 255, 3, 3, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell %d=%v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeRunLengthLine_Overlong(t *testing.T) {
	t.Parallel()

	// 15 cells of value 1 truncated to 4 columns.
	got := decodeRunLengthLine([]byte{0x00, 0x10, 0xf1}, 4, 255)
	if len(got) != 4 {
		t.Fatalf("len=%d, want 4", len(got))
	}
	for i, v := range got {
		if v != 1 {
			t.Fatalf("cell %d=%v, want 1", i, v)
		}
	}
}

func TestReadRunLengthLine(t *testing.T) {
	t.Parallel()

	payload := append(append([]byte{}, rleTestLine...), lineFeed, eot)
	br := bufio.NewReader(bytes.NewReader(payload))

	line, err := readRunLengthLine(br)
	if err != nil {
		t.Fatalf("readRunLengthLine: %v", err)
	}
	if !bytes.Equal(line, rleTestLine) {
		t.Fatalf("line=%x, want %x", line, rleTestLine)
	}

	line, err = readRunLengthLine(br)
	if err != nil {
		t.Fatalf("readRunLengthLine at EOT: %v", err)
	}
	if line != nil {
		t.Fatalf("line=%x, want nil at EOT", line)
	}
}

func TestDecodeRunLengthGrid(t *testing.T) {
	t.Parallel()

	payload := []byte{
		0x10, 0x12, 0x29, lineFeed, // offset 2, two nines
		0x11, 0x10, 0x41, lineFeed, // four ones
		eot,
	}

	got, err := decodeRunLengthGrid(payload, 2, 4, 255, false)
	if err != nil {
		t.Fatalf("decodeRunLengthGrid: %v", err)
	}

	want := []float64{255, 255, 9, 9, 1, 1, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell %d=%v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeRunLengthGrid_Short(t *testing.T) {
	t.Parallel()

	payload := []byte{0x10, 0x10, 0x41, lineFeed, eot}

	_, err := decodeRunLengthGrid(payload, 3, 4, 255, false)
	if !errors.Is(err, ErrTruncatedPayload) {
		t.Fatalf("expected ErrTruncatedPayload, got %v", err)
	}

	got, err := decodeRunLengthGrid(payload, 3, 4, 255, true)
	if err != nil {
		t.Fatalf("decodeRunLengthGrid fill: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len=%d, want 12", len(got))
	}
	for i := 4; i < 12; i++ {
		if got[i] != 255 {
			t.Fatalf("padded cell %d=%v, want 255", i, got[i])
		}
	}
}
