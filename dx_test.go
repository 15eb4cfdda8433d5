package radolan

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

const dxHeaderModern = "DX021655109080608BY54213VS 2CO0CD2CS0" +
	"EP0.30.30.40.50.50.40.40.4MS999~ 54( 120,  46) 43-31 44 44 50"

const dxHeaderLegacy = "DX010000109080100BY 4173VS 1CO2CD2CS0MS***XXXXXXXX"

func TestParseDXHeader_Modern(t *testing.T) {
	t.Parallel()

	h, err := ParseDXHeader(dxHeaderModern)
	if err != nil {
		t.Fatalf("ParseDXHeader: %v", err)
	}

	if h.Product != "DX" {
		t.Errorf("Product=%q, want DX", h.Product)
	}
	if h.RadarID != "10908" {
		t.Errorf("RadarID=%q, want 10908", h.RadarID)
	}
	if want := time.Date(2008, 6, 2, 16, 55, 0, 0, time.UTC); !h.Timestamp.Equal(want) {
		t.Errorf("Timestamp=%v, want %v", h.Timestamp, want)
	}
	if h.ByteCount != 54213 {
		t.Errorf("ByteCount=%d, want 54213", h.ByteCount)
	}
	if h.Version != "2" {
		t.Errorf("Version=%q, want 2", h.Version)
	}
	assertIntPtr(t, "ClutterMap", h.ClutterMap, 0)
	assertIntPtr(t, "DopplerFilter", h.DopplerFilter, 2)
	assertIntPtr(t, "StatFilter", h.StatFilter, 0)

	wantProfile := []float64{0.3, 0.3, 0.4, 0.5, 0.5, 0.4, 0.4, 0.4}
	if len(h.ElevProfile) != len(wantProfile) {
		t.Fatalf("ElevProfile=%v, want %v", h.ElevProfile, wantProfile)
	}
	for i := range wantProfile {
		if h.ElevProfile[i] != wantProfile[i] {
			t.Errorf("ElevProfile[%d]=%v, want %v", i, h.ElevProfile[i], wantProfile[i])
		}
	}
	if h.Message == "" || h.Message[0] != '~' {
		t.Errorf("Message=%q, want leading site status text", h.Message)
	}
}

func TestParseDXHeader_Legacy(t *testing.T) {
	t.Parallel()

	h, err := ParseDXHeader(dxHeaderLegacy)
	if err != nil {
		t.Fatalf("ParseDXHeader: %v", err)
	}

	if h.ByteCount != 4173 {
		t.Errorf("ByteCount=%d, want 4173", h.ByteCount)
	}
	if h.Version != "1" {
		t.Errorf("Version=%q, want 1", h.Version)
	}
	assertIntPtr(t, "ClutterMap", h.ClutterMap, 2)
	assertIntPtr(t, "DopplerFilter", h.DopplerFilter, 2)
	assertIntPtr(t, "StatFilter", h.StatFilter, 0)
	if h.ElevProfile != nil {
		t.Errorf("ElevProfile=%v, want nil without EP token", h.ElevProfile)
	}
	if h.Message != "XXXXXXXX" {
		t.Errorf("Message=%q, want XXXXXXXX", h.Message)
	}
	if want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC); !h.Timestamp.Equal(want) {
		t.Errorf("Timestamp=%v, want %v", h.Timestamp, want)
	}
}

func TestParseDXHeader_MissingByteCount(t *testing.T) {
	t.Parallel()

	_, err := ParseDXHeader("DX010000109080100VS 1CO2CD2CS0")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestTimestampFromFilename(t *testing.T) {
	t.Parallel()

	want := time.Date(2006, 8, 5, 0, 0, 0, 0, time.UTC)

	got, err := TimestampFromFilename("raa00-dx_10488-200608050000-drs---bin")
	if err != nil {
		t.Fatalf("twelve-digit form: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("twelve-digit form=%v, want %v", got, want)
	}

	got, err = TimestampFromFilename("raa00-dx_10488-0608050000-drs---bin")
	if err != nil {
		t.Fatalf("ten-digit form: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("ten-digit form=%v, want %v", got, want)
	}

	for _, name := range []string{
		"nodashes",
		"raa00-dx_10488-06080500-drs---bin",
		"raa00-dx_10488-06080500xx-drs---bin",
	} {
		if _, err := TimestampFromFilename(name); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("%q: expected ErrInvalidFilename, got %v", name, err)
		}
	}
}

func TestUnpackDXBeam(t *testing.T) {
	t.Parallel()

	words := []uint16{dxZeroRunFlag | 5, 0x0042, dxZeroRunFlag | 2, 0x0041}
	got := unpackDXBeam(words)

	want := []uint16{0, 0, 0, 0, 0, 0x0042, 0, 0, 0x0041}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bin %d=%#x, want %#x", i, got[i], want[i])
		}
	}
}

// buildDXFile assembles a synthetic DX product with one ETX terminator.
func buildDXFile(t *testing.T, words []uint16) []byte {
	t.Helper()

	payload := raw16Words(words)
	build := func(by int) string {
		return fmt.Sprintf("DX021655109080608BY%05dVS 2CO0CD2CS0", by)
	}
	header := build(len(build(0)) + 1 + len(payload))

	buf := append([]byte(header), etx)
	return append(buf, payload...)
}

func TestReadDXFrom_SplitsBeams(t *testing.T) {
	t.Parallel()

	words := []uint16{
		dxAzimuthMarker, 0x8000 | 905, 0x8000 | 5, // beam 0: azim 90.5, elev 0.5
		dxZeroRunFlag | 3, // three empty bins
		65,                // dBZ 0.0
		dxClutterFlag | 65,
		dxAzimuthMarker, 0x8000 | 915, 0x8000 | 5, // beam 1: azim 91.5
		130, // dBZ 32.5
	}

	scan, err := ReadDXFrom(bytes.NewReader(buildDXFile(t, words)))
	if err != nil {
		t.Fatalf("ReadDXFrom: %v", err)
	}

	if len(scan.Beams) != 2 {
		t.Fatalf("beams=%d, want 2", len(scan.Beams))
	}
	if scan.Azimuths[0] != 90.5 || scan.Azimuths[1] != 91.5 {
		t.Errorf("Azimuths=%v, want [90.5 91.5]", scan.Azimuths)
	}
	if scan.Elevations[0] != 0.5 {
		t.Errorf("Elevations[0]=%v, want 0.5", scan.Elevations[0])
	}

	beam := scan.Beams[0]
	if len(beam) != 5 {
		t.Fatalf("beam 0 bins=%d, want 5", len(beam))
	}
	// Zero-run bins decode to the minimum representable reflectivity.
	if beam[0] != -32.5 {
		t.Errorf("bin 0=%v, want -32.5", beam[0])
	}
	if beam[3] != 0.0 {
		t.Errorf("bin 3=%v, want 0.0", beam[3])
	}
	if beam[4] != 0.0 {
		t.Errorf("bin 4=%v, want 0.0", beam[4])
	}
	if !scan.Clutter[0][4] {
		t.Error("bin 4 must carry the clutter flag")
	}
	if scan.Clutter[0][3] {
		t.Error("bin 3 must not carry the clutter flag")
	}

	if scan.Beams[1][0] != 32.5 {
		t.Errorf("beam 1 bin 0=%v, want 32.5", scan.Beams[1][0])
	}

	if scan.Header.ByteCount == 0 {
		t.Error("header ByteCount unset")
	}
}

func TestReadDXFrom_DoubleETX(t *testing.T) {
	t.Parallel()

	words := []uint16{dxAzimuthMarker, 0x8000 | 905, 0x8000 | 5, 65}
	payload := raw16Words(words)

	// BY counts header, both ETX bytes and the payload.
	build := func(by int) string {
		return fmt.Sprintf("DX021655109080608BY%05dVS 2CO0CD2CS0", by)
	}
	header := build(len(build(0)) + 2 + len(payload))

	buf := append([]byte(header), etx, etx)
	buf = append(buf, payload...)

	scan, err := ReadDXFrom(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadDXFrom: %v", err)
	}
	if len(scan.Beams) != 1 || len(scan.Beams[0]) != 1 {
		t.Fatalf("beams=%v, want one beam with one bin", scan.Beams)
	}
	if scan.Beams[0][0] != 0.0 {
		t.Errorf("bin=%v, want 0.0", scan.Beams[0][0])
	}
}
