// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxRangeByVersion maps the VS format version to its range description.
var maxRangeByVersion = map[int]string{
	0: "100 km and 128 km (mixed)",
	1: "100 km",
	2: "128 km",
	3: "150 km",
}

// indicatorByCode maps the CS scan indicator of composite cluster products.
var indicatorByCode = map[int]string{
	0: "near ground level",
	1: "maximum",
	2: "tops",
}

// localProducts are single-site scan products with their own compact header
// grammar and a fixed 200x200 grid.
var localProducts = map[string]bool{
	"PZ": true,
}

// readHeader consumes the ASCII header from br up to and including the ETX
// terminator and returns the header text without it.
func readHeader(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: read %d bytes", ErrUnterminatedHeader, sb.Len())
			}

			return "", fmt.Errorf("read header: %w", err)
		}

		if b == etx {
			return sb.String(), nil
		}

		if sb.Len() >= maxHeaderSize {
			return "", fmt.Errorf("%w: no ETX within %d bytes", ErrUnterminatedHeader, maxHeaderSize)
		}
		sb.WriteByte(b)
	}
}

// ParseCompositeHeader parses one composite header string (without the ETX
// terminator) into a CompositeHeader. Fields of absent tokens stay unset;
// a malformed token value fails with ErrInvalidTokenValue naming the token.
func ParseCompositeHeader(header string) (*CompositeHeader, error) {
	if len(header) < prefixSize {
		return nil, fmt.Errorf("%w: %d of %d prefix characters", ErrHeaderTooShort, len(header), prefixSize)
	}

	h := &CompositeHeader{
		Product:  header[0:2],
		RadarID:  header[8:13],
		DataSize: -1,
	}

	ts, err := parseHeaderTimestamp(header)
	if err != nil {
		return nil, err
	}
	h.Timestamp = ts

	if localProducts[h.Product] {
		err = parseLocalTokens(header, h)
	} else {
		err = parseCompositeTokens(header, h)
	}
	if err != nil {
		return nil, err
	}

	if h.DataSize < 0 {
		return nil, fmt.Errorf("%w: BY", ErrMissingToken)
	}

	return h, nil
}

// parseHeaderTimestamp assembles the UTC product time from the fixed header
// prefix: day, hour and minute up front, month and two-digit year embedded
// after the radar id.
func parseHeaderTimestamp(header string) (time.Time, error) {
	day, err1 := atoiStrict(header[2:4])
	hour, err2 := atoiStrict(header[4:6])
	minute, err3 := atoiStrict(header[6:8])
	month, err4 := atoiStrict(header[13:15])
	year, err5 := atoiStrict(header[15:17])
	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %q", ErrInvalidTokenValue, header[:prefixSize])
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: timestamp: %q", ErrInvalidTokenValue, header[:prefixSize])
	}

	return time.Date(expandYear(year), time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

// expandYear widens a two-digit year with the documented 1970 pivot:
// values below 70 land in the 2000s, the rest in the 1900s.
func expandYear(yy int) int {
	if yy < 70 {
		return 2000 + yy
	}

	return 1900 + yy
}

// parseCompositeTokens fills h from the free-order token region of a
// composite header.
func parseCompositeTokens(header string, h *CompositeHeader) error {
	spans := HeaderTokenSpans(header)

	for _, tok := range headerTokens {
		span := spans[tok]
		if span == nil {
			continue
		}

		val := header[span.Start:span.End]
		if err := applyCompositeToken(tok, val, header, h); err != nil {
			return err
		}
	}

	return nil
}

// applyCompositeToken parses one token value per its grammar into h.
func applyCompositeToken(tok Token, val, header string, h *CompositeHeader) error {
	switch tok {
	case TokenBY:
		total, err := atoiTrim(val)
		// BY stores the total product length: header, ETX and payload.
		size := total - len(header) - 1
		if err != nil || size < 0 {
			return tokenErr(tok, val)
		}
		h.DataSize = size
	case TokenVS:
		vs, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.FormatVersion = &vs
		h.MaxRange = maxRangeByVersion[vs]
		if h.MaxRange == "" {
			h.MaxRange = "100 km"
		}
	case TokenSW:
		h.RadolanVersion = strings.TrimSpace(val)
	case TokenPR:
		precision, err := parsePrecision(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.Precision = precision
	case TokenINT:
		interval, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		seconds := interval * 60
		if h.IntervalUnit != nil && *h.IntervalUnit == 1 {
			seconds *= 1440
		}
		h.IntervalSeconds = &seconds
	case TokenU:
		unit, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.IntervalUnit = &unit
		if unit == 1 && h.IntervalSeconds != nil {
			seconds := *h.IntervalSeconds * 1440
			h.IntervalSeconds = &seconds
		}
	case TokenGP:
		rows, cols, err := parseGridShape(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.Rows, h.Cols = rows, cols
	case TokenBG:
		rows, cols, err := parseGridShapeHalves(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.Rows, h.Cols = rows, cols
	case TokenMS:
		list, err := parseSiteList(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.RadarLocations = list
	case TokenST:
		list, err := parseSiteList(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.RadarDays = list
	case TokenLV:
		nlevel, levels, err := parseLevels(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.NLevel, h.Levels = nlevel, levels
	case TokenCS:
		code, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.Indicator = indicatorByCode[code]
	case TokenMX:
		count, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.ImageCount = &count
	case TokenVV:
		minutes, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.PredictionTime = &minutes
	case TokenMF:
		flag, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.ModuleFlag = &flag
	case TokenQN:
		qn, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.Quantification = &qn
	case TokenVR:
		h.ReanalysisVersion = strings.TrimSpace(val)
	}

	return nil
}

// localTokens enumerates the compact token keys of local scan products in
// header order.
var localTokens = []string{"BY", "VS", "LV", "CO", "CD", "CS", "MH", "HI", "CI", "CL", "FL", "MS"}

// parseLocalTokens fills h from a local product header (PZ family).
func parseLocalTokens(header string, h *CompositeHeader) error {
	h.Rows, h.Cols = localGridSize, localGridSize

	for key, span := range localTokenSpans(header) {
		val := header[span.Start:span.End]
		if err := applyLocalToken(key, val, header, h); err != nil {
			return err
		}
	}

	return nil
}

// localTokenSpans locates the local product token values, next-anchor
// bounded like HeaderTokenSpans.
func localTokenSpans(header string) map[string]TokenSpan {
	anchors := make([]int, 0, len(localTokens))
	found := make(map[string]int, len(localTokens))
	for _, key := range localTokens {
		pos := lastIndexFrom(header, key, prefixSize)
		if pos < 0 {
			continue
		}

		found[key] = pos
		anchors = append(anchors, pos)
	}
	sort.Ints(anchors)

	spans := make(map[string]TokenSpan, len(found))
	for key, pos := range found {
		start := pos + len(key)
		end := len(header)
		for _, anchor := range anchors {
			if anchor > pos {
				end = anchor
				break
			}
		}

		if start > end {
			start = end
		}
		spans[key] = TokenSpan{Start: start, End: end}
	}

	return spans
}

// applyLocalToken parses one local product token value into h.
func applyLocalToken(key, val, header string, h *CompositeHeader) error {
	tok := Token(key)
	switch key {
	case "BY", "VS", "LV":
		return applyCompositeToken(tok, val, header, h)
	case "CO":
		h.ClutterMap = strings.TrimSpace(val)
	case "CD":
		h.DopplerFilter = strings.TrimSpace(val)
	case "CS":
		h.StatisticFilter = strings.TrimSpace(val)
	case "MH":
		height, err := atoiTrim(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.MaxHeight = &height
	case "HI":
		h.HailWarning = strings.TrimSpace(val)
	case "CI":
		pair, err := parseFloatHalves(val)
		if err != nil {
			return tokenErr(tok, val)
		}
		h.SevereConvection = pair
	case "CL":
		fields := strings.Fields(val)
		heights := make([]int, 0, len(fields))
		for _, field := range fields {
			n, err := strconv.Atoi(field)
			if err != nil {
				return tokenErr(tok, val)
			}
			heights = append(heights, n)
		}
		h.SevereConvectionHeights = heights
	case "FL":
		h.FreezingLevel = strings.TrimSpace(val)
	case "MS":
		// Local MS is a message count followed by free-form text.
		trimmed := strings.TrimLeft(val, " ")
		i := 0
		for i < len(trimmed) && isDigit(trimmed[i]) {
			i++
		}
		if i == 0 {
			return tokenErr(tok, val)
		}
		h.Message = strings.TrimSpace(trimmed[i:])
	}

	return nil
}

// parsePrecision parses a PR value of the form "E±NN" into 10^exponent.
func parsePrecision(val string) (float64, error) {
	s := strings.TrimSpace(val)
	if len(s) < 2 || s[0] != 'E' {
		return 0, fmt.Errorf("missing exponent marker")
	}

	exp, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, err
	}

	return pow10(exp), nil
}

// pow10 returns 10^exp for small signed exponents.
func pow10(exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= 10
	}
	for i := 0; i > exp; i-- {
		out /= 10
	}

	return out
}

// parseGridShape parses a GP value "RRRRx CCCC" into rows and columns.
func parseGridShape(val string) (int, int, error) {
	parts := strings.SplitN(val, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("missing dimension separator")
	}

	rows, err := atoiTrim(parts[0])
	if err != nil {
		return 0, 0, err
	}

	cols, err := atoiTrim(parts[1])
	if err != nil {
		return 0, 0, err
	}

	return rows, cols, nil
}

// parseGridShapeHalves parses a BG value whose rows and columns are the two
// halves of one digit run, e.g. "460460".
func parseGridShapeHalves(val string) (int, int, error) {
	s := strings.TrimSpace(val)
	if len(s) == 0 || len(s)%2 != 0 {
		return 0, 0, fmt.Errorf("odd dimension field length %d", len(s))
	}

	rows, err := atoiTrim(s[:len(s)/2])
	if err != nil {
		return 0, 0, err
	}

	cols, err := atoiTrim(s[len(s)/2:])
	if err != nil {
		return 0, 0, err
	}

	return rows, cols, nil
}

// parseSiteList parses an MS/ST value: a byte count followed by a
// comma-separated site list in angle brackets. Order is preserved.
func parseSiteList(val string) ([]string, error) {
	open := strings.IndexByte(val, '<')
	if open < 0 {
		// Count-only values carry no list; the field stays absent.
		return nil, nil
	}

	closing := strings.IndexByte(val[open:], '>')
	if closing < 0 {
		return nil, fmt.Errorf("unmatched bracket")
	}

	return strings.Split(val[open+1:open+closing], ","), nil
}

// parseLevels parses an LV value: a level count followed by that many
// floating level boundaries.
func parseLevels(val string) (int, []float64, error) {
	fields := strings.Fields(val)
	if len(fields) == 0 {
		return 0, nil, fmt.Errorf("empty level list")
	}

	nlevel, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, nil, err
	}

	levels := make([]float64, 0, len(fields)-1)
	for _, field := range fields[1:] {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, nil, err
		}
		levels = append(levels, f)
	}

	return nlevel, levels, nil
}

// parseFloatHalves parses two fixed-width floats stored back to back,
// e.g. "-32.0-32.0".
func parseFloatHalves(val string) ([]float64, error) {
	s := strings.TrimSpace(val)
	if len(s) == 0 || len(s)%2 != 0 {
		return nil, fmt.Errorf("odd field length %d", len(s))
	}

	first, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)/2]), 64)
	if err != nil {
		return nil, err
	}

	second, err := strconv.ParseFloat(strings.TrimSpace(s[len(s)/2:]), 64)
	if err != nil {
		return nil, err
	}

	return []float64{first, second}, nil
}

// tokenErr wraps ErrInvalidTokenValue naming the offending token.
func tokenErr(tok Token, val string) error {
	return fmt.Errorf("%w: %s %q", ErrInvalidTokenValue, tok, strings.TrimSpace(val))
}

// atoiTrim parses a space-padded integer field.
func atoiTrim(val string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(val))
}

// atoiStrict parses a fixed-width decimal field without sign or padding.
func atoiStrict(val string) (int, error) {
	if val == "" {
		return 0, fmt.Errorf("empty field")
	}

	out := 0
	for i := 0; i < len(val); i++ {
		if !isDigit(val[i]) {
			return 0, fmt.Errorf("non-digit %q", val[i])
		}
		out = out*10 + int(val[i]-'0')
	}

	return out, nil
}
