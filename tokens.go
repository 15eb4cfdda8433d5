// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import "sort"

// Token is one known composite header token key.
type Token string

// Composite header tokens.
const (
	TokenBY  Token = "BY"  // total product byte count
	TokenVS  Token = "VS"  // format version
	TokenSW  Token = "SW"  // software version
	TokenPR  Token = "PR"  // precision exponent
	TokenINT Token = "INT" // accumulation interval
	TokenGP  Token = "GP"  // grid shape "RRRRx CCCC"
	TokenMS  Token = "MS"  // radar location list
	TokenLV  Token = "LV"  // level count and boundaries
	TokenCS  Token = "CS"  // scan indicator
	TokenMX  Token = "MX"  // image count
	TokenBG  Token = "BG"  // grid shape, concatenated halves
	TokenST  Token = "ST"  // radar day list
	TokenVV  Token = "VV"  // prediction lead time
	TokenMF  Token = "MF"  // module flag
	TokenQN  Token = "QN"  // quantification
	TokenVR  Token = "VR"  // reanalysis version
	TokenU   Token = "U"   // interval unit
)

// headerTokens enumerates every composite header token in scan order.
var headerTokens = [...]Token{
	TokenBY, TokenVS, TokenSW, TokenPR, TokenINT, TokenGP, TokenMS, TokenLV,
	TokenCS, TokenMX, TokenBG, TokenST, TokenVV, TokenMF, TokenQN, TokenVR,
	TokenU,
}

// TokenSpan is the half-open character interval of one token value inside
// the header string.
type TokenSpan struct {
	// Start is the first character of the token value (past the token key).
	Start int `json:"start" yaml:"start"`
	// End is one past the last character of the token value.
	End int `json:"end" yaml:"end"`
}

// TokenMap maps every known header token to its value span, nil when the
// token is absent. All enumerated tokens are always present as keys.
type TokenMap map[Token]*TokenSpan

// NewTokenMap returns a TokenMap with every known token keyed to nil.
func NewTokenMap() TokenMap {
	m := make(TokenMap, len(headerTokens))
	for _, tok := range headerTokens {
		m[tok] = nil
	}

	return m
}

// HeaderTokenSpans locates every known token inside header and returns the
// value spans. A token anchors at its rightmost exact occurrence past the
// fixed prefix, so product codes and the timestamp cannot shadow token keys;
// the value span runs to the next token anchor or the end of the header.
func HeaderTokenSpans(header string) TokenMap {
	m := NewTokenMap()

	anchors := make([]int, 0, len(headerTokens))
	found := make(map[Token]int, len(headerTokens))
	for _, tok := range headerTokens {
		pos := findTokenAnchor(header, tok)
		if pos < 0 {
			continue
		}

		found[tok] = pos
		anchors = append(anchors, pos)
	}
	sort.Ints(anchors)

	for tok, pos := range found {
		start := pos + len(tok)
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
		m[tok] = &TokenSpan{Start: start, End: end}
	}

	return m
}

// findTokenAnchor returns the rightmost anchor of tok within header, or -1.
// The single-letter U token must be followed by a digit to not collide with
// free-form header text.
func findTokenAnchor(header string, tok Token) int {
	if len(header) <= prefixSize {
		return -1
	}

	pos := lastIndexFrom(header, string(tok), prefixSize)
	if pos < 0 {
		return -1
	}

	if len(tok) == 1 {
		next := pos + 1
		if next >= len(header) || !isDigit(header[next]) {
			return -1
		}
	}

	return pos
}

// lastIndexFrom returns the rightmost index of sub in s at or past from.
func lastIndexFrom(s, sub string, from int) int {
	for i := len(s) - len(sub); i >= from; i-- {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}

	return -1
}

// isDigit reports whether c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
