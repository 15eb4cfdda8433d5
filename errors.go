// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import "errors"

// Sentinel errors for RADOLAN operations. Use errors.Is in callers.
var (
	// ErrUnterminatedHeader means the stream ended before the ETX header terminator.
	ErrUnterminatedHeader = errors.New("unterminated header: no ETX before end of stream")
	// ErrHeaderTooShort means the header is shorter than the fixed prefix.
	ErrHeaderTooShort = errors.New("header shorter than fixed prefix")
	// ErrMissingToken means a mandatory header token is absent.
	ErrMissingToken = errors.New("mandatory header token missing")
	// ErrInvalidTokenValue means a present token value does not match its grammar.
	ErrInvalidTokenValue = errors.New("invalid header token value")
	// ErrTruncatedPayload means the payload is shorter than the declared data size.
	ErrTruncatedPayload = errors.New("payload shorter than declared size")
	// ErrUnsupportedProduct means the product code is not in the known dispatch table.
	ErrUnsupportedProduct = errors.New("unsupported product code")
	// ErrInvalidFilename means a RADOLAN filename does not carry a parsable timestamp.
	ErrInvalidFilename = errors.New("filename carries no parsable timestamp")
	// ErrInvalidScanPattern means one or more file scan rules are invalid.
	ErrInvalidScanPattern = errors.New("invalid scan rules")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
)
