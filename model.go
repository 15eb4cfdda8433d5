// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import "time"

// Internal wire layout and format limits.
const (
	etx           = 0x03 // ASCII ETX terminates the header
	eot           = 0x04 // ASCII EOT terminates a run-length payload
	lineFeed      = 0x0A // frames one run-length encoded line
	prefixSize    = 17   // fixed header prefix: product, timestamp, radar id
	maxHeaderSize = 4096 // sanity bound while scanning for ETX
	localGridSize = 200  // local scan products use a fixed 200x200 grid
	gzipMagic0    = 0x1f
	gzipMagic1    = 0x8b
)

// compositeRadarID identifies nation-wide composites; anything else is a
// single-site product.
const compositeRadarID = "10000"

// Raw 16-bit cell flag bits. Flags are extracted before the precision scale
// is applied.
const (
	flagSecondary = 0x1000 // cell value was interpolated from secondary data
	flagNoData    = 0x2000 // cell carries no measurement
	flagNegative  = 0x4000 // cell value is negative
	flagClutter   = 0x8000 // cell was clutter-filtered
	valueMask     = 0x0FFF // 12-bit value payload
)

// Raw 8-bit cell markers (RX family, RVP6 units).
const (
	clutterValue8 = 249
	noDataValue8  = 250
)

// Default no-data sentinels per encoding family.
const (
	// DefaultMissing replaces no-data cells in raw unpacked grids.
	DefaultMissing = -9999
	// DefaultMissingRunLength replaces no-data cells in run-length grids,
	// whose regular cell codes are 4-bit level indices.
	DefaultMissingRunLength = 255
)

// payloadEncoding selects the payload decode path for a product family.
type payloadEncoding uint8

// Known payload encodings.
const (
	encodingUnknown payloadEncoding = iota
	// encodingRaw8 is one unsigned byte per cell in RVP6 units.
	encodingRaw8
	// encodingRaw16 is one little-endian uint16 per cell with flag bits.
	encodingRaw16
	// encodingRunLength is newline-framed nibble run-length coding.
	encodingRunLength
)

// productEncoding is the closed dispatch table from product code to payload
// encoding. Codes not listed here fail with ErrUnsupportedProduct instead of
// guessing an encoding.
var productEncoding = map[string]payloadEncoding{
	"RX": encodingRaw8,
	"EX": encodingRaw8,
	"WX": encodingRaw8,

	"PG": encodingRunLength,
	"PC": encodingRunLength,
	"PZ": encodingRunLength,

	"RA": encodingRaw16,
	"RB": encodingRaw16,
	"RE": encodingRaw16,
	"RH": encodingRaw16,
	"RK": encodingRaw16,
	"RL": encodingRaw16,
	"RM": encodingRaw16,
	"RN": encodingRaw16,
	"RQ": encodingRaw16,
	"RU": encodingRaw16,
	"RV": encodingRaw16,
	"RW": encodingRaw16,
	"RY": encodingRaw16,
	"RZ": encodingRaw16,
	"SF": encodingRaw16,
	"SH": encodingRaw16,
	"SQ": encodingRaw16,
	"WN": encodingRaw16,
	"YW": encodingRaw16,
}

// Grid is one decoded composite image. Data is row-major with row 0 being
// the northernmost row (origin upper-left).
type Grid struct {
	// Data holds Rows*Cols cell values after flag extraction and scaling.
	Data []float64 `json:"data" yaml:"data"`
	// Secondary lists grid indices whose value was interpolated (raw 16-bit only).
	Secondary []int `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	// ClutterMask lists grid indices flagged as clutter.
	ClutterMask []int `json:"clutter_mask,omitempty" yaml:"clutter_mask,omitempty"`
	// Rows is number of grid rows.
	Rows int `json:"rows" yaml:"rows"`
	// Cols is number of grid columns.
	Cols int `json:"cols" yaml:"cols"`
	// Truncated reports that the payload was short and the grid was recovered
	// by padding (Options.FillMissing).
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// At returns the cell value at row, col.
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// CompositeHeader is the parsed metadata record of one RADOLAN product file.
// Optional fields are nil (or empty for strings and slices) when the
// corresponding header token is absent; an absent token never produces a
// defaulted value.
type CompositeHeader struct {
	// FormatVersion is the VS format version (0-3 observed).
	FormatVersion *int `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	// IntervalSeconds is the product accumulation interval.
	IntervalSeconds *int `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
	// IntervalUnit is the U interval unit flag (1 scales intervals to days).
	IntervalUnit *int `json:"interval_unit,omitempty" yaml:"interval_unit,omitempty"`
	// PredictionTime is the VV forecast lead time in minutes.
	PredictionTime *int `json:"prediction_time,omitempty" yaml:"prediction_time,omitempty"`
	// ModuleFlag is the MF processing module bit field.
	ModuleFlag *int `json:"module_flag,omitempty" yaml:"module_flag,omitempty"`
	// Quantification is the QN quantification method.
	Quantification *int `json:"quantification,omitempty" yaml:"quantification,omitempty"`
	// ImageCount is the MX image index of multi-image products.
	ImageCount *int `json:"image_count,omitempty" yaml:"image_count,omitempty"`
	// MaxHeight is the MH maximum scan height in km (local products).
	MaxHeight *int `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	// NoDataFlag is the sentinel stored into no-data cells. It is attached
	// only once a decode produced data; header-only reads leave it nil.
	NoDataFlag *int `json:"nodata_flag,omitempty" yaml:"nodata_flag,omitempty"`

	// Product is the two-letter product code.
	Product string `json:"product" yaml:"product"`
	// RadarID is the five-digit radar or composite id.
	RadarID string `json:"radar_id" yaml:"radar_id"`
	// MaxRange is the VS-derived maximum range description.
	MaxRange string `json:"max_range,omitempty" yaml:"max_range,omitempty"`
	// RadolanVersion is the SW software version string.
	RadolanVersion string `json:"radolan_version,omitempty" yaml:"radolan_version,omitempty"`
	// ReanalysisVersion is the VR reanalysis version string.
	ReanalysisVersion string `json:"reanalysis_version,omitempty" yaml:"reanalysis_version,omitempty"`
	// Indicator is the CS scan indicator of composite cluster products.
	Indicator string `json:"indicator,omitempty" yaml:"indicator,omitempty"`
	// ClutterMap is the CO clutter map flag (local products).
	ClutterMap string `json:"clutter_map,omitempty" yaml:"clutter_map,omitempty"`
	// DopplerFilter is the CD doppler filter flag (local products).
	DopplerFilter string `json:"doppler_filter,omitempty" yaml:"doppler_filter,omitempty"`
	// StatisticFilter is the CS statistic filter flag (local products).
	StatisticFilter string `json:"statistic_filter,omitempty" yaml:"statistic_filter,omitempty"`
	// HailWarning is the HI hail warning threshold (local products).
	HailWarning string `json:"hail_warning,omitempty" yaml:"hail_warning,omitempty"`
	// FreezingLevel is the FL freezing level field (local products).
	FreezingLevel string `json:"freezing_level,omitempty" yaml:"freezing_level,omitempty"`
	// Message is free-form trailing text of local product headers.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Timestamp is the product time in UTC.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// RadarLocations lists MS site codes in header order.
	RadarLocations []string `json:"radar_locations,omitempty" yaml:"radar_locations,omitempty"`
	// RadarDays lists ST per-site day counts in header order.
	RadarDays []string `json:"radar_days,omitempty" yaml:"radar_days,omitempty"`
	// Levels lists LV level boundaries.
	Levels []float64 `json:"levels,omitempty" yaml:"levels,omitempty"`
	// SevereConvection lists the CI severe convection thresholds (local products).
	SevereConvection []float64 `json:"severe_convection,omitempty" yaml:"severe_convection,omitempty"`
	// SevereConvectionHeights lists the CL severe convection heights (local products).
	SevereConvectionHeights []int `json:"severe_convection_heights,omitempty" yaml:"severe_convection_heights,omitempty"`

	// Precision is the PR scale factor converting stored codes to physical
	// units; zero when the PR token is absent.
	Precision float64 `json:"precision,omitempty" yaml:"precision,omitempty"`
	// DataSize is the payload byte length following the header terminator.
	DataSize int `json:"data_size" yaml:"data_size"`
	// Rows is number of grid rows.
	Rows int `json:"rows" yaml:"rows"`
	// Cols is number of grid columns.
	Cols int `json:"cols" yaml:"cols"`
	// NLevel is the LV level count.
	NLevel int `json:"nlevel,omitempty" yaml:"nlevel,omitempty"`
}

// Options configures composite decoding behavior.
type Options struct {
	// Missing overrides the no-data sentinel stored into decoded grids.
	// Nil selects the per-family default (DefaultMissing or
	// DefaultMissingRunLength).
	Missing *int `json:"missing,omitempty" yaml:"missing,omitempty"`
	// FillMissing pads truncated payloads with zero bytes and decodes a
	// best-effort grid instead of failing.
	FillMissing bool `json:"fill_missing,omitempty" yaml:"fill_missing,omitempty"`
}

// missingFor resolves the no-data sentinel for one encoding family.
func (o Options) missingFor(enc payloadEncoding) int {
	if o.Missing != nil {
		return *o.Missing
	}

	if enc == encodingRunLength {
		return DefaultMissingRunLength
	}

	return DefaultMissing
}
