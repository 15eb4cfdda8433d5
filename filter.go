// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

package radolan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/pathrules"
)

// ScanOptions configures directory scanning for RADOLAN product files.
type ScanOptions struct {
	// Rules are ordered path rules applied to slash-separated paths relative
	// to the scanned directory.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control path rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// Products restricts results to these two-letter product codes. Empty
	// keeps every file whose name carries a recognizable product code.
	Products []string `json:"products,omitempty" yaml:"products,omitempty"`
}

// applyDefaults fills zero-value matcher options for rule-based scans.
func (o *ScanOptions) applyDefaults() {
	zero := pathrules.MatcherOptions{}
	if len(o.Rules) > 0 && o.MatcherOptions == zero {
		o.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}
}

// scanMatcher holds compiled path rules for one scan.
type scanMatcher struct {
	matcher *pathrules.Matcher
}

// newScanMatcher compiles scan path rules. A rule-less scan gets a nil
// matcher that includes everything.
func newScanMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*scanMatcher, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidScanPattern, err)
	}

	return &scanMatcher{matcher: matcher}, nil
}

// Match reports whether the relative slash-separated file path passes the
// rules.
func (m *scanMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	return m.matcher.Included(path, false)
}

// ScanFiles walks dir and returns the paths of RADOLAN product files passing
// the scan rules and product filter, sorted lexicographically. Returned paths
// are joined with dir the way filepath.WalkDir yields them.
func ScanFiles(dir string, opts ScanOptions) ([]string, error) {
	opts.applyDefaults()

	matcher, err := newScanMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	products := make(map[string]bool, len(opts.Products))
	for _, p := range opts.Products {
		products[strings.ToUpper(strings.TrimSpace(p))] = true
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}

		if !matcher.Match(filepath.ToSlash(rel)) {
			return nil
		}

		product, prodErr := ProductFromFilename(d.Name())
		if prodErr != nil {
			return nil
		}
		if len(products) > 0 && !products[product] {
			return nil
		}

		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(out)

	return out, nil
}

// ProductFromFilename extracts the upper-case product code from a RADOLAN
// filename such as "raa01-rw_10000-0506261250-dwd---bin" or
// "raa00-dx_10488-0608050000-drs---bin".
func ProductFromFilename(name string) (string, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, ".gz")

	parts := strings.Split(base, "-")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	code, _, found := strings.Cut(parts[1], "_")
	if !found || len(code) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	return strings.ToUpper(code), nil
}
