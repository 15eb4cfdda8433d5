// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/radolan

/*
Package radolan decodes DWD RADOLAN composite products and DX polar scans.
It is designed for streaming workflows: readers consume plain or gzip
compressed streams, parse the ASCII header eagerly, and decode the binary
grid lazily on first access.

Grid conventions (summary):
  - grids are row-major with the origin in the upper-left corner;
  - cells unset by the product carry the no-data sentinel (-9999 for
    binary products, 255 for run-length graphic products);
  - secondary, clutter and negative bits are resolved before precision
    scaling; flag indices refer to the returned grid.

# Reading

Open a composite file and decode its grid:

	r, err := radolan.Open("raa01-rw_10000-0506261250-dwd---bin")
	if err != nil {
	    return err
	}
	defer r.Close()
	grid, err := r.Grid()
	if err != nil {
	    return err
	}
	mm := grid.At(450, 450)
	_ = mm

For metadata-only scans, read just the header without touching the payload:

	h, err := radolan.ReadHeaderFile("raa01-rw_10000-0506261250-dwd---bin.gz")
	if err != nil {
	    return err
	}
	fmt.Println(h.Product, h.Timestamp, h.Rows, h.Cols)

One-shot decoding with custom no-data handling:

	missing := -1
	grid, h, err := radolan.ReadFileWithOptions("composite.bin", radolan.Options{
	    Missing:     &missing,
	    FillMissing: true,
	})

Caller-owned streams work the same way:

	r, err := radolan.NewReader(resp.Body)
	if err != nil {
	    return err
	}
	grid, err := r.Grid()

# Polar scans

DX files carry raw polar sweeps of a single radar site:

	scan, err := radolan.ReadDX("raa00-dx_10488-0608050000-drs---bin")
	if err != nil {
	    return err
	}
	for i, beam := range scan.Beams {
	    _ = scan.Azimuths[i]
	    _ = beam // dBZ values per bin
	}

# Scanning directories

Select product files with path rules; the example below uses
github.com/woozymasta/pathrules patterns:

	files, err := radolan.ScanFiles("archive/", radolan.ScanOptions{
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "2026/**"},
	        {Action: pathrules.ActionExclude, Pattern: "2026/tmp/**"},
	    },
	    Products: []string{"RW", "SF"},
	})
	if err != nil {
	    return err
	}
	for _, path := range files {
	    h, err := radolan.ReadHeaderFile(path)
	    if err != nil {
	        continue
	    }
	    _ = h
	}
*/
package radolan
