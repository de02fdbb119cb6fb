// Command projinfo inspects a cell analysis project file and reports its
// tabs and measurement statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"cell-analyzer/internal/project"

	"gonum.org/v1/gonum/stat"
)

func main() {
	verify := flag.Bool("verify", false, "Recompute every measurement and flag drift from stored values")
	rewrite := flag.String("rewrite", "", "Write a normalized copy of the project to this path")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: projinfo [-verify] [-rewrite out.cellproj] <project file>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	doc, err := project.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load project: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Project: %s (format version %s)\n", path, doc.Version)
	fmt.Printf("Tabs: %d\n", len(doc.Tabs))

	exitCode := 0
	for i, tab := range doc.Tabs {
		fmt.Printf("\n[%d] %s\n", i, tab.Title)

		img, raw, err := tab.DecodeImage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "  image: %v\n", err)
			exitCode = 1
			continue
		}
		bounds := img.Bounds()
		fmt.Printf("  Image: %dx%d px (%d bytes PNG)\n", bounds.Dx(), bounds.Dy(), len(raw))
		fmt.Printf("  Physical size: %.4g x %.4g µm\n", tab.ImageWidthUM, tab.ImageHeightUM)
		fmt.Printf("  Measurements: %d (next cell ID %d)\n", len(tab.CellMeasurements), tab.NextCellID)

		if len(tab.CellMeasurements) > 0 {
			areas := make([]float64, len(tab.CellMeasurements))
			for j, rec := range tab.CellMeasurements {
				areas[j] = rec.AreaUM2
			}
			mean := stat.Mean(areas, nil)
			if len(areas) > 1 {
				fmt.Printf("  Area: mean %.2f µm², stddev %.2f µm²\n", mean, stat.StdDev(areas, nil))
			} else {
				fmt.Printf("  Area: %.2f µm²\n", mean)
			}
		}

		if *verify {
			if err := project.Verify(tab); err != nil {
				fmt.Fprintf(os.Stderr, "  VERIFY FAILED: %v\n", err)
				exitCode = 1
			} else {
				fmt.Printf("  Verified: stored values match recomputation\n")
			}
		}
	}

	if *rewrite != "" {
		if err := doc.Save(*rewrite); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *rewrite, err)
			os.Exit(1)
		}
		fmt.Printf("\nNormalized copy written to %s\n", *rewrite)
	}

	os.Exit(exitCode)
}
