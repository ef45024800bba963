package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"fwsig/internal/asm"
	"fwsig/internal/classify"
	"fwsig/internal/feature"
)

const maxReportRows = 10

func cmdClassify(args []string) error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	inPath := fs.String("in", "", "disassembly listing to classify")
	tablePath := fs.String("features", filepath.Join(".", featuresFile), "unique-feature table CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return fmt.Errorf("--in is required")
	}

	table, err := feature.LoadCSV(*tablePath)
	if err != nil {
		logrus.WithError(err).Warn("could not load unique-feature table")
	}
	if len(table) == 0 {
		pterm.Warning.Println("cannot classify: no known projects in unique-feature table")
		return nil
	}

	feats, err := asm.ParseFile(*inPath)
	if err != nil {
		logrus.WithError(err).Warn("could not read listing")
	}
	sample := feature.FingerprintAll(feats)
	if len(sample) == 0 {
		pterm.Warning.Println("cannot classify: no features extracted from listing")
		return nil
	}
	logrus.WithField("opcodes", len(sample)).Info("fingerprinted unknown listing")

	results := classify.Rank(table, sample)
	if len(results) == 0 {
		pterm.Warning.Println("cannot classify: no results")
		return nil
	}

	printReport(*inPath, results)
	return nil
}

func printReport(path string, results []classify.Result) {
	pterm.DefaultSection.Printf("Classification results for %s", filepath.Base(path))

	data := pterm.TableData{
		{"Rank", "Project", "Similarity", "Matched", "Total", "Confidence"},
	}
	for i, r := range results {
		if i >= maxReportRows {
			break
		}
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			r.Project,
			fmt.Sprintf("%.3f", r.Similarity),
			fmt.Sprintf("%d", r.Matched),
			fmt.Sprintf("%d", r.Total),
			classify.Confidence(r.Similarity),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		logrus.WithError(err).Warn("could not render table")
	}

	best := results[0]
	pterm.Success.Printf("best match: %s  similarity %.3f (%.1f%%)  matched %d/%d  confidence %s\n",
		best.Project, best.Similarity, best.Similarity*100,
		best.Matched, best.Total, classify.Confidence(best.Similarity))
}
