package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"fwsig/internal/asm"
	"fwsig/internal/feature"
)

const (
	databaseFile = "firmware_database.json"
	featuresFile = "unique_features.csv"
)

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	root := fs.String("root", "", "corpus root directory or zip archive")
	outDir := fs.String("out", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" {
		return fmt.Errorf("--root is required")
	}

	corpusRoot := *root
	if strings.EqualFold(filepath.Ext(corpusRoot), ".zip") {
		extracted, cleanup, err := extractCorpusZip(corpusRoot)
		if err != nil {
			return fmt.Errorf("extract corpus zip: %w", err)
		}
		defer cleanup()
		corpusRoot = extracted
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	dbPath := filepath.Join(*outDir, databaseFile)
	csvPath := filepath.Join(*outDir, featuresFile)

	db := feature.NewDatabase()
	db.Load(dbPath)

	entries, err := os.ReadDir(corpusRoot)
	if err != nil {
		return fmt.Errorf("read corpus root: %w", err)
	}

	ingested := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		project := e.Name()
		listings, err := collectListings(filepath.Join(corpusRoot, project))
		if err != nil {
			logrus.WithError(err).WithField("project", project).
				Warn("could not walk project directory; skipping")
			continue
		}
		for _, listing := range listings {
			version := listingVersion(filepath.Join(corpusRoot, project), listing)
			feats, err := asm.ParseFile(listing)
			if err != nil {
				logrus.WithError(err).Warn("could not read listing; skipping")
				continue
			}
			if len(feats) == 0 {
				logrus.WithField("listing", listing).Warn("no features in listing; skipping")
				continue
			}
			db.Ingest(project, version, feats)
			ingested++
		}
	}
	if ingested == 0 {
		logrus.Warn("no listings ingested; corpus is empty")
	}

	if err := db.Save(dbPath); err != nil {
		return err
	}

	table := feature.BuildUniqueTable(db)
	if err := feature.WriteCSV(csvPath, table); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "extract: %d listings, %d projects\n", ingested, len(db.Projects))
	fmt.Fprintf(os.Stderr, "wrote %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "wrote %s\n", csvPath)
	return nil
}

// collectListings finds *.asm files anywhere under a project directory.
func collectListings(projectDir string) ([]string, error) {
	var listings []string
	err := filepath.WalkDir(projectDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".asm") {
			listings = append(listings, path)
		}
		return nil
	})
	return listings, err
}

// listingVersion derives a version name from the listing's directory
// relative to the project root; listings at the top level get "default".
func listingVersion(projectDir, listing string) string {
	rel, err := filepath.Rel(projectDir, listing)
	if err != nil {
		return "default"
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return "default"
	}
	return filepath.ToSlash(dir)
}

// extractCorpusZip unpacks a corpus archive into a temp directory. If the
// archive holds a single top-level directory, that directory is the corpus
// root; otherwise the temp directory itself is.
func extractCorpusZip(zipPath string) (string, func(), error) {
	tmp, err := os.MkdirTemp("", "fwsig-corpus-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(tmp) }

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		dest := filepath.Join(tmp, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(dest, tmp+string(os.PathSeparator)) {
			continue // entry escapes the extraction root
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				cleanup()
				return "", nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			cleanup()
			return "", nil, err
		}
		if err := extractZipFile(f, dest); err != nil {
			cleanup()
			return "", nil, err
		}
	}

	// Single top-level directory means the corpus root is nested.
	entries, err := os.ReadDir(tmp)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(tmp, entries[0].Name()), cleanup, nil
	}
	return tmp, cleanup, nil
}

func extractZipFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
