package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "extract":
		err = cmdExtract(os.Args[2:])
	case "classify":
		err = cmdClassify(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `fwsig — firmware disassembly fingerprinting and classification

Usage:
  fwsig extract  --root <dir|zip> [--out <dir>]   Ingest a firmware corpus and write the unique-feature table
  fwsig classify --in <listing> [--features <csv>]  Rank known projects by similarity to a listing

Flags:
  --root <dir|zip>    Corpus root: one subdirectory per project, *.asm listings inside
  --out <dir>         Output directory for firmware_database.json and unique_features.csv (default: .)
  --in <listing>      Disassembly listing to classify
  --features <csv>    Unique-feature table (default: ./unique_features.csv)
`)
}
