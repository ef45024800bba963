package feature

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// UniqueTable maps project → opcode → fingerprints found in that project
// and in no other project for the same opcode. Projects with no unique
// fingerprint at all carry no entry.
type UniqueTable map[string]map[string]StringSet

// BuildUniqueTable derives the discriminative table from the database: for
// each project the per-opcode set difference against the union of every
// other project's fingerprints. Quadratic in projects, but the opcode
// universe is bounded by the instruction set.
func BuildUniqueTable(db *Database) UniqueTable {
	projects := db.ProjectNames()
	table := make(UniqueTable)

	for _, project := range projects {
		own := db.ProjectFeatureSet(project)

		others := make(map[string]StringSet)
		for _, other := range projects {
			if other == project {
				continue
			}
			for opcode, hashes := range db.ProjectFeatureSet(other) {
				if others[opcode] == nil {
					others[opcode] = make(StringSet)
				}
				for h := range hashes {
					others[opcode][h] = true
				}
			}
		}

		entry := make(map[string]StringSet)
		count := 0
		for opcode, hashes := range own {
			uniq := make(StringSet)
			for h := range hashes {
				if !others[opcode][h] {
					uniq[h] = true
				}
			}
			if len(uniq) > 0 {
				entry[opcode] = uniq
				count += len(uniq)
			}
		}
		if len(entry) > 0 {
			table[project] = entry
		}
		logrus.WithFields(logrus.Fields{
			"project": project,
			"unique":  count,
		}).Info("extracted unique features")
	}
	return table
}

// WriteCSV persists the table as Project,Opcode,Hash rows, sorted on all
// three columns so repeated runs produce identical files.
func WriteCSV(path string, table UniqueTable) error {
	type row struct{ project, opcode, hash string }
	var rows []row
	for project, opcodes := range table {
		for opcode, hashes := range opcodes {
			for h := range hashes {
				rows = append(rows, row{project, opcode, h})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.project != b.project {
			return a.project < b.project
		}
		if a.opcode != b.opcode {
			return a.opcode < b.opcode
		}
		return a.hash < b.hash
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create unique-feature table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Project", "Opcode", "Hash"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.project, r.opcode, r.hash}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadCSV reads a table written by WriteCSV. Short rows are skipped; an
// unreadable file returns the error alongside an empty usable table.
func LoadCSV(path string) (UniqueTable, error) {
	table := make(UniqueTable)

	f, err := os.Open(path)
	if err != nil {
		return table, fmt.Errorf("open unique-feature table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return table, fmt.Errorf("read unique-feature table: %w", err)
	}
	for i, rec := range records {
		if i == 0 || len(rec) < 3 {
			continue // header or short row
		}
		project, opcode, hash := rec[0], rec[1], rec[2]
		if table[project] == nil {
			table[project] = make(map[string]StringSet)
		}
		if table[project][opcode] == nil {
			table[project][opcode] = make(StringSet)
		}
		table[project][opcode][hash] = true
	}
	return table, nil
}
