// Package classify scores an unknown listing's fingerprints against every
// project's unique-feature table and ranks projects by similarity.
package classify

import (
	"sort"

	"fwsig/internal/feature"
)

// Result is one project's similarity score. Total counts the project's
// unique fingerprints; Matched counts opcodes whose sample fingerprint is a
// member of the project's unique set, at most one per opcode.
type Result struct {
	Project    string
	Similarity float64
	Matched    int
	Total      int
}

// Rank scores the sample's per-opcode fingerprints against each project in
// the table, most similar first. Equal similarities order by project name.
// An empty table or empty sample yields an empty slice.
func Rank(table feature.UniqueTable, sample map[string]string) []Result {
	if len(sample) == 0 {
		return nil
	}

	results := make([]Result, 0, len(table))
	for project, opcodes := range table {
		r := Result{Project: project}
		for opcode, uniq := range opcodes {
			r.Total += len(uniq)
			if hash, ok := sample[opcode]; ok && uniq[hash] {
				r.Matched++
			}
		}
		if r.Total > 0 {
			r.Similarity = float64(r.Matched) / float64(r.Total)
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Project < results[j].Project
	})
	return results
}

// Confidence maps a similarity to a display label.
func Confidence(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "high"
	case similarity > 0.3:
		return "medium"
	default:
		return "low"
	}
}
