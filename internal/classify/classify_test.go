package classify

import (
	"testing"

	"fwsig/internal/asm"
	"fwsig/internal/feature"
)

const copterListing = `Disassembly of section .text:
8000 <reset>:
    8000:	e1a00000 	nop
    8004:	e59f0010 	ldr	r0, [pc, #16]
    8008:	ebfffffe 	bl	8000 <reset>
800c <loop>:
    800c:	e3a01001 	mov	r1, #1
`

const planeListing = `Disassembly of section .text:
8000 <reset>:
    8000:	e3a02002 	mov	r2, #2
    8004:	e59f0014 	ldr	r0, [pc, #20]
    8008:	1afffffd 	bne	8000 <reset>
    800c:	e3a03003 	mov	r3, #3
`

func corpus(t *testing.T) feature.UniqueTable {
	t.Helper()
	db := feature.NewDatabase()
	db.Ingest("copter", "v1", asm.Parse(copterListing))
	db.Ingest("plane", "v1", asm.Parse(planeListing))
	return feature.BuildUniqueTable(db)
}

func TestRank_SelfSimilarity(t *testing.T) {
	table := corpus(t)
	sample := feature.FingerprintAll(asm.Parse(copterListing))

	results := Rank(table, sample)
	if len(results) == 0 {
		t.Fatal("no results")
	}
	best := results[0]
	if best.Project != "copter" {
		t.Fatalf("best match = %s, want copter", best.Project)
	}
	if best.Similarity != 1.0 {
		t.Errorf("self similarity = %v, want 1.0", best.Similarity)
	}
	if best.Matched != best.Total {
		t.Errorf("matched %d of %d, want full match", best.Matched, best.Total)
	}
}

func TestRank_Bounds(t *testing.T) {
	table := corpus(t)
	sample := feature.FingerprintAll(asm.Parse(planeListing))

	for _, r := range Rank(table, sample) {
		if r.Similarity < 0 || r.Similarity > 1 {
			t.Errorf("%s: similarity %v out of [0,1]", r.Project, r.Similarity)
		}
		if (r.Matched == 0) != (r.Similarity == 0) {
			t.Errorf("%s: matched=%d but similarity=%v", r.Project, r.Matched, r.Similarity)
		}
	}
}

func TestRank_EmptySample(t *testing.T) {
	if got := Rank(corpus(t), nil); len(got) != 0 {
		t.Errorf("results = %v, want empty for empty sample", got)
	}
}

func TestRank_EmptyTable(t *testing.T) {
	sample := map[string]string{"mov": "aa"}
	if got := Rank(feature.UniqueTable{}, sample); len(got) != 0 {
		t.Errorf("results = %v, want empty for empty table", got)
	}
}

func TestRank_TieBreakByName(t *testing.T) {
	table := feature.UniqueTable{
		"zulu":  {"mov": {"aa": true}},
		"alpha": {"bne": {"bb": true}},
	}
	sample := map[string]string{"add": "cc"} // matches neither

	results := Rank(table, sample)
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}
	if results[0].Project != "alpha" || results[1].Project != "zulu" {
		t.Errorf("tie order = %s, %s; want alpha, zulu", results[0].Project, results[1].Project)
	}
}

func TestRank_MatchedIsPerOpcode(t *testing.T) {
	// An opcode with several unique fingerprints still contributes at most
	// one match, while all of them count toward the total.
	table := feature.UniqueTable{
		"copter": {"mov": {"aa": true, "bb": true, "cc": true}},
	}
	sample := map[string]string{"mov": "bb"}

	results := Rank(table, sample)
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1", len(results))
	}
	r := results[0]
	if r.Matched != 1 || r.Total != 3 {
		t.Errorf("matched/total = %d/%d, want 1/3", r.Matched, r.Total)
	}
	if r.Similarity != 1.0/3.0 {
		t.Errorf("similarity = %v, want 1/3", r.Similarity)
	}
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		sim  float64
		want string
	}{
		{0.9, "high"},
		{0.71, "high"},
		{0.7, "medium"},
		{0.31, "medium"},
		{0.3, "low"},
		{0.0, "low"},
	}
	for _, c := range cases {
		if got := Confidence(c.sim); got != c.want {
			t.Errorf("Confidence(%v) = %s, want %s", c.sim, got, c.want)
		}
	}
}
