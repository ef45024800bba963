// Package asm parses objdump-style disassembly listings into per-opcode
// position features. Only the .text section is scanned; every labeled
// address opens a new code block and each instruction contributes one
// 3-tuple feature (offset in block, block index, branch offset).
package asm

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Instruction is one decoded listing line inside a code block.
type Instruction struct {
	Addr     uint64
	Mnemonic string // base mnemonic, dotted suffix stripped
	OpOffset int64  // Addr minus block start; 0 while no block start is known
	IsBranch bool
}

// CodeBlock is a labeled run of instructions. Index is the order the block
// was closed in (0, 1, 2, ...); blocks that accumulate no instructions are
// never closed and take no index.
type CodeBlock struct {
	StartAddr    uint64
	Index        int
	Instructions []Instruction
}

// FeatureVector is (op_offset, block_index, branch_offset). The branch
// offset equals the op offset for branch mnemonics and 0 otherwise; it is
// not a branch-target delta.
type FeatureVector [3]int64

// OpcodeFeatures maps a base mnemonic to its sorted feature vectors,
// aggregated across the whole listing.
type OpcodeFeatures map[string][]FeatureVector

// ARM branch mnemonics. Instructions with any other mnemonic get a zero
// branch offset.
var branchOps = map[string]bool{
	"b": true, "bl": true, "bx": true, "blx": true,
	"bne": true, "beq": true, "bcs": true, "bcc": true,
	"bmi": true, "bpl": true, "bvs": true, "bvc": true,
	"bhi": true, "bls": true, "bge": true, "blt": true,
	"bgt": true, "ble": true, "bal": true,
}

var (
	reSection = regexp.MustCompile(`^Disassembly of section ([\w.\-]+):`)
	reLabel   = regexp.MustCompile(`^([0-9A-Fa-f]+)\s+<([^>]+)>:`)
	reInst    = regexp.MustCompile(`^([0-9a-f]+):\s+([0-9a-f ]+)\s+(\S+)(?:\s+(.*))?`)
)

const codeSection = ".text"

// Parse scans one disassembly listing and returns its per-opcode feature
// vectors, each opcode's list sorted ascending. Lines that are neither a
// section header, a label, nor an instruction are skipped. A listing with
// no .text section yields an empty map.
func Parse(text string) OpcodeFeatures {
	var (
		section string
		blocks  []CodeBlock
		current CodeBlock
	)

	closeBlock := func() {
		if len(current.Instructions) == 0 {
			return
		}
		current.Index = len(blocks)
		blocks = append(blocks, current)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if m := reSection.FindStringSubmatch(line); m != nil {
			section = m[1]
			continue
		}
		if section != codeSection {
			continue
		}

		if m := reLabel.FindStringSubmatch(line); m != nil {
			closeBlock()
			start, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				start = 0
			}
			current = CodeBlock{StartAddr: start}
			continue
		}

		if m := reInst.FindStringSubmatch(line); m != nil {
			addr, err := strconv.ParseUint(m[1], 16, 64)
			if err != nil {
				continue
			}
			mnemonic, _, _ := strings.Cut(m[3], ".")

			// Offsets default to 0 until a nonzero block start is seen.
			var opOff int64
			if current.StartAddr != 0 {
				opOff = int64(addr) - int64(current.StartAddr)
			}
			current.Instructions = append(current.Instructions, Instruction{
				Addr:     addr,
				Mnemonic: mnemonic,
				OpOffset: opOff,
				IsBranch: branchOps[mnemonic],
			})
		}
	}
	closeBlock()

	feats := make(OpcodeFeatures)
	for _, b := range blocks {
		for _, ins := range b.Instructions {
			var branchOff int64
			if ins.IsBranch {
				branchOff = ins.OpOffset
			}
			feats[ins.Mnemonic] = append(feats[ins.Mnemonic],
				FeatureVector{ins.OpOffset, int64(b.Index), branchOff})
		}
	}
	for _, vecs := range feats {
		SortVectors(vecs)
	}
	return feats
}

// ParseFile reads and parses one listing file. An unreadable file yields an
// empty map and the error; callers treat that as a skippable condition, not
// a fatal one.
func ParseFile(path string) (OpcodeFeatures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OpcodeFeatures{}, fmt.Errorf("read listing %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// SortVectors orders feature vectors ascending by tuple comparison. The
// order is total, so sorting is deterministic for any input.
func SortVectors(v []FeatureVector) {
	sort.Slice(v, func(i, j int) bool {
		a, b := v[i], v[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
}
