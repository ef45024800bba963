package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"fwsig/internal/asm"
)

// StringSet is a set of fingerprint hex strings.
type StringSet map[string]bool

// Database holds ingested fingerprints keyed project → version → opcode.
// It is an explicit aggregate passed by pointer; load and save are the only
// persistence boundaries.
type Database struct {
	Projects map[string]map[string]map[string]string
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{Projects: make(map[string]map[string]map[string]string)}
}

// Ingest fingerprints one listing's features and stores them as the record
// for (project, version), replacing any previous record wholesale.
func (db *Database) Ingest(project, version string, feats asm.OpcodeFeatures) {
	if db.Projects[project] == nil {
		db.Projects[project] = make(map[string]map[string]string)
	}
	db.Projects[project][version] = FingerprintAll(feats)
	logrus.WithFields(logrus.Fields{
		"project": project,
		"version": version,
		"opcodes": len(feats),
	}).Info("ingested listing")
}

// ProjectFeatureSet returns, per opcode, every distinct fingerprint seen
// across the project's versions. An unknown project yields an empty map.
func (db *Database) ProjectFeatureSet(project string) map[string]StringSet {
	set := make(map[string]StringSet)
	for _, record := range db.Projects[project] {
		for opcode, hash := range record {
			if set[opcode] == nil {
				set[opcode] = make(StringSet)
			}
			set[opcode][hash] = true
		}
	}
	return set
}

// ProjectNames returns the registered project names in ascending order.
func (db *Database) ProjectNames() []string {
	names := make([]string, 0, len(db.Projects))
	for name := range db.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load populates the database from a JSON file written by Save. A missing
// file is a fresh start; a corrupt one is logged and discarded so the
// database stays empty and usable.
func (db *Database) Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("could not read feature database; starting empty")
		}
		return
	}
	var projects map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &projects); err != nil {
		logrus.WithError(err).Warn("could not parse feature database; starting empty")
		return
	}
	if projects == nil {
		projects = make(map[string]map[string]map[string]string)
	}
	db.Projects = projects
	logrus.WithField("projects", len(projects)).Info("loaded feature database")
}

// Save writes the database as an indented JSON document. The document
// round-trips losslessly through Load.
func (db *Database) Save(path string) error {
	data, err := json.MarshalIndent(db.Projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	return nil
}
