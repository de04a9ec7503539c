// Package trace loads the JSON usage traces that the behavioral models are
// fitted from.
package trace

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// ErrInconsistentTrace is returned when the interval types in a trace do
// not all report the same set of computers.
var ErrInconsistentTrace = errors.New("interval types report different computer sets")

// Interval types found in a trace.
const (
	TypeActivity     = "ActivityIntervals"
	TypeInactivity   = "InactivityIntervals"
	TypeOff          = "OffIntervals"
	TypeOffFrequency = "OffFrequencies"
)

// Types lists the four interval types every computer must report.
var Types = []string{TypeActivity, TypeInactivity, TypeOff, TypeOffFrequency}

// aggregateRecord is the roll-up row the exporter emits alongside the
// per-machine rows; it carries no per-computer information.
const aggregateRecord = "_Total"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HourEntry holds the observed intervals for one (day, hour) slot.
type HourEntry struct {
	Day       string    `json:"Day"`
	Hour      string    `json:"Hour"`
	Intervals []float64 `json:"Intervals"`
}

// Record holds all entries of one interval type for one computer.
type Record struct {
	PC   string      `json:"PC"`
	Type string      `json:"Type"`
	Data []HourEntry `json:"data"`
}

// Load reads and validates a trace file. The "_Total" aggregate rows are
// discarded; a computer-set mismatch across interval types is fatal.
func Load(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw trace JSON.
func Parse(raw []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}

	filtered := records[:0]
	for _, r := range records {
		if r.PC == aggregateRecord {
			continue
		}
		filtered = append(filtered, r)
	}

	if err := validate(filtered); err != nil {
		return nil, err
	}
	return filtered, nil
}

// validate checks that no (PC, Type) pair repeats and that every interval
// type reports exactly the same computers.
func validate(records []Record) error {
	byType := make(map[string]map[string]bool, len(Types))
	for _, typ := range Types {
		byType[typ] = make(map[string]bool)
	}

	for _, r := range records {
		pcs, ok := byType[r.Type]
		if !ok {
			return fmt.Errorf("unknown interval type %q for %q", r.Type, r.PC)
		}
		if pcs[r.PC] {
			return fmt.Errorf("duplicate record for %q type %q", r.PC, r.Type)
		}
		pcs[r.PC] = true
	}

	reference := byType[Types[0]]
	for _, typ := range Types[1:] {
		pcs := byType[typ]
		if len(pcs) != len(reference) {
			return fmt.Errorf("%w: %s has %d computers, %s has %d",
				ErrInconsistentTrace, Types[0], len(reference), typ, len(pcs))
		}
		for pc := range pcs {
			if !reference[pc] {
				return fmt.Errorf("%w: %q missing from %s",
					ErrInconsistentTrace, pc, Types[0])
			}
		}
	}
	return nil
}
