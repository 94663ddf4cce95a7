package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ChangeRecord is one detected difference between the initial and current
// snapshots. Old and New carry the raw values that get serialized; OldDisplay
// and NewDisplay carry the option-mapped strings surfaced to the user in the
// reason prompt. The two must never be conflated.
type ChangeRecord struct {
	FieldID    string
	Old        string
	New        string
	OldDisplay string
	NewDisplay string
	Label      string
	Type       FieldType
}

// ChangeSet is an ordered collection of ChangeRecords keyed by field
// identifier. Iteration order is detection order, which downstream payload
// serialization depends on.
type ChangeSet struct {
	records []ChangeRecord
	index   map[string]int
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{index: make(map[string]int)}
}

func (cs *ChangeSet) add(r ChangeRecord) {
	if _, ok := cs.index[r.FieldID]; ok {
		return
	}
	cs.index[r.FieldID] = len(cs.records)
	cs.records = append(cs.records, r)
}

// Len returns the number of changed fields.
func (cs *ChangeSet) Len() int { return len(cs.records) }

// Records returns the change records in detection order.
func (cs *ChangeSet) Records() []ChangeRecord { return cs.records }

// Get looks up the record for one field identifier.
func (cs *ChangeSet) Get(fieldID string) (ChangeRecord, bool) {
	i, ok := cs.index[fieldID]
	if !ok {
		return ChangeRecord{}, false
	}
	return cs.records[i], true
}

// CompareSnapshots diffs two snapshots of the same form. Scalar fields are
// compared over the union of keys, trimmed, with a missing side coerced to
// the empty string. Formset rows are paired by position after dropping every
// row whose delete marker is checked in either snapshot; change keys for
// formset fields are namespaced as {formset}_{rowIndex}_{fieldName} where the
// row index counts surviving rows only.
func CompareSnapshots(initial, current FieldSnapshot, spec *FormSpec) *ChangeSet {
	changes := newChangeSet()

	for _, key := range scalarFieldOrder(initial, current, spec) {
		oldValue := strings.TrimSpace(initial[key])
		newValue := strings.TrimSpace(current[key])
		if oldValue == newValue {
			continue
		}
		d := spec.descriptorFor(key)
		changes.add(ChangeRecord{
			FieldID:    key,
			Old:        oldValue,
			New:        newValue,
			OldDisplay: d.displayValue(oldValue),
			NewDisplay: d.displayValue(newValue),
			Label:      d.Label,
			Type:       d.Type,
		})
	}

	for _, fs := range spec.Formsets {
		compareFormset(initial, current, spec, fs, changes)
	}

	return changes
}

// scalarFieldOrder yields the union of non-formset keys: declared fields in
// declaration order first, then any undeclared stragglers sorted for
// determinism.
func scalarFieldOrder(initial, current FieldSnapshot, spec *FormSpec) []string {
	union := make(map[string]bool, len(initial)+len(current))
	for key := range initial {
		union[key] = true
	}
	for key := range current {
		union[key] = true
	}
	for key := range union {
		if spec.isFormsetKey(key) {
			delete(union, key)
		}
	}

	order := make([]string, 0, len(union))
	for _, name := range spec.fieldOrder {
		if union[name] {
			order = append(order, name)
			delete(union, name)
		}
	}
	rest := make([]string, 0, len(union))
	for key := range union {
		rest = append(rest, key)
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// isFormsetKey reports whether a snapshot key belongs to one of the spec's
// repeating groups ({name}-{index}-{field}).
func (s *FormSpec) isFormsetKey(key string) bool {
	for _, fs := range s.Formsets {
		if _, _, ok := fs.splitKey(key); ok {
			return true
		}
	}
	return false
}

// splitKey parses {name}-{index}-{field}, returning the row index and bare
// field name.
func (fs FormsetSpec) splitKey(key string) (int, string, bool) {
	prefix := fs.Name + "-"
	if !strings.HasPrefix(key, prefix) {
		return 0, "", false
	}
	rest := key[len(prefix):]
	sep := strings.Index(rest, "-")
	if sep <= 0 {
		return 0, "", false
	}
	index, err := strconv.Atoi(rest[:sep])
	if err != nil || index < 0 {
		return 0, "", false
	}
	return index, rest[sep+1:], true
}

// formsetRow is the row-local view of one snapshot.
type formsetRow map[string]string

// rowsByIndex extracts a formset's rows from a flat snapshot, keyed by their
// raw form index.
func (fs FormsetSpec) rowsByIndex(snapshot FieldSnapshot) map[int]formsetRow {
	rows := make(map[int]formsetRow)
	for key, value := range snapshot {
		index, field, ok := fs.splitKey(key)
		if !ok {
			continue
		}
		row, exists := rows[index]
		if !exists {
			row = make(formsetRow)
			rows[index] = row
		}
		row[field] = value
	}
	return rows
}

// compareFormset pairs surviving rows of one repeating group and diffs the
// tracked fields. Deletion in either snapshot removes the row from comparison
// entirely; surviving rows are re-indexed so keys are stable across deletes.
func compareFormset(initial, current FieldSnapshot, spec *FormSpec, fs FormsetSpec, changes *ChangeSet) {
	initialRows := fs.rowsByIndex(initial)
	currentRows := fs.rowsByIndex(current)

	seen := make(map[int]bool, len(initialRows)+len(currentRows))
	for index := range initialRows {
		seen[index] = true
	}
	for index := range currentRows {
		seen[index] = true
	}
	indices := make([]int, 0, len(seen))
	for index := range seen {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	deleteField := fs.DeleteField
	if deleteField == "" {
		deleteField = "DELETE"
	}

	rowNumber := 0
	for _, index := range indices {
		before := initialRows[index]
		after := currentRows[index]
		if ParseCheckedValue(before[deleteField]) || ParseCheckedValue(after[deleteField]) {
			continue
		}
		for _, field := range fs.Fields {
			oldValue := strings.TrimSpace(before[field])
			newValue := strings.TrimSpace(after[field])
			if oldValue == newValue {
				continue
			}
			d := spec.descriptorFor(field)
			changes.add(ChangeRecord{
				FieldID:    fmt.Sprintf("%s_%d_%s", fs.Name, rowNumber, field),
				Old:        oldValue,
				New:        newValue,
				OldDisplay: d.displayValue(oldValue),
				NewDisplay: d.displayValue(newValue),
				Label:      fmt.Sprintf("%s (row %d)", d.Label, rowNumber+1),
				Type:       d.Type,
			})
		}
		rowNumber++
	}
}
