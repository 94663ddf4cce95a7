package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSnapshotsSelfIsEmpty(t *testing.T) {
	spec := testSpec()
	snapshot := FieldSnapshot{
		"STATUS":             "Alive",
		"NOTES":              "stable",
		"antibiotics-0-NAME": "Meropenem",
		"antibiotics-0-DOSE": "1g",
	}

	changes := CompareSnapshots(snapshot, snapshot, spec)
	assert.Zero(t, changes.Len(), "a snapshot compared to itself yields no changes")
}

func TestCompareSnapshotsDetectsChangesWithDescriptors(t *testing.T) {
	spec := testSpec()
	initial := FieldSnapshot{"STATUS": "Alive", "DEATHDATE": ""}
	current := FieldSnapshot{"STATUS": "Deceased", "DEATHDATE": "2025-01-10"}

	changes := CompareSnapshots(initial, current, spec)
	require.Equal(t, 2, changes.Len())

	status, ok := changes.Get("STATUS")
	require.True(t, ok)
	assert.Equal(t, "Tình trạng bệnh nhân", status.Label)
	assert.Equal(t, FieldSelect, status.Type)
	assert.Equal(t, "Alive", status.Old, "serialized values stay raw")
	assert.Equal(t, "Deceased", status.New)
	assert.Equal(t, "Còn sống", status.OldDisplay, "display values are option-mapped")
	assert.Equal(t, "Đã tử vong", status.NewDisplay)

	deathDate, ok := changes.Get("DEATHDATE")
	require.True(t, ok)
	assert.Equal(t, "Ngày tử vong", deathDate.Label)
	assert.Equal(t, "", deathDate.Old)
	assert.Equal(t, "2025-01-10", deathDate.New)
}

func TestCompareSnapshotsUndescribedFieldFallsBack(t *testing.T) {
	changes := CompareSnapshots(
		FieldSnapshot{"MYSTERY": "a"},
		FieldSnapshot{"MYSTERY": "b"},
		testSpec(),
	)
	record, ok := changes.Get("MYSTERY")
	require.True(t, ok)
	assert.Equal(t, "MYSTERY", record.Label, "label falls back to the raw key")
	assert.Equal(t, FieldText, record.Type, "type falls back to text")
}

func TestCompareSnapshotsCompleteness(t *testing.T) {
	// A field present on only one side with a non-empty value must appear.
	changes := CompareSnapshots(
		FieldSnapshot{"ONLY_OLD": "x"},
		FieldSnapshot{"ONLY_NEW": "y"},
		testSpec(),
	)
	_, hasOld := changes.Get("ONLY_OLD")
	_, hasNew := changes.Get("ONLY_NEW")
	assert.True(t, hasOld)
	assert.True(t, hasNew)
}

func TestCompareSnapshotsTrimsAndCoercesMissing(t *testing.T) {
	changes := CompareSnapshots(
		FieldSnapshot{"NOTES": "  stable  "},
		FieldSnapshot{"NOTES": "stable", "DEATHDATE": ""},
		testSpec(),
	)
	assert.Zero(t, changes.Len())
}

func TestCompareSnapshotsNewRecordTotality(t *testing.T) {
	spec := testSpec()
	doc := &FormDocument{FormType: "discharge"} // brand-new record
	doc.AddControl(&Control{Name: "STATUS", Type: FieldSelect, Value: "Alive"}).
		AddControl(&Control{Name: "NOTES", Type: FieldTextarea, Value: "admitted"})

	initial := CaptureInitialSnapshot(doc, spec)
	current := CaptureCurrentSnapshot(doc, spec)
	changes := CompareSnapshots(initial, current, spec)

	assert.Equal(t, 2, changes.Len(), "every non-empty field of a new record is a change")
}

func TestCompareSnapshotsDeletedRowExcluded(t *testing.T) {
	spec := testSpec()
	initial := FieldSnapshot{
		"antibiotics-0-NAME": "Meropenem",
		"antibiotics-0-DOSE": "1g",
		"antibiotics-1-NAME": "Vancomycin",
		"antibiotics-1-DOSE": "500mg",
	}
	current := FieldSnapshot{
		"antibiotics-0-NAME":   "Meropenem",
		"antibiotics-0-DOSE":   "1g",
		"antibiotics-1-NAME":   "Vancomycin",
		"antibiotics-1-DOSE":   "750mg", // changed, but the row is deleted
		"antibiotics-1-DELETE": "True",
	}

	changes := CompareSnapshots(initial, current, spec)
	assert.Zero(t, changes.Len(), "row 0 unchanged, row 1 deleted: no changes")
}

func TestCompareSnapshotsFormsetKeysAndLabels(t *testing.T) {
	spec := testSpec()
	initial := FieldSnapshot{
		"antibiotics-0-NAME":   "Meropenem",
		"antibiotics-0-DELETE": "True", // deleted in both: surviving rows re-index
		"antibiotics-1-NAME":   "Vancomycin",
	}
	current := FieldSnapshot{
		"antibiotics-0-NAME":   "Meropenem",
		"antibiotics-0-DELETE": "True",
		"antibiotics-1-NAME":   "Colistin",
	}

	changes := CompareSnapshots(initial, current, spec)
	require.Equal(t, 1, changes.Len())

	record, ok := changes.Get("antibiotics_0_NAME")
	require.True(t, ok, "row index counts surviving rows only")
	assert.Equal(t, "NAME (row 1)", record.Label)
	assert.Equal(t, "Vancomycin", record.Old)
	assert.Equal(t, "Colistin", record.New)
}

func TestCompareSnapshotsFormsetMissingRowIsEmpty(t *testing.T) {
	spec := testSpec()
	initial := FieldSnapshot{}
	current := FieldSnapshot{
		"antibiotics-0-NAME": "Meropenem",
		"antibiotics-0-DOSE": "",
	}

	changes := CompareSnapshots(initial, current, spec)
	require.Equal(t, 1, changes.Len(), "only the non-empty field of the added row changes")

	record, ok := changes.Get("antibiotics_0_NAME")
	require.True(t, ok)
	assert.Equal(t, "", record.Old)
	assert.Equal(t, "Meropenem", record.New)
}

func TestCompareSnapshotsDetectionOrderIsDeclarationOrder(t *testing.T) {
	spec := testSpec()
	initial := FieldSnapshot{"NOTES": "a", "STATUS": "Alive", "DEATHDATE": ""}
	current := FieldSnapshot{"NOTES": "b", "STATUS": "Deceased", "DEATHDATE": "2025-01-10"}

	changes := CompareSnapshots(initial, current, spec)
	require.Equal(t, 3, changes.Len())

	ids := make([]string, 0, changes.Len())
	for _, record := range changes.Records() {
		ids = append(ids, record.FieldID)
	}
	assert.Equal(t, []string{"STATUS", "DEATHDATE", "NOTES"}, ids)
}
