package audit

import (
	"net/url"
	"strings"
)

// Names of the hidden inputs written into the governed form before submission
// and of the CSRF token field that is always excluded from snapshots.
const (
	CSRFTokenField     = "csrfmiddlewaretoken"
	OldDataField       = "audit_old_data"
	NewDataField       = "audit_new_data"
	ReasonsField       = "audit_reasons"
	ReasonSummaryField = "audit_reason_text"
)

// CheckedValue and UncheckedValue are the canonical boolean encoding used in
// snapshots. The legacy forms mixed "True"/"False", "1"/"0" and "Yes"/"No";
// translation happens at the document boundary and the inconsistency is not
// propagated.
const (
	CheckedValue   = "True"
	UncheckedValue = "False"
)

// FieldSnapshot maps field identifier to normalized raw string value at one
// point in time. Insertion order is irrelevant; comparison is order-free.
type FieldSnapshot map[string]string

// Control is one form control inside a governed form: the engine's stand-in
// for an input/select/textarea element. Radio groups are represented as
// several controls sharing a Name, at most one of them Checked.
type Control struct {
	Name     string
	Type     FieldType
	Value    string
	Checked  bool
	ReadOnly bool

	// initial holds the contribution recorded by the first initial-snapshot
	// capture so repeated captures cannot drift from each other.
	initial *initialState
}

// initialState is one control's frozen contribution to the initial snapshot.
type initialState struct {
	value   string
	checked bool
}

// FormDocument is one governed form instance: its controls, the identifier of
// the persisted record (empty for a brand-new record) and the view-only flag
// that disables the reconciler entirely.
type FormDocument struct {
	FormType  string
	RecordID  string
	ViewOnly  bool
	CSRFToken string
	Controls  []*Control
}

// IsNew reports whether the document represents a record with no persisted
// identifier yet.
func (d *FormDocument) IsNew() bool { return d.RecordID == "" }

// AddControl appends a control and returns the document for chaining.
func (d *FormDocument) AddControl(c *Control) *FormDocument {
	d.Controls = append(d.Controls, c)
	return d
}

// FormValues flattens the document into the native field values a POST
// carries: every control's normalized value (radio groups merged) plus the
// CSRF token. Audit hidden fields are appended separately by the submitter.
func (d *FormDocument) FormValues() url.Values {
	values := url.Values{}
	merged := make(FieldSnapshot)
	for _, c := range d.Controls {
		mergeContribution(merged, c.Name, c.Type, c.normalizedValue(), c.Checked)
	}
	for name, value := range merged {
		values.Set(name, value)
	}
	if d.CSRFToken != "" {
		values.Set(CSRFTokenField, d.CSRFToken)
	}
	return values
}

// ParseCheckedValue translates the boolean encodings observed across the
// legacy forms into the canonical checked state.
func ParseCheckedValue(raw string) bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "true", "1", "yes", "on", "có":
		return true
	}
	return false
}

// normalizedValue applies the type-specific normalization rule for one
// control. Radio groups are handled by the caller since they span controls.
func (c *Control) normalizedValue() string {
	switch c.Type {
	case FieldCheckbox:
		if c.Checked {
			return CheckedValue
		}
		return UncheckedValue
	default:
		return strings.TrimSpace(c.Value)
	}
}

// excluded reports whether a control name never participates in snapshots:
// the CSRF token, the audit hidden fields themselves and any name listed in
// the spec's exclusions.
func (s *FormSpec) excluded(name string) bool {
	switch name {
	case CSRFTokenField, OldDataField, NewDataField, ReasonsField, ReasonSummaryField:
		return true
	}
	for _, ex := range s.ExcludedFields {
		if ex == name {
			return true
		}
	}
	return false
}

// CaptureInitialSnapshot reads the persisted state of every relevant control.
// For a brand-new record every field is forced to the empty string so that on
// create every filled-in field is reported as changed. Each control's
// contribution is cached on the control itself so a second capture returns
// identical data instead of re-deriving it from a possibly mutated control.
func CaptureInitialSnapshot(doc *FormDocument, spec *FormSpec) FieldSnapshot {
	snapshot := make(FieldSnapshot)
	for _, c := range doc.Controls {
		if c.ReadOnly || spec.excluded(c.Name) {
			continue
		}
		if c.initial == nil {
			state := initialState{}
			if !doc.IsNew() {
				state = initialState{value: c.normalizedValue(), checked: c.Checked}
			}
			c.initial = &state
		}
		mergeContribution(snapshot, c.Name, c.Type, c.initial.value, c.initial.checked)
	}
	return snapshot
}

// CaptureCurrentSnapshot reads the live value of every relevant control,
// never the cached one.
func CaptureCurrentSnapshot(doc *FormDocument, spec *FormSpec) FieldSnapshot {
	snapshot := make(FieldSnapshot)
	for _, c := range doc.Controls {
		if c.ReadOnly || spec.excluded(c.Name) {
			continue
		}
		mergeContribution(snapshot, c.Name, c.Type, c.normalizedValue(), c.Checked)
	}
	return snapshot
}

// mergeContribution folds one control's value into the snapshot. Radio groups
// span several controls sharing a name: the checked member wins and an
// all-unchecked group normalizes to the empty string.
func mergeContribution(snapshot FieldSnapshot, name string, fieldType FieldType, value string, checked bool) {
	if fieldType == FieldRadio {
		if checked {
			snapshot[name] = value
		} else if _, ok := snapshot[name]; !ok {
			snapshot[name] = ""
		}
		return
	}
	snapshot[name] = value
}
