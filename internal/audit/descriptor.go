// Package audit implements the change-audit reconciler used by every governed
// clinical form in ResSync: it captures before/after snapshots of a form,
// computes the changed fields, collects a justification per change and builds
// the serialized audit payload submitted alongside the form's own data.
package audit

// FieldType is the semantic type tag of a form control. It selects the
// normalization rule applied when a snapshot is captured.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
)

// FieldDescriptor is the static, per-field presentation metadata declared once
// per form type: a localized display label, the semantic type and, for
// enumerated fields, a raw-value to display-label map (e.g. "Yes" -> "Có").
// Descriptors never mutate at runtime.
type FieldDescriptor struct {
	Label   string
	Type    FieldType
	Options map[string]string
}

// FormsetSpec describes one repeating group of fields (e.g. ICD codes,
// antibiotic courses): the formset prefix, the tracked field names of one row
// and the name of the per-row delete marker.
type FormsetSpec struct {
	Name        string
	Fields      []string
	DeleteField string
}

// FormSpec is the configuration object for one governed form type. The half
// dozen per-form scripts of the legacy front end differed only in these
// tables; a single engine parameterized by FormSpec replaces all of them.
type FormSpec struct {
	// FormType identifies the governed form (enrollment, discharge, ...).
	FormType string
	// Descriptors maps field identifier to its presentation metadata.
	// Formset fields are looked up by their bare field name.
	Descriptors map[string]FieldDescriptor
	// Formsets lists the repeating groups tracked for this form.
	Formsets []FormsetSpec
	// ExcludedFields are control names never included in snapshots, on top
	// of the CSRF token and the audit hidden fields themselves.
	ExcludedFields []string

	// fieldOrder remembers descriptor declaration order. Change detection
	// walks fields in this order so payloads are byte-deterministic.
	fieldOrder []string
}

// NewFormSpec returns an empty FormSpec for the given form type.
func NewFormSpec(formType string) *FormSpec {
	return &FormSpec{
		FormType:    formType,
		Descriptors: make(map[string]FieldDescriptor),
	}
}

// Field registers a descriptor and returns the spec for chaining.
func (s *FormSpec) Field(name, label string, fieldType FieldType) *FormSpec {
	if _, ok := s.Descriptors[name]; !ok {
		s.fieldOrder = append(s.fieldOrder, name)
	}
	s.Descriptors[name] = FieldDescriptor{Label: label, Type: fieldType}
	return s
}

// EnumField registers a descriptor carrying a value->display map.
func (s *FormSpec) EnumField(name, label string, fieldType FieldType, options map[string]string) *FormSpec {
	if _, ok := s.Descriptors[name]; !ok {
		s.fieldOrder = append(s.fieldOrder, name)
	}
	s.Descriptors[name] = FieldDescriptor{Label: label, Type: fieldType, Options: options}
	return s
}

// Formset registers a repeating group with the default "DELETE" marker.
func (s *FormSpec) Formset(name string, fields ...string) *FormSpec {
	s.Formsets = append(s.Formsets, FormsetSpec{Name: name, Fields: fields, DeleteField: "DELETE"})
	return s
}

// Exclude adds control names that must never appear in snapshots.
func (s *FormSpec) Exclude(names ...string) *FormSpec {
	s.ExcludedFields = append(s.ExcludedFields, names...)
	return s
}

// descriptorFor resolves the descriptor for a field identifier, falling back
// to the raw key as label and "text" as type when no descriptor exists.
func (s *FormSpec) descriptorFor(name string) FieldDescriptor {
	if d, ok := s.Descriptors[name]; ok {
		if d.Type == "" {
			d.Type = FieldText
		}
		return d
	}
	return FieldDescriptor{Label: name, Type: FieldText}
}

// FieldTypeOf reports the semantic type of a field, FieldText when the field
// has no descriptor.
func (s *FormSpec) FieldTypeOf(name string) FieldType {
	return s.descriptorFor(name).Type
}

// displayValue maps a raw value through the descriptor's option map for
// presentation. Raw values not present in the map pass through unchanged;
// serialization always uses the raw value, never the mapped one.
func (d FieldDescriptor) displayValue(raw string) string {
	if d.Options == nil {
		return raw
	}
	if mapped, ok := d.Options[raw]; ok {
		return mapped
	}
	return raw
}
