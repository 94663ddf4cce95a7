package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AuditPayload is the terminal artifact of a reconciliation: three JSON
// documents (old values, new values, reasons) plus one flattened
// human-readable summary, written into the four audit hidden fields and
// submitted with the form's native data. Old and new always carry raw values;
// display mapping never leaks into the payload.
type AuditPayload struct {
	OldDataJSON   string
	NewDataJSON   string
	ReasonsJSON   string
	ReasonSummary string
}

// BuildAuditPayload serializes a change set and its reasons. Keys appear in
// detection order in all three JSON documents and in the summary string, so
// two calls with the same inputs produce byte-identical output.
func BuildAuditPayload(changes *ChangeSet, reasons map[string]ReasonEntry) (*AuditPayload, error) {
	records := changes.Records()

	oldData := newOrderedObject()
	newData := newOrderedObject()
	reasonData := newOrderedObject()
	summary := make([]string, 0, len(records))

	for _, record := range records {
		if err := oldData.put(record.FieldID, record.Old); err != nil {
			return nil, err
		}
		if err := newData.put(record.FieldID, record.New); err != nil {
			return nil, err
		}
		entry, ok := reasons[record.FieldID]
		if !ok {
			entry = ReasonEntry{Label: record.Label, Reason: DefaultReason}
		}
		if err := reasonData.put(record.FieldID, entry); err != nil {
			return nil, err
		}
		summary = append(summary, fmt.Sprintf("%s: %s", entry.Label, entry.Reason))
	}

	return &AuditPayload{
		OldDataJSON:   oldData.String(),
		NewDataJSON:   newData.String(),
		ReasonsJSON:   reasonData.String(),
		ReasonSummary: strings.Join(summary, " | "),
	}, nil
}

// HiddenFields returns the payload keyed by the hidden input names it is
// written into before submission.
func (p *AuditPayload) HiddenFields() map[string]string {
	return map[string]string{
		OldDataField:       p.OldDataJSON,
		NewDataField:       p.NewDataJSON,
		ReasonsField:       p.ReasonsJSON,
		ReasonSummaryField: p.ReasonSummary,
	}
}

// DecodedPayload is the parsed server-side view of an audit payload.
type DecodedPayload struct {
	Old     map[string]string
	New     map[string]string
	Reasons map[string]ReasonEntry
}

// DecodePayload parses the three JSON documents of a submitted payload,
// validating their shape. Empty documents decode to empty maps.
func DecodePayload(oldJSON, newJSON, reasonsJSON string) (*DecodedPayload, error) {
	decoded := &DecodedPayload{
		Old:     make(map[string]string),
		New:     make(map[string]string),
		Reasons: make(map[string]ReasonEntry),
	}
	if oldJSON != "" {
		if err := json.Unmarshal([]byte(oldJSON), &decoded.Old); err != nil {
			return nil, fmt.Errorf("invalid old-data document: %w", err)
		}
	}
	if newJSON != "" {
		if err := json.Unmarshal([]byte(newJSON), &decoded.New); err != nil {
			return nil, fmt.Errorf("invalid new-data document: %w", err)
		}
	}
	if reasonsJSON != "" {
		if err := json.Unmarshal([]byte(reasonsJSON), &decoded.Reasons); err != nil {
			return nil, fmt.Errorf("invalid reasons document: %w", err)
		}
	}
	return decoded, nil
}

// orderedObject writes a JSON object preserving insertion order, which
// encoding/json's map marshalling would destroy by sorting keys.
type orderedObject struct {
	buf   bytes.Buffer
	count int
}

func newOrderedObject() *orderedObject {
	o := &orderedObject{}
	o.buf.WriteByte('{')
	return o
}

func (o *orderedObject) put(key string, value any) error {
	if o.count > 0 {
		o.buf.WriteByte(',')
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal payload key %q: %w", key, err)
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal payload value for %q: %w", key, err)
	}
	o.buf.Write(keyJSON)
	o.buf.WriteByte(':')
	o.buf.Write(valueJSON)
	o.count++
	return nil
}

func (o *orderedObject) String() string {
	return o.buf.String() + "}"
}
