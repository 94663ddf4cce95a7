package audit

import (
	"context"
	"errors"
	"strings"
)

// DefaultReason is the degraded-mode justification recorded when a changed
// field has no matching reason entry. The fallback is persisted, not dropped,
// so the audit trail never loses a change silently.
const DefaultReason = "Cập nhật thông tin"

// CreateReason is the single justification attributed to every field of a
// brand-new record. Creates are always audited; the per-field prompt is
// skipped and all changes share this reason.
const CreateReason = "Tạo mới hồ sơ"

// ErrCollectionCancelled is returned by a ReasonCollector when the user
// dismisses the reason prompt. The whole submission aborts; no partial audit
// payload is ever submitted.
var ErrCollectionCancelled = errors.New("reason collection cancelled")

// ReasonEntry is the user-entered justification for one changed field. The
// label is denormalized in so later display never needs a second descriptor
// lookup.
type ReasonEntry struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// ReasonCollector suspends the submission pipeline until a justification
// exists for every changed field. Implementations are UI-driven and
// logically asynchronous; ctx cancellation must abort the wait. Returning
// ErrCollectionCancelled aborts the submission cleanly.
type ReasonCollector interface {
	Collect(ctx context.Context, changes []ChangeRecord) (map[string]string, error)
}

// ReasonCollectorFunc adapts a plain function to the ReasonCollector
// interface.
type ReasonCollectorFunc func(ctx context.Context, changes []ChangeRecord) (map[string]string, error)

// Collect implements ReasonCollector.
func (f ReasonCollectorFunc) Collect(ctx context.Context, changes []ChangeRecord) (map[string]string, error) {
	return f(ctx, changes)
}

// StaticReasonCollector answers every prompt with a fixed set of reasons.
// Used by non-interactive callers and tests.
type StaticReasonCollector map[string]string

// Collect implements ReasonCollector.
func (s StaticReasonCollector) Collect(_ context.Context, _ []ChangeRecord) (map[string]string, error) {
	return s, nil
}

// resolveReasons pairs every change record with its justification. A missing
// or blank reason degrades to DefaultReason instead of failing the
// submission.
func resolveReasons(changes []ChangeRecord, supplied map[string]string) map[string]ReasonEntry {
	resolved := make(map[string]ReasonEntry, len(changes))
	for _, record := range changes {
		reason := strings.TrimSpace(supplied[record.FieldID])
		if reason == "" {
			reason = DefaultReason
		}
		resolved[record.FieldID] = ReasonEntry{Label: record.Label, Reason: reason}
	}
	return resolved
}

// createReasons attributes the single record-created justification to every
// change of a brand-new record.
func createReasons(changes []ChangeRecord) map[string]ReasonEntry {
	resolved := make(map[string]ReasonEntry, len(changes))
	for _, record := range changes {
		resolved[record.FieldID] = ReasonEntry{Label: record.Label, Reason: CreateReason}
	}
	return resolved
}
