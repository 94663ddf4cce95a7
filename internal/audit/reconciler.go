package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
)

// State is the reconciler's position in the per-submission pipeline.
type State int

const (
	StateIdle State = iota
	StateSnapshotCaptured
	StateComparing
	StateNoChanges
	StateAwaitingReasons
	StatePayloadBuilt
	StateSubmitting
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateSnapshotCaptured: "snapshot_captured",
	StateComparing:        "comparing",
	StateNoChanges:        "no_changes",
	StateAwaitingReasons:  "awaiting_reasons",
	StatePayloadBuilt:     "payload_built",
	StateSubmitting:       "submitting",
	StateSucceeded:        "succeeded",
	StateFailed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission has not finished. The guard makes double submits
	// impossible.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrViewOnly is returned for forms rendered in view-only mode, where
	// the reconciler is disabled entirely.
	ErrViewOnly = errors.New("form is view-only")
)

// SubmitResult is the submission target's response:
// { success, message?, redirect_url?, errors? }.
type SubmitResult struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Submitter performs the network leg: POST the form's native fields plus the
// audit hidden fields (payload may be nil when nothing changed) to the
// submission target.
type Submitter interface {
	Submit(ctx context.Context, doc *FormDocument, payload *AuditPayload) (*SubmitResult, error)
}

// SubmitterFunc adapts a plain function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, doc *FormDocument, payload *AuditPayload) (*SubmitResult, error)

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, doc *FormDocument, payload *AuditPayload) (*SubmitResult, error) {
	return f(ctx, doc, payload)
}

// Reconciler drives one governed form through the submission pipeline:
//
//	Idle -> SnapshotCaptured -> Comparing -> {NoChanges | AwaitingReasons}
//	     -> PayloadBuilt -> Submitting -> {Succeeded | Failed}
//
// Each form instance owns its own Reconciler; instances share no mutable
// state, so several governed forms on one page cannot interfere with each
// other. The pipeline is strictly sequential and the in-flight guard is
// released on every exit path, including errors, so the form can never end up
// permanently stuck.
type Reconciler struct {
	spec      *FormSpec
	doc       *FormDocument
	collector ReasonCollector
	submitter Submitter
	logger    log.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
	initial  FieldSnapshot
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReasonCollector sets the collector that prompts for justifications.
func WithReasonCollector(c ReasonCollector) ReconcilerOption {
	return func(r *Reconciler) { r.collector = c }
}

// WithSubmitter sets the network submitter.
func WithSubmitter(s Submitter) ReconcilerOption {
	return func(r *Reconciler) { r.submitter = s }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler builds a reconciler for one form instance. A missing form
// document or spec is reported as an error so the caller can log it and
// no-op instead of crashing the page.
func NewReconciler(spec *FormSpec, doc *FormDocument, options ...ReconcilerOption) (*Reconciler, error) {
	if spec == nil {
		return nil, errors.New("form spec is required")
	}
	if doc == nil {
		return nil, fmt.Errorf("form document missing for form type %q", spec.FormType)
	}
	r := &Reconciler{
		spec:      spec,
		doc:       doc,
		collector: StaticReasonCollector{},
		logger:    log.NewNopLogger(),
		state:     StateIdle,
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// State returns the current pipeline state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// InFlight reports whether a submission is currently being processed.
func (r *Reconciler) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Prime captures the initial snapshot, the page-load leg of the pipeline.
// Safe to call more than once; the per-control cache guarantees the second
// capture cannot drift from the first.
func (r *Reconciler) Prime() {
	snapshot := CaptureInitialSnapshot(r.doc, r.spec)
	r.mu.Lock()
	r.initial = snapshot
	r.mu.Unlock()
}

// Changes runs capture and comparison without submitting. Used by callers
// that only want to know whether the form is dirty.
func (r *Reconciler) Changes() *ChangeSet {
	r.mu.Lock()
	initial := r.initial
	r.mu.Unlock()
	if initial == nil {
		initial = CaptureInitialSnapshot(r.doc, r.spec)
	}
	current := CaptureCurrentSnapshot(r.doc, r.spec)
	return CompareSnapshots(initial, current, r.spec)
}

// Submit runs the full pipeline for one submission attempt. On failure the
// in-flight guard is cleared and the initial snapshot is preserved, so the
// user's in-progress edits survive a retry. Cancellation of the reason
// prompt aborts before any network call and resets to Idle.
func (r *Reconciler) Submit(ctx context.Context) (*SubmitResult, error) {
	if r.doc.ViewOnly {
		return nil, ErrViewOnly
	}

	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	r.inFlight = true
	if r.initial == nil {
		r.initial = CaptureInitialSnapshot(r.doc, r.spec)
	}
	initial := r.initial
	r.mu.Unlock()

	// Every exit path, including panics in the submitter, must release the
	// guard or the form is permanently stuck.
	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	r.setState(StateSnapshotCaptured)
	current := CaptureCurrentSnapshot(r.doc, r.spec)

	r.setState(StateComparing)
	changes := CompareSnapshots(initial, current, r.spec)

	var payload *AuditPayload
	if changes.Len() == 0 {
		r.setState(StateNoChanges)
	} else {
		reasons, err := r.collectReasons(ctx, changes)
		if err != nil {
			r.setState(StateIdle)
			return nil, err
		}
		payload, err = BuildAuditPayload(changes, reasons)
		if err != nil {
			r.setState(StateFailed)
			return nil, fmt.Errorf("building audit payload: %w", err)
		}
		r.setState(StatePayloadBuilt)
	}

	if r.submitter == nil {
		r.setState(StateFailed)
		return nil, errors.New("no submitter configured")
	}

	r.setState(StateSubmitting)
	result, err := r.submitter.Submit(ctx, r.doc, payload)
	if err != nil {
		r.setState(StateFailed)
		_ = r.logger.Log("msg", "submission failed", "form", r.spec.FormType, "err", err)
		return nil, fmt.Errorf("submitting form %s: %w", r.spec.FormType, err)
	}
	if !result.Success {
		r.setState(StateFailed)
		return result, nil
	}

	r.setState(StateSucceeded)
	return result, nil
}

// collectReasons resolves justifications for the change set. Brand-new
// records skip the per-field prompt: every change is attributed to the single
// record-created reason, so creates are always audited.
func (r *Reconciler) collectReasons(ctx context.Context, changes *ChangeSet) (map[string]ReasonEntry, error) {
	if r.doc.IsNew() {
		return createReasons(changes.Records()), nil
	}

	r.setState(StateAwaitingReasons)
	supplied, err := r.collector.Collect(ctx, changes.Records())
	if err != nil {
		if errors.Is(err, ErrCollectionCancelled) || errors.Is(err, context.Canceled) {
			return nil, ErrCollectionCancelled
		}
		return nil, fmt.Errorf("collecting reasons: %w", err)
	}
	return resolveReasons(changes.Records(), supplied), nil
}
