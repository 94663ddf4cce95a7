package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ressync-audit-service/internal/adapters"
	"ressync-audit-service/internal/audit"
	"ressync-audit-service/internal/domain/dtos"
	"ressync-audit-service/internal/domain/repositories"
	"ressync-audit-service/internal/mappers"

	"github.com/go-kit/log"
	"github.com/google/uuid"
)

// AuditEventSubject is the subject audit events are announced on after a
// submission is persisted.
const AuditEventSubject = "ressync.audit.entry"

// ErrServiceStopped is returned for submissions arriving after the worker
// pool has begun shutting down.
var ErrServiceStopped = errors.New("submission service is stopped")

// submissionJob pairs a validated submission with its assigned record id.
type submissionJob struct {
	submission dtos.FormSubmission
	recordID   uuid.UUID
}

// auditEvent is the message published for each persisted submission.
type auditEvent struct {
	RecordID      string    `json:"recordId"`
	FormType      string    `json:"formType"`
	Action        string    `json:"action"`
	ReasonSummary string    `json:"reasonSummary,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// SubmissionServiceImpl implements SubmissionServiceContract with a worker
// pool: SubmitForm validates and enqueues, workers persist the record and its
// audit entry and announce the event.
type SubmissionServiceImpl struct {
	recordRepo repositories.FormRecordRepositoryContract
	auditRepo  repositories.AuditEntryRepositoryContract
	publisher  adapters.AuditEventPublisher
	logger     log.Logger
	jobChan    chan submissionJob
	stopChan   chan struct{}
	stopOnce   sync.Once
	numWorkers int
	wg         sync.WaitGroup

	// stopped guards jobChan: once shutdown flips it, no sender may touch
	// the channel again. Senders hold the read side so the close in
	// shutdown cannot overtake an in-progress enqueue.
	stopMu  sync.RWMutex
	stopped bool
}

// NewSubmissionService creates a new SubmissionServiceImpl.
func NewSubmissionService(
	recordRepo repositories.FormRecordRepositoryContract,
	auditRepo repositories.AuditEntryRepositoryContract,
	publisher adapters.AuditEventPublisher,
	logger log.Logger,
) *SubmissionServiceImpl {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SubmissionServiceImpl{
		recordRepo: recordRepo,
		auditRepo:  auditRepo,
		publisher:  publisher,
		logger:     logger,
		jobChan:    make(chan submissionJob, 100),
		stopChan:   make(chan struct{}),
		numWorkers: 5,
	}
}

// Start launches the worker pool and wires shutdown to the given context.
func (s *SubmissionServiceImpl) Start(ctx context.Context) error {
	_ = s.logger.Log("msg", "submission service starting", "workers", s.numWorkers)

	s.wg.Add(s.numWorkers)
	for i := 1; i <= s.numWorkers; i++ {
		go s.worker(i)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-s.stopChan:
			s.shutdown()
		}
	}()

	return nil
}

// Stop signals the service to gracefully shut down.
func (s *SubmissionServiceImpl) Stop(ctx context.Context) error {
	select {
	case s.stopChan <- struct{}{}:
	default:
	}
	return nil
}

func (s *SubmissionServiceImpl) shutdown() {
	s.stopOnce.Do(func() {
		s.stopMu.Lock()
		s.stopped = true
		s.stopMu.Unlock()
		close(s.jobChan)
	})
	s.wg.Wait()
	_ = s.logger.Log("msg", "all submission workers finished")
}

func (s *SubmissionServiceImpl) worker(id int) {
	defer s.wg.Done()
	for job := range s.jobChan {
		if err := s.processJob(context.Background(), job); err != nil {
			_ = s.logger.Log("msg", "submission processing failed", "worker", id,
				"record", job.recordID, "err", err)
		}
	}
}

// processJob persists the record, appends the audit entry and announces the
// event. A publish failure is logged but does not undo persistence.
func (s *SubmissionServiceImpl) processJob(ctx context.Context, job submissionJob) error {
	record, err := mappers.MapSubmissionToRecord(job.submission, job.recordID)
	if err != nil {
		return err
	}

	if job.submission.IsCreate() {
		err = s.recordRepo.Create(ctx, record)
	} else {
		err = s.recordRepo.Update(ctx, record)
	}
	if err != nil {
		return fmt.Errorf("persisting %s record: %w", job.submission.FormType, err)
	}

	entry, err := mappers.MapSubmissionToAuditEntry(job.submission, job.recordID)
	if err != nil {
		return err
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("persisting audit entry: %w", err)
	}

	if s.publisher != nil {
		event, err := json.Marshal(auditEvent{
			RecordID:      job.recordID.String(),
			FormType:      job.submission.FormType,
			Action:        entry.Action,
			ReasonSummary: job.submission.ReasonSummary,
			OccurredAt:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("serializing audit event: %w", err)
		}
		if err := s.publisher.Publish(ctx, AuditEventSubject, event); err != nil {
			_ = s.logger.Log("msg", "audit event publish failed", "record", job.recordID, "err", err)
		}
	}

	return nil
}

// SubmitForm validates the audit documents, assigns the record identifier and
// queues the submission for asynchronous persistence.
func (s *SubmissionServiceImpl) SubmitForm(ctx context.Context, submission dtos.FormSubmission) (uuid.UUID, error) {
	if submission.FormType == "" {
		return uuid.Nil, fmt.Errorf("form type is required")
	}
	if _, err := audit.DecodePayload(submission.OldDataJSON, submission.NewDataJSON, submission.ReasonsJSON); err != nil {
		return uuid.Nil, fmt.Errorf("rejecting submission: %w", err)
	}

	recordID := submission.RecordID
	if submission.IsCreate() {
		recordID = uuid.New()
	}

	s.stopMu.RLock()
	defer s.stopMu.RUnlock()
	if s.stopped {
		return uuid.Nil, ErrServiceStopped
	}

	select {
	case s.jobChan <- submissionJob{submission: submission, recordID: recordID}:
		return recordID, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// GetAuditTrail returns the audit entries of one record, oldest first.
func (s *SubmissionServiceImpl) GetAuditTrail(ctx context.Context, recordID uuid.UUID) ([]dtos.AuditEntryDTO, error) {
	entries, err := s.auditRepo.FindByRecordID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	trail := make([]dtos.AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dto, err := mappers.MapAuditEntryToDTO(entry)
		if err != nil {
			return nil, err
		}
		trail = append(trail, dto)
	}
	return trail, nil
}

// Compile-time check against the contract.
var _ SubmissionServiceContract = (*SubmissionServiceImpl)(nil)
