package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"ressync-audit-service/internal/domain/dtos"
	"ressync-audit-service/internal/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func validSubmission(recordID uuid.UUID) dtos.FormSubmission {
	return dtos.FormSubmission{
		FormType:      "discharge",
		RecordID:      recordID,
		Fields:        map[string]string{"STATUS": "Deceased", "DEATHDATE": "2025-01-10"},
		OldDataJSON:   `{"STATUS":"Alive","DEATHDATE":""}`,
		NewDataJSON:   `{"STATUS":"Deceased","DEATHDATE":"2025-01-10"}`,
		ReasonsJSON:   `{"STATUS":{"label":"Tình trạng bệnh nhân","reason":"tử vong"}}`,
		ReasonSummary: "Tình trạng bệnh nhân: tử vong",
		SubmittedBy:   "dr.nguyen",
	}
}

func waitForCount(t *testing.T, counter *int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if atomic.LoadInt32(counter) >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d calls, got %d", want, atomic.LoadInt32(counter))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitFormRejectsInvalidAuditDocuments(t *testing.T) {
	service := NewSubmissionService(&MockFormRecordRepository{}, &MockAuditEntryRepository{}, nil, nil)

	submission := validSubmission(uuid.New())
	submission.OldDataJSON = "{not json"

	_, err := service.SubmitForm(context.Background(), submission)
	assert.Error(t, err)
}

func TestSubmitFormRejectsMissingFormType(t *testing.T) {
	service := NewSubmissionService(&MockFormRecordRepository{}, &MockAuditEntryRepository{}, nil, nil)

	submission := validSubmission(uuid.New())
	submission.FormType = ""

	_, err := service.SubmitForm(context.Background(), submission)
	assert.Error(t, err)
}

func TestSubmitFormUpdatePersistsRecordAndAuditEntry(t *testing.T) {
	recordRepo := &MockFormRecordRepository{}
	auditRepo := &MockAuditEntryRepository{}
	publisher := &MockEventPublisher{}
	service := NewSubmissionService(recordRepo, auditRepo, publisher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))

	recordID := uuid.New()
	storedID, err := service.SubmitForm(ctx, validSubmission(recordID))
	require.NoError(t, err)
	assert.Equal(t, recordID, storedID, "updates keep the caller's record id")

	waitForCount(t, &auditRepo.CreateCallCount, 1)
	waitForCount(t, &recordRepo.UpdateCallCount, 1)
	assert.EqualValues(t, 0, atomic.LoadInt32(&recordRepo.CreateCallCount))

	entries, err := auditRepo.FindByRecordID(ctx, recordID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.AuditActionUpdate, entries[0].Action)
	assert.Equal(t, "Tình trạng bệnh nhân: tử vong", entries[0].ReasonSummary)
	require.NotNil(t, entries[0].SubmittedBy)
	assert.Equal(t, "dr.nguyen", *entries[0].SubmittedBy)

	require.Eventually(t, func() bool {
		return len(publisher.Events()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	var event map[string]any
	require.NoError(t, json.Unmarshal(publisher.Events()[0], &event))
	assert.Equal(t, "discharge", event["formType"])
	assert.Equal(t, "update", event["action"])

	require.NoError(t, service.Stop(ctx))
}

func TestSubmitFormCreateMintsRecordID(t *testing.T) {
	recordRepo := &MockFormRecordRepository{}
	auditRepo := &MockAuditEntryRepository{}
	service := NewSubmissionService(recordRepo, auditRepo, &MockEventPublisher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))

	storedID, err := service.SubmitForm(ctx, validSubmission(uuid.Nil))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, storedID)

	waitForCount(t, &recordRepo.CreateCallCount, 1)
	waitForCount(t, &auditRepo.CreateCallCount, 1)

	entries, err := auditRepo.FindByRecordID(ctx, storedID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.AuditActionCreate, entries[0].Action)

	require.NoError(t, service.Stop(ctx))
}

func TestGetAuditTrailMapsEntries(t *testing.T) {
	auditRepo := &MockAuditEntryRepository{}
	service := NewSubmissionService(&MockFormRecordRepository{}, auditRepo, nil, nil)

	recordID := uuid.New()
	require.NoError(t, auditRepo.Create(context.Background(), &entities.AuditEntry{
		ID:            uuid.New(),
		RecordID:      recordID,
		FormType:      "discharge",
		Action:        entities.AuditActionUpdate,
		OldData:       datatypes.JSON(`{"STATUS":"Alive"}`),
		NewData:       datatypes.JSON(`{"STATUS":"Deceased"}`),
		Reasons:       datatypes.JSON(`{"STATUS":{"label":"Tình trạng bệnh nhân","reason":"tử vong"}}`),
		ReasonSummary: "Tình trạng bệnh nhân: tử vong",
	}))

	trail, err := service.GetAuditTrail(context.Background(), recordID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "Alive", trail[0].OldData["STATUS"])
	assert.Equal(t, "Deceased", trail[0].NewData["STATUS"])
	assert.Equal(t, "tử vong", trail[0].Reasons["STATUS"].Reason)
}

func TestSubmitFormDuringShutdownIsRejected(t *testing.T) {
	recordRepo := &MockFormRecordRepository{}
	auditRepo := &MockAuditEntryRepository{}
	service := NewSubmissionService(recordRepo, auditRepo, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, service.Start(ctx))

	// Cancelling the context tears the worker pool down in the background,
	// the same window a SIGTERM opens while the listener is still serving.
	// Submissions racing the teardown must get an error, never a panic.
	cancel()
	require.Eventually(t, func() bool {
		_, err := service.SubmitForm(context.Background(), validSubmission(uuid.New()))
		if err == nil {
			return false
		}
		assert.ErrorIs(t, err, ErrServiceStopped)
		return true
	}, 2*time.Second, time.Millisecond)

	_, err := service.SubmitForm(context.Background(), validSubmission(uuid.New()))
	assert.ErrorIs(t, err, ErrServiceStopped, "the rejection is permanent once stopped")
}

func TestStopDrainsWorkers(t *testing.T) {
	recordRepo := &MockFormRecordRepository{}
	auditRepo := &MockAuditEntryRepository{}
	service := NewSubmissionService(recordRepo, auditRepo, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))

	for i := 0; i < 10; i++ {
		_, err := service.SubmitForm(ctx, validSubmission(uuid.New()))
		require.NoError(t, err)
	}

	require.NoError(t, service.Stop(ctx))
	waitForCount(t, &auditRepo.CreateCallCount, 10)
}
