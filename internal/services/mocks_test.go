package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ressync-audit-service/internal/adapters"
	"ressync-audit-service/internal/domain/entities"
	"ressync-audit-service/internal/domain/repositories"

	"github.com/google/uuid"
)

// Compile-time checks that the mocks satisfy the contracts.
var (
	_ repositories.FormRecordRepositoryContract = (*MockFormRecordRepository)(nil)
	_ repositories.AuditEntryRepositoryContract = (*MockAuditEntryRepository)(nil)
	_ adapters.AuditEventPublisher              = (*MockEventPublisher)(nil)
)

// MockFormRecordRepository is a function-field mock of the form-record store.
type MockFormRecordRepository struct {
	CreateFunc func(ctx context.Context, record *entities.FormRecord) error
	UpdateFunc func(ctx context.Context, record *entities.FormRecord) error

	CreateCallCount int32
	UpdateCallCount int32

	mu      sync.Mutex
	records []*entities.FormRecord
}

func (m *MockFormRecordRepository) Create(ctx context.Context, record *entities.FormRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	return nil
}

func (m *MockFormRecordRepository) Update(ctx context.Context, record *entities.FormRecord) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, record)
	}
	return nil
}

func (m *MockFormRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.FormRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, nil
}

func (m *MockFormRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("Delete not implemented in mock")
}

func (m *MockFormRecordRepository) FindByFormType(ctx context.Context, formType string) ([]*entities.FormRecord, error) {
	return nil, nil
}

func (m *MockFormRecordRepository) ListAll(ctx context.Context) ([]*entities.FormRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.FormRecord(nil), m.records...), nil
}

// MockAuditEntryRepository is a function-field mock of the audit-trail store.
type MockAuditEntryRepository struct {
	CreateFunc func(ctx context.Context, entry *entities.AuditEntry) error

	CreateCallCount int32

	mu      sync.Mutex
	entries []*entities.AuditEntry
}

func (m *MockAuditEntryRepository) Create(ctx context.Context, entry *entities.AuditEntry) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return nil
}

func (m *MockAuditEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.AuditEntry, error) {
	return nil, errors.New("GetByID not implemented in mock")
}

func (m *MockAuditEntryRepository) FindByRecordID(ctx context.Context, recordID uuid.UUID) ([]*entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*entities.AuditEntry
	for _, entry := range m.entries {
		if entry.RecordID == recordID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (m *MockAuditEntryRepository) ListAll(ctx context.Context) ([]*entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.AuditEntry(nil), m.entries...), nil
}

// MockEventPublisher captures published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events [][]byte
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, event []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

func (m *MockEventPublisher) Events() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.events...)
}
