// Package mocks provides test doubles for the store.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/complaint-cli/internal/model"
	store "github.com/sells-group/complaint-cli/internal/store"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// AppendEvent provides a mock function with given fields: ctx, ev
func (_m *MockStore) AppendEvent(ctx context.Context, ev *model.AuditEvent) error {
	ret := _m.Called(ctx, ev)

	if len(ret) == 0 {
		panic("no return value specified for AppendEvent")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.AuditEvent) error); ok {
		r0 = rf(ctx, ev)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ArchiveRun provides a mock function with given fields: ctx, st
func (_m *MockStore) ArchiveRun(ctx context.Context, st *model.WorkflowState) error {
	ret := _m.Called(ctx, st)

	if len(ret) == 0 {
		panic("no return value specified for ArchiveRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.WorkflowState) error); ok {
		r0 = rf(ctx, st)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with given fields:
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CountBySource provides a mock function with given fields: ctx
func (_m *MockStore) CountBySource(ctx context.Context) (map[model.SourceKind]int, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for CountBySource")
	}

	var r0 map[model.SourceKind]int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (map[model.SourceKind]int, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) map[model.SourceKind]int); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(map[model.SourceKind]int)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CountByStatus provides a mock function with given fields: ctx
func (_m *MockStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for CountByStatus")
	}

	var r0 map[model.Status]int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (map[model.Status]int, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) map[model.Status]int); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(map[model.Status]int)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FindActiveTicket provides a mock function with given fields: ctx, complaintID
func (_m *MockStore) FindActiveTicket(ctx context.Context, complaintID string) (*model.TicketRecord, error) {
	ret := _m.Called(ctx, complaintID)

	if len(ret) == 0 {
		panic("no return value specified for FindActiveTicket")
	}

	var r0 *model.TicketRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.TicketRecord, error)); ok {
		return rf(ctx, complaintID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.TicketRecord); ok {
		r0 = rf(ctx, complaintID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.TicketRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, complaintID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FindTicketByToken provides a mock function with given fields: ctx, token
func (_m *MockStore) FindTicketByToken(ctx context.Context, token string) (*model.TicketRecord, error) {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for FindTicketByToken")
	}

	var r0 *model.TicketRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.TicketRecord, error)); ok {
		return rf(ctx, token)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.TicketRecord); ok {
		r0 = rf(ctx, token)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.TicketRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FindComplaintBySource provides a mock function with given fields: ctx, source, externalID
func (_m *MockStore) FindComplaintBySource(ctx context.Context, source model.SourceKind, externalID string) (*model.ComplaintRecord, error) {
	ret := _m.Called(ctx, source, externalID)

	if len(ret) == 0 {
		panic("no return value specified for FindComplaintBySource")
	}

	var r0 *model.ComplaintRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.SourceKind, string) (*model.ComplaintRecord, error)); ok {
		return rf(ctx, source, externalID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.SourceKind, string) *model.ComplaintRecord); ok {
		r0 = rf(ctx, source, externalID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ComplaintRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.SourceKind, string) error); ok {
		r1 = rf(ctx, source, externalID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetComplaint provides a mock function with given fields: ctx, id
func (_m *MockStore) GetComplaint(ctx context.Context, id string) (*model.ComplaintRecord, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetComplaint")
	}

	var r0 *model.ComplaintRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.ComplaintRecord, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.ComplaintRecord); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ComplaintRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetState provides a mock function with given fields: ctx, complaintID
func (_m *MockStore) GetState(ctx context.Context, complaintID string) (*model.WorkflowState, error) {
	ret := _m.Called(ctx, complaintID)

	if len(ret) == 0 {
		panic("no return value specified for GetState")
	}

	var r0 *model.WorkflowState
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.WorkflowState, error)); ok {
		return rf(ctx, complaintID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.WorkflowState); ok {
		r0 = rf(ctx, complaintID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.WorkflowState)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, complaintID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// InsertComplaint provides a mock function with given fields: ctx, rec
func (_m *MockStore) InsertComplaint(ctx context.Context, rec *model.ComplaintRecord) error {
	ret := _m.Called(ctx, rec)

	if len(ret) == 0 {
		panic("no return value specified for InsertComplaint")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.ComplaintRecord) error); ok {
		r0 = rf(ctx, rec)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListEvents provides a mock function with given fields: ctx, complaintID, limit
func (_m *MockStore) ListEvents(ctx context.Context, complaintID string, limit int) ([]model.AuditEvent, error) {
	ret := _m.Called(ctx, complaintID, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListEvents")
	}

	var r0 []model.AuditEvent
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]model.AuditEvent, error)); ok {
		return rf(ctx, complaintID, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) []model.AuditEvent); ok {
		r0 = rf(ctx, complaintID, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.AuditEvent)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, complaintID, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListRuns provides a mock function with given fields: ctx, complaintID
func (_m *MockStore) ListRuns(ctx context.Context, complaintID string) ([]model.WorkflowState, error) {
	ret := _m.Called(ctx, complaintID)

	if len(ret) == 0 {
		panic("no return value specified for ListRuns")
	}

	var r0 []model.WorkflowState
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.WorkflowState, error)); ok {
		return rf(ctx, complaintID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.WorkflowState); ok {
		r0 = rf(ctx, complaintID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.WorkflowState)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, complaintID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListStates provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListStates(ctx context.Context, filter store.StateFilter) ([]model.WorkflowState, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListStates")
	}

	var r0 []model.WorkflowState
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.StateFilter) ([]model.WorkflowState, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.StateFilter) []model.WorkflowState); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.WorkflowState)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.StateFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MaxTicketSequence provides a mock function with given fields: ctx, projectKey
func (_m *MockStore) MaxTicketSequence(ctx context.Context, projectKey string) (int, error) {
	ret := _m.Called(ctx, projectKey)

	if len(ret) == 0 {
		panic("no return value specified for MaxTicketSequence")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (int, error)); ok {
		return rf(ctx, projectKey)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) int); ok {
		r0 = rf(ctx, projectKey)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, projectKey)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SaveState provides a mock function with given fields: ctx, st
func (_m *MockStore) SaveState(ctx context.Context, st *model.WorkflowState) error {
	ret := _m.Called(ctx, st)

	if len(ret) == 0 {
		panic("no return value specified for SaveState")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.WorkflowState) error); ok {
		r0 = rf(ctx, st)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SaveTicket provides a mock function with given fields: ctx, t
func (_m *MockStore) SaveTicket(ctx context.Context, t *model.TicketRecord) error {
	ret := _m.Called(ctx, t)

	if len(ret) == 0 {
		panic("no return value specified for SaveTicket")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.TicketRecord) error); ok {
		r0 = rf(ctx, t)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SupersedeTickets provides a mock function with given fields: ctx, complaintID
func (_m *MockStore) SupersedeTickets(ctx context.Context, complaintID string) (int, error) {
	ret := _m.Called(ctx, complaintID)

	if len(ret) == 0 {
		panic("no return value specified for SupersedeTickets")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (int, error)); ok {
		return rf(ctx, complaintID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) int); ok {
		r0 = rf(ctx, complaintID)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, complaintID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStore creates a new instance of MockStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
