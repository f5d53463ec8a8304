package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	capability "github.com/sells-group/complaint-cli/internal/capability"
	model "github.com/sells-group/complaint-cli/internal/model"
)

// MockTicketer is a mock type for the Ticketer interface.
type MockTicketer struct {
	mock.Mock
}

// CreateTicket provides a mock function with given fields: ctx, req
func (_m *MockTicketer) CreateTicket(ctx context.Context, req capability.TicketRequest) (*model.TicketRecord, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateTicket")
	}

	var r0 *model.TicketRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, capability.TicketRequest) (*model.TicketRecord, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, capability.TicketRequest) *model.TicketRecord); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.TicketRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, capability.TicketRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTicketer creates a new instance of MockTicketer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTicketer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTicketer {
	mock := &MockTicketer{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
