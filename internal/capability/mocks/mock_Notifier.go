package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	capability "github.com/sells-group/complaint-cli/internal/capability"
	model "github.com/sells-group/complaint-cli/internal/model"
)

// MockNotifier is a mock type for the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, n
func (_m *MockNotifier) Notify(ctx context.Context, n capability.Notification) (model.DeliveryStatus, error) {
	ret := _m.Called(ctx, n)

	if len(ret) == 0 {
		panic("no return value specified for Notify")
	}

	var r0 model.DeliveryStatus
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, capability.Notification) (model.DeliveryStatus, error)); ok {
		return rf(ctx, n)
	}
	if rf, ok := ret.Get(0).(func(context.Context, capability.Notification) model.DeliveryStatus); ok {
		r0 = rf(ctx, n)
	} else {
		r0 = ret.Get(0).(model.DeliveryStatus)
	}

	if rf, ok := ret.Get(1).(func(context.Context, capability.Notification) error); ok {
		r1 = rf(ctx, n)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	mock := &MockNotifier{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
