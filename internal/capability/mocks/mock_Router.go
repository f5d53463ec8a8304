package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	capability "github.com/sells-group/complaint-cli/internal/capability"
	model "github.com/sells-group/complaint-cli/internal/model"
)

// MockRouter is a mock type for the Router interface.
type MockRouter struct {
	mock.Mock
}

// Route provides a mock function with given fields: ctx, req
func (_m *MockRouter) Route(ctx context.Context, req capability.RouteRequest) (*model.RoutingDecision, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Route")
	}

	var r0 *model.RoutingDecision
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, capability.RouteRequest) (*model.RoutingDecision, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, capability.RouteRequest) *model.RoutingDecision); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.RoutingDecision)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, capability.RouteRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockRouter creates a new instance of MockRouter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockRouter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRouter {
	mock := &MockRouter{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
