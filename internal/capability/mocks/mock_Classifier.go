// Package mocks provides test doubles for the capability providers.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	capability "github.com/sells-group/complaint-cli/internal/capability"
	model "github.com/sells-group/complaint-cli/internal/model"
)

// MockClassifier is a mock type for the Classifier interface.
type MockClassifier struct {
	mock.Mock
}

// Analyze provides a mock function with given fields: ctx, req
func (_m *MockClassifier) Analyze(ctx context.Context, req capability.AnalysisRequest) (*model.AnalysisResult, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Analyze")
	}

	var r0 *model.AnalysisResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, capability.AnalysisRequest) (*model.AnalysisResult, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, capability.AnalysisRequest) *model.AnalysisResult); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.AnalysisResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, capability.AnalysisRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClassifier creates a new instance of MockClassifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClassifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClassifier {
	mock := &MockClassifier{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
