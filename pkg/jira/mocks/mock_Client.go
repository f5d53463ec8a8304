// Package mocks provides test doubles for the Jira client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	jira "github.com/sells-group/complaint-cli/pkg/jira"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CreateIssue provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateIssue(ctx context.Context, req jira.IssueRequest) (*jira.Issue, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateIssue")
	}

	var r0 *jira.Issue
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, jira.IssueRequest) (*jira.Issue, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, jira.IssueRequest) *jira.Issue); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*jira.Issue)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, jira.IssueRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SearchByLabel provides a mock function with given fields: ctx, label
func (_m *MockClient) SearchByLabel(ctx context.Context, label string) ([]jira.Issue, error) {
	ret := _m.Called(ctx, label)

	if len(ret) == 0 {
		panic("no return value specified for SearchByLabel")
	}

	var r0 []jira.Issue
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]jira.Issue, error)); ok {
		return rf(ctx, label)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []jira.Issue); ok {
		r0 = rf(ctx, label)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]jira.Issue)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, label)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
