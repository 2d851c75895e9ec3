package datapoint

import (
	"context"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Status(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)

	if v := args.Get(0); v != nil {
		return v.(map[string]any), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockTransport) Set(ctx context.Context, values map[string]any) error {
	return m.Called(ctx, values).Error(0)
}

var _ Transport = (*MockTransport)(nil)

type MockDataPoint struct {
	mock.Mock
}

func (m *MockDataPoint) ID() string {
	return m.Called().String(0)
}

func (m *MockDataPoint) Name() string {
	return m.Called().String(0)
}

func (m *MockDataPoint) Value() (any, bool) {
	args := m.Called()
	return args.Get(0), args.Bool(1)
}

func (m *MockDataPoint) SetValue(ctx context.Context, v any) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockDataPoint) Values() []any {
	args := m.Called()

	if v := args.Get(0); v != nil {
		return v.([]any)
	}

	return nil
}

var _ DataPoint = (*MockDataPoint)(nil)
