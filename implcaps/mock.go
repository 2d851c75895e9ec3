package implcaps

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/tda/datapoint"
	"github.com/stretchr/testify/mock"
)

type MockTDAInterface struct {
	mock.Mock
}

func (m *MockTDAInterface) Logger() logwrap.Logger {
	return m.Called().Get(0).(logwrap.Logger)
}

func (m *MockTDAInterface) SendEvent(a any) {
	m.Called(a)
}

func (m *MockTDAInterface) DataPoint(d da.Device, entity int, id string) (datapoint.DataPoint, bool) {
	args := m.Called(d, entity, id)

	if v := args.Get(0); v != nil {
		return v.(datapoint.DataPoint), args.Bool(1)
	}

	return nil, args.Bool(1)
}

func (m *MockTDAInterface) Subscribe(d da.Device, f func(context.Context, datapoint.Updated) error) bool {
	return m.Called(d, f).Bool(0)
}

var _ TDAInterface = (*MockTDAInterface)(nil)
