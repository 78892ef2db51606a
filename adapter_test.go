package vhkb

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegisters struct {
	mock.Mock
}

func (m *MockRegisters) Read(ctx context.Context, register, count int) (map[string]int, error) {
	args := m.Called(ctx, register, count)
	values, _ := args.Get(0).(map[string]int)
	return values, args.Error(1)
}

func (m *MockRegisters) Write(ctx context.Context, register, value int) error {
	args := m.Called(ctx, register, value)
	return args.Error(0)
}

type fakeSwitch struct {
	resets atomic.Int32
}

func (s *fakeSwitch) SetOn(on bool) {
	if !on {
		s.resets.Add(1)
	}
}

var errGone = &UnreachableError{Attempts: 3, Last: &TransportError{Op: "read", Register: 1130, Err: errors.New("connection refused")}}

func newTestAdapter(t *testing.T) (*Adapter, *MockRegisters, *fakeSwitch) {
	t.Helper()
	regs := new(MockRegisters)
	sw := &fakeSwitch{}
	a := NewAdapter(regs, sw, nil)
	t.Cleanup(a.Close)
	return a, regs, sw
}

func TestSetActive(t *testing.T) {
	a, regs, _ := newTestAdapter(t)
	regs.On("Write", mock.Anything, 1130, 1).Return(nil).Once()
	regs.On("Write", mock.Anything, 1130, 0).Return(nil).Once()

	require.NoError(t, a.SetActive(context.Background(), true))
	require.NoError(t, a.SetActive(context.Background(), false))
	regs.AssertExpectations(t)
}

func TestGetActive(t *testing.T) {
	tests := []struct {
		raw  int
		want bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{4, true},
		{-1, false},
	}
	for _, tt := range tests {
		a, regs, _ := newTestAdapter(t)
		regs.On("Read", mock.Anything, 1130, 1).Return(map[string]int{"1130": tt.raw}, nil)

		got, err := a.GetActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "raw %d", tt.raw)
	}
}

func TestGetActiveIsStable(t *testing.T) {
	a, regs, _ := newTestAdapter(t)
	regs.On("Read", mock.Anything, 1130, 1).Return(map[string]int{"1130": 3}, nil).Twice()

	first, err := a.GetActive(context.Background())
	require.NoError(t, err)
	second, err := a.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	regs.AssertExpectations(t)
}

func TestGetActiveMissingRegister(t *testing.T) {
	a, regs, _ := newTestAdapter(t)
	regs.On("Read", mock.Anything, 1130, 1).Return(map[string]int{}, nil)

	got, err := a.GetActive(context.Background())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSetRotationSpeed(t *testing.T) {
	tests := []struct {
		percent int
		level   int
	}{
		{0, 0},
		{1, 2},
		{34, 2},
		{35, 3},
		{57, 3},
		{58, 4},
		{100, 4},
		{-5, 0},
		{150, 4},
	}
	for _, tt := range tests {
		a, regs, _ := newTestAdapter(t)
		regs.On("Write", mock.Anything, 1130, tt.level).Return(nil).Once()

		require.NoError(t, a.SetRotationSpeed(context.Background(), tt.percent))
		regs.AssertExpectations(t)
	}
}

func TestGetRotationSpeed(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 25},
		{3, 45},
		{4, 70},
		{5, 0},
		{-3, 0},
	}
	for _, tt := range tests {
		a, regs, _ := newTestAdapter(t)
		regs.On("Read", mock.Anything, 1130, 1).Return(map[string]int{"1130": tt.level}, nil)

		got, err := a.GetRotationSpeed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %d", tt.level)
	}
}

func TestUnreachablePropagates(t *testing.T) {
	a, regs, _ := newTestAdapter(t)
	regs.On("Read", mock.Anything, 1130, 1).Return(nil, errGone)
	regs.On("Write", mock.Anything, 1130, mock.Anything).Return(errGone)

	_, err := a.GetActive(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnreachable)

	_, err = a.GetRotationSpeed(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnreachable)

	assert.ErrorIs(t, a.SetActive(context.Background(), true), ErrDeviceUnreachable)
	assert.ErrorIs(t, a.SetRotationSpeed(context.Background(), 50), ErrDeviceUnreachable)
}

func TestSetRefreshOff(t *testing.T) {
	a, regs, sw := newTestAdapter(t)
	a.resetDelay = time.Millisecond

	require.NoError(t, a.SetRefresh(context.Background(), false))
	time.Sleep(20 * time.Millisecond)

	regs.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	regs.AssertNotCalled(t, "Read", mock.Anything, mock.Anything, mock.Anything)
	assert.EqualValues(t, 0, sw.resets.Load())
}

func TestSetRefreshResetsSwitch(t *testing.T) {
	a, regs, sw := newTestAdapter(t)
	a.resetDelay = 10 * time.Millisecond
	regs.On("Write", mock.Anything, 1161, 4).Return(nil).Once()

	require.NoError(t, a.SetRefresh(context.Background(), true))
	regs.AssertExpectations(t)

	assert.Eventually(t, func() bool { return sw.resets.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, sw.resets.Load())
}

func TestSetRefreshDefaultDelay(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	assert.Equal(t, time.Second, a.resetDelay)
}

func TestSetRefreshWriteFails(t *testing.T) {
	a, regs, sw := newTestAdapter(t)
	a.resetDelay = time.Millisecond
	regs.On("Write", mock.Anything, 1161, 4).Return(errGone)

	assert.ErrorIs(t, a.SetRefresh(context.Background(), true), ErrDeviceUnreachable)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, sw.resets.Load())
}

func TestCloseCancelsPendingReset(t *testing.T) {
	regs := new(MockRegisters)
	sw := &fakeSwitch{}
	a := NewAdapter(regs, sw, nil)
	a.resetDelay = time.Hour
	regs.On("Write", mock.Anything, 1161, 4).Return(nil)

	require.NoError(t, a.SetRefresh(context.Background(), true))

	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() did not return")
	}
	assert.EqualValues(t, 0, sw.resets.Load())
}

func TestGetTimer(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{-50, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		a, regs, _ := newTestAdapter(t)
		regs.On("Read", mock.Anything, 1110, 2).Return(map[string]int{"1110": tt.raw, "1111": 7}, nil)

		assert.Equal(t, tt.want, a.GetTimer(context.Background()), "raw %d", tt.raw)
	}
}

func TestGetTimerUnreachable(t *testing.T) {
	regs := new(MockRegisters)
	m := NewMetrics(prometheus.NewRegistry())
	a := NewAdapter(regs, &fakeSwitch{}, m)
	defer a.Close()
	regs.On("Read", mock.Anything, 1110, 2).Return(nil, errGone)

	m.timer(55)
	assert.Equal(t, 0, a.GetTimer(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.timerLevel))
}
