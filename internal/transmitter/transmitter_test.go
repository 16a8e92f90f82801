package transmitter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
)

// mockSink 记录所有电平，可在第 failAt 次写入时返回错误
type mockSink struct {
	mu      sync.Mutex
	levels  []bool
	failAt  int // 0 表示不失败
	onLevel func(n int)
}

func (s *mockSink) SetLevel(high bool) error {
	s.mu.Lock()
	n := len(s.levels) + 1
	if s.failAt > 0 && n == s.failAt {
		s.mu.Unlock()
		return errors.New("gpio write failed")
	}
	s.levels = append(s.levels, high)
	cb := s.onLevel
	s.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return nil
}

func (s *mockSink) Levels() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.levels))
	copy(out, s.levels)
	return out
}

// mockSleeper 累计等待时长
type mockSleeper struct {
	calls int
	total uint64
}

func (s *mockSleeper) SleepMicros(usec uint32) {
	s.calls++
	s.total += uint64(usec)
}

func TestTransmit_OrderAndTiming(t *testing.T) {
	sink := &mockSink{}
	var trace []string
	sleeper := SleeperFunc(func(usec uint32) {
		trace = append(trace, "wait")
		assert.Equal(t, uint32(250), usec)
	})
	recording := &orderedSink{inner: sink, trace: &trace}

	levels := []bool{true, false, true}
	require.NoError(t, Transmit(levels, 250, recording, sleeper))

	assert.Equal(t, levels, sink.Levels())
	assert.Equal(t, []string{"set", "wait", "set", "wait", "set", "wait"}, trace)
}

type orderedSink struct {
	inner *mockSink
	trace *[]string
}

func (s *orderedSink) SetLevel(high bool) error {
	*s.trace = append(*s.trace, "set")
	return s.inner.SetLevel(high)
}

func TestTransmit_SinkFailure(t *testing.T) {
	sink := &mockSink{failAt: 3}
	sleeper := &mockSleeper{}

	err := Transmit([]bool{true, true, true, true}, 100, sink, sleeper)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputLine))
	assert.Len(t, sink.Levels(), 2, "已发送部分不撤回")
	assert.Equal(t, 2, sleeper.calls)
}

func TestSend_Repeat(t *testing.T) {
	sink := &mockSink{}
	sleeper := &mockSleeper{}
	tx := New(sink, sleeper, nil)

	p := collar.DefaultCommand()
	p.Repeat = 3

	sent, err := tx.Send(context.Background(), p, 250)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	levels := sink.Levels()
	require.Len(t, levels, 3*collar.FrameQuarterPhases)
	frame := collar.Encode(p)
	for i := 0; i < 3; i++ {
		assert.Equal(t, frame.Levels(), levels[i*collar.FrameQuarterPhases:(i+1)*collar.FrameQuarterPhases], "frame %d", i)
	}
	assert.Equal(t, uint64(3*collar.FrameQuarterPhases*250), sleeper.total)
}

func TestSend_CancelAfterFirstFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &mockSink{}
	sink.onLevel = func(n int) {
		// 第一帧最后一个电平写入时触发取消
		if n == collar.FrameQuarterPhases {
			cancel()
		}
	}
	tx := New(sink, &mockSleeper{}, nil)

	p := collar.DefaultCommand()
	p.Repeat = 5

	sent, err := tx.Send(ctx, p, 250)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, sink.Levels(), collar.FrameQuarterPhases, "只发送一整帧，不发送半帧")
}

func TestSend_CancelMidFrameCompletesFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &mockSink{}
	sink.onLevel = func(n int) {
		if n == 10 {
			cancel()
		}
	}
	tx := New(sink, &mockSleeper{}, nil)

	p := collar.DefaultCommand()
	p.Repeat = 5

	sent, err := tx.Send(ctx, p, 250)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, sink.Levels(), collar.FrameQuarterPhases)
}

func TestSend_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &mockSink{}
	sent, err := New(sink, &mockSleeper{}, nil).Send(ctx, collar.DefaultCommand(), 250)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, sink.Levels())
}

func TestSend_ZeroRepeat(t *testing.T) {
	sink := &mockSink{}
	p := collar.DefaultCommand()
	p.Repeat = 0

	sent, err := New(sink, &mockSleeper{}, nil).Send(context.Background(), p, 250)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, sink.Levels())
}

func TestSend_HardwareFaultAborts(t *testing.T) {
	sink := &mockSink{failAt: collar.FrameQuarterPhases + 5}
	p := collar.DefaultCommand()
	p.Repeat = 4

	sent, err := New(sink, &mockSleeper{}, nil).Send(context.Background(), p, 250)
	require.ErrorIs(t, err, ErrOutputLine)
	assert.Equal(t, 1, sent)
	assert.Len(t, sink.Levels(), collar.FrameQuarterPhases+4)
}

func TestSend_InvalidTimingUnit(t *testing.T) {
	_, err := New(&mockSink{}, &mockSleeper{}, nil).Send(context.Background(), collar.DefaultCommand(), 0)
	assert.ErrorIs(t, err, ErrInvalidTimingUnit)
	assert.ErrorIs(t, New(&mockSink{}, &mockSleeper{}, nil).SendCalibrationFrame(0), ErrInvalidTimingUnit)
}

func TestSendCalibrationFrame(t *testing.T) {
	sink := &mockSink{}
	sleeper := &mockSleeper{}
	require.NoError(t, New(sink, sleeper, nil).SendCalibrationFrame(100))

	var want collar.Waveform
	collar.EncodeCalibration(&want)
	assert.Equal(t, want.Levels(), sink.Levels())
	assert.Equal(t, collar.FrameQuarterPhases, sleeper.calls)
}
