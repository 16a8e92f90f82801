package gpio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubSink(t *testing.T) {
	t.Run("记录电平与跳变", func(t *testing.T) {
		s := NewStubSink(0)
		for _, l := range []bool{true, true, false, true} {
			require.NoError(t, s.SetLevel(l))
		}
		assert.Equal(t, []bool{true, true, false, true}, s.Levels())
		assert.Equal(t, StubStats{Levels: 4, Transitions: 2}, s.Stats())
	})

	t.Run("保留上限", func(t *testing.T) {
		s := NewStubSink(2)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.SetLevel(true))
		}
		assert.Len(t, s.Levels(), 2)
		assert.Equal(t, uint64(5), s.Stats().Levels)
	})

	t.Run("关闭后写入失败", func(t *testing.T) {
		s := NewStubSink(0)
		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.SetLevel(true), ErrLineClosed)
	})

	t.Run("重置", func(t *testing.T) {
		s := NewStubSink(0)
		_ = s.SetLevel(true)
		s.Reset()
		assert.Empty(t, s.Levels())
		assert.Zero(t, s.Stats().Levels)
	})
}

func TestPreciseSleeper(t *testing.T) {
	s := NewPreciseSleeper()

	start := time.Now()
	s.SleepMicros(300)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Microsecond)

	start = time.Now()
	s.SleepMicros(50)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Microsecond)

	start = time.Now()
	s.SleepMicros(0)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestOpenRPIO_InvalidPin(t *testing.T) {
	_, err := OpenRPIO(40)
	assert.Error(t, err)
}
