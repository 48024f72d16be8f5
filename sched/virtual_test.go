package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualFiresInTimeOrder(t *testing.T) {
	v := NewVirtual()

	var fired []string
	v.ScheduleAt(3.0, func() { fired = append(fired, "c") })
	v.ScheduleAt(1.0, func() { fired = append(fired, "a") })
	v.ScheduleAt(2.0, func() { fired = append(fired, "b") })

	v.Run(10)

	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 10.0, v.Now())
}

func TestVirtualBreaksTiesByInsertionOrder(t *testing.T) {
	v := NewVirtual()

	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		v.ScheduleAt(1.0, func() { fired = append(fired, i) })
	}
	v.Run(1)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, fired)
}

func TestVirtualStepAdvancesClock(t *testing.T) {
	v := NewVirtual()

	ran := false
	v.ScheduleAt(2.5, func() { ran = true })

	require.True(t, v.Step())
	assert.True(t, ran)
	assert.Equal(t, 2.5, v.Now())
	assert.False(t, v.Step(), "empty queue must not step")
}

func TestVirtualPastDeadlineFiresImmediately(t *testing.T) {
	v := NewVirtual()
	v.ScheduleAt(5, func() {})
	v.Run(5)
	require.Equal(t, 5.0, v.Now())

	ran := false
	v.ScheduleAt(1, func() { ran = true }) // already in the past

	require.True(t, v.Step())
	assert.True(t, ran)
	assert.Equal(t, 5.0, v.Now(), "clock must not move backwards")
}

func TestVirtualCancel(t *testing.T) {
	v := NewVirtual()

	ran := false
	timer := v.ScheduleAt(1, func() { ran = true })

	require.True(t, timer.Cancel())
	assert.False(t, timer.Cancel(), "second cancel reports not pending")

	v.Run(10)
	assert.False(t, ran)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtualRunStopsAtDeadline(t *testing.T) {
	v := NewVirtual()

	var fired []float64
	v.ScheduleAt(1, func() { fired = append(fired, 1) })
	v.ScheduleAt(2, func() { fired = append(fired, 2) })
	v.ScheduleAt(9, func() { fired = append(fired, 9) })

	v.Run(5)

	assert.Equal(t, []float64{1, 2}, fired)
	assert.Equal(t, 5.0, v.Now())
	assert.Equal(t, 1, v.Pending())
}

func TestVirtualReentrantScheduling(t *testing.T) {
	v := NewVirtual()

	var fired []string
	v.ScheduleAt(1, func() {
		fired = append(fired, "outer")
		v.ScheduleAt(v.Now()+1, func() { fired = append(fired, "inner") })
	})

	v.Run(10)
	assert.Equal(t, []string{"outer", "inner"}, fired)
}
