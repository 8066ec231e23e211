package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_ScheduleOneShot(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	var fired int32
	manager.Schedule(10*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("one-shot task fired %d times", got)
	}
}

func TestManager_SchedulePeriodic(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	var fired int32
	manager.Schedule(10*time.Millisecond, 50*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got < 2 {
		t.Errorf("periodic task fired only %d times", got)
	}
}

func TestManager_Cancel(t *testing.T) {
	manager := NewManager()
	defer manager.Stop()

	var fired int32
	id := manager.Schedule(150*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})
	manager.Cancel(id)

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("cancelled task fired %d times", got)
	}
}
