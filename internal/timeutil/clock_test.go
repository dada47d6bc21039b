package timeutil

import (
	"testing"
	"time"
)

func TestRealClockBasics(t *testing.T) {
	c := RealClock{}
	before := c.Now()
	if c.Since(before) < 0 {
		t.Error("Since returned negative duration")
	}
	ticker := c.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2018, 1, 25, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}

func TestMockClockSleepAdvances(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	c.Sleep(time.Hour)
	if got := c.Now(); !got.Equal(time.Unix(3600, 0)) {
		t.Errorf("Now after Sleep = %v", got)
	}
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before any time passed")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	ticker.Stop()
	c.Advance(10 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
