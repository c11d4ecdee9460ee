package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeNowAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()

	c.Advance(30 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case got := <-tk.C():
		assert.Equal(t, time.Unix(60, 0), got)
	default:
		t.Fatal("ticker did not fire")
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tk := c.NewTicker(time.Second)
	tk.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeSetBackwards(t *testing.T) {
	c := NewFake(time.Unix(100, 0))
	c.Set(time.Unix(50, 0))
	require.Equal(t, time.Unix(50, 0), c.Now())
}

func TestNewTickerPanicsOnZero(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	assert.Panics(t, func() { c.NewTicker(0) })
}
