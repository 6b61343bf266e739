package game

import (
	"github.com/LivingInDrm/sudanlike/internal/events"
	"go.uber.org/zap"
)

// HistoryCapacity bounds the rewind history; the oldest snapshot is evicted.
const HistoryCapacity = 10

// Clock tracks the current day, the execution countdown and the rewind
// history.
type Clock struct {
	day       int
	countdown int
	history   []*SaveSnapshot
	bus       *events.Bus
	logger    *zap.Logger
}

// NewClock starts on day one with executionDays left.
func NewClock(executionDays int, bus *events.Bus, logger *zap.Logger) *Clock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clock{day: 1, countdown: max(0, executionDays), bus: bus, logger: logger}
}

func (c *Clock) Day() int       { return c.day }
func (c *Clock) Countdown() int { return c.countdown }

// AdvanceDay moves to the next day. The countdown floors at zero.
func (c *Clock) AdvanceDay() {
	c.day++
	c.countdown = max(0, c.countdown-1)
	c.logger.Debug("day advanced", zap.Int("day", c.day), zap.Int("countdown", c.countdown))
	c.bus.Publish(events.DayStart, map[string]any{"day": c.day, "countdown": c.countdown})
}

// IsExecutionDay reports whether the countdown has run out.
func (c *Clock) IsExecutionDay() bool {
	return c.countdown == 0
}

// Set overwrites day and countdown, used when loading.
func (c *Clock) Set(day, countdown int) {
	c.day = max(1, day)
	c.countdown = max(0, countdown)
}

// PushSnapshot records a rewind point.
func (c *Clock) PushSnapshot(s *SaveSnapshot) {
	c.history = append(c.history, s)
	if len(c.history) > HistoryCapacity {
		c.history[0] = nil
		c.history = c.history[1:]
	}
}

// PopSnapshot removes and returns the most recent rewind point.
func (c *Clock) PopSnapshot() (*SaveSnapshot, bool) {
	n := len(c.history)
	if n == 0 {
		return nil, false
	}
	s := c.history[n-1]
	c.history[n-1] = nil
	c.history = c.history[:n-1]
	return s, true
}

func (c *Clock) CanRewind() bool { return len(c.history) > 0 }
func (c *Clock) HistoryLen() int { return len(c.history) }
func (c *Clock) ClearHistory()   { c.history = nil }
