package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parserOptions accepts standard five-field cron expressions plus the
// @hourly/@daily descriptors.
const parserOptions = cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Calculator validates cron expressions and computes firing times.
type Calculator struct {
	parser cron.Parser
}

func NewCalculator() *Calculator {
	return &Calculator{parser: cron.NewParser(parserOptions)}
}

func (c *Calculator) Validate(expr string) error {
	if _, err := c.parser.Parse(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return nil
}

func (c *Calculator) Next(expr string, after time.Time) (time.Time, error) {
	sched, err := c.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return sched.Next(after), nil
}
