package intercessor

import "fmt"

// RepeatType is the unit a repeat rule counts in.
type RepeatType string

const (
	Day   RepeatType = "day"
	Week  RepeatType = "week"
	Month RepeatType = "month"
	Year  RepeatType = "year"
)

// Valid reports whether the type is one of the four known units.
func (rt RepeatType) Valid() bool {
	switch rt {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// Repeat describes how often a task recurs: every Interval units of Type.
type Repeat struct {
	Type     RepeatType `json:"type" yaml:"type"`
	Interval int        `json:"interval" yaml:"interval"`
}

// NewRepeat builds a repeat rule. An interval below 1 is normalized to 1.
func NewRepeat(rt RepeatType, interval int) *Repeat {
	if interval < 1 {
		interval = 1
	}
	return &Repeat{Type: rt, Interval: interval}
}

// Daily returns a repeat rule for every day.
func Daily() *Repeat { return NewRepeat(Day, 1) }

// Weekly returns a repeat rule for every week.
func Weekly() *Repeat { return NewRepeat(Week, 1) }

// Monthly returns a repeat rule for every month.
func Monthly() *Repeat { return NewRepeat(Month, 1) }

// Yearly returns a repeat rule for every year.
func Yearly() *Repeat { return NewRepeat(Year, 1) }

// Validate checks the rule's invariants: a known type and interval >= 1.
func (r *Repeat) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown repeat type %q", r.Type)
	}
	if r.Interval < 1 {
		return fmt.Errorf("repeat interval must be at least 1 (got %d)", r.Interval)
	}
	return nil
}
