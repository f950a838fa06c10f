package todoist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/todomove/todoist/internal/intercessor"
)

// Todoist expresses recurrence as natural-language date strings ("every 3
// days", "every sat", "every 20th"). This file translates between that
// phrase language and the structured intercessor.Repeat rule.

var (
	ordinalDayRe = regexp.MustCompile(`^[0-9]{1,2}(nd|th|st)$`)
	intervalRe   = regexp.MustCompile(`^([0-9]+) ([a-z]+)$`)
)

var weekdayNames = map[string]bool{
	"monday": true, "mon": true,
	"tuesday": true, "tue": true,
	"wednesday": true, "wed": true,
	"thursday": true, "thu": true,
	"friday": true, "fri": true,
	"saturday": true, "sat": true,
	"sunday": true, "sun": true,
}

// IsRecurring reports whether a Todoist date string denotes a recurrence.
// Only strings starting with "every " qualify; anything else is a plain
// date and is none of the translator's business.
func IsRecurring(dateString string) bool {
	return strings.HasPrefix(strings.ToLower(dateString), "every ")
}

// ParseRepeat translates a recurring date string into a repeat rule.
//
// After stripping the "every " prefix, the first matching form wins:
//
//  1. a bare unit word ("day", "week", "month", "year")
//  2. a weekday name or three-letter abbreviation, which repeats weekly;
//     the concrete weekday is not retained because the task's due date
//     already encodes it
//  3. an ordinal day of month ("2nd", "20th"), which repeats monthly
//  4. "<n> days|weeks|months|years" with an explicit interval
//
// Anything else fails with ErrUnsupportedRecurrence.
func ParseRepeat(dateString string) (*intercessor.Repeat, error) {
	phrase := strings.ToLower(strings.TrimSpace(dateString))
	phrase = strings.TrimPrefix(phrase, "every ")

	switch phrase {
	case "day":
		return intercessor.Daily(), nil
	case "week":
		return intercessor.Weekly(), nil
	case "month":
		return intercessor.Monthly(), nil
	case "year":
		return intercessor.Yearly(), nil
	}

	if weekdayNames[phrase] {
		return intercessor.Weekly(), nil
	}

	if ordinalDayRe.MatchString(phrase) {
		return intercessor.Monthly(), nil
	}

	if m := intervalRe.FindStringSubmatch(phrase); m != nil {
		interval, err := strconv.Atoi(m[1])
		if err != nil || interval < 1 {
			return nil, fmt.Errorf("%w: bad interval in %q", ErrUnsupportedRecurrence, dateString)
		}
		switch m[2] {
		case "days":
			return intercessor.NewRepeat(intercessor.Day, interval), nil
		case "weeks":
			return intercessor.NewRepeat(intercessor.Week, interval), nil
		case "months":
			return intercessor.NewRepeat(intercessor.Month, interval), nil
		case "years":
			return intercessor.NewRepeat(intercessor.Year, interval), nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedRecurrence, dateString)
}

// FormatRepeat renders a repeat rule as a Todoist date string: "every day",
// "every 3 weeks". It is the exact inverse of ParseRepeat for the bare-unit
// and interval forms; weekday and ordinal phrases parse but do not
// regenerate.
func FormatRepeat(r *intercessor.Repeat) (string, error) {
	var unit string
	switch r.Type {
	case intercessor.Day:
		unit = "day"
	case intercessor.Week:
		unit = "week"
	case intercessor.Month:
		unit = "month"
	case intercessor.Year:
		unit = "year"
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRepeatType, r.Type)
	}

	if r.Interval > 1 {
		return fmt.Sprintf("every %d %ss", r.Interval, unit), nil
	}
	return "every " + unit, nil
}
