// Package cronspec validates job payloads and parses the custom 8-field
// cron dialect described in the external interfaces: second, minute,
// hour, day_of_week, week, day, month, year, space-separated, with `_`
// standing in for a literal space inside a token and `?` in the first
// three positions substituted with a random value.
package cronspec

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// fieldNames is the dialect's token order.
var fieldNames = [8]string{
	"second", "minute", "hour", "day_of_week", "week", "day", "month", "year",
}

// dialectError reports a schedule the dialect cannot parse, including one
// that carries more than the eight tokens the dialect recognizes. The spec's open question on
// trailing tokens is resolved in favor of rejecting them.
type dialectError struct {
	msg string
}

func (e *dialectError) Error() string { return e.msg }

// ParseDialect parses the raw schedule string, substituting `?` wildcards
// in the first three positions with a random value and returning both the
// structured fields and the rewritten schedule string with the chosen
// values spliced in. A schedule with no `?` round-trips to the same
// parsedSchedule on every call (idempotence).
func ParseDialect(raw string) (*jobmodel.ParsedSchedule, string, error) {
	tokensRaw := strings.Fields(raw)
	if len(tokensRaw) == 0 {
		return nil, "", &dialectError{"schedule must have at least one field"}
	}
	if len(tokensRaw) > len(fieldNames) {
		return nil, "", &dialectError{fmt.Sprintf("schedule has %d fields, at most %d are allowed", len(tokensRaw), len(fieldNames))}
	}

	values := make([]string, len(fieldNames))
	for i := range values {
		values[i] = "*"
	}

	for i, tok := range tokensRaw {
		if tok == "?" {
			if i > 2 {
				return nil, "", &dialectError{fmt.Sprintf("%q is only allowed in the first three fields", "?")}
			}
			tokensRaw[i] = randomWildcard(i)
			logger.DebugF("substituted wildcard in %s field of %q with %s", fieldNames[i], raw, tokensRaw[i])
		}
		values[i] = strings.ReplaceAll(tokensRaw[i], "_", " ")
	}

	ps := &jobmodel.ParsedSchedule{
		Second:     values[0],
		Minute:     values[1],
		Hour:       values[2],
		DayOfWeek:  values[3],
		Week:       values[4],
		Day:        values[5],
		Month:      values[6],
		Year:       values[7],
	}

	if err := validateParsedSchedule(ps); err != nil {
		return nil, "", err
	}

	rewritten := strings.Join(tokensRaw, " ")
	return ps, rewritten, nil
}

// randomWildcard returns the substitution for a `?` token at the given
// position: [0,60) for second/minute, [0,24) for hour.
func randomWildcard(pos int) string {
	switch pos {
	case 0, 1:
		return strconv.Itoa(rand.Intn(60))
	case 2:
		return strconv.Itoa(rand.Intn(24))
	default:
		// unreachable: callers only invoke this for pos <= 2
		return "0"
	}
}

// ValidateParsedSchedule re-validates an already-parsed schedule, used to
// re-check records loaded from storage without re-running the dialect
// parser (no `?` substitution, no rewritten-string bookkeeping).
func ValidateParsedSchedule(ps *jobmodel.ParsedSchedule) error {
	return validateParsedSchedule(ps)
}

// validateParsedSchedule confirms the field set constructs a valid firing
// rule by building matchers for every field; any field-level error is
// reported under the single "parsedSchedule" key per §4.3.
func validateParsedSchedule(ps *jobmodel.ParsedSchedule) error {
	if _, err := newNumericMatcher(ps.Second, 0, 59); err != nil {
		return fmt.Errorf("second: %w", err)
	}
	if _, err := newNumericMatcher(ps.Minute, 0, 59); err != nil {
		return fmt.Errorf("minute: %w", err)
	}
	if _, err := newNumericMatcher(ps.Hour, 0, 23); err != nil {
		return fmt.Errorf("hour: %w", err)
	}
	if _, err := newDayOfWeekMatcher(ps.DayOfWeek); err != nil {
		return fmt.Errorf("day_of_week: %w", err)
	}
	if _, err := newNumericMatcher(ps.Week, 1, 53); err != nil {
		return fmt.Errorf("week: %w", err)
	}
	if _, err := newDayMatcher(ps.Day); err != nil {
		return fmt.Errorf("day: %w", err)
	}
	if _, err := newNumericMatcher(ps.Month, 1, 12); err != nil {
		return fmt.Errorf("month: %w", err)
	}
	if _, err := newNumericMatcher(ps.Year, 1970, 2200); err != nil {
		return fmt.Errorf("year: %w", err)
	}
	return nil
}
