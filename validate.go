package rrule

import "time"

// Limits bounds how far a rule is allowed to reach before the validator
// refuses it outright, independent of whatever COUNT/UNTIL the rule itself
// carries. They are deliberately tighter than the RFC
// permits so a single counter advance can never overflow the supported
// year range; set ROption.Unsafe to bypass them.
type Limits struct {
	MaxYearlyInterval   int
	MaxMonthlyInterval  int
	MaxWeeklyInterval   int
	MaxDailyInterval    int
	MaxHourlyInterval   int
	MaxMinutelyInterval int
	MaxSecondlyInterval int
	MinYear             int
	MaxYear             int
	// MaxLoopIterations backstops the inner rebuild loop (counter.go)
	// against pathological combinations of BY-rules.
	MaxLoopIterations int
	// MaxExclusionRounds backstops Set's EXRULE-subtraction loop (set.go).
	MaxExclusionRounds int
}

// DefaultLimits are the stock safety limits.
var DefaultLimits = Limits{
	MaxYearlyInterval:   10000,
	MaxMonthlyInterval:  1000,
	MaxWeeklyInterval:   1000,
	MaxDailyInterval:    10000,
	MaxHourlyInterval:   10000,
	MaxMinutelyInterval: 10000,
	MaxSecondlyInterval: 50000,
	MinYear:             MINYEAR,
	MaxYear:             MAXYEAR,
	MaxLoopIterations:   100000,
	MaxExclusionRounds:  100000,
}

// validateBounds enforces the RFC invariants and, unless arg.Unsafe is set,
// the safety limits from DefaultLimits. It is the sole Unvalidated ->
// Validated gate: NewRRule refuses to build an *RRule on any failure.
func validateBounds(arg ROption) error {
	bounds := []struct {
		field     []int
		param     string
		bound     [2]int
		plusMinus bool
	}{
		{arg.Bysecond, "Bysecond", [2]int{0, 59}, false},
		{arg.Byminute, "Byminute", [2]int{0, 59}, false},
		{arg.Byhour, "Byhour", [2]int{0, 23}, false},
		{arg.Bymonthday, "Bymonthday", [2]int{1, 31}, true},
		{arg.Byyearday, "Byyearday", [2]int{1, 366}, true},
		{arg.Byweekno, "Byweekno", [2]int{1, 53}, true},
		{arg.Bymonth, "Bymonth", [2]int{1, 12}, false},
		{arg.Bysetpos, "Bysetpos", [2]int{1, 366}, true},
	}

	checkBounds := func(param string, value int, bound [2]int, plusMinus bool) error {
		inRange := value >= bound[0] && value <= bound[1]
		inNegRange := plusMinus && value <= -bound[0] && value >= -bound[1]
		if !inRange && !inNegRange {
			return validationErrorf(param, value, "%s value %d out of range [%d,%d]%s",
				param, value, bound[0], bound[1], negSuffix(plusMinus, bound))
		}
		return nil
	}

	for _, b := range bounds {
		for _, value := range b.field {
			// Only the signed "N or -N" fields (BYMONTHDAY/BYYEARDAY/
			// BYWEEKNO/BYSETPOS) forbid 0; BYHOUR/BYMINUTE/BYSECOND
			// legitimately include 0
			// (midnight), and BYMONTH's [1,12] bound already excludes it.
			if value == 0 && b.plusMinus {
				return validationErrorf(b.param, value, "%s may not contain 0", b.param)
			}
			if err := checkBounds(b.param, value, b.bound, b.plusMinus); err != nil {
				return err
			}
		}
	}

	for _, w := range arg.Byweekday {
		if w.n > 53 || w.n < -53 {
			return validationErrorf("Byweekday", w, "byday nth-week must be between 1 and 53 or -1 and -53")
		}
	}

	if arg.Interval < 0 {
		return validationErrorf("Interval", arg.Interval, "interval must not be negative")
	}

	if len(arg.Bysetpos) != 0 && !hasOtherByRule(arg) {
		return validationErrorf("Bysetpos", arg.Bysetpos, "bysetpos requires at least one other BY-rule")
	}

	if len(arg.Bymonthday) != 0 && arg.Freq == WEEKLY {
		return validationErrorf("Bymonthday", arg.Bymonthday, "bymonthday is illegal with FREQ=WEEKLY")
	}

	if len(arg.Byyearday) != 0 && (arg.Freq == DAILY || arg.Freq == WEEKLY || arg.Freq == MONTHLY) {
		return validationErrorf("Byyearday", arg.Byyearday, "byyearday is illegal with this FREQ")
	}

	if len(arg.Byweekno) != 0 && arg.Freq != YEARLY {
		return validationErrorf("Byweekno", arg.Byweekno, "byweekno is legal only with FREQ=YEARLY")
	}

	if len(arg.Byeaster) != 0 {
		if arg.Freq != YEARLY && arg.Freq != MONTHLY && arg.Freq != DAILY {
			return validationErrorf("Byeaster", arg.Byeaster, "byeaster is legal only with FREQ in {YEARLY,MONTHLY,DAILY}")
		}
		if len(arg.Byhour) == 0 && len(arg.Byminute) == 0 && len(arg.Bysecond) == 0 {
			return validationErrorf("Byeaster", arg.Byeaster, "byeaster requires at least one of byhour/byminute/bysecond")
		}
	}

	if !arg.Until.IsZero() && !arg.Dtstart.IsZero() && arg.Until.Before(arg.Dtstart) {
		return validationErrorf("Until", arg.Until, "until must not precede dtstart")
	}

	if arg.Unsafe {
		return nil
	}

	limits := DefaultLimits
	interval := arg.Interval
	if interval == 0 {
		interval = 1
	}
	var maxInterval int
	switch arg.Freq {
	case YEARLY:
		maxInterval = limits.MaxYearlyInterval
	case MONTHLY:
		maxInterval = limits.MaxMonthlyInterval
	case WEEKLY:
		maxInterval = limits.MaxWeeklyInterval
	case DAILY:
		maxInterval = limits.MaxDailyInterval
	case HOURLY:
		maxInterval = limits.MaxHourlyInterval
	case MINUTELY:
		maxInterval = limits.MaxMinutelyInterval
	case SECONDLY:
		maxInterval = limits.MaxSecondlyInterval
	}
	if interval > maxInterval {
		return validationErrorf("Interval", interval, "interval %d exceeds safety limit %d for this FREQ", interval, maxInterval)
	}

	dtstart := arg.Dtstart
	if dtstart.IsZero() {
		dtstart = time.Now().UTC()
	}
	if dtstart.Year() < limits.MinYear || dtstart.Year() > limits.MaxYear {
		return validationErrorf("Dtstart", dtstart, "dtstart year %d out of supported range [%d,%d]", dtstart.Year(), limits.MinYear, limits.MaxYear)
	}

	return nil
}

func hasOtherByRule(arg ROption) bool {
	return len(arg.Bymonth) != 0 ||
		len(arg.Bymonthday) != 0 ||
		len(arg.Byyearday) != 0 ||
		len(arg.Byweekno) != 0 ||
		len(arg.Byweekday) != 0 ||
		len(arg.Byhour) != 0 ||
		len(arg.Byminute) != 0 ||
		len(arg.Bysecond) != 0 ||
		len(arg.Byeaster) != 0
}

func negSuffix(plusMinus bool, bound [2]int) string {
	if !plusMinus {
		return ""
	}
	return " (or its negative range)"
}
