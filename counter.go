package rrule

import "time"

// rIterator is the cursor that steps a validated rule forward, period by
// period, buffering the instants produced by each period until drained by
// next().
type rIterator struct {
	year                 int
	month                time.Month
	day                  int
	hour, minute, second int
	weekday              int
	ii                   iterInfo
	timeset              []time.Time
	total                int
	count                int
	remain               []time.Time
	finished             bool
	err                  *IterationError
	loopIterations       int
	loopLimit            int

	// carryFixday communicates from the sub-day advance helpers (which may
	// roll the day forward while hunting for an hour/minute/second that
	// satisfies a BY-rule) back to advance, so the shared month/year carry
	// logic there only needs to run once regardless of frequency.
	carryFixday bool
}

// next returns the next occurrence in ascending order, or (zero, false)
// once the rule is exhausted or a sticky iteration error has been raised.
func (iterator *rIterator) next() (time.Time, bool) {
	if iterator.err != nil {
		return time.Time{}, false
	}
	if !iterator.finished {
		iterator.generate()
	}
	if len(iterator.remain) == 0 {
		return time.Time{}, false
	}
	value := iterator.remain[0]
	iterator.remain = iterator.remain[1:]
	return value, true
}

func (iterator *rIterator) fail(err *IterationError) {
	iterator.err = err
	iterator.remain = nil
	iterator.finished = true
}

// generate fills iterator.remain with every instant of the next
// non-empty period, applying BYSETPOS if present, honoring COUNT/UNTIL,
// and advancing the counter between periods.
func (iterator *rIterator) generate() {
	r := iterator.ii.rrule
	for len(iterator.remain) == 0 {
		iterator.loopIterations++
		if iterator.loopIterations > iterator.loopLimit {
			iterator.fail(newIterationError(IterationLoopLimit,
				"exceeded inner-loop iteration cap (%d) without completing a period", iterator.loopLimit))
			return
		}

		dayset, start, end := iterator.ii.getdayset(r.Freq, iterator.year, iterator.month, iterator.day)
		filtered := filterDayset(r, &iterator.ii, dayset, start, end)

		if len(r.Bysetpos) != 0 && len(iterator.timeset) != 0 {
			days := flattenCandidates(dayset, start, end)
			poslist := applyBySetPos(r, iterator.ii.firstyday, days, iterator.timeset)
			if iterator.emit(poslist) {
				return
			}
		} else {
			for _, i := range dayset[start:end] {
				if i == nil {
					continue
				}
				date := iterator.ii.firstyday.AddDate(0, 0, *i)
				for _, timeTemp := range iterator.timeset {
					res := AddTimeOfDay(date, timeTemp.Hour(), timeTemp.Minute(), timeTemp.Second(), timeTemp.Location())
					if iterator.emitOne(res) {
						return
					}
				}
			}
		}

		if !iterator.advance(filtered) {
			return
		}
	}
}

// emit appends already-sorted candidates to remain, stopping (and marking
// finished) at the first one past UNTIL or once COUNT is exhausted.
func (iterator *rIterator) emit(candidates []time.Time) (stop bool) {
	for _, res := range candidates {
		if iterator.emitOne(res) {
			return true
		}
	}
	return false
}

func (iterator *rIterator) emitOne(res time.Time) (stop bool) {
	r := iterator.ii.rrule
	if !r.UntilTime.IsZero() && res.After(r.UntilTime) {
		iterator.finished = true
		return true
	}
	if !res.Before(r.DateStart) {
		iterator.total++
		iterator.remain = append(iterator.remain, res)
		if iterator.count != 0 {
			iterator.count--
			if iterator.count == 0 {
				iterator.finished = true
				return true
			}
		}
	}
	return false
}

// advance steps the counter forward one period for the rule's frequency.
// It returns false if the advance could not continue (year overflow), in
// which case the iterator is already marked finished.
func (iterator *rIterator) advance(filtered bool) bool {
	r := iterator.ii.rrule
	fixday := false
	switch r.Freq {
	case YEARLY:
		iterator.year += r.Interval
		if iterator.year > MAXYEAR {
			iterator.finished = true
			return false
		}
		iterator.ii.rebuild(iterator.year, iterator.month)
	case MONTHLY:
		iterator.month += time.Month(r.Interval)
		if iterator.month > 12 {
			div, mod := divmod(int(iterator.month), 12)
			iterator.month = time.Month(mod)
			iterator.year += div
			if iterator.month == 0 {
				iterator.month = 12
				iterator.year--
			}
			if iterator.year > MAXYEAR {
				iterator.finished = true
				return false
			}
		}
		iterator.ii.rebuild(iterator.year, iterator.month)
	case WEEKLY:
		if r.Wkst > iterator.weekday {
			iterator.day += -(iterator.weekday + 1 + (6 - r.Wkst)) + r.Interval*7
		} else {
			iterator.day += -(iterator.weekday - r.Wkst) + r.Interval*7
		}
		iterator.weekday = r.Wkst
		fixday = true
	case DAILY:
		iterator.day += r.Interval
		fixday = true
	case HOURLY:
		if !iterator.advanceHourly(filtered) {
			return false
		}
		fixday = iterator.carryFixday
		iterator.carryFixday = false
	case MINUTELY:
		if !iterator.advanceMinutely(filtered) {
			return false
		}
		fixday = iterator.carryFixday
		iterator.carryFixday = false
	case SECONDLY:
		if !iterator.advanceSecondly(filtered) {
			return false
		}
		fixday = iterator.carryFixday
		iterator.carryFixday = false
	}

	if fixday && iterator.day > 28 {
		daysinmonth := daysIn(iterator.month, iterator.year)
		if iterator.day > daysinmonth {
			for iterator.day > daysinmonth {
				iterator.day -= daysinmonth
				iterator.month++
				if iterator.month == 13 {
					iterator.month = 1
					iterator.year++
					if iterator.year > MAXYEAR {
						iterator.finished = true
						return false
					}
				}
				daysinmonth = daysIn(iterator.month, iterator.year)
			}
			iterator.ii.rebuild(iterator.year, iterator.month)
		}
	}
	return true
}

func (iterator *rIterator) advanceHourly(filtered bool) bool {
	r := iterator.ii.rrule
	if filtered {
		iterator.hour += ((23 - iterator.hour) / r.Interval) * r.Interval
	}
	seen := map[int]bool{}
	for {
		iterator.hour += r.Interval
		div, mod := divmod(iterator.hour, 24)
		if div != 0 {
			iterator.hour = mod
			iterator.day += div
			iterator.carryFixday = true
			if !iterator.carryDayOverflow() {
				return false
			}
		}
		if len(r.Byhour) == 0 || contains(r.Byhour, iterator.hour) {
			break
		}
		if seen[iterator.hour] {
			iterator.fail(newIterationError(IterationLoopLimit,
				"byhour=%v is never reachable by stepping hour %d at a time from hour %d", r.Byhour, r.Interval, iterator.hour))
			return false
		}
		seen[iterator.hour] = true
	}
	iterator.timeset = iterator.ii.gettimeset(r.Freq, iterator.hour, iterator.minute, iterator.second)
	return true
}

func (iterator *rIterator) advanceMinutely(filtered bool) bool {
	r := iterator.ii.rrule
	if filtered {
		iterator.minute += ((1439 - (iterator.hour*60 + iterator.minute)) / r.Interval) * r.Interval
	}
	type hm struct{ h, m int }
	seen := map[hm]bool{}
	for {
		iterator.minute += r.Interval
		div, mod := divmod(iterator.minute, 60)
		if div != 0 {
			iterator.minute = mod
			iterator.hour += div
			div, mod = divmod(iterator.hour, 24)
			if div != 0 {
				iterator.hour = mod
				iterator.day += div
				iterator.carryFixday = true
				filtered = false
				if !iterator.carryDayOverflow() {
					return false
				}
			}
		}
		if (len(r.Byhour) == 0 || contains(r.Byhour, iterator.hour)) &&
			(len(r.Byminute) == 0 || contains(r.Byminute, iterator.minute)) {
			break
		}
		key := hm{iterator.hour, iterator.minute}
		if seen[key] {
			iterator.fail(newIterationError(IterationLoopLimit,
				"byhour/byminute combination is never reachable by stepping minute %d at a time", r.Interval))
			return false
		}
		seen[key] = true
	}
	iterator.timeset = iterator.ii.gettimeset(r.Freq, iterator.hour, iterator.minute, iterator.second)
	return true
}

func (iterator *rIterator) advanceSecondly(filtered bool) bool {
	r := iterator.ii.rrule
	if filtered {
		iterator.second += ((86399 - (iterator.hour*3600 + iterator.minute*60 + iterator.second)) / r.Interval) * r.Interval
	}
	type hms struct{ h, m, s int }
	seen := map[hms]bool{}
	for {
		iterator.second += r.Interval
		div, mod := divmod(iterator.second, 60)
		if div != 0 {
			iterator.second = mod
			iterator.minute += div
			div, mod = divmod(iterator.minute, 60)
			if div != 0 {
				iterator.minute = mod
				iterator.hour += div
				div, mod = divmod(iterator.hour, 24)
				if div != 0 {
					iterator.hour = mod
					iterator.day += div
					iterator.carryFixday = true
					if !iterator.carryDayOverflow() {
						return false
					}
				}
			}
		}
		if (len(r.Byhour) == 0 || contains(r.Byhour, iterator.hour)) &&
			(len(r.Byminute) == 0 || contains(r.Byminute, iterator.minute)) &&
			(len(r.Bysecond) == 0 || contains(r.Bysecond, iterator.second)) {
			break
		}
		key := hms{iterator.hour, iterator.minute, iterator.second}
		if seen[key] {
			iterator.fail(newIterationError(IterationLoopLimit,
				"byhour/byminute/bysecond combination is never reachable by stepping second %d at a time", r.Interval))
			return false
		}
		seen[key] = true
	}
	iterator.timeset = iterator.ii.gettimeset(r.Freq, iterator.hour, iterator.minute, iterator.second)
	return true
}

// carryDayOverflow checks the year bound whenever a sub-day advance rolls
// the day field forward enough to possibly cross a month/year boundary;
// the actual month/year normalization happens in the shared fixday block
// in advance.
func (iterator *rIterator) carryDayOverflow() bool {
	return iterator.year <= MAXYEAR
}
