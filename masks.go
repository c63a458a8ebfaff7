package rrule

import (
	"sort"
	"time"
)

// Every mask is 7 days longer than a year to simplify handling cross-year
// weekly periods without special-casing the boundary.
var (
	m366Mask     []int
	m365Mask     []int
	mday366Mask  []int
	mday365Mask  []int
	nmday366Mask []int
	nmday365Mask []int
	wdayMask     []int
	m366Range    = []int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
	m365Range    = []int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
)

func init() {
	m366Mask = concat(repeat(1, 31), repeat(2, 29), repeat(3, 31),
		repeat(4, 30), repeat(5, 31), repeat(6, 30), repeat(7, 31),
		repeat(8, 31), repeat(9, 30), repeat(10, 31), repeat(11, 30),
		repeat(12, 31), repeat(1, 7))
	m365Mask = concat(m366Mask[:59], m366Mask[60:])
	m29, m30, m31 := rang(1, 30), rang(1, 31), rang(1, 32)
	mday366Mask = concat(m31, m29, m31, m30, m31, m30, m31, m31, m30, m31, m30, m31, m31[:7])
	mday365Mask = concat(mday366Mask[:59], mday366Mask[60:])
	m29, m30, m31 = rang(-29, 0), rang(-30, 0), rang(-31, 0)
	nmday366Mask = concat(m31, m29, m31, m30, m31, m30, m31, m31, m30, m31, m30, m31, m31[:7])
	nmday365Mask = concat(nmday366Mask[:31], nmday366Mask[32:])
	for i := 0; i < 55; i++ {
		wdayMask = append(wdayMask, 0, 1, 2, 3, 4, 5, 6)
	}
}

// iterInfo caches the per-year and per-month masks a rIterator consults
// while expanding a dayset. It is rebuilt lazily: the year-scoped fields
// only change when the counter crosses into a new year, the month-scoped
// nth-weekday mask only when it crosses into a new month (and only matters
// when the rule actually contains an Nth(_,_) weekday).
type iterInfo struct {
	rrule       *RRule
	lastyear    int
	lastmonth   time.Month
	yearlen     int
	nextyearlen int
	firstyday   time.Time
	yearweekday int
	mmask       []int
	mrange      []int
	mdaymask    []int
	nmdaymask   []int
	wdaymask    []int
	wnomask     []int
	nwdaymask   []int
	eastermask  []int
}

func (info *iterInfo) rebuild(year int, month time.Month) {
	if year != info.lastyear {
		info.yearlen = 365 + isLeap(year)
		info.nextyearlen = 365 + isLeap(year+1)
		info.firstyday = time.Date(
			year, time.January, 1, 0, 0, 0, 0,
			info.rrule.DateStart.Location())
		info.yearweekday = toPyWeekday(info.firstyday.Weekday())
		info.wdaymask = wdayMask[info.yearweekday:]
		if info.yearlen == 365 {
			info.mmask = m365Mask
			info.mdaymask = mday365Mask
			info.nmdaymask = nmday365Mask
			info.mrange = m365Range
		} else {
			info.mmask = m366Mask
			info.mdaymask = mday366Mask
			info.nmdaymask = nmday366Mask
			info.mrange = m366Range
		}
		info.rebuildWeekNoMask(year)
	}
	if len(info.rrule.Bynweekday) != 0 && (month != info.lastmonth || year != info.lastyear) {
		info.rebuildNthWeekdayMask(month)
	}
	if len(info.rrule.Byeaster) != 0 {
		info.eastermask = make([]int, info.yearlen+7)
		eyday := easter(year).YearDay() - 1
		for _, offset := range info.rrule.Byeaster {
			if eyday+offset >= 0 && eyday+offset < len(info.eastermask) {
				info.eastermask[eyday+offset] = 1
			}
		}
	}
	info.lastyear = year
	info.lastmonth = month
}

// rebuildWeekNoMask assigns ISO-like week numbers for the current year
// using info.rrule.Wkst as the week anchor and "first week has >= 4 days"
// as the year-start rule. BYWEEKNO=1 may additionally flag
// days belonging to next year's week 1 reached from this year, and the
// last week of the prior year may flag leading days of this year.
func (info *iterInfo) rebuildWeekNoMask(year int) {
	if len(info.rrule.Byweekno) == 0 {
		info.wnomask = nil
		return
	}
	info.wnomask = make([]int, info.yearlen+7)
	firstwkst := pymod(7-info.yearweekday+info.rrule.Wkst, 7)
	no1wkst := firstwkst
	var wyearlen int
	if no1wkst >= 4 {
		no1wkst = 0
		wyearlen = info.yearlen + pymod(info.yearweekday-info.rrule.Wkst, 7)
	} else {
		wyearlen = info.yearlen - no1wkst
	}
	div, mod := divmod(wyearlen, 7)
	numweeks := div + mod/4
	for _, n := range info.rrule.Byweekno {
		if n < 0 {
			n += numweeks + 1
		}
		if !(0 < n && n <= numweeks) {
			continue
		}
		var i int
		if n > 1 {
			i = no1wkst + (n-1)*7
			if no1wkst != firstwkst {
				i -= 7 - firstwkst
			}
		} else {
			i = no1wkst
		}
		for j := 0; j < 7; j++ {
			if i >= 0 && i < len(info.wnomask) {
				info.wnomask[i] = 1
			}
			i++
			if i >= len(info.wdaymask) || info.wdaymask[i] == info.rrule.Wkst {
				break
			}
		}
	}
	if contains(info.rrule.Byweekno, 1) {
		i := no1wkst + numweeks*7
		if no1wkst != firstwkst {
			i -= 7 - firstwkst
		}
		if i < info.yearlen {
			for j := 0; j < 7; j++ {
				if i >= 0 && i < len(info.wnomask) {
					info.wnomask[i] = 1
				}
				i++
				if i >= len(info.wdaymask) || info.wdaymask[i] == info.rrule.Wkst {
					break
				}
			}
		}
	}
	if no1wkst != 0 {
		var lnumweeks int
		if !contains(info.rrule.Byweekno, -1) {
			lyearweekday := toPyWeekday(time.Date(
				year-1, 1, 1, 0, 0, 0, 0,
				info.rrule.DateStart.Location()).Weekday())
			lno1wkst := pymod(7-lyearweekday+info.rrule.Wkst, 7)
			lyearlen := 365 + isLeap(year-1)
			if lno1wkst >= 4 {
				lno1wkst = 0
				lnumweeks = 52 + pymod(lyearlen+pymod(lyearweekday-info.rrule.Wkst, 7), 7)/4
			} else {
				lnumweeks = 52 + pymod(info.yearlen-no1wkst, 7)/4
			}
		} else {
			lnumweeks = -1
		}
		if contains(info.rrule.Byweekno, lnumweeks) {
			for i := 0; i < no1wkst; i++ {
				info.wnomask[i] = 1
			}
		}
	}
}

// rebuildNthWeekdayMask marks, per year-day, whether that date is one of
// the rule's requested Nth(_,_) weekdays within the current period (the
// whole year for FREQ=YEARLY, or the single month for FREQ=MONTHLY).
func (info *iterInfo) rebuildNthWeekdayMask(month time.Month) {
	var ranges [][]int
	if info.rrule.Freq == YEARLY {
		if len(info.rrule.Bymonth) != 0 {
			for _, m := range info.rrule.Bymonth {
				ranges = append(ranges, info.mrange[m-1:m+1])
			}
		} else {
			ranges = [][]int{{0, info.yearlen}}
		}
	} else if info.rrule.Freq == MONTHLY {
		ranges = [][]int{info.mrange[month-1 : month+1]}
	}
	if len(ranges) == 0 {
		return
	}
	info.nwdaymask = make([]int, info.yearlen)
	for _, x := range ranges {
		first, last := x[0], x[1]
		last--
		for _, y := range info.rrule.Bynweekday {
			wday, n := y.weekday, y.n
			var i int
			if n < 0 {
				i = last + (n+1)*7
				i -= pymod(info.wdaymask[i]-wday, 7)
			} else {
				i = first + (n-1)*7
				i += pymod(7-info.wdaymask[i]+wday, 7)
			}
			if first <= i && i <= last {
				info.nwdaymask[i] = 1
			}
		}
	}
}

// getdayset returns the candidate year-day ordinals for the current
// frequency period, plus the [start,end)
// slice of that set actually populated.
func (info *iterInfo) getdayset(freq Frequency, year int, month time.Month, day int) ([]*int, int, int) {
	switch freq {
	case YEARLY:
		set := make([]*int, info.yearlen)
		for i := 0; i < info.yearlen; i++ {
			temp := i
			set[i] = &temp
		}
		return set, 0, info.yearlen
	case MONTHLY:
		set := make([]*int, info.yearlen)
		start, end := info.mrange[month-1], info.mrange[month]
		for i := start; i < end; i++ {
			temp := i
			set[i] = &temp
		}
		return set, start, end
	case WEEKLY:
		set := make([]*int, info.yearlen+7)
		i := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).YearDay() - 1
		start := i
		for j := 0; j < 7; j++ {
			temp := i
			set[i] = &temp
			i++
			if info.wdaymask[i] == info.rrule.Wkst {
				break
			}
		}
		return set, start, i
	}
	set := make([]*int, info.yearlen)
	i := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).YearDay() - 1
	set[i] = &i
	return set, i, i + 1
}

// gettimeset enumerates candidate (h,min,s) tuples for frequencies finer
// than daily; the daily-and-coarser cross product lives in
// (*RRule).calculateTimeset.
func (info *iterInfo) gettimeset(freq Frequency, hour, minute, second int) (result []time.Time) {
	switch freq {
	case HOURLY:
		for _, minute := range info.rrule.Byminute {
			for _, second := range info.rrule.Bysecond {
				result = append(result, time.Date(1, 1, 1, hour, minute, second, 0, info.rrule.DateStart.Location()))
			}
		}
		sort.Sort(timeSlice(result))
	case MINUTELY:
		for _, second := range info.rrule.Bysecond {
			result = append(result, time.Date(1, 1, 1, hour, minute, second, 0, info.rrule.DateStart.Location()))
		}
		sort.Sort(timeSlice(result))
	case SECONDLY:
		result = []time.Time{time.Date(1, 1, 1, hour, minute, second, 0, info.rrule.DateStart.Location())}
	}
	return
}
