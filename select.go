package rrule

import (
	"sort"
	"time"
)

// filterDayset applies the BY-rule filter pipeline to
// the [start,end) window of dayset, nilling out any candidate day rejected
// by an active BY-rule. It returns true if at least one candidate was
// rejected (the "filtered" flag the frequency-specific advance logic uses
// to fast-forward hourly/minutely/secondly rules to the next day).
func filterDayset(r *RRule, info *iterInfo, dayset []*int, start, end int) bool {
	filtered := false
	for _, i := range dayset[start:end] {
		if i == nil {
			continue
		}
		if rejectCandidate(r, info, *i) {
			dayset[*i] = nil
			filtered = true
		}
	}
	return filtered
}

func rejectCandidate(r *RRule, info *iterInfo, i int) bool {
	if len(r.Bymonth) != 0 && !contains(r.Bymonth, info.mmask[i]) {
		return true
	}
	if len(r.Byweekno) != 0 && info.wnomask[i] == 0 {
		return true
	}
	if len(r.Byweekday) != 0 && !contains(r.Byweekday, info.wdaymask[i]) {
		return true
	}
	if len(info.nwdaymask) != 0 && info.nwdaymask[i] == 0 {
		return true
	}
	if len(r.Byeaster) != 0 && info.eastermask[i] == 0 {
		return true
	}
	if (len(r.Bymonthday) != 0 || len(r.Bynmonthday) != 0) &&
		!contains(r.Bymonthday, info.mdaymask[i]) &&
		!contains(r.Bynmonthday, info.nmdaymask[i]) {
		return true
	}
	if len(r.Byyearday) != 0 {
		if i < info.yearlen {
			if !contains(r.Byyearday, i+1) && !contains(r.Byyearday, -info.yearlen+i) {
				return true
			}
		} else if !contains(r.Byyearday, i+1-info.yearlen) && !contains(r.Byyearday, -info.nextyearlen+i-info.yearlen) {
			return true
		}
	}
	return false
}

// flattenCandidates collects the surviving (non-nil) day ordinals in the
// window, in ascending order, for BYSETPOS's day×time product.
func flattenCandidates(dayset []*int, start, end int) []int {
	var out []int
	for _, x := range dayset[start:end] {
		if x != nil {
			out = append(out, *x)
		}
	}
	return out
}

// applyBySetPos selects candidates by position: the candidate set for the period
// is the day×time product flattened in ascending order; each entry of
// r.Bysetpos selects one index into that flattened product (1-based from
// the front, or negative counting from the end), out-of-range indices are
// ignored, and the selected instants are de-duplicated and sorted.
func applyBySetPos(r *RRule, firstyday time.Time, days []int, timeset []time.Time) []time.Time {
	var poslist []time.Time
	for _, pos := range r.Bysetpos {
		var daypos, timepos int
		if pos < 0 {
			daypos, timepos = divmod(pos, len(timeset))
		} else {
			daypos, timepos = divmod(pos-1, len(timeset))
		}
		dayOrdinal, err := pySubscript(days, daypos)
		if err != nil {
			continue
		}
		timeTemp := timeset[timepos]
		date := firstyday.AddDate(0, 0, dayOrdinal)
		res := AddTimeOfDay(date, timeTemp.Hour(), timeTemp.Minute(), timeTemp.Second(), timeTemp.Location())
		if !timeContains(poslist, res) {
			poslist = append(poslist, res)
		}
	}
	sort.Sort(timeSlice(poslist))
	return poslist
}
