package rrule

import (
	"testing"
	"time"
)

// FuzzStrToRRule exercises the parser with arbitrary input text: it must
// never panic, and any successfully parsed rule must itself re-serialize to
// parseable text (universal property 5, best-effort on whatever canonical
// subset the fuzzer happens to land on).
func FuzzStrToRRule(f *testing.F) {
	seeds := []string{
		"FREQ=DAILY;DTSTART=20120201T093000Z;COUNT=3",
		"FREQ=WEEKLY;DTSTART=20120201T093000Z;INTERVAL=5;BYDAY=MO,FR",
		"FREQ=MONTHLY;DTSTART=19970902T090000Z;COUNT=10;BYMONTHDAY=31",
		"FREQ=YEARLY;BYEASTER=-2;BYHOUR=9",
		"",
		"FREQ=HOURLY;BYSETPOS=1,-1;BYMINUTE=0,30",
		"garbage;not=a-rule",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		r, err := StrToRRule(s)
		if err != nil {
			return
		}
		str := r.String()
		r2, err := StrToRRule(str)
		if err != nil {
			t.Fatalf("StrToRRule(%q) parsed but re-serialized text %q failed to reparse: %v", s, str, err)
		}
		if str != r2.String() {
			t.Fatalf("round-trip unstable: %q -> %q -> %q", s, str, r2.String())
		}
	})
}

// FuzzStrToRRuleSet exercises the set parser the same way, across the
// multi-line content-line grammar.
func FuzzStrToRRuleSet(f *testing.F) {
	seeds := []string{
		"DTSTART;TZID=America/New_York:20180101T090000\nRRULE:FREQ=DAILY;UNTIL=20180517T235959Z",
		"RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,TU\nEXDATE;VALUE=DATE-TIME:20180525T070000Z",
		"",
		"DTSTART:;",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		set, err := StrToRRuleSet(s)
		if err != nil {
			return
		}
		str := set.String()
		if _, err := StrToRRuleSet(str); err != nil {
			t.Fatalf("StrToRRuleSet(%q) parsed but re-serialized text %q failed to reparse: %v", s, str, err)
		}
	})
}

// FuzzRRuleAll exercises the iterator directly with randomized but bounded
// field values, asserting the monotonic-ascending property holds no matter
// what combination of BY-filters is supplied (never a panic, never a
// descending pair).
func FuzzRRuleAll(f *testing.F) {
	f.Add(2, 1, 10, 1, 1)
	f.Add(4, 3, 5, 15, -1)
	f.Fuzz(func(t *testing.T, freq, interval, count, bymonthday, byweekno int) {
		f := Frequency(((freq % 7) + 7) % 7)
		opt := ROption{
			Freq:    f,
			Dtstart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Count:   ((count % 50) + 50) % 50,
		}
		if interval != 0 {
			opt.Interval = ((interval % 20) + 20) % 20
		}
		if f == YEARLY {
			wn := ((byweekno % 53) + 53) % 53
			if wn != 0 {
				opt.Byweekno = []int{wn}
			}
		} else if f != WEEKLY {
			md := ((bymonthday % 31) + 31) % 31
			if md != 0 {
				opt.Bymonthday = []int{md}
			}
		}
		r, err := NewRRule(opt)
		if err != nil {
			return
		}
		got := r.All()
		for i := 1; i < len(got); i++ {
			if !got[i-1].Before(got[i]) {
				t.Fatalf("non-ascending output at %d: %v then %v (opt=%+v)", i, got[i-1], got[i], opt)
			}
		}
	})
}
