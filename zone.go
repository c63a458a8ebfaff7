package rrule

import "time"

// ZoneKind distinguishes the three ways a wall-clock moment can carry zone
// identity: a fixed UTC offset, the host's local zone, or a named IANA zone.
type ZoneKind int

const (
	// ZoneUTC is the fixed, unambiguous UTC offset.
	ZoneUTC ZoneKind = iota
	// ZoneLocal defers resolution to the host's local zone database entry.
	ZoneLocal
	// ZoneNamed carries an explicit IANA zone identifier (a TZID value).
	ZoneNamed
)

// Zone is the capability the recurrence engine depends on for local-time
// resolution: a handle exposing a textual name and a *time.Location.
// Callers choose their own zone database by constructing the Location;
// "local time" (ZoneLocal) is the distinguished zone that defers to the
// host via time.Local.
type Zone struct {
	Kind ZoneKind
	Name string
	Loc  *time.Location
}

// UTCZone is the fixed UTC zone.
var UTCZone = Zone{Kind: ZoneUTC, Name: "UTC", Loc: time.UTC}

// LocalZone defers to the host's local zone.
var LocalZone = Zone{Kind: ZoneLocal, Name: "", Loc: time.Local}

// NamedZone looks up an IANA zone by id (e.g. "America/New_York"). The
// timezone database itself is an opaque collaborator: this just delegates
// to time.LoadLocation.
func NamedZone(id string) (Zone, error) {
	loc, err := time.LoadLocation(id)
	if err != nil {
		return Zone{}, err
	}
	return Zone{Kind: ZoneNamed, Name: id, Loc: loc}, nil
}

// Resolution classifies how a civil (zone-less) date-time maps onto an
// absolute instant in a given zone.
type Resolution int

const (
	// ResolutionUnique means the wall-clock time maps to exactly one instant.
	ResolutionUnique Resolution = iota
	// ResolutionNone means the wall-clock time was skipped by a forward
	// (spring-forward) DST transition; it never existed in that zone.
	ResolutionNone
	// ResolutionAmbiguous means the wall-clock time occurred twice, due to
	// a backward (fall-back) DST transition.
	ResolutionAmbiguous
)

// probeWindow brackets the DST-transition search performed by ResolveLocal.
// No real-world IANA zone has two transitions closer together than this.
const probeWindow = 20 * time.Hour

// ResolveLocal resolves a civil date-time (expressed as the Y/M/D/H/M/S
// fields of civil; its own Location is ignored) against loc, reporting
// whether the mapping is unique, impossible (a gap), or ambiguous (a fold).
//
// On ResolutionNone, the first return value is the forward-jump synthesis:
// midnight of that day in loc plus the duration from midnight to the
// requested clock time (time.Date alone would land on the pre-transition
// side of the gap). On ResolutionAmbiguous, both
// candidate instants are returned in chronological order; callers that
// want a single instant should take the first (the documented
// pick-the-earlier-instant policy — see AddTimeOfDay).
func ResolveLocal(civil time.Time, loc *time.Location) (Resolution, time.Time, time.Time) {
	y, mo, d := civil.Date()
	h, mi, s := civil.Clock()
	t := time.Date(y, mo, d, h, mi, s, civil.Nanosecond(), loc)

	ty, tmo, td := t.Date()
	th, tmi, ts := t.Clock()
	if ty != y || tmo != mo || td != d || th != h || tmi != mi || ts != s {
		sinceMidnight := time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute +
			time.Duration(s)*time.Second + time.Duration(civil.Nanosecond())
		return ResolutionNone, time.Date(y, mo, d, 0, 0, 0, 0, loc).Add(sinceMidnight), time.Time{}
	}

	_, offAt := t.Zone()
	_, offBefore := t.Add(-probeWindow).Zone()
	_, offAfter := t.Add(probeWindow).Zone()
	if offBefore == offAt && offAfter == offAt {
		return ResolutionUnique, t, time.Time{}
	}

	altOffset := offBefore
	if altOffset == offAt {
		altOffset = offAfter
	}
	if altOffset == offAt {
		return ResolutionUnique, t, time.Time{}
	}

	// Reconstruct the alternate instant: same wall clock, the other offset
	// in effect. wallUnix is what the wall clock would be if it were UTC;
	// subtracting the candidate offset recovers the real UTC instant.
	wallUnix := time.Date(y, mo, d, h, mi, s, 0, time.UTC).Unix()
	alt := time.Unix(wallUnix-int64(altOffset), 0).In(loc)
	ay, amo, ad := alt.Date()
	ah, ami, as := alt.Clock()
	if ay != y || amo != mo || ad != d || ah != h || ami != mi || as != s {
		return ResolutionUnique, t, time.Time{}
	}

	if t.Before(alt) {
		return ResolutionAmbiguous, t, alt
	}
	return ResolutionAmbiguous, alt, t
}

// AddTimeOfDay places time-of-day (hour, min, sec) on date within loc,
// applying the documented DST policy: a gap (ResolutionNone) synthesizes
// the instant as midnight-of-date plus the duration from midnight; a fold
// (ResolutionAmbiguous) picks the earlier of the two candidate instants.
func AddTimeOfDay(date time.Time, hour, min, sec int, loc *time.Location) time.Time {
	y, mo, d := date.Date()
	civil := time.Date(y, mo, d, hour, min, sec, 0, time.UTC)
	res, first, _ := ResolveLocal(civil, loc)
	switch res {
	case ResolutionNone, ResolutionUnique, ResolutionAmbiguous:
		return first
	default:
		return first
	}
}
