package domain

// Progress is the filled/total pair used for display. It is advisory only:
// completion is decided by the question endpoint, never by these counts.
type Progress struct {
	Filled int `json:"filled"`
	Total  int `json:"total"`
}

// Ratio returns Filled/Total clamped to [0, 1]. An unknown total yields 0.
func (p Progress) Ratio() float64 {
	if p.Total <= 0 || p.Filled <= 0 {
		return 0
	}
	if p.Filled >= p.Total {
		return 1
	}
	return float64(p.Filled) / float64(p.Total)
}

// Percent returns Ratio as a whole percentage.
func (p Progress) Percent() int {
	return int(p.Ratio()*100 + 0.5)
}

// Tracker derives the Progress Snapshot for one session.
type Tracker struct {
	snap Progress
}

// NewTracker starts a fresh snapshot at {0, total}.
func NewTracker(total int) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{snap: Progress{Total: total}}
}

// Snapshot returns the current value.
func (t *Tracker) Snapshot() Progress {
	return t.snap
}

// Observe folds a status report into the snapshot. The total follows the
// latest report because the service may recount it. Filled never decreases
// except to stay within a lowered total.
func (t *Tracker) Observe(s Status) Progress {
	if s.FilledFields > t.snap.Filled {
		t.snap.Filled = s.FilledFields
	}
	if s.TotalFields >= 0 {
		t.snap.Total = s.TotalFields
	}
	if t.snap.Filled > t.snap.Total {
		t.snap.Filled = t.snap.Total
	}
	return t.snap
}
