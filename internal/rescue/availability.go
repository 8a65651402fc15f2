package rescue

// availabilityState is the Availability Probe's persistent memory: a 1 Hz
// low-satellite counter whose verdict is latched between evaluations.
type availabilityState struct {
	accumSeconds   float64
	secondsLowSats float64
	available      bool
}

// stepAvailability implements the Availability Probe (spec.md §4.6).
func (s *State) stepAvailability(tickSeconds float64) {
	if s.coll.GPS == nil || !s.coll.GPS.Healthy() || !s.coll.GPS.HasHomeFix() {
		s.avail.available = false
		return
	}

	s.avail.accumSeconds += tickSeconds
	if s.avail.accumSeconds < 1.0 {
		// Latched value holds between 1 Hz evaluations.
		return
	}
	s.avail.accumSeconds -= 1.0

	if s.coll.GPS.NumSat() < s.cfg.GPSMinimumSats {
		s.avail.secondsLowSats = clampF(s.avail.secondsLowSats+1, 0, 2)
	} else {
		s.avail.secondsLowSats = clampF(s.avail.secondsLowSats-1, 0, 2)
	}

	s.avail.available = s.coll.GPS.Has3DFix() && s.avail.secondsLowSats < 2
}

// IsAvailable reports the latched rescue-availability verdict, for the OSD.
func (s *State) IsAvailable() bool { return s.avail.available }
