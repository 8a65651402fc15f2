package rescue

// Update is the Outer Dispatcher (spec.md §4.1), called by the host once per
// control tick (~100 Hz). tickSeconds is the elapsed time since the
// previous call; rescueModeOn is the pilot/failsafe rescue-mode flag.
func (s *State) Update(tickSeconds float64, rescueModeOn bool, coll Collaborators) {
	s.coll = coll

	if !rescueModeOn {
		s.rescueStop()
	} else if s.phase == PhaseIdle {
		s.rescueStart()
	}

	s.agg.Advance(int64(tickSeconds * 1e6))
	newGPS := coll.GPS != nil && coll.GPS.NewGPSData()
	s.sensors = s.agg.Sample(coll, s.phase, s.cfg, s.sensors)

	s.stepAvailability(tickSeconds)

	s.stepPhase(newGPS)

	s.stepWatchdog(tickSeconds)

	s.stepController(newGPS)

	if coll.GPS != nil {
		coll.GPS.ClearNewGPSData()
	}
}
