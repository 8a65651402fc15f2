package rescue

import "github.com/sirupsen/logrus"

// logFields builds the structured fields attached to every phase/failure
// log line, the same shape failsafe.EmergencySystem attaches to its
// emergency-declaration log entries.
func logFields(s *State) logrus.Fields {
	return logrus.Fields{
		"phase":           s.phase.String(),
		"failure":         s.failure.String(),
		"distance_m":      s.sensors.DistanceToHomeM,
		"seconds_failing": s.intent.SecondsFailing,
	}
}
