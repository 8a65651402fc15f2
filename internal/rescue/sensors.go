package rescue

import "math"

// Sensors is the per-tick snapshot the rest of the module reads. It is
// recomputed every tick (some fields only on a new GPS sample); previous
// values needed to compute derivatives live in the Aggregator, not here —
// the same split the teacher uses between fusion.FusionState (a snapshot)
// and ExtendedKalmanFilter (the thing holding history).
type Sensors struct {
	CurrentAltitudeCm float64
	MaxAltitudeCm     float64
	DistanceToHomeM   float64
	GroundSpeedCmS    float64
	DirectionToHome   float64
	ErrorAngle        float64
	AbsErrorAngle     float64
	VelocityToHomeCmS float64

	GPSDataIntervalSeconds float64
	FilterK                float64
	AscendStepCm           float64
	DescendStepCm          float64
	MaxPitchStep           float64

	AccMagnitudeG float64
	Healthy       bool

	NumSat int
}

// Aggregator implements the Sensor Aggregator (spec.md §4.2). It owns the
// previous-sample memory (distance, GPS timestamp) that the snapshot's
// derivative fields are computed from.
type Aggregator struct {
	prevDistanceCm float64
	prevTimeMicros int64
	haveFirstGPS   bool

	nowMicros int64
}

// NewAggregator constructs an Aggregator with no prior sample memory.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Advance moves the aggregator's notion of "now" forward by dtMicros; a host
// without a wall clock can call this once per tick with a fixed tick period
// instead of feeding real timestamps.
func (a *Aggregator) Advance(dtMicros int64) {
	a.nowMicros += dtMicros
}

// Reset clears previous-sample memory, used on INITIALIZE entry so the
// first GPS sample of a new rescue never produces a stale velocity/interval.
func (a *Aggregator) Reset() {
	a.prevDistanceCm = 0
	a.prevTimeMicros = 0
	a.haveFirstGPS = false
}

// Sample produces the per-tick Sensors snapshot. phase is the current phase
// (LANDING reads the accelerometer at control rate; see §4.2).
func (a *Aggregator) Sample(c Collaborators, phase Phase, cfg Config, prev Sensors) Sensors {
	s := Sensors{
		CurrentAltitudeCm: c.Altitude.AltitudeCm(),
		Healthy:           c.GPS.Healthy(),
		MaxAltitudeCm:     prev.MaxAltitudeCm,
		DistanceToHomeM:   prev.DistanceToHomeM,
		GroundSpeedCmS:    prev.GroundSpeedCmS,
		DirectionToHome:   prev.DirectionToHome,
		ErrorAngle:        prev.ErrorAngle,
		AbsErrorAngle:     prev.AbsErrorAngle,
		VelocityToHomeCmS: prev.VelocityToHomeCmS,

		GPSDataIntervalSeconds: prev.GPSDataIntervalSeconds,
		FilterK:                prev.FilterK,
		AscendStepCm:           prev.AscendStepCm,
		DescendStepCm:          prev.DescendStepCm,
		MaxPitchStep:           prev.MaxPitchStep,
		AccMagnitudeG:          prev.AccMagnitudeG,
		NumSat:                 c.GPS.NumSat(),
	}

	if phase == PhaseLanding {
		ax, ay, az := c.Accel.AccelG()
		s.AccMagnitudeG = accelMagnitude(ax, ay, az)
	}

	if c.GPS.NewGPSData() {
		distanceCm := c.GPS.DistanceToHomeCm()
		groundSpeed := c.GPS.GroundSpeedCmS()
		directionDeciDeg := c.GPS.DirectionToHomeDeciDeg()
		yawDeciDeg := c.Attitude.YawDeciDeg()

		s.DistanceToHomeM = distanceCm / 100.0
		s.GroundSpeedCmS = groundSpeed
		s.DirectionToHome = directionDeciDeg * 0.1

		s.ErrorAngle = normalize180((yawDeciDeg - directionDeciDeg) * 0.1)
		s.AbsErrorAngle = math.Abs(s.ErrorAngle)

		dtMicros := a.nowMicros - a.prevTimeMicros
		if !a.haveFirstGPS {
			dtMicros = 0
		}
		dt := clampF(float64(dtMicros)*1e-6, 0.01, 1.0)
		s.GPSDataIntervalSeconds = dt
		s.FilterK = pt1FilterGain(0.8, dt)

		if a.haveFirstGPS {
			s.VelocityToHomeCmS = (a.prevDistanceCm - distanceCm) / dt
		} else {
			s.VelocityToHomeCmS = 0
		}

		s.AscendStepCm = dt * cfg.AscendRateCmS
		s.DescendStepCm = dt * cfg.DescendRateCmS
		s.MaxPitchStep = dt * 3000

		a.prevDistanceCm = distanceCm
		a.prevTimeMicros = a.nowMicros
		a.haveFirstGPS = true
	}

	return s
}

func accelMagnitude(ax, ay, az float64) float64 {
	return math.Sqrt(ax*ax + ay*ay + az*az)
}
