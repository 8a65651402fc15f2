package rescue

// Intent holds the mutable targets the controllers chase. It is initialized
// in IDLE, mutated on phase entry and by some in-phase events, and persists
// across ticks (spec.md §3 "Lifecycles").
type Intent struct {
	ReturnAltitudeCm  float64
	TargetAltitudeCm  float64
	TargetVelocityCmS float64
	PitchAngleLimitDeg float64
	RollAngleLimitDeg  float64 // signed
	UpdateYaw          bool
	DescentDistanceM   float64
	SecondsFailing     float64 // single slot reused across phases, see DESIGN.md
}

// NewIntent returns an Intent tracking currentAltitudeCm, the IDLE default.
func NewIntent(currentAltitudeCm float64) Intent {
	return Intent{
		TargetAltitudeCm: currentAltitudeCm,
		UpdateYaw:        true,
	}
}

func clampSecondsFailing(v float64) float64 {
	return clampF(v, 0, 20)
}
