// Package simhost supplies a synthetic vehicle and sensor estimator so the
// rescue module can be driven end-to-end without real flight hardware: a
// demo binary or a scenario test wires rescue.Collaborators straight to an
// Estimator reading off a Vehicle, the same role the teacher's
// battery/motor models play for propulsion telemetry.
package simhost

import (
	"math"
	"sync"
	"time"
)

// VehicleConfig holds point-mass flight-dynamics parameters, yaml-tagged the
// same way as electric.BatteryConfig/MotorConfig.
type VehicleConfig struct {
	MaxClimbRateCmS float64 `yaml:"max_climb_rate_cm_s"`
	MaxTurnRateDegS float64 `yaml:"max_turn_rate_deg_s"`
	MaxSpeedCmS     float64 `yaml:"max_speed_cm_s"`
	ThrottleHoverPWM float64 `yaml:"throttle_hover_pwm"`
	ThrottleSpanPWM  float64 `yaml:"throttle_span_pwm"`
}

// DefaultVehicleConfig returns parameters for a generic small multirotor.
func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{
		MaxClimbRateCmS:  600,
		MaxTurnRateDegS:  120,
		MaxSpeedCmS:      1200,
		ThrottleHoverPWM: 1275,
		ThrottleSpanPWM:  325,
	}
}

// VehicleState is a ground-truth snapshot of the point-mass model.
type VehicleState struct {
	AltitudeCm       float64
	HeadingDeg       float64
	GroundSpeedCmS   float64
	DistanceToHomeM  float64
	BearingToHomeDeg float64 // true bearing from the craft to home
	AccelG           [3]float64
	Timestamp        time.Time
}

// Vehicle is a minimal point-mass flight model: position in a home-centered
// local plane, altitude, and heading, advanced each tick by the rescue
// module's own commanded outputs. It is ground truth, not a sensor reading;
// Estimator derives noisy GPS/attitude/altitude channels from it, the same
// split the teacher draws between BatteryModel's internal coulomb count and
// the voltage/current the host actually measures.
type Vehicle struct {
	mu sync.RWMutex

	cfg VehicleConfig

	xM, yM float64 // local plane, home at origin
	altCm  float64
	headingDeg float64
	speedCmS   float64
	vertSpeedCmS float64

	state VehicleState
}

// NewVehicle places the craft distanceM from home, with home lying on true
// bearing bearingDeg from the craft, at altitudeCm, facing headingDeg.
func NewVehicle(cfg VehicleConfig, distanceM, bearingDeg, altitudeCm, headingDeg float64) *Vehicle {
	rad := bearingDeg * math.Pi / 180
	v := &Vehicle{
		cfg:        cfg,
		xM:         -distanceM * math.Sin(rad),
		yM:         -distanceM * math.Cos(rad),
		altCm:      altitudeCm,
		headingDeg: headingDeg,
	}
	v.recompute(time.Time{})
	return v
}

// Step advances the model by dt seconds given the rescue module's current
// commanded outputs: pitch/roll bias in deg*100, yaw rate in deg/s, and raw
// PWM throttle. Pitch bias drives forward groundspeed, roll bias is ignored
// at this fidelity (no lateral drift term), and throttle drives vertical
// speed around hover.
func (v *Vehicle) Step(dt, pitchBiasDeciDeg, _rollBiasDeciDeg, yawRateDegS, throttlePWM float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.headingDeg += yawRateDegS * dt
	v.headingDeg = normalize360(v.headingDeg)

	pitchFrac := clamp(pitchBiasDeciDeg/3000, -1, 1) // +-30deg full authority
	targetSpeed := pitchFrac * v.cfg.MaxSpeedCmS
	v.speedCmS += (targetSpeed - v.speedCmS) * clamp(dt, 0, 1)

	rad := v.headingDeg * math.Pi / 180
	distM := (v.speedCmS / 100) * dt
	v.xM += distM * math.Sin(rad)
	v.yM += distM * math.Cos(rad)

	throttleFrac := clamp((throttlePWM-v.cfg.ThrottleHoverPWM)/v.cfg.ThrottleSpanPWM, -1, 1)
	v.vertSpeedCmS = throttleFrac * v.cfg.MaxClimbRateCmS
	v.altCm += v.vertSpeedCmS * dt
	if v.altCm < 0 {
		v.altCm = 0
	}

	v.recompute(time.Now())
}

func (v *Vehicle) recompute(ts time.Time) {
	distM := math.Hypot(v.xM, v.yM)
	bearing := math.Atan2(-v.xM, -v.yM) * 180 / math.Pi
	if bearing < 0 {
		bearing += 360
	}

	vertAccelG := v.vertSpeedCmS / 980 // crude: treat vertical speed as proxy for net vertical accel
	v.state = VehicleState{
		AltitudeCm:       v.altCm,
		HeadingDeg:       v.headingDeg,
		GroundSpeedCmS:   v.speedCmS,
		DistanceToHomeM:  distM,
		BearingToHomeDeg: bearing,
		AccelG:           [3]float64{0, 0, 1 + vertAccelG},
		Timestamp:        ts,
	}
}

// State returns a copy of the current ground-truth state.
func (v *Vehicle) State() VehicleState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// SetImpact forces a high instantaneous acceleration reading, for exercising
// the LANDING impact-disarm path.
func (v *Vehicle) SetImpact(g float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.AccelG = [3]float64{g, 0, 0}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func normalize360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
