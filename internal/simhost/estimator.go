package simhost

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
)

// tracker is a 2-state (value, rate) Kalman filter tracking one noisy scalar
// channel, collapsed from fusion.ExtendedKalmanFilter's 15-state
// position/velocity/attitude vector down to the single channel each sensor
// reading needs: same state/covariance-held-in-the-receiver and
// Predict/Update shape (it has no reset), at a fidelity that needs 2x2
// matrices rather than 15x15.
type tracker struct {
	state      *mat.VecDense // [value, rate]
	covariance *mat.SymDense // 2x2
	processVar float64
}

func newTracker(initial, processVar float64) *tracker {
	t := &tracker{
		state:      mat.NewVecDense(2, []float64{initial, 0}),
		covariance: mat.NewSymDense(2, nil),
		processVar: processVar,
	}
	t.covariance.SetSym(0, 0, 10)
	t.covariance.SetSym(1, 1, 10)
	return t
}

// predict advances the tracker dt seconds with a constant-rate model.
func (t *tracker) predict(dt float64) {
	F := mat.NewDense(2, 2, []float64{1, dt, 0, 1})

	var predicted mat.VecDense
	predicted.MulVec(F, t.state)
	t.state.CopyVec(&predicted)

	var FP mat.Dense
	FP.Mul(F, t.covariance)
	var FPFt mat.Dense
	FPFt.Mul(&FP, F.T())

	cov := mat.NewSymDense(2, nil)
	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			v := FPFt.At(i, j)
			if i == j {
				v += t.processVar
			}
			cov.SetSym(i, j, v)
		}
	}
	t.covariance = cov
}

// update folds in a noisy measurement of the value channel (H = [1 0]).
func (t *tracker) update(measurement, measurementVar float64) {
	H := mat.NewDense(1, 2, []float64{1, 0})

	var Hx mat.VecDense
	Hx.MulVec(H, t.state)
	innovation := measurement - Hx.AtVec(0)

	var HP mat.Dense
	HP.Mul(H, t.covariance)
	var HPHt mat.Dense
	HPHt.Mul(&HP, H.T())
	s := HPHt.At(0, 0) + measurementVar

	var PHt mat.Dense
	PHt.Mul(t.covariance, H.T())
	k0 := PHt.At(0, 0) / s
	k1 := PHt.At(1, 0) / s

	t.state.SetVec(0, t.state.AtVec(0)+k0*innovation)
	t.state.SetVec(1, t.state.AtVec(1)+k1*innovation)

	cov := mat.NewSymDense(2, nil)
	p00, p01 := t.covariance.At(0, 0), t.covariance.At(0, 1)
	p10, p11 := t.covariance.At(1, 0), t.covariance.At(1, 1)
	cov.SetSym(0, 0, p00-k0*p00)
	cov.SetSym(0, 1, p01-k0*p01)
	cov.SetSym(1, 1, p11-k1*p10)
	t.covariance = cov
}

func (t *tracker) value() float64 { return t.state.AtVec(0) }

// Estimator synthesizes noisy GPS/attitude/altitude/accel channels from a
// Vehicle's ground truth, for the demo binary. It is NOT
// the real sensor-fusion stack the production firmware would carry — that
// is out of scope, see SPEC_FULL.md §1 — this exists to give rescue
// something to fly against without real hardware.
type Estimator struct {
	mu sync.RWMutex

	rnd *rand.Rand

	vehicle *Vehicle

	altitude  *tracker
	direction *tracker
	distance  *tracker

	yawDeciDeg   float64
	groundSpeed  float64
	numSat       int
	homeFix      bool
	has3D        bool
	newGPS       bool
	sinceGPS     float64
	gpsPeriod    time.Duration
}

// NewEstimator wraps vehicle with a noisy GPS/attitude estimator emitting a
// fresh GPS sample every gpsPeriod.
func NewEstimator(vehicle *Vehicle, gpsPeriod time.Duration, seed int64) *Estimator {
	vs := vehicle.State()
	return &Estimator{
		rnd:       rand.New(rand.NewSource(seed)),
		vehicle:   vehicle,
		altitude:  newTracker(vs.AltitudeCm, 25),
		direction: newTracker(vs.BearingToHomeDeg, 4),
		distance:  newTracker(vs.DistanceToHomeM, 1),
		numSat:    12,
		homeFix:   true,
		has3D:     true,
		gpsPeriod: gpsPeriod,
	}
}

// Tick advances the internal trackers by dt and, once gpsPeriod has
// elapsed, folds in a fresh noisy measurement and raises NewGPSData.
func (e *Estimator) Tick(dt float64) {
	vs := e.vehicle.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.altitude.predict(dt)
	e.direction.predict(dt)
	e.distance.predict(dt)

	e.yawDeciDeg = normalize180(vs.HeadingDeg) * 10

	e.sinceGPS += dt
	if e.sinceGPS < e.gpsPeriod.Seconds() {
		return
	}
	e.sinceGPS = 0

	e.altitude.update(vs.AltitudeCm+e.noise(3), 9)
	e.direction.update(normalize360(vs.BearingToHomeDeg+e.noise(2)), 4)
	e.distance.update(math.Max(0, vs.DistanceToHomeM+e.noise(0.5)), 0.25)
	e.groundSpeed = vs.GroundSpeedCmS
	e.newGPS = true
}

func (e *Estimator) noise(sigma float64) float64 {
	return e.rnd.NormFloat64() * sigma
}

// --- rescue.GPSSource ---

func (e *Estimator) Healthy() bool { return true }

func (e *Estimator) HasHomeFix() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.homeFix
}

func (e *Estimator) Has3DFix() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.has3D
}

func (e *Estimator) NumSat() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.numSat
}

func (e *Estimator) DistanceToHomeCm() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.distance.value() * 100
}

func (e *Estimator) GroundSpeedCmS() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.groundSpeed
}

func (e *Estimator) DirectionToHomeDeciDeg() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.direction.value() * 10
}

func (e *Estimator) NewGPSData() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.newGPS
}

func (e *Estimator) ClearNewGPSData() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.newGPS = false
}

// SetHomeFix and SetNumSat let a caller force a degraded GPS picture.
func (e *Estimator) SetHomeFix(ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.homeFix = ok
}

func (e *Estimator) SetNumSat(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.numSat = n
}

// --- rescue.AttitudeSource ---

func (e *Estimator) YawDeciDeg() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.yawDeciDeg
}

func (e *Estimator) CosTilt() float64 { return 1.0 }

// --- rescue.AltitudeSource ---

func (e *Estimator) AltitudeCm() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.altitude.value()
}

// --- rescue.AccelSource ---

func (e *Estimator) AccelG() (ax, ay, az float64) {
	vs := e.vehicle.State()
	return vs.AccelG[0], vs.AccelG[1], vs.AccelG[2]
}

func normalize180(deg float64) float64 {
	deg = normalize360(deg)
	if deg > 180 {
		deg -= 360
	}
	return deg
}
