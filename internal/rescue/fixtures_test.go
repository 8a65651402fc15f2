package rescue

// fakeWorld is a hand-driven double for every Collaborators interface,
// letting tests set exactly the sensor values a scenario calls for instead
// of simulating real flight dynamics. Mirrors the teacher's mock_* doubles
// (internal/robotics/control/mock_hunoid.go, mock_manipulator.go): one
// struct implementing several small interfaces with plain field reads.
type fakeWorld struct {
	armed           bool
	altOffsetOK     bool
	altitudeCm      float64
	yawDeciDeg      float64
	cosTilt         float64
	ax, ay, az      float64

	gpsHealthy   bool
	homeFix      bool
	has3D        bool
	numSat       int
	distanceCm   float64
	groundSpeed  float64
	directionDeg float64
	newGPS       bool

	pilotThrottle float64

	rescueModeOn  bool
	radioAlive    bool
	crashFlip     bool

	disarmed     bool
	disarmReason DisarmReason
	armSwitchOff bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		armed:       true,
		altOffsetOK: true,
		cosTilt:     1.0,
		gpsHealthy:  true,
		homeFix:     true,
		has3D:       true,
		numSat:      12,
		radioAlive:  true,
	}
}

func (f *fakeWorld) YawDeciDeg() float64 { return f.yawDeciDeg }
func (f *fakeWorld) CosTilt() float64   { return f.cosTilt }

func (f *fakeWorld) AltitudeCm() float64 { return f.altitudeCm }

func (f *fakeWorld) AccelG() (float64, float64, float64) { return f.ax, f.ay, f.az }

func (f *fakeWorld) Healthy() bool                    { return f.gpsHealthy }
func (f *fakeWorld) HasHomeFix() bool                 { return f.homeFix }
func (f *fakeWorld) Has3DFix() bool                   { return f.has3D }
func (f *fakeWorld) NumSat() int                      { return f.numSat }
func (f *fakeWorld) DistanceToHomeCm() float64        { return f.distanceCm }
func (f *fakeWorld) GroundSpeedCmS() float64          { return f.groundSpeed }
func (f *fakeWorld) DirectionToHomeDeciDeg() float64  { return f.directionDeg }
func (f *fakeWorld) NewGPSData() bool                 { return f.newGPS }
func (f *fakeWorld) ClearNewGPSData()                 { f.newGPS = false }

func (f *fakeWorld) ThrottlePWM() float64 { return f.pilotThrottle }

func (f *fakeWorld) Armed() bool                  { return f.armed }
func (f *fakeWorld) AltitudeOffsetApplied() bool   { return f.altOffsetOK }
func (f *fakeWorld) Disarm(reason DisarmReason)    { f.disarmed = true; f.disarmReason = reason }
func (f *fakeWorld) SetArmSwitchDisabled()         { f.armSwitchOff = true }

func (f *fakeWorld) RescueModeRequested() bool { return f.rescueModeOn }
func (f *fakeWorld) RadioLinkAlive() bool      { return f.radioAlive }
func (f *fakeWorld) CrashFlipDetected() bool   { return f.crashFlip }

func (f *fakeWorld) collaborators() Collaborators {
	return Collaborators{
		Attitude: f,
		Altitude: f,
		Accel:    f,
		GPS:      f,
		Pilot:    f,
		Arming:   f,
		Failsafe: f,
	}
}

// gpsTick marks a fresh GPS sample for the next Update call and sets the
// fields a new sample would carry.
func (f *fakeWorld) gpsTick(distanceM, groundSpeedCmS, directionDeg, yawDeg float64) {
	f.newGPS = true
	f.distanceCm = distanceM * 100
	f.groundSpeed = groundSpeedCmS
	f.directionDeg = directionDeg * 10
	f.yawDeciDeg = yawDeg * 10
}
