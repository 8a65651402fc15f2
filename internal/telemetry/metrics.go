package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arobi/valkyrie-rescue/internal/rescue"
)

// Metrics exposes the rescue module's per-tick state as Prometheus gauges
// and counters, grounded on cmd/valkyrie/main.go's -metrics-port flag (the
// teacher never wired a registry of its own in the Valkyrie subtree, so the
// gauge/counter shapes below follow the pack's platform/observability
// convention referenced in DESIGN.md).
type Metrics struct {
	phase         *prometheus.GaugeVec
	failure       *prometheus.GaugeVec
	distanceM     prometheus.Gauge
	altitudeCm    prometheus.Gauge
	throttlePWM   prometheus.Gauge
	yawRateDegS   prometheus.Gauge
	magDisabled   prometheus.Gauge
	ticksTotal    prometheus.Counter
	disarmsTotal  prometheus.Counter
}

// NewMetrics registers the rescue gauges/counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "phase",
			Help:      "1 if the rescue state machine is currently in the labeled phase, else 0.",
		}, []string{"phase"}),
		failure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "failure",
			Help:      "1 if the labeled sanity failure is currently active, else 0.",
		}, []string{"failure"}),
		distanceM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "distance_to_home_meters",
			Help:      "Last sampled distance to the home point, in meters.",
		}),
		altitudeCm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "altitude_cm",
			Help:      "Current altitude estimate, in centimeters.",
		}),
		throttlePWM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "throttle_pwm",
			Help:      "Current rescue throttle command, in PWM microseconds.",
		}),
		yawRateDegS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "yaw_rate_deg_s",
			Help:      "Current rescue yaw-rate command, degrees per second.",
		}),
		magDisabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rescue",
			Name:      "magnetometer_disabled",
			Help:      "1 while a rescue is in progress and the magnetometer is not in use (not configured, or force-disabled after a stall), else 0.",
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rescue",
			Name:      "ticks_total",
			Help:      "Total number of dispatcher ticks observed.",
		}),
		disarmsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rescue",
			Name:      "disarms_total",
			Help:      "Total number of times rescue has triggered a disarm.",
		}),
	}

	reg.MustRegister(m.phase, m.failure, m.distanceM, m.altitudeCm, m.throttlePWM, m.yawRateDegS, m.magDisabled, m.ticksTotal, m.disarmsTotal)
	return m
}

// Observe records one tick's worth of rescue.State into the registered
// gauges/counters.
func (m *Metrics) Observe(st *rescue.State) {
	for p := rescue.PhaseIdle; p <= rescue.PhaseDoNothing; p++ {
		v := 0.0
		if st.Phase() == p {
			v = 1.0
		}
		m.phase.WithLabelValues(p.String()).Set(v)
	}
	for f := rescue.FailureHealthy; f <= rescue.FailureNoHomePoint; f++ {
		v := 0.0
		if st.FailureState() == f {
			v = 1.0
		}
		m.failure.WithLabelValues(f.String()).Set(v)
	}

	sensors := st.Sensors()
	m.distanceM.Set(sensors.DistanceToHomeM)
	m.altitudeCm.Set(sensors.CurrentAltitudeCm)
	m.throttlePWM.Set(st.RescueThrottlePWM())
	m.yawRateDegS.Set(st.GetYawRate())
	if st.DisableMag() {
		m.magDisabled.Set(1)
	} else {
		m.magDisabled.Set(0)
	}
	m.ticksTotal.Inc()
}

// RecordDisarm increments the disarm counter. Called by the host when it
// sees the vehicle go from armed to disarmed across a tick.
func (m *Metrics) RecordDisarm() {
	m.disarmsTotal.Inc()
}
