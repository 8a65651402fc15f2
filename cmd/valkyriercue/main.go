// valkyriercue hosts the GPS return-to-home module against either a real
// MAVLink-speaking flight controller or an in-process synthetic vehicle, the
// same split cmd/valkyrie offers between -sim and real hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/arobi/valkyrie-rescue/internal/mavlink"
	"github.com/arobi/valkyrie-rescue/internal/rescue"
	"github.com/arobi/valkyrie-rescue/internal/simhost"
	"github.com/arobi/valkyrie-rescue/internal/telemetry"
	"github.com/arobi/valkyrie-rescue/pkg/utils"
)

var (
	version = "0.1.0"

	httpPort     = flag.Int("http-port", 8193, "HTTP status port")
	metricsPort  = flag.Int("metrics-port", 9193, "Prometheus metrics port")
	telemetryPort = flag.Int("telemetry-port", 8194, "Telemetry websocket port")
	configFile   = flag.String("config", "", "Rescue config YAML file (defaults to built-in parameters)")
	logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	simMode = flag.Bool("sim", true, "Run against the synthetic simhost vehicle instead of real hardware")

	mavlinkPort = flag.String("mavlink-port", "/dev/ttyACM0", "MAVLink serial port")
	mavlinkBaud = flag.Int("mavlink-baud", 921600, "MAVLink baud rate")

	tokenSecret = flag.String("telemetry-secret", "rescue-dev-secret", "HMAC secret for telemetry subscriber tokens")

	simDistanceM = flag.Float64("sim-distance-m", 200, "Synthetic vehicle starting distance from home, meters")
	simBearing   = flag.Float64("sim-bearing-deg", 45, "Synthetic vehicle starting bearing to home, degrees")
	simAltitude  = flag.Float64("sim-altitude-cm", 1500, "Synthetic vehicle starting altitude, cm")
)

// host wires one concrete implementation of every rescue collaborator
// interface to either a serial MAVLink link or the synthetic simhost, and
// drives rescue.State.Update at a fixed tick rate.
type host struct {
	log *logrus.Logger

	state *rescue.State
	coll  rescue.Collaborators

	link      *mavlink.Link
	vehicle   *simhost.Vehicle
	estimator *simhost.Estimator

	pilot   *stubPilot
	arming  *stubArming
	failsafe *stubFailsafe

	metrics  *telemetry.Metrics
	streamer *telemetry.Streamer

	mu      sync.RWMutex
	running bool
}

func main() {
	flag.Parse()
	printBanner()

	log := utils.NewLogger(*logLevel, "stdout")

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := newHost(cfg, log)
	if err != nil {
		log.Fatalf("initialize host: %v", err)
	}

	if err := h.start(ctx); err != nil {
		log.Fatalf("start host: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info("rescue harness operational, press Ctrl+C to stop")
	<-sigChan
	log.Info("shutdown signal received")

	cancel()
	h.stop()
	log.Info("shutdown complete")
}

func loadConfig(path string) (rescue.Config, error) {
	cfg := rescue.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func newHost(cfg rescue.Config, log *logrus.Logger) (*host, error) {
	h := &host{
		log:      log,
		state:    rescue.New(cfg, log),
		pilot:    &stubPilot{pwm: cfg.MinCheck},
		arming:   &stubArming{armed: true, offsetApplied: true},
		failsafe: &stubFailsafe{radioAlive: true},
	}

	if *simMode {
		vcfg := simhost.DefaultVehicleConfig()
		h.vehicle = simhost.NewVehicle(vcfg, *simDistanceM, *simBearing, *simAltitude, 0)
		h.estimator = simhost.NewEstimator(h.vehicle, 200*time.Millisecond, 1)
		h.coll = rescue.Collaborators{
			Attitude: h.estimator,
			Altitude: h.estimator,
			Accel:    h.estimator,
			GPS:      h.estimator,
			Pilot:    h.pilot,
			Arming:   h.arming,
			Failsafe: h.failsafe,
		}
		log.Info("harness running against the synthetic simhost vehicle")
	} else {
		link, err := mavlink.Open(*mavlinkPort, *mavlinkBaud)
		if err != nil {
			return nil, fmt.Errorf("open mavlink link on %s: %w", *mavlinkPort, err)
		}
		h.link = link
		h.coll = rescue.Collaborators{
			Attitude: h.link,
			Altitude: h.link,
			Accel:    h.link,
			GPS:      h.link,
			Pilot:    h.pilot,
			Arming:   h.arming,
			Failsafe: h.failsafe,
		}
		log.WithField("port", *mavlinkPort).Info("harness running against a real MAVLink link")
	}

	reg := prometheus.NewRegistry()
	h.metrics = telemetry.NewMetrics(reg)
	h.streamer = telemetry.NewStreamer([]byte(*tokenSecret), log)

	return h, nil
}

func (h *host) start(ctx context.Context) error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	go h.tickLoop(ctx)
	go h.streamer.Run(ctx.Done())
	go h.serveHTTP(ctx)

	return nil
}

func (h *host) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	if h.link != nil {
		h.link.Close()
	}
}

// tickLoop drives rescue.State.Update at 100 Hz, the rate spec.md §4.1
// assumes for the watchdog's per-second sample counting.
func (h *host) tickLoop(ctx context.Context) {
	const tickRate = 10 * time.Millisecond // 100 Hz
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	dt := tickRate.Seconds()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(dt)
		}
	}
}

func (h *host) tick(dt float64) {
	if h.vehicle != nil {
		pitch, roll := h.state.GetPitchRollBias()
		h.vehicle.Step(dt, pitch, roll, h.state.GetYawRate(), h.state.RescueThrottlePWM())
		h.estimator.Tick(dt)
	}

	wasArmed := h.arming.Armed()
	h.state.Update(dt, h.failsafe.RescueModeRequested(), h.coll)
	if wasArmed && !h.arming.Armed() {
		h.metrics.RecordDisarm()
	}

	h.metrics.Observe(h.state)
	h.streamer.Broadcast(&telemetry.Message{
		Timestamp:   time.Now(),
		Phase:       h.state.Phase().String(),
		Failure:     h.state.FailureState().String(),
		MagDisabled: h.state.DisableMag(),
		ThrottlePWM: h.state.RescueThrottlePWM(),
		YawRateDegS: h.state.GetYawRate(),
		Debug:       h.state.DebugChannels(),
	})
}

func (h *host) serveHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/api/v1/state", h.stateHandler)
	mux.HandleFunc("/api/v1/rescue/on", h.rescueOnHandler)
	mux.HandleFunc("/api/v1/rescue/off", h.rescueOffHandler)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", *httpPort), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", *metricsPort), Handler: metricsMux}
		h.log.WithField("port", *metricsPort).Info("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.WithError(err).Error("metrics server error")
		}
	}()

	go func() {
		wsMux := http.NewServeMux()
		wsMux.HandleFunc("/ws/telemetry", h.streamer.HandleWebSocket)
		wsSrv := &http.Server{Addr: fmt.Sprintf(":%d", *telemetryPort), Handler: wsMux}
		h.log.WithField("port", *telemetryPort).Info("telemetry websocket listening")
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.WithError(err).Error("telemetry server error")
		}
	}()

	h.log.WithField("port", *httpPort).Info("http status listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.log.WithError(err).Error("http server error")
	}
}

func (h *host) healthHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !running {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintf(w, `{"status":"ok","running":%v,"version":%q}`, running, version)
}

func (h *host) stateHandler(w http.ResponseWriter, r *http.Request) {
	sensors := h.state.Sensors()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"phase":%q,"failure":%q,"distance_m":%v,"altitude_cm":%v,"throttle_pwm":%v,"yaw_rate_deg_s":%v,"mag_disabled":%v,"no_home_fix":%v}`,
		h.state.Phase().String(), h.state.FailureState().String(), sensors.DistanceToHomeM, sensors.CurrentAltitudeCm,
		h.state.RescueThrottlePWM(), h.state.GetYawRate(), h.state.DisableMag(), h.state.IsDisabled())
}

func (h *host) rescueOnHandler(w http.ResponseWriter, r *http.Request) {
	h.failsafe.setRescueMode(true)
	w.WriteHeader(http.StatusAccepted)
}

func (h *host) rescueOffHandler(w http.ResponseWriter, r *http.Request) {
	h.failsafe.setRescueMode(false)
	w.WriteHeader(http.StatusAccepted)
}

func printBanner() {
	fmt.Println(`
  _ __ ___  ___  ___ _   _  ___
 | '__/ _ \/ __|/ __| | | |/ _ \
 | | |  __/\__ \ (__| |_| |  __/
 |_|  \___||___/\___|\__,_|\___|
 GPS return-to-home harness v` + version)
}
