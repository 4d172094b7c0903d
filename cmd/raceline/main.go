package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/apexsim/raceline/internal/config"
	"github.com/apexsim/raceline/internal/dispatcher"
	"github.com/apexsim/raceline/internal/editor"
	"github.com/apexsim/raceline/internal/geo"
	"github.com/apexsim/raceline/internal/handlers"
	"github.com/apexsim/raceline/internal/logging"
	"github.com/apexsim/raceline/internal/monitor"
	intOtel "github.com/apexsim/raceline/internal/otel"
	"github.com/apexsim/raceline/internal/player"
	"github.com/apexsim/raceline/internal/recorder"
	"github.com/apexsim/raceline/internal/session"
	"github.com/apexsim/raceline/internal/sim"
	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/internal/stream"
	"github.com/apexsim/raceline/internal/telemetry"
	"github.com/apexsim/raceline/pkg/core"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "raceline"
)

// global variables
var (
	SessionStartTime time.Time = time.Now()

	// SessionContext carries session state into every log record
	SessionContext *session.Context

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionLogFilePath string
	SessionLogFile     *os.File

	// dbManager holds the gorm connection when the sqlite/postgres
	// backend is selected
	dbManager *store.DatabaseManager

	// Services
	pathStore       *store.Store
	pathRecorder    *recorder.Recorder
	pathEditor      *editor.Editor
	eventDispatcher *dispatcher.Dispatcher
	handlerService  *handlers.Service
	simLoop         *sim.Loop

	// Optional sinks
	viewer         *stream.Publisher
	influx         *telemetry.Manager
	monitorService *monitor.Service

	// rig is the scripted position source driving the recorder
	rig *demoRig
)

// demoRig is a scripted position source standing in for a live vehicle.
type demoRig struct {
	mu  sync.Mutex
	pos core.Point3
	ok  bool
}

func (r *demoRig) Set(p core.Point3) {
	r.mu.Lock()
	r.pos = p
	r.ok = true
	r.mu.Unlock()
}

func (r *demoRig) Position() (core.Point3, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos, r.ok
}

// worldOrigin anchors playback at the world origin. Scene graphs embed
// the loop under a moving parent instead.
type worldOrigin struct{}

func (worldOrigin) WorldTransform() mgl64.Mat4 { return mgl64.Ident4() }

// topDownCaster maps screen coordinates straight onto the ground plane
// from above, standing in for a camera in headless use.
type topDownCaster struct{}

func (topDownCaster) ScreenRay(screenX, screenY float64) editor.Ray {
	return editor.Ray{
		Origin: core.Point3{X: screenX, Y: 100, Z: screenY},
		Dir:    core.Point3{Y: -1},
	}
}

// setup loads config, opens the session log file and wires the core
// services. Playback sinks are attached later per command.
func setup() error {
	cfgErr := config.Load(".")

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	SessionLogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	var err error
	SessionLogFile, err = os.OpenFile(SessionLogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create/open log file %s: %v\n", SessionLogFilePath, err)
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    SessionLogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(SessionLogFile, viper.GetString("logLevel"), otelLogProvider)

	SessionContext = session.NewContext(SessionStartTime)
	SlogManager.SetContextProvider(SessionContext.Attrs)
	Logger = SlogManager.Logger()

	if cfgErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		Logger.Info("Loaded config")
	}
	Logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	slot, err := createPathSlot(zerologFor(SessionLogFile))
	if err != nil {
		return fmt.Errorf("creating path slot: %w", err)
	}
	pathStore = store.New(slot, SlogManager.Component("store"))

	rig = &demoRig{}
	pathRecorder = recorder.New(rig.Position, pathStore, SlogManager.Component("recorder"))
	var editorOpts []editor.Option
	if datumStr := viper.GetString("editor.datum"); datumStr != "" {
		datum, err := geo.ParseDatum(datumStr)
		if err != nil {
			return fmt.Errorf("parsing editor.datum: %w", err)
		}
		editorOpts = append(editorOpts, editor.WithDatum(datum))
	}
	pathEditor = editor.New(topDownCaster{}, pathStore, SlogManager.Component("editor"), editorOpts...)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(SlogManager.Component("dispatcher")))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	return nil
}

// zerologFor adapts the session log file for the components that log
// through zerolog.
func zerologFor(file *os.File) zerolog.Logger {
	if file == nil {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(file).With().Timestamp().Logger()
}

// registerHandlers wires the command handlers onto the dispatcher. The
// assigner is nil for one-shot commands that never run playback.
func registerHandlers(assigner handlers.Assigner) {
	handlerService = handlers.NewService(handlers.Dependencies{
		Store:    pathStore,
		Recorder: pathRecorder,
		Editor:   pathEditor,
		Assigner: assigner,
		Logger:   SlogManager.Component("handlers"),
	})
	handlerService.Register(eventDispatcher)
}

// buildPlayback constructs the simulation loop with the configured
// sinks attached.
func buildPlayback() error {
	if viper.GetBool("viewer.enabled") {
		viewer = stream.New(stream.Config{
			URL:    viper.GetString("viewer.url"),
			Secret: viper.GetString("viewer.secret"),
		}, SlogManager.Component("stream"))
		if err := viewer.Connect(); err != nil {
			Logger.Warn("Viewer stream unavailable, frames will be dropped", "error", err)
		}
	}

	if viper.GetBool("influx.enabled") {
		backupPath := SessionLogFilePath + ".influx.gz"
		influx = telemetry.NewManager(zerologFor(SessionLogFile), backupPath)
		if err := influx.Connect(); err != nil {
			Logger.Warn("Telemetry unavailable", "error", err)
			influx = nil
		}
	}

	cfg := sim.Config{
		Recorder: pathRecorder,
		Player:   player.New(SlogManager.Component("player")),
		Store:    pathStore,
		Logger:   SlogManager.Component("sim"),
		TickRate: viper.GetInt("sim.tickRate"),
	}
	if viewer != nil {
		cfg.Publisher = viewer
	}
	if influx != nil {
		cfg.Telemetry = influx
	}
	simLoop = sim.New(cfg)
	return nil
}

// runServe plays the stored paths until interrupted. The default curve
// comes from sim.defaultPath, or the first stored path when unset.
func runServe(ctx context.Context) error {
	if err := buildPlayback(); err != nil {
		return err
	}
	registerHandlers(simLoop)

	name := viper.GetString("sim.defaultPath")
	if name == "" {
		names := pathStore.List()
		if len(names) == 0 {
			return fmt.Errorf("no stored paths; record one first (try 'raceline demo')")
		}
		name = names[0]
	}
	record := pathStore.Load(name)
	if record == nil {
		return fmt.Errorf("no path named %q", name)
	}
	c, err := sim.CurveForRecord(record)
	if err != nil {
		return fmt.Errorf("building curve for %q: %w", name, err)
	}
	simLoop.SetPlayback(c, worldOrigin{})

	speed, _ := record.Params["speed"].(float64)
	if speed <= 0 {
		speed = viper.GetFloat64("record.defaultSpeed")
	}
	agents := viper.GetInt("sim.agents")
	for i := 0; i < agents; i++ {
		// Stagger speeds so the field spreads out over a lap.
		simLoop.AddAgent(fmt.Sprintf("car%d", i+1), nil, speed*(1+0.1*float64(i)))
	}

	return runLoop(ctx, name)
}

// runDemo records a synthetic circular lap through the command
// dispatcher, then plays it back for the given number of seconds.
func runDemo(ctx context.Context, seconds int) error {
	if err := buildPlayback(); err != nil {
		return err
	}
	registerHandlers(simLoop)

	Logger.Info("Recording demo lap")
	if _, err := eventDispatcher.Dispatch(handlers.NewEvent("record.start", "demo_lap", "0.5", "0.1")); err != nil {
		return fmt.Errorf("starting demo recording: %w", err)
	}
	SessionContext.SetRecording(true)

	// Drive the rig around a 40-unit circle at one tick per step.
	const radius = 40.0
	const steps = 600
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		rig.Set(core.Point3{X: radius * math.Cos(a), Z: radius * math.Sin(a)})
		pathRecorder.Tick(1.0 / 60)
	}
	if _, err := eventDispatcher.Dispatch(handlers.NewEvent("record.stop", "true", "64")); err != nil {
		return fmt.Errorf("stopping demo recording: %w", err)
	}
	SessionContext.SetRecording(false)

	record := pathStore.Load("demo_lap")
	if record == nil {
		return fmt.Errorf("demo lap was not stored")
	}
	if influx != nil {
		influx.WriteRecorderStats(ctx, record.Name, steps, len(record.Points), true)
	}
	if viewer != nil {
		viewer.PublishPathSaved(record.Name, record.Points)
	}

	c, err := sim.CurveForRecord(record)
	if err != nil {
		return fmt.Errorf("building demo curve: %w", err)
	}
	simLoop.SetPlayback(c, worldOrigin{})
	simLoop.AddAgent("car1", nil, 0.10)
	simLoop.AddAgent("car2", nil, 0.12)
	simLoop.AddAgent("car3", nil, 0.15)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()
	if err := runLoop(runCtx, record.Name); err != nil {
		return err
	}

	Logger.Info("Demo finished", "progress", simLoop.AgentProgress())
	return nil
}

// runLoop announces the session to the viewer, runs the loop until the
// context ends and says goodbye.
func runLoop(ctx context.Context, defaultPath string) error {
	SessionContext.SetActivePath(defaultPath)

	if viewer != nil {
		if err := viewer.Hello(SessionContext.ID(), pathStore.List(), simLoop.TickRate()); err != nil {
			Logger.Warn("Viewer hello failed", "error", err)
		}
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		LogManager: SlogManager,
		StatusPath: filepath.Join(viper.GetString("logsDir"), "status.txt"),
		Snapshot:   snapshotStatus,
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Status monitor failed to start", "error", err)
	}
	defer monitorService.Stop()

	Logger.Info("Playback running", "defaultPath", defaultPath, "tickRate", simLoop.TickRate())
	simLoop.Run(ctx)

	if viewer != nil {
		if err := viewer.Goodbye(); err != nil {
			Logger.Warn("Viewer goodbye failed", "error", err)
		}
	}
	return nil
}

// snapshotStatus gathers the monitor sample from the live services.
func snapshotStatus() monitor.Status {
	s := monitor.Status{
		Session:       SessionContext.ID(),
		Tick:          simLoop.Tick(),
		SimTime:       simLoop.SimTime(),
		Agents:        simLoop.AgentCount(),
		Recording:     pathRecorder.Recording(),
		SampledPoints: pathRecorder.SampleCount(),
		StoredPaths:   pathStore.Len(),
	}
	if viewer != nil {
		s.DroppedFrames = viewer.Dropped()
	}
	return s
}

// teardown flushes and closes everything setup and the commands opened.
func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if viewer != nil {
		viewer.Close()
	}
	if influx != nil {
		influx.Close()
	}
	if SlogManager != nil {
		SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil && Logger != nil {
			Logger.Error("OTel shutdown failed", "error", err)
		}
	}
	if dbManager != nil {
		dbManager.Close()
	}
	if SessionLogFile != nil {
		SessionLogFile.Close()
	}
}
