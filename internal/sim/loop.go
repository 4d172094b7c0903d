package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/apexsim/raceline/internal/cache"
	"github.com/apexsim/raceline/internal/curve"
	"github.com/apexsim/raceline/internal/player"
	"github.com/apexsim/raceline/internal/recorder"
	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/internal/stream"
	"github.com/apexsim/raceline/pkg/core"
)

// FramePublisher receives one frame per tick. Implemented by the viewer
// stream; must not block the loop.
type FramePublisher interface {
	PublishFrame(f stream.Frame) error
}

// StateWriter receives per-agent telemetry samples.
type StateWriter interface {
	WriteAgentState(ctx context.Context, agent, path string, pos core.Point3, progress, speed float64, done bool) error
}

// trackedPose wraps an agent's pose sink and remembers the last world
// position so the loop can publish frames without re-evaluating curves.
type trackedPose struct {
	inner player.Pose // may be nil
	mu    sync.Mutex
	last  core.Point3
}

func (p *trackedPose) SetWorldPose(pos core.Point3, orient mgl64.Quat) {
	p.mu.Lock()
	p.last = pos
	p.mu.Unlock()
	if p.inner != nil {
		p.inner.SetWorldPose(pos, orient)
	}
}

func (p *trackedPose) Last() core.Point3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Loop is the fixed-step simulation driver: each tick it samples the
// recorder, advances playback agents, and fans the resulting frame out
// to the viewer stream and telemetry.
type Loop struct {
	recorder  *recorder.Recorder
	player    *player.Player
	store     *store.Store
	publisher FramePublisher // may be nil
	telemetry StateWriter    // may be nil
	logger    *slog.Logger

	tickRate int

	mu           sync.Mutex
	agents       []*player.Agent
	states       []*player.State
	poses        []*trackedPose
	index        map[string]int // agent name -> roster slot
	defaultCurve *curve.Curve
	host         player.PoseProvider
	curves       *cache.CurveCache

	tick    int64
	simTime float64
}

// Config assembles a loop. TickRate defaults to 60 when zero.
type Config struct {
	Recorder  *recorder.Recorder
	Player    *player.Player
	Store     *store.Store
	Publisher FramePublisher
	Telemetry StateWriter
	Logger    *slog.Logger
	TickRate  int
}

// New creates a loop.
func New(cfg Config) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		recorder:  cfg.Recorder,
		player:    cfg.Player,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		tickRate:  cfg.TickRate,
		index:     make(map[string]int),
		curves:    cache.NewCurveCache(),
	}
}

// TickRate returns the configured ticks per second.
func (l *Loop) TickRate() int {
	return l.tickRate
}

// Tick returns the number of completed steps.
func (l *Loop) Tick() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

// SimTime returns the accumulated simulated seconds.
func (l *Loop) SimTime() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.simTime
}

// AgentCount returns the number of registered playback agents.
func (l *Loop) AgentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.agents)
}

// AgentProgress returns each agent's playback progress by name.
func (l *Loop) AgentProgress() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.agents))
	for i, a := range l.agents {
		out[a.Name()] = l.states[i].Progress
	}
	return out
}

// SetPlayback installs the default curve and host transform used for
// agent playback. Until both are set, Step only drives the recorder.
func (l *Loop) SetPlayback(defaultCurve *curve.Curve, host player.PoseProvider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaultCurve = defaultCurve
	l.host = host
}

// AddAgent registers a playback agent. The pose sink may be nil when
// only frames and telemetry are wanted.
func (l *Loop) AddAgent(name string, pose player.Pose, speed float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tracked := &trackedPose{inner: pose}
	l.agents = append(l.agents, player.NewKinematic(name, tracked))
	l.states = append(l.states, &player.State{Speed: speed})
	l.poses = append(l.poses, tracked)
	l.index[name] = len(l.agents) - 1
}

// Assign binds an agent to a stored path; an empty path reverts it to
// the default curve. Unknown agents and unloadable paths are logged and
// ignored so a bad command cannot stop the loop.
func (l *Loop) Assign(agent, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.index[agent]
	if !ok {
		l.logger.Warn("Assign for unknown agent", "agent", agent)
		return
	}

	if path == "" {
		l.states[slot].AssignedPath = ""
		l.states[slot].Progress = 0
		l.states[slot].Done = false
		return
	}

	c := l.curveForPath(path)
	if c == nil {
		return
	}
	l.curves.Add(path, c)
	l.states[slot].AssignedPath = path
	l.states[slot].Progress = 0
	l.states[slot].Done = false
}

// CurveForRecord builds a playback curve from a stored record. Records
// flagged closed are interpolated as loops; a raw record whose last
// point duplicates its first has the duplicate stripped first.
func CurveForRecord(record *core.PathRecord) (*curve.Curve, error) {
	closed, _ := record.Params["closed"].(bool)
	ctrl := record.Points
	if closed && len(ctrl) > 1 && ctrl[0] == ctrl[len(ctrl)-1] {
		ctrl = ctrl[:len(ctrl)-1]
	}
	return curve.New(ctrl, closed)
}

func (l *Loop) curveForPath(path string) *curve.Curve {
	record := l.store.Load(path)
	if record == nil {
		l.logger.Warn("Assign for unknown path", "path", path)
		return nil
	}

	c, err := CurveForRecord(record)
	if err != nil {
		l.logger.Warn("Cannot build curve for path", "path", path, "error", err)
		return nil
	}
	return c
}

// Step advances the simulation by delta seconds: one recorder sample,
// one playback advance, one published frame.
func (l *Loop) Step(delta float64) {
	if l.recorder != nil {
		l.recorder.Tick(delta)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tick++
	l.simTime += delta

	if l.player == nil || l.defaultCurve == nil || l.host == nil || len(l.agents) == 0 {
		return
	}

	if err := l.player.Advance(l.agents, l.states, l.defaultCurve, l.host, l.curves.Map(), delta); err != nil {
		l.logger.Error("Playback advance failed", "error", err)
		return
	}

	if l.publisher == nil && l.telemetry == nil {
		return
	}

	frame := stream.Frame{Time: l.simTime, Agents: make([]stream.AgentPose, len(l.agents))}
	for i, agent := range l.agents {
		state := l.states[i]
		pos := l.poses[i].Last()
		frame.Agents[i] = stream.AgentPose{
			Name:     agent.Name(),
			Position: pos,
			Progress: state.Progress,
			Speed:    state.Speed,
			Done:     state.Done,
		}
		if l.telemetry != nil {
			if err := l.telemetry.WriteAgentState(context.Background(),
				agent.Name(), state.AssignedPath, pos, state.Progress, state.Speed, state.Done); err != nil {
				l.logger.Debug("Telemetry write failed", "agent", agent.Name(), "error", err)
			}
		}
	}
	if l.publisher != nil {
		if err := l.publisher.PublishFrame(frame); err != nil {
			l.logger.Debug("Frame publish failed", "error", err)
		}
	}
}

// Run steps the loop at the configured tick rate until ctx is
// cancelled.
func (l *Loop) Run(ctx context.Context) {
	interval := time.Second / time.Duration(l.tickRate)
	delta := interval.Seconds()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("Simulation loop running", "tickRate", l.tickRate)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Simulation loop stopped", "ticks", l.Tick())
			return
		case <-ticker.C:
			l.Step(delta)
		}
	}
}
