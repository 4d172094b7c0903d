// internal/player/player.go
package player

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/apexsim/raceline/internal/curve"
	"github.com/apexsim/raceline/pkg/core"
)

// tangentLookback keeps the tangent sample inside the curve when an
// agent sits at the very end of an open curve.
const tangentLookback = 1e-4

// Pose receives the computed world placement of an agent each tick.
// The rendering layer implements it for the agent's visual transform.
type Pose interface {
	SetWorldPose(position core.Point3, orientation mgl64.Quat)
}

// Body is the optional physics mirror of an agent. Implementations
// write the pose into the physics engine's body and can zero its
// linear and angular velocity.
type Body interface {
	SetPose(position core.Point3, orientation mgl64.Quat)
	ZeroVelocity()
}

// PoseProvider exposes the live world transform of the object hosting
// the displayed curve, read fresh every tick.
type PoseProvider interface {
	WorldTransform() mgl64.Mat4
}

// Agent is one playback subject. Whether it carries a physics body is
// fixed at construction: kinematic agents only have a visual pose,
// physical agents additionally mirror onto a body.
type Agent struct {
	name string
	pose Pose
	body Body // nil for kinematic agents
}

// NewKinematic creates an agent with only a visual transform.
func NewKinematic(name string, pose Pose) *Agent {
	return &Agent{name: name, pose: pose}
}

// NewPhysical creates an agent whose pose is mirrored onto a physics
// body.
func NewPhysical(name string, pose Pose, body Body) *Agent {
	return &Agent{name: name, pose: pose, body: body}
}

// Name returns the agent identifier.
func (a *Agent) Name() string {
	return a.name
}

// State is the per-agent mutable playback state, owned exclusively by
// the player. Progress is in [0,1), or exactly 1 once an open curve
// has terminated.
type State struct {
	Progress     float64
	Speed        float64 // progress units per second
	Done         bool
	AssignedPath string // empty selects the default curve
}

// Player advances a roster of agents along their assigned curves each
// simulation tick.
type Player struct {
	logger *slog.Logger
}

// New creates a player.
func New(logger *slog.Logger) *Player {
	return &Player{logger: logger}
}

// Advance moves every agent forward by delta seconds and writes the
// resulting pose into its visual transform and optional physics body.
//
// Missing required arguments fail hard with core.ErrInvalidArgument
// before any agent is touched: a partial per-tick update across part of
// the roster is never an acceptable outcome.
//
// Open curves clamp progress at 1 and mark the agent done; it then
// holds the terminal pose and has its body velocity zeroed every tick
// until externally reset. Closed curves wrap progress modulo 1 and
// never terminate.
func (p *Player) Advance(
	agents []*Agent,
	states []*State,
	defaultCurve *curve.Curve,
	host PoseProvider,
	assignments map[string]*curve.Curve,
	delta float64,
) error {
	if agents == nil || states == nil || defaultCurve == nil || host == nil {
		return fmt.Errorf("%w: agents, states, default curve and host are required", core.ErrInvalidArgument)
	}
	if len(agents) != len(states) {
		return fmt.Errorf("%w: %d agents but %d states", core.ErrInvalidArgument, len(agents), len(states))
	}

	world := host.WorldTransform()

	for i, agent := range agents {
		state := states[i]
		c := p.selectCurve(state, defaultCurve, assignments)

		if state.Done {
			p.applyPose(agent, c, 1, world)
			if agent.body != nil {
				agent.body.ZeroVelocity()
			}
			continue
		}

		state.Progress += state.Speed * delta
		becameDone := false
		if c.Closed() {
			state.Progress = math.Mod(state.Progress, 1)
			if state.Progress < 0 {
				state.Progress += 1
			}
		} else if state.Progress >= 1 {
			state.Progress = 1
			state.Done = true
			becameDone = true
		}

		p.applyPose(agent, c, state.Progress, world)
		if becameDone && agent.body != nil {
			agent.body.ZeroVelocity()
		}
	}
	return nil
}

// selectCurve returns the agent's assigned curve when present and
// valid, else the default.
func (p *Player) selectCurve(state *State, defaultCurve *curve.Curve, assignments map[string]*curve.Curve) *curve.Curve {
	if state.AssignedPath == "" {
		return defaultCurve
	}
	c, ok := assignments[state.AssignedPath]
	if !ok || c == nil {
		return defaultCurve
	}
	return c
}

// applyPose evaluates the curve at progress t, lifts the result into
// world space through the host transform, and writes it to the agent.
func (p *Player) applyPose(agent *Agent, c *curve.Curve, t float64, world mgl64.Mat4) {
	// Sample the tangent slightly early so it never reads past the end
	// of an open curve.
	tt := t
	if !c.Closed() && tt > 1-tangentLookback {
		tt = 1 - tangentLookback
	}

	pos := core.TransformPoint(world, c.PointAt(t))
	tan := core.TransformDirection(world, c.TangentAt(tt)).Normalize()

	orient := mgl64.QuatLookAtV(mgl64.Vec3{}, tan.Vec3(), mgl64.Vec3{0, 1, 0})

	agent.pose.SetWorldPose(pos, orient)
	if agent.body != nil {
		agent.body.SetPose(pos, orient)
	}
}
