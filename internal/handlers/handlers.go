package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/apexsim/raceline/internal/dispatcher"
	"github.com/apexsim/raceline/internal/editor"
	"github.com/apexsim/raceline/internal/geo"
	"github.com/apexsim/raceline/internal/recorder"
	"github.com/apexsim/raceline/internal/store"
	"github.com/apexsim/raceline/pkg/core"
)

// Assigner binds an agent to a named path for playback. Implemented by
// the simulation loop.
type Assigner interface {
	Assign(agent, path string)
}

// Dependencies holds everything the command handlers operate on.
type Dependencies struct {
	Store    *store.Store
	Recorder *recorder.Recorder
	Editor   *editor.Editor
	Assigner Assigner // may be nil
	Logger   *slog.Logger
}

// Service provides handler methods for the path commands.
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Register wires every command onto the dispatcher. Recording ticks are
// latency-sensitive so they stay synchronous; list/get style queries are
// logged for diagnosis.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register("record.start", s.RecordStart, dispatcher.Logged())
	d.Register("record.stop", s.RecordStop, dispatcher.Logged())
	d.Register("record.status", s.RecordStatus)
	d.Register("path.list", s.PathList)
	d.Register("path.get", s.PathGet)
	d.Register("path.delete", s.PathDelete, dispatcher.Logged())
	d.Register("path.import", s.PathImport, dispatcher.Logged())
	d.Register("path.trace", s.PathTrace, dispatcher.Logged())
	d.Register("editor.click", s.EditorClick)
	d.Register("editor.export", s.EditorExport, dispatcher.Logged())
	d.Register("editor.clear", s.EditorClear)
	d.Register("player.assign", s.PlayerAssign, dispatcher.Logged())
}

// RecordStart begins a recording session.
// Args: [name, minSampleDistance?, speed?]
func (s *Service) RecordStart(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("record.start: missing path name: %w", core.ErrInvalidArgument)
	}
	name := e.Args[0]

	minDist := viper.GetFloat64("record.minSampleDistance")
	if len(e.Args) > 1 {
		v, err := strconv.ParseFloat(e.Args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("record.start: bad minSampleDistance %q: %w", e.Args[1], err)
		}
		minDist = v
	}

	speed := viper.GetFloat64("record.defaultSpeed")
	if len(e.Args) > 2 {
		v, err := strconv.ParseFloat(e.Args[2], 64)
		if err != nil {
			return nil, fmt.Errorf("record.start: bad speed %q: %w", e.Args[2], err)
		}
		speed = v
	}

	ok := s.deps.Recorder.Start(name, minDist, speed, nil, core.IdentityTransform())
	if !ok {
		return nil, fmt.Errorf("record.start: recorder refused to start")
	}
	return "recording", nil
}

// RecordStop ends the session and persists the path.
// Args: [closeLoop?, resampleCount?]
func (s *Service) RecordStop(e dispatcher.Event) (any, error) {
	closeLoop := false
	if len(e.Args) > 0 {
		v, err := strconv.ParseBool(e.Args[0])
		if err != nil {
			return nil, fmt.Errorf("record.stop: bad closeLoop %q: %w", e.Args[0], err)
		}
		closeLoop = v
	}

	resampleCount := viper.GetInt("record.resampleCount")
	if len(e.Args) > 1 {
		v, err := strconv.Atoi(e.Args[1])
		if err != nil {
			return nil, fmt.Errorf("record.stop: bad resampleCount %q: %w", e.Args[1], err)
		}
		resampleCount = v
	}

	record := s.deps.Recorder.Stop(closeLoop, resampleCount)
	if record == nil {
		return nil, fmt.Errorf("record.stop: not recording")
	}
	return record.Name, nil
}

// RecordStatus reports whether a session is active and how many points
// it has sampled.
func (s *Service) RecordStatus(e dispatcher.Event) (any, error) {
	return map[string]any{
		"recording": s.deps.Recorder.Recording(),
		"sampled":   s.deps.Recorder.SampleCount(),
	}, nil
}

// PathList returns all stored path names.
func (s *Service) PathList(e dispatcher.Event) (any, error) {
	return s.deps.Store.List(), nil
}

// PathGet returns the JSON-serialized record for a name.
// Args: [name]
func (s *Service) PathGet(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("path.get: missing path name: %w", core.ErrInvalidArgument)
	}
	record := s.deps.Store.Load(e.Args[0])
	if record == nil {
		return nil, fmt.Errorf("path.get: no path named %q", e.Args[0])
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("path.get: serialize %q: %w", e.Args[0], err)
	}
	return string(data), nil
}

// PathDelete removes a stored path.
// Args: [name]
func (s *Service) PathDelete(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("path.delete: missing path name: %w", core.ErrInvalidArgument)
	}
	s.deps.Store.Delete(e.Args[0])
	return "deleted", nil
}

// PathImport stores a path from a JSON trace, the same array-of-arrays
// shape the editor puts on the clipboard.
// Args: [name, trace]
func (s *Service) PathImport(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("path.import: want name and trace: %w", core.ErrInvalidArgument)
	}
	points, err := geo.ParseTrace(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("path.import: %w", err)
	}
	record := core.NewPathRecord(e.Args[0], core.IdentityTransform(),
		core.Params{"speed": viper.GetFloat64("record.defaultSpeed")}, points)
	s.deps.Store.Save(e.Args[0], record)
	return e.Args[0], nil
}

// PathTrace georeferences a stored path against a WGS84 datum and
// returns the ground trace as WKT.
// Args: [name, "lat,lon"]
func (s *Service) PathTrace(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("path.trace: want name and datum: %w", core.ErrInvalidArgument)
	}
	record := s.deps.Store.Load(e.Args[0])
	if record == nil {
		return nil, fmt.Errorf("path.trace: no path named %q", e.Args[0])
	}
	datum, err := geo.ParseDatum(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("path.trace: %w", err)
	}
	wkt, err := geo.TraceWKT(record.Points, datum)
	if err != nil {
		return nil, fmt.Errorf("path.trace: %w", err)
	}
	return wkt, nil
}

// EditorClick places an editor point from a pointer click. The third
// argument is either a bool or the name of the held key, which is
// matched against the configured editor.modifier.
// Args: [screenX, screenY, modifier]
func (s *Service) EditorClick(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("editor.click: want x, y, modifier: %w", core.ErrInvalidArgument)
	}
	x, err := strconv.ParseFloat(e.Args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("editor.click: bad x %q: %w", e.Args[0], err)
	}
	y, err := strconv.ParseFloat(e.Args[1], 64)
	if err != nil {
		return nil, fmt.Errorf("editor.click: bad y %q: %w", e.Args[1], err)
	}
	modifier, err := strconv.ParseBool(e.Args[2])
	if err != nil {
		modifier = strings.EqualFold(e.Args[2], viper.GetString("editor.modifier"))
	}
	return s.deps.Editor.HandleClick(x, y, modifier), nil
}

// EditorExport saves the placed points as a new record.
func (s *Service) EditorExport(e dispatcher.Event) (any, error) {
	record := s.deps.Editor.Export()
	if record == nil {
		return nil, fmt.Errorf("editor.export: no points placed")
	}
	return record.Name, nil
}

// EditorClear discards the placed points.
func (s *Service) EditorClear(e dispatcher.Event) (any, error) {
	s.deps.Editor.Clear()
	return "cleared", nil
}

// PlayerAssign binds an agent to a named path.
// Args: [agent, path]
func (s *Service) PlayerAssign(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("player.assign: want agent and path: %w", core.ErrInvalidArgument)
	}
	if s.deps.Assigner == nil {
		return nil, fmt.Errorf("player.assign: no playback loop running")
	}
	if e.Args[1] != "" && s.deps.Store.Load(e.Args[1]) == nil {
		return nil, fmt.Errorf("player.assign: no path named %q", e.Args[1])
	}
	s.deps.Assigner.Assign(e.Args[0], e.Args[1])
	return "assigned", nil
}

// NewEvent builds a dispatcher event stamped with the current time.
func NewEvent(command string, args ...string) dispatcher.Event {
	return dispatcher.Event{Command: command, Args: args, Timestamp: time.Now()}
}
