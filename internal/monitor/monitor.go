package monitor

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/apexsim/raceline/internal/logging"
)

// Status is one snapshot of the running session, written to the status
// file once per interval.
type Status struct {
	Time          time.Time `json:"time"`
	Session       string    `json:"session"`
	Tick          int64     `json:"tick"`
	SimTime       float64   `json:"simTime"`
	Agents        int       `json:"agents"`
	Recording     bool      `json:"recording"`
	SampledPoints int       `json:"sampledPoints"`
	StoredPaths   int       `json:"storedPaths"`
	DroppedFrames int       `json:"droppedFrames"`
}

// Dependencies holds all dependencies for the monitor service. Snapshot
// is polled once per interval and must be cheap.
type Dependencies struct {
	LogManager *logging.SlogManager
	StatusPath string
	Interval   time.Duration
	Snapshot   func() Status
}

// Service periodically captures the loop status and rewrites the status
// file so external tooling can watch a running session.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service. Interval defaults to one
// second.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Component("monitor")
		logger.Debug("Starting status monitor goroutine", "path", s.deps.StatusPath)

		statusFile, err := os.Create(s.deps.StatusPath)
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				status := s.deps.Snapshot()
				status.Time = time.Now()

				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					logger.Error("Error serializing status", "error", err)
					continue
				}

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(data)
					statusFile.WriteString("\n")
				}

				logger.Debug("Status",
					"tick", status.Tick,
					"agents", status.Agents,
					"droppedFrames", status.DroppedFrames,
				)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
