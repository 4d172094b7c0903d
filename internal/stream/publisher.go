package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/apexsim/raceline/pkg/core"
)

// Config holds viewer connection configuration.
type Config struct {
	URL    string
	Secret string
}

// Publisher streams live playback frames to a viewer over WebSocket.
// Frames are fire-and-forget; the session handshake waits for an ack.
type Publisher struct {
	conn *connection
	cfg  Config
}

// New creates a new viewer publisher.
func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Connect dials the viewer.
func (p *Publisher) Connect() error {
	return p.conn.dial(p.cfg.URL, p.cfg.Secret)
}

// Close disconnects from the viewer.
func (p *Publisher) Close() error {
	return p.conn.close()
}

// Dropped returns how many messages were discarded because the send
// buffer was full.
func (p *Publisher) Dropped() int {
	return p.conn.dropped.Value()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop
// (fire-and-forget).
func (p *Publisher) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	p.conn.send(data)
	return nil
}

// Hello announces the session and waits for the viewer's ack. The
// message is cached so a reconnect can replay it.
func (p *Publisher) Hello(session string, paths []string, tickRate int) error {
	data, err := marshalEnvelope(TypeHello, HelloPayload{
		Session:  session,
		Paths:    paths,
		TickRate: tickRate,
	})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	p.conn.mu.Lock()
	p.conn.cachedHello = data
	p.conn.mu.Unlock()

	return p.conn.sendAndWait(data, TypeHello, ackTimeout)
}

// Goodbye ends the session and waits for the viewer's ack.
func (p *Publisher) Goodbye() error {
	err := func() error {
		data, merr := marshalEnvelope(TypeGoodbye, nil)
		if merr != nil {
			return merr
		}
		return p.conn.sendAndWait(data, TypeGoodbye, ackTimeout)
	}()

	// Clear cached state regardless of error.
	p.conn.mu.Lock()
	p.conn.cachedHello = nil
	p.conn.mu.Unlock()

	return err
}

// PublishFrame sends one tick's agent poses. Never blocks the sim loop.
func (p *Publisher) PublishFrame(f Frame) error {
	return p.sendEnvelope(TypeFrame, f)
}

// PublishPathSaved notifies the viewer of a newly stored path.
func (p *Publisher) PublishPathSaved(name string, points core.PointList) error {
	return p.sendEnvelope(TypePathSaved, PathSavedPayload{Name: name, Points: points})
}
