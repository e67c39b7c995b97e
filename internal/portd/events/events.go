// Package events defines the telemetry payloads published on the broadcast
// channel and the emitter that serializes them. Events are best-effort:
// marshal failures and transport drops never reach the producing pipeline.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"portd/internal/portd/bringup"
	"portd/internal/portd/broadcast"
	"portd/internal/portd/device"
	"portd/pkg/logger"
)

// Wire topics. Each logical event is two frames: [topic][JSON payload].
const (
	TopicBringUp = "bringup"
	TopicLink    = "link"
	TopicFEC     = "fec"
)

// BringUpEvent reports one bring-up step outcome or the terminal result.
type BringUpEvent struct {
	RunID    string `json:"run_id"`
	Time     string `json:"time"`
	Port     uint16 `json:"port"`
	Step     string `json:"step"`
	Severity string `json:"severity"`
	Code     int    `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// LinkEvent reports the link state read back after start.
type LinkEvent struct {
	RunID      string `json:"run_id"`
	Time       string `json:"time"`
	Port       uint16 `json:"port"`
	Known      bool   `json:"known"`
	Up         bool   `json:"up"`
	SpeedMbps  uint32 `json:"speed_mbps"`
	FullDuplex bool   `json:"full_duplex"`
}

// FECEvent reports the requested versus actually active FEC mode.
type FECEvent struct {
	RunID     string `json:"run_id"`
	Time      string `json:"time"`
	Port      uint16 `json:"port"`
	Requested string `json:"requested"`
	Actual    string `json:"actual"`
	Known     bool   `json:"known"`
}

// Emitter publishes telemetry events for one port. Not safe for concurrent
// use; the channel's socket requires external serialization.
type Emitter struct {
	ch     *broadcast.Channel
	port   device.PortID
	runID  string
	logger *logger.Logger
}

// NewEmitter stamps every event from this process run with a fresh run ID.
func NewEmitter(ch *broadcast.Channel, port device.PortID) *Emitter {
	return &Emitter{
		ch:     ch,
		port:   port,
		runID:  uuid.NewString(),
		logger: logger.WithField("component", "events"),
	}
}

func (e *Emitter) now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (e *Emitter) publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("event marshal failed, dropping", "topic", topic, "error", err)
		return
	}
	e.ch.Publish(topic, data)
}

// Step publishes one recorded bring-up diagnostic.
func (e *Emitter) Step(d bringup.Diagnostic) {
	e.publish(TopicBringUp, BringUpEvent{
		RunID:    e.runID,
		Time:     e.now(),
		Port:     uint16(e.port),
		Step:     d.Step,
		Severity: d.Severity.String(),
		Code:     int(d.Code),
		Detail:   d.Detail,
	})
}

// Started publishes the terminal bring-up success.
func (e *Emitter) Started() {
	e.publish(TopicBringUp, BringUpEvent{
		RunID:    e.runID,
		Time:     e.now(),
		Port:     uint16(e.port),
		Step:     "port-start",
		Severity: "informational",
		Detail:   "port started",
	})
}

// FailedStep publishes the terminal bring-up failure.
func (e *Emitter) FailedStep(err *bringup.BringUpError) {
	e.publish(TopicBringUp, BringUpEvent{
		RunID:    e.runID,
		Time:     e.now(),
		Port:     uint16(e.port),
		Step:     err.Step,
		Severity: "fatal",
		Code:     int(err.Code),
		Detail:   err.Error(),
	})
}

// Link publishes the post-start link status.
func (e *Emitter) Link(s device.LinkStatus) {
	e.publish(TopicLink, LinkEvent{
		RunID:      e.runID,
		Time:       e.now(),
		Port:       uint16(e.port),
		Known:      s.Known,
		Up:         s.Up,
		SpeedMbps:  s.SpeedMbps,
		FullDuplex: s.FullDuplex,
	})
}

// FEC publishes the requested and post-attempt FEC modes.
func (e *Emitter) FEC(requested, actual device.FECMode, known bool) {
	e.publish(TopicFEC, FECEvent{
		RunID:     e.runID,
		Time:      e.now(),
		Port:      uint16(e.port),
		Requested: requested.String(),
		Actual:    actual.String(),
		Known:     known,
	})
}
