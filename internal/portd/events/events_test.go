package events_test

import (
	"encoding/json"
	"testing"

	"portd/internal/portd/bringup"
	"portd/internal/portd/broadcast"
	"portd/internal/portd/device"
	"portd/internal/portd/events"
)

func setup(t *testing.T) (*events.Emitter, *broadcast.MemSocket) {
	t.Helper()
	transport := broadcast.NewMemTransport()
	ch, err := broadcast.Open(transport, "inproc://events", 100)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close() })
	return events.NewEmitter(ch, device.PortID(0)), transport.Socket()
}

func TestEmitter_FECEvent(t *testing.T) {
	emitter, sock := setup(t)

	emitter.FEC(device.FECNone, device.FECNone, true)

	frames, ok := sock.Receive()
	if !ok {
		t.Fatal("Expected a published message")
	}
	if string(frames[0]) != events.TopicFEC {
		t.Errorf("Expected topic %q, got %q", events.TopicFEC, frames[0])
	}

	var ev events.FECEvent
	if err := json.Unmarshal(frames[1], &ev); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if ev.Requested != "none" || ev.Actual != "none" || !ev.Known {
		t.Errorf("Unexpected FEC event: %+v", ev)
	}
	if ev.RunID == "" {
		t.Error("Expected run_id to be stamped")
	}
	if ev.Time == "" {
		t.Error("Expected timestamp to be stamped")
	}
}

func TestEmitter_StepEvent(t *testing.T) {
	emitter, sock := setup(t)

	emitter.Step(bringup.Diagnostic{
		Step:     "mtu-apply",
		Severity: bringup.Degraded,
		Code:     device.ErrNotSupported,
		Detail:   "device fixes MTU at configure time",
	})

	frames, ok := sock.Receive()
	if !ok {
		t.Fatal("Expected a published message")
	}
	if string(frames[0]) != events.TopicBringUp {
		t.Errorf("Expected topic %q, got %q", events.TopicBringUp, frames[0])
	}

	var ev events.BringUpEvent
	if err := json.Unmarshal(frames[1], &ev); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if ev.Step != "mtu-apply" || ev.Severity != "degraded" || ev.Code != int(device.ErrNotSupported) {
		t.Errorf("Unexpected bring-up event: %+v", ev)
	}
}

func TestEmitter_LinkEvent(t *testing.T) {
	emitter, sock := setup(t)

	emitter.Link(device.LinkStatus{Known: true, Up: true, SpeedMbps: 10000, FullDuplex: true})

	frames, ok := sock.Receive()
	if !ok {
		t.Fatal("Expected a published message")
	}
	if string(frames[0]) != events.TopicLink {
		t.Errorf("Expected topic %q, got %q", events.TopicLink, frames[0])
	}

	var ev events.LinkEvent
	if err := json.Unmarshal(frames[1], &ev); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if !ev.Up || ev.SpeedMbps != 10000 || !ev.FullDuplex {
		t.Errorf("Unexpected link event: %+v", ev)
	}
}

func TestEmitter_SharedRunID(t *testing.T) {
	emitter, sock := setup(t)

	emitter.Started()
	emitter.Link(device.LinkStatus{Known: true, Up: true, SpeedMbps: 10000})

	var ids []string
	for {
		frames, ok := sock.Receive()
		if !ok {
			break
		}
		var env struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal(frames[1], &env); err != nil {
			t.Fatalf("Payload is not valid JSON: %v", err)
		}
		ids = append(ids, env.RunID)
	}

	if len(ids) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(ids))
	}
	if ids[0] != ids[1] {
		t.Errorf("Expected a stable run_id across events, got %q and %q", ids[0], ids[1])
	}
}
