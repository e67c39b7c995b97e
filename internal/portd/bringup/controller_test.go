package bringup_test

import (
	"errors"
	"testing"

	"portd/internal/portd/bringup"
	"portd/internal/portd/device"
)

func validConfig() bringup.PortConfig {
	return bringup.PortConfig{
		PortID:        0,
		SpeedMbps:     10000,
		MTU:           9200,
		FEC:           device.FECNone,
		RxQueues:      1,
		TxQueues:      1,
		RxDescriptors: 1024,
		TxDescriptors: 1024,
		PoolSize:      8192,
		DataRoom:      16384,
	}
}

func callIndex(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestBringUp_FullSequence(t *testing.T) {
	dev := device.NewSimDevice(0)
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	port, err := ctrl.BringUp(validConfig())
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}

	if ctrl.State() != bringup.Started {
		t.Errorf("Expected state started, got %v", ctrl.State())
	}
	if port.PortID() != 0 {
		t.Errorf("Expected port 0, got %d", port.PortID())
	}

	link := port.Link()
	if !link.Known || !link.Up {
		t.Errorf("Expected known link up, got %+v", link)
	}
	if link.SpeedMbps != 10000 {
		t.Errorf("Expected reported speed 10000 Mbps, got %d", link.SpeedMbps)
	}

	fec, known := port.FEC()
	if !known || fec != device.FECNone {
		t.Errorf("Expected reported FEC none, got %v (known=%v)", fec, known)
	}

	if len(dev.RxQueueCalls) != 1 || dev.RxQueueCalls[0].Descriptors != 1024 {
		t.Errorf("Expected one rx queue with 1024 descriptors, got %+v", dev.RxQueueCalls)
	}
	if dev.RxQueueCalls[0].PoolName != "PORT0_MBUF_POOL" {
		t.Errorf("Expected rx queue bound to pool, got %q", dev.RxQueueCalls[0].PoolName)
	}
	if len(dev.TxQueueCalls) != 1 || dev.TxQueueCalls[0].Descriptors != 1024 {
		t.Errorf("Expected one tx queue with 1024 descriptors, got %+v", dev.TxQueueCalls)
	}
}

func TestBringUp_FECAppliedBeforeStart(t *testing.T) {
	dev := device.NewSimDevice(0)
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	if _, err := ctrl.BringUp(validConfig()); err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}

	fecIdx := callIndex(dev.Calls, "SetFEC")
	startIdx := callIndex(dev.Calls, "Start")
	if fecIdx < 0 || startIdx < 0 {
		t.Fatalf("Expected both SetFEC and Start calls, got %v", dev.Calls)
	}
	if fecIdx > startIdx {
		t.Errorf("FEC must be applied before port start, calls: %v", dev.Calls)
	}
}

func TestBringUp_FECUnsupportedIsTolerated(t *testing.T) {
	dev := device.NewSimDevice(0)
	dev.FailSetFEC = true
	dev.ActiveFEC = device.FECRS // firmware-pinned mode

	var diags []bringup.Diagnostic
	ctrl := bringup.NewController(bringup.Dependencies{
		Device:       dev,
		OnDiagnostic: func(d bringup.Diagnostic) { diags = append(diags, d) },
	})

	port, err := ctrl.BringUp(validConfig())
	if err != nil {
		t.Fatalf("Expected bring-up to tolerate FEC failure, got %v", err)
	}
	if ctrl.State() != bringup.Started {
		t.Errorf("Expected state started, got %v", ctrl.State())
	}

	// The reported mode must be the one active before the attempt, read
	// back from the device rather than assumed.
	fec, known := port.FEC()
	if !known || fec != device.FECRS {
		t.Errorf("Expected reported FEC rs, got %v (known=%v)", fec, known)
	}

	found := false
	for _, d := range diags {
		if d.Step == "fec-set" && d.Severity == bringup.Degraded && d.Code == device.ErrNotSupported {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected degraded fec-set diagnostic, got %+v", diags)
	}
}

func TestBringUp_MTUFailureIsTolerated(t *testing.T) {
	dev := device.NewSimDevice(0)
	dev.FailSetMTU = true
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	port, err := ctrl.BringUp(validConfig())
	if err != nil {
		t.Fatalf("Expected bring-up to tolerate MTU failure, got %v", err)
	}

	found := false
	for _, d := range port.Diagnostics() {
		if d.Step == "mtu-apply" && d.Severity == bringup.Degraded {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected degraded mtu-apply diagnostic, got %+v", port.Diagnostics())
	}
}

func TestBringUp_QueueFailureReleasesEverything(t *testing.T) {
	dev := device.NewSimDevice(0)
	dev.FailRxQueue = 0
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	port, err := ctrl.BringUp(validConfig())
	if port != nil {
		t.Fatal("Expected no port on queue setup failure")
	}

	var bErr *bringup.BringUpError
	if !errors.As(err, &bErr) {
		t.Fatalf("Expected *BringUpError, got %T: %v", err, err)
	}
	if bErr.Step != "queue-setup" {
		t.Errorf("Expected failing step queue-setup, got %q", bErr.Step)
	}
	if bErr.Code != device.ErrNoMemory {
		t.Errorf("Expected code %d, got %d", device.ErrNoMemory, bErr.Code)
	}

	if ctrl.State() != bringup.Failed {
		t.Errorf("Expected state failed, got %v", ctrl.State())
	}
	if pool := dev.Pool(); pool == nil || !pool.Freed {
		t.Error("Expected buffer pool to be released")
	}
	if !dev.Closed() {
		t.Error("Expected device to be closed")
	}
}

func TestBringUp_FatalSteps(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*device.SimDevice)
		wantStep string
	}{
		{"pool creation", func(d *device.SimDevice) { d.FailPool = true }, "pool-create"},
		{"device configure", func(d *device.SimDevice) { d.FailConfigure = true }, "device-configure"},
		{"tx queue setup", func(d *device.SimDevice) { d.FailTxQueue = 0 }, "queue-setup"},
		{"port start", func(d *device.SimDevice) { d.FailStart = true }, "port-start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := device.NewSimDevice(0)
			tt.mutate(dev)
			ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

			port, err := ctrl.BringUp(validConfig())
			if port != nil {
				t.Fatal("Expected no port")
			}

			var bErr *bringup.BringUpError
			if !errors.As(err, &bErr) {
				t.Fatalf("Expected *BringUpError, got %T: %v", err, err)
			}
			if bErr.Step != tt.wantStep {
				t.Errorf("Expected failing step %q, got %q", tt.wantStep, bErr.Step)
			}
			if ctrl.State() != bringup.Failed {
				t.Errorf("Expected state failed, got %v", ctrl.State())
			}
			if !dev.Closed() {
				t.Error("Expected device to be closed after fatal failure")
			}
		})
	}
}

func TestBringUp_InvalidConfigRejected(t *testing.T) {
	dev := device.NewSimDevice(0)
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	cfg := validConfig()
	cfg.RxQueues = 0

	_, err := ctrl.BringUp(cfg)
	var bErr *bringup.BringUpError
	if !errors.As(err, &bErr) || bErr.Step != "validate" {
		t.Fatalf("Expected validate step failure, got %v", err)
	}
	if callIndex(dev.Calls, "CreatePool") >= 0 {
		t.Error("Expected no device calls for invalid configuration")
	}
}

func TestBringUp_DataRoomTooSmall(t *testing.T) {
	cfg := validConfig()
	cfg.DataRoom = uint32(cfg.MTU) // no headroom
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation to reject data room without headroom")
	}
}

func TestBringUp_UnreadableLinkIsInformational(t *testing.T) {
	dev := device.NewSimDevice(0)
	dev.NoLink = true
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	port, err := ctrl.BringUp(validConfig())
	if err != nil {
		t.Fatalf("Expected unreadable link to not fail bring-up, got %v", err)
	}
	if port.Link().Known {
		t.Error("Expected link state to be reported unknown")
	}

	found := false
	for _, d := range port.Diagnostics() {
		if d.Step == "link-status" && d.Severity == bringup.Informational {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected informational link-status diagnostic, got %+v", port.Diagnostics())
	}
}

func TestShutDown_SecondCallIsNoOp(t *testing.T) {
	dev := device.NewSimDevice(0)
	ctrl := bringup.NewController(bringup.Dependencies{Device: dev})

	port, err := ctrl.BringUp(validConfig())
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}

	if err := port.ShutDown(); err != nil {
		t.Fatalf("ShutDown failed: %v", err)
	}
	if ctrl.State() != bringup.Stopped {
		t.Errorf("Expected state stopped after shutdown, got %v", ctrl.State())
	}
	if !dev.Closed() || !dev.EnvReleased() {
		t.Error("Expected device closed and environment released")
	}
	if pool := dev.Pool(); pool == nil || !pool.Freed {
		t.Error("Expected buffer pool released on shutdown")
	}

	calls := len(dev.Calls)
	if err := port.ShutDown(); err != nil {
		t.Errorf("Second ShutDown should be a no-op, got %v", err)
	}
	if len(dev.Calls) != calls {
		t.Errorf("Second ShutDown must not touch the device, calls grew from %d to %d", calls, len(dev.Calls))
	}
	if ctrl.State() != bringup.Stopped {
		t.Errorf("Expected state to stay stopped, got %v", ctrl.State())
	}
}
