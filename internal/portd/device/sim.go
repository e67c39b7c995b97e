package device

import "fmt"

// SimDevice is a deterministic in-memory device. It enforces the same call
// ordering the real driver does and exposes behavior flags so tests can force
// failures at any step. It also serves as the device for builds without the
// dpdk tag.
type SimDevice struct {
	ID PortID

	// Behavior flags
	FailPool      bool
	FailConfigure bool
	FailRxQueue   int // queue index that fails, -1 for none
	FailTxQueue   int // queue index that fails, -1 for none
	FailSetMTU    bool
	FailSetFEC    bool // firmware pins FEC; SetFEC returns ErrNotSupported
	FailStart     bool
	FailFECRead   bool // FEC readback unsupported
	LinkDown      bool
	NoLink        bool // link state not readable at all

	// ActiveFEC is the mode the firmware currently runs. SetFEC updates it
	// unless FailSetFEC is set.
	ActiveFEC FECMode

	// Call tracking
	Calls        []string
	RxQueueCalls []QueueCall
	TxQueueCalls []QueueCall

	configured Config
	pool       *SimPool
	phase      simPhase
	mtu        uint16
	envFreed   bool
}

// QueueCall records one queue setup invocation.
type QueueCall struct {
	Queue       uint16
	Descriptors uint16
	PoolName    string
}

type simPhase int

const (
	simIdle simPhase = iota
	simConfigured
	simStarted
	simClosed
)

// NewSimDevice returns a simulated device for the given port with all
// failure flags off and FEC initially in auto mode.
func NewSimDevice(id PortID) *SimDevice {
	return &SimDevice{
		ID:          id,
		FailRxQueue: -1,
		FailTxQueue: -1,
		ActiveFEC:   FECAuto,
	}
}

// SimPool is the pool handle SimDevice hands out.
type SimPool struct {
	name     string
	capacity uint32
	dataRoom uint32
	Freed    bool
}

func (p *SimPool) Name() string     { return p.name }
func (p *SimPool) Capacity() uint32 { return p.capacity }
func (p *SimPool) DataRoom() uint32 { return p.dataRoom }

func (p *SimPool) Free() error {
	p.Freed = true
	return nil
}

func (d *SimDevice) record(call string) {
	d.Calls = append(d.Calls, call)
}

func (d *SimDevice) PortID() PortID { return d.ID }

func (d *SimDevice) CreatePool(cfg PoolConfig) (Pool, error) {
	d.record("CreatePool")
	if d.FailPool {
		return nil, ErrNoMemory
	}
	if cfg.Size == 0 || cfg.DataRoom == 0 {
		return nil, ErrInvalid
	}
	d.pool = &SimPool{name: cfg.Name, capacity: cfg.Size, dataRoom: cfg.DataRoom}
	return d.pool, nil
}

func (d *SimDevice) Configure(cfg Config) error {
	d.record("Configure")
	if d.FailConfigure {
		return ErrIO
	}
	if d.phase == simStarted || d.phase == simClosed {
		return ErrInvalid
	}
	d.configured = cfg
	d.mtu = cfg.MTU
	d.phase = simConfigured
	return nil
}

func (d *SimDevice) SetupRxQueue(queue uint16, descriptors uint16, pool Pool) error {
	d.record(fmt.Sprintf("SetupRxQueue(%d)", queue))
	if d.phase != simConfigured {
		return ErrInvalid
	}
	if pool == nil {
		return ErrInvalid
	}
	if d.FailRxQueue >= 0 && int(queue) == d.FailRxQueue {
		return ErrNoMemory
	}
	d.RxQueueCalls = append(d.RxQueueCalls, QueueCall{Queue: queue, Descriptors: descriptors, PoolName: pool.Name()})
	return nil
}

func (d *SimDevice) SetupTxQueue(queue uint16, descriptors uint16) error {
	d.record(fmt.Sprintf("SetupTxQueue(%d)", queue))
	if d.phase != simConfigured {
		return ErrInvalid
	}
	if d.FailTxQueue >= 0 && int(queue) == d.FailTxQueue {
		return ErrNoMemory
	}
	d.TxQueueCalls = append(d.TxQueueCalls, QueueCall{Queue: queue, Descriptors: descriptors})
	return nil
}

func (d *SimDevice) SetMTU(mtu uint16) error {
	d.record("SetMTU")
	if d.FailSetMTU {
		return ErrNotSupported
	}
	d.mtu = mtu
	return nil
}

// MTU reports the MTU the device currently runs with.
func (d *SimDevice) MTU() uint16 { return d.mtu }

func (d *SimDevice) SetFEC(mode FECMode) error {
	d.record("SetFEC")
	if d.phase == simStarted {
		// FEC changes after start are unsupported on target hardware.
		return ErrInvalid
	}
	if d.FailSetFEC {
		return ErrNotSupported
	}
	d.ActiveFEC = mode
	return nil
}

func (d *SimDevice) FEC() (FECMode, error) {
	d.record("FEC")
	if d.FailFECRead {
		return FECAuto, ErrNotSupported
	}
	return d.ActiveFEC, nil
}

func (d *SimDevice) Start() error {
	d.record("Start")
	if d.FailStart {
		return ErrIO
	}
	if d.phase != simConfigured {
		return ErrInvalid
	}
	d.phase = simStarted
	return nil
}

func (d *SimDevice) Stop() error {
	d.record("Stop")
	if d.phase == simStarted {
		d.phase = simConfigured
	}
	return nil
}

func (d *SimDevice) Close() error {
	d.record("Close")
	d.phase = simClosed
	return nil
}

func (d *SimDevice) LinkStatus() LinkStatus {
	d.record("LinkStatus")
	if d.NoLink || d.phase != simStarted {
		return LinkStatus{}
	}
	return LinkStatus{
		Known:      true,
		Up:         !d.LinkDown,
		SpeedMbps:  d.configured.SpeedMbps,
		FullDuplex: true,
	}
}

func (d *SimDevice) ReleaseEnv() error {
	d.record("ReleaseEnv")
	d.envFreed = true
	return nil
}

// EnvReleased reports whether the global environment teardown ran.
func (d *SimDevice) EnvReleased() bool { return d.envFreed }

// Pool returns the pool handle created through this device, if any.
func (d *SimDevice) Pool() *SimPool { return d.pool }

// Closed reports whether the device was closed.
func (d *SimDevice) Closed() bool { return d.phase == simClosed }

var _ Device = (*SimDevice)(nil)
