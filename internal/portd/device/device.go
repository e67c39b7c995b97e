// Package device abstracts the ethernet device, queue and buffer pool
// operations the bring-up controller consumes. The production implementation
// sits on the DPDK ethdev API (build tag "dpdk"); SimDevice provides a
// deterministic in-memory device for tests and DPDK-less builds.
package device

// Pool is a handle to a fixed-capacity packet buffer pool. A pool is created
// before queue setup (receive queues bind to it) and released together with
// the port.
type Pool interface {
	// Name returns the pool identifier registered with the device layer.
	Name() string
	// Capacity returns the number of buffers the pool was created with.
	Capacity() uint32
	// DataRoom returns the per-buffer data room in bytes.
	DataRoom() uint32
	// Free releases the pool. Safe to call on an already-freed pool.
	Free() error
}

// Device is the capability set the controller needs from one ethernet port.
// All methods are synchronous; failures carry an Errno where the underlying
// layer reported a numeric code.
type Device interface {
	// PortID returns the numeric identifier this device is bound to.
	PortID() PortID

	// CreatePool allocates the packet buffer pool. Must be called before
	// SetupRxQueue since receive queues bind to the pool.
	CreatePool(cfg PoolConfig) (Pool, error)

	// Configure applies device-level configuration: pinned link speed and
	// the desired MTU. Must precede any queue setup.
	Configure(cfg Config) error

	// SetupRxQueue binds one receive queue to a descriptor count and the
	// buffer pool.
	SetupRxQueue(queue uint16, descriptors uint16, pool Pool) error

	// SetupTxQueue binds one transmit queue to a descriptor count. Transmit
	// queues do not take the pool.
	SetupTxQueue(queue uint16, descriptors uint16) error

	// SetMTU re-applies the desired MTU at device level. Some devices fix
	// the MTU at configure time and reject this call; callers tolerate that.
	SetMTU(mtu uint16) error

	// SetFEC requests a forward-error-correction mode. Only valid before
	// Start; some firmware pins FEC and rejects the call.
	SetFEC(mode FECMode) error

	// FEC reads back the currently active FEC mode.
	FEC() (FECMode, error)

	// Start activates the port for traffic.
	Start() error

	// Stop halts traffic. Stopping a port that never started is tolerated.
	Stop() error

	// Close releases the device. The device is unusable afterwards.
	Close() error

	// LinkStatus reads back the actual link state without blocking. It never
	// fails; an unreadable link reports Known=false.
	LinkStatus() LinkStatus

	// ReleaseEnv tears down the global device runtime environment. Called
	// once at process end, after Close.
	ReleaseEnv() error
}
