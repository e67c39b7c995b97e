package bringup

import (
	"fmt"

	"portd/internal/portd/device"
)

// ProtocolHeadroom is the extra data room reserved per buffer beyond the MTU
// so one full jumbo frame plus link-layer overhead fits unsegmented.
const ProtocolHeadroom = 128

// PortConfig is the immutable bring-up intent for one port.
type PortConfig struct {
	PortID        device.PortID
	SpeedMbps     uint32
	MTU           uint16
	FEC           device.FECMode
	RxQueues      uint16
	TxQueues      uint16
	RxDescriptors uint16
	TxDescriptors uint16
	PoolSize      uint32
	DataRoom      uint32
}

// Validate rejects configurations the controller cannot bring up.
func (c PortConfig) Validate() error {
	if c.RxQueues < 1 {
		return fmt.Errorf("rx queue count must be >= 1, got %d", c.RxQueues)
	}
	if c.TxQueues < 1 {
		return fmt.Errorf("tx queue count must be >= 1, got %d", c.TxQueues)
	}
	if c.RxDescriptors < 1 || c.TxDescriptors < 1 {
		return fmt.Errorf("descriptor counts must be >= 1, got rx=%d tx=%d", c.RxDescriptors, c.TxDescriptors)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool size must be >= 1, got %d", c.PoolSize)
	}
	if c.DataRoom < uint32(c.MTU)+ProtocolHeadroom {
		return fmt.Errorf("data room %d too small for MTU %d plus %d headroom", c.DataRoom, c.MTU, ProtocolHeadroom)
	}
	if c.SpeedMbps == 0 {
		return fmt.Errorf("link speed must be pinned to a non-zero rate")
	}
	return nil
}
