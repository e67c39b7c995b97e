//go:build dpdk

package cli

import (
	"portd/internal/portd/device"
	"portd/pkg/config"
)

func newDevice(cfg *config.Config, ealArgs []string) (device.Device, error) {
	return device.NewDPDKDevice(device.PortID(cfg.Port.ID), ealArgs)
}
