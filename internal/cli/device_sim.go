//go:build !dpdk

package cli

import (
	"portd/internal/portd/device"
	"portd/pkg/config"
	"portd/pkg/logger"
)

// Builds without the dpdk tag run against the simulated device. Useful for
// exercising the bring-up sequence and the broadcast pipeline on machines
// without bound hardware.
func newDevice(cfg *config.Config, _ []string) (device.Device, error) {
	logger.Warn("built without dpdk support, using simulated device", "port", cfg.Port.ID)
	return device.NewSimDevice(device.PortID(cfg.Port.ID)), nil
}
