// Package daemon wires configuration, the broadcast channel and the bring-up
// controller into the process run loop.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"portd/internal/portd/bringup"
	"portd/internal/portd/broadcast"
	"portd/internal/portd/device"
	"portd/internal/portd/events"
	"portd/pkg/config"
	"portd/pkg/logger"
)

// Dependencies holds everything the daemon needs injected.
type Dependencies struct {
	Config    *config.Config
	Device    device.Device
	Transport broadcast.Transport
}

// Daemon brings up the port once at startup and holds it until the run
// context is cancelled.
type Daemon struct {
	cfg       *config.Config
	dev       device.Device
	transport broadcast.Transport
	logger    *logger.Logger
}

// New creates a daemon from its dependencies.
func New(deps Dependencies) *Daemon {
	return &Daemon{
		cfg:       deps.Config,
		dev:       deps.Device,
		transport: deps.Transport,
		logger:    logger.WithField("component", "daemon"),
	}
}

// Run opens the broadcast channel, executes the bring-up sequence, publishes
// the derived events and blocks until ctx is cancelled. Teardown always runs
// here, never in signal context. A channel open failure or a fatal bring-up
// step aborts the run.
func (d *Daemon) Run(ctx context.Context) error {
	fec, err := device.ParseFECMode(d.cfg.Port.FEC)
	if err != nil {
		return fmt.Errorf("invalid port.fec: %w", err)
	}

	channel, err := broadcast.Open(d.transport, d.cfg.Broadcast.Endpoint, d.cfg.Broadcast.SendHighWaterMark)
	if err != nil {
		return fmt.Errorf("broadcast channel init: %w", err)
	}
	defer func() {
		if e := channel.Close(); e != nil {
			d.logger.Warn("broadcast channel close failed", "error", e)
		}
	}()

	portCfg := bringup.PortConfig{
		PortID:        device.PortID(d.cfg.Port.ID),
		SpeedMbps:     d.cfg.Port.SpeedMbps,
		MTU:           d.cfg.Port.MTU,
		FEC:           fec,
		RxQueues:      d.cfg.Port.RxQueues,
		TxQueues:      d.cfg.Port.TxQueues,
		RxDescriptors: d.cfg.Port.RxDescriptors,
		TxDescriptors: d.cfg.Port.TxDescriptors,
		PoolSize:      d.cfg.Port.PoolSize,
		DataRoom:      d.cfg.Port.DataRoom,
	}

	emitter := events.NewEmitter(channel, portCfg.PortID)

	controller := bringup.NewController(bringup.Dependencies{
		Device:       d.dev,
		OnDiagnostic: emitter.Step,
	})

	port, err := controller.BringUp(portCfg)
	if err != nil {
		var bErr *bringup.BringUpError
		if errors.As(err, &bErr) {
			emitter.FailedStep(bErr)
		}
		return err
	}

	emitter.Started()
	emitter.Link(port.Link())
	actual, known := port.FEC()
	emitter.FEC(portCfg.FEC, actual, known)

	d.logger.Info("running", "port", port.PortID(), "link", port.Link().String())

	<-ctx.Done()

	d.logger.Info("stop requested, shutting down")
	if e := port.ShutDown(); e != nil {
		d.logger.Warn("port shutdown reported errors", "error", e)
	}
	return nil
}
