// Package bringup owns the lifecycle of one network port: buffer pool
// allocation, device configuration, queue setup, MTU and FEC application,
// port start and link read-back. Steps run strictly in order; a fatal failure
// at any step releases everything acquired so far and leaves the port in a
// diagnosable Failed state.
package bringup

import (
	"fmt"

	"portd/internal/portd/device"
	"portd/pkg/logger"
)

// Dependencies holds everything the controller needs injected.
type Dependencies struct {
	Device device.Device
	// OnDiagnostic, when set, receives every tolerated/informational step
	// outcome as it happens. Must not block.
	OnDiagnostic func(Diagnostic)
}

// Controller executes the bring-up sequence for a single port. It is not
// safe for concurrent use; bring-up is single-threaded by design.
type Controller struct {
	dev    device.Device
	notify func(Diagnostic)
	state  PortState
	logger *logger.Logger
}

// NewController creates a controller in state Unconfigured.
func NewController(deps Dependencies) *Controller {
	notify := deps.OnDiagnostic
	if notify == nil {
		notify = func(Diagnostic) {}
	}
	return &Controller{
		dev:    deps.Device,
		notify: notify,
		state:  Unconfigured,
		logger: logger.WithField("component", "bringup"),
	}
}

// State returns the current lifecycle state of the port.
func (c *Controller) State() PortState { return c.state }

// step is one entry of the bring-up sequence. after, when set, is the state
// reached once the step succeeds.
type step struct {
	name     string
	severity Severity
	after    PortState
	run      func() error
}

// BringUp executes the full sequence and returns a port in state Started, or
// a *BringUpError naming the failing step. Tolerated failures (MTU
// re-application, FEC set) are logged, recorded as diagnostics and do not
// stop the sequence.
func (c *Controller) BringUp(cfg PortConfig) (*RunningPort, error) {
	log := c.logger.WithField("port", cfg.PortID)

	if err := cfg.Validate(); err != nil {
		c.state = Failed
		return nil, &BringUpError{Step: "validate", Code: device.ErrInvalid, Err: err}
	}

	// The port may be left running by a previous process. Stopping a port
	// that never started is harmless.
	if err := c.dev.Stop(); err != nil {
		log.Debug("pre-bring-up stop rejected", "code", int(device.Code(err)))
	}

	var (
		pool      device.Pool
		diags     []Diagnostic
		actualFEC device.FECMode
		fecKnown  bool
		link      device.LinkStatus
	)

	steps := []step{
		{
			name: "pool-create", severity: Fatal,
			run: func() error {
				p, err := c.dev.CreatePool(device.PoolConfig{
					Name:     fmt.Sprintf("PORT%d_MBUF_POOL", cfg.PortID),
					Size:     cfg.PoolSize,
					DataRoom: cfg.DataRoom,
				})
				if err != nil {
					return err
				}
				pool = p
				log.Debug("buffer pool created", "size", cfg.PoolSize, "dataRoom", cfg.DataRoom)
				return nil
			},
		},
		{
			name: "device-configure", severity: Fatal, after: Configured,
			run: func() error {
				return c.dev.Configure(device.Config{
					SpeedMbps: cfg.SpeedMbps,
					MTU:       cfg.MTU,
					RxQueues:  cfg.RxQueues,
					TxQueues:  cfg.TxQueues,
				})
			},
		},
		{
			name: "queue-setup", severity: Fatal, after: QueuesReady,
			run: func() error {
				for q := uint16(0); q < cfg.RxQueues; q++ {
					if err := c.dev.SetupRxQueue(q, cfg.RxDescriptors, pool); err != nil {
						return fmt.Errorf("rx queue %d: %w", q, err)
					}
				}
				for q := uint16(0); q < cfg.TxQueues; q++ {
					if err := c.dev.SetupTxQueue(q, cfg.TxDescriptors); err != nil {
						return fmt.Errorf("tx queue %d: %w", q, err)
					}
				}
				return nil
			},
		},
		{
			name: "mtu-apply", severity: Degraded,
			run: func() error {
				return c.dev.SetMTU(cfg.MTU)
			},
		},
		{
			// FEC must be set before the port starts; applying it after
			// start is unsupported on target hardware.
			name: "fec-set", severity: Degraded,
			run: func() error {
				return c.dev.SetFEC(cfg.FEC)
			},
		},
		{
			name: "port-start", severity: Fatal, after: Started,
			run: func() error {
				return c.dev.Start()
			},
		},
		{
			name: "link-status", severity: Informational,
			run: func() error {
				link = c.dev.LinkStatus()
				if !link.Known {
					return fmt.Errorf("link state not readable")
				}
				return nil
			},
		},
	}

	for _, s := range steps {
		err := s.run()
		if err == nil {
			if s.after != Unconfigured {
				c.state = s.after
			}
			if s.name == "fec-set" {
				actualFEC, fecKnown = c.readBackFEC(log, cfg.FEC)
				diags = c.appendFECDiagnostic(diags, cfg.FEC, actualFEC, fecKnown)
			}
			continue
		}

		switch s.severity {
		case Fatal:
			c.state = Failed
			c.release(pool, log)
			bErr := &BringUpError{Step: s.name, Code: device.Code(err), Err: err}
			log.Error("bring-up failed", "step", s.name, "code", int(bErr.Code), "error", err)
			return nil, bErr

		case Degraded:
			code := device.Code(err)
			log.Warn("step failed, continuing with prior configuration",
				"step", s.name, "code", int(code), "error", err)
			d := Diagnostic{Step: s.name, Severity: Degraded, Code: code, Detail: err.Error()}
			diags = append(diags, d)
			c.notify(d)
			if s.name == "fec-set" {
				actualFEC, fecKnown = c.readBackFEC(log, cfg.FEC)
				diags = c.appendFECDiagnostic(diags, cfg.FEC, actualFEC, fecKnown)
			}

		case Informational:
			log.Info("informational step reported no value", "step", s.name)
			d := Diagnostic{Step: s.name, Severity: Informational, Detail: err.Error()}
			diags = append(diags, d)
			c.notify(d)
		}
	}

	log.Info("port started", "state", c.state, "link", link.String(), "fec", actualFEC.String())

	return &RunningPort{
		dev:         c.dev,
		pool:        pool,
		cfg:         cfg,
		fec:         actualFEC,
		fecKnown:    fecKnown,
		link:        link,
		diags:       diags,
		logger:      log,
		markStopped: func() { c.state = Stopped },
	}, nil
}

// readBackFEC reports the mode actually active after the set attempt, rather
// than assuming the request took effect.
func (c *Controller) readBackFEC(log *logger.Logger, requested device.FECMode) (device.FECMode, bool) {
	actual, err := c.dev.FEC()
	if err != nil {
		log.Warn("FEC read-back not supported", "requested", requested.String(), "code", int(device.Code(err)))
		return device.FECAuto, false
	}
	return actual, true
}

func (c *Controller) appendFECDiagnostic(diags []Diagnostic, requested, actual device.FECMode, known bool) []Diagnostic {
	detail := fmt.Sprintf("requested %s, active %s", requested, actual)
	if !known {
		detail = fmt.Sprintf("requested %s, active mode unknown", requested)
	}
	d := Diagnostic{Step: "fec-readback", Severity: Informational, Detail: detail}
	c.notify(d)
	return append(diags, d)
}

// release frees everything acquired before a fatal failure. Stop and Close
// are tolerated on a device that never reached the corresponding state.
func (c *Controller) release(pool device.Pool, log *logger.Logger) {
	if pool != nil {
		if err := pool.Free(); err != nil {
			log.Warn("buffer pool release failed", "error", err)
		}
	}
	if err := c.dev.Stop(); err != nil {
		log.Debug("stop during release rejected", "code", int(device.Code(err)))
	}
	if err := c.dev.Close(); err != nil {
		log.Warn("device close failed during release", "code", int(device.Code(err)))
	}
}
