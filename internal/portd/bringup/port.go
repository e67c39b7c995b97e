package bringup

import (
	"sync"

	"portd/internal/portd/device"
	"portd/pkg/logger"
)

// RunningPort is the handle returned by a successful bring-up. The port is in
// state Started and the pool is bound to its receive queues.
type RunningPort struct {
	dev      device.Device
	pool     device.Pool
	cfg      PortConfig
	fec      device.FECMode
	fecKnown bool
	link     device.LinkStatus
	diags    []Diagnostic
	logger   *logger.Logger

	// markStopped records the Stopped state on the owning controller once
	// teardown has run.
	markStopped func()

	shutdown sync.Once
}

// PortID returns the numeric port identifier.
func (p *RunningPort) PortID() device.PortID { return p.cfg.PortID }

// Config returns the intent the port was brought up with.
func (p *RunningPort) Config() PortConfig { return p.cfg }

// Pool returns the packet buffer pool bound to the receive queues.
func (p *RunningPort) Pool() device.Pool { return p.pool }

// FEC reports the mode active after the set attempt. The bool is false when
// the device could not report its FEC mode.
func (p *RunningPort) FEC() (device.FECMode, bool) { return p.fec, p.fecKnown }

// Link returns the link state read back after start.
func (p *RunningPort) Link() device.LinkStatus { return p.link }

// Diagnostics returns the tolerated and informational step outcomes recorded
// during bring-up.
func (p *RunningPort) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(p.diags))
	copy(out, p.diags)
	return out
}

// ShutDown stops traffic, closes the device, frees the pool and releases the
// global device environment. Guarded so a second call is a no-op; teardown
// runs outside any signal-handling context.
func (p *RunningPort) ShutDown() error {
	var err error
	p.shutdown.Do(func() {
		p.logger.Info("shutting down port")
		if e := p.dev.Stop(); e != nil {
			p.logger.Warn("port stop failed", "code", int(device.Code(e)))
			err = e
		}
		if e := p.dev.Close(); e != nil {
			p.logger.Warn("device close failed", "code", int(device.Code(e)))
			err = e
		}
		if p.pool != nil {
			if e := p.pool.Free(); e != nil {
				p.logger.Warn("buffer pool release failed", "error", e)
				err = e
			}
		}
		if e := p.dev.ReleaseEnv(); e != nil {
			p.logger.Warn("device environment release failed", "code", int(device.Code(e)))
			err = e
		}
		p.markStopped()
	})
	return err
}
