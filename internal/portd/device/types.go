package device

import (
	"errors"
	"fmt"
	"strings"
)

// PortID identifies a device by its 0-based numeric port index.
type PortID uint16

// FECMode is a forward-error-correction mode requested on a link.
type FECMode uint8

const (
	FECAuto FECMode = iota
	FECRS
	FECBaseR
	FECNone
)

func (m FECMode) String() string {
	switch m {
	case FECAuto:
		return "auto"
	case FECRS:
		return "rs"
	case FECBaseR:
		return "base-r"
	case FECNone:
		return "none"
	default:
		return fmt.Sprintf("fec(%d)", uint8(m))
	}
}

// ParseFECMode parses a configuration spelling of a FEC mode.
func ParseFECMode(s string) (FECMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return FECAuto, nil
	case "rs":
		return FECRS, nil
	case "base-r", "baser":
		return FECBaseR, nil
	case "none", "off", "nofec":
		return FECNone, nil
	default:
		return FECAuto, fmt.Errorf("unknown FEC mode: %q", s)
	}
}

// Config is the device-level intent applied at configure time.
// The link speed is pinned: autonegotiation is disabled so the link comes up
// with deterministic parameters.
type Config struct {
	SpeedMbps uint32
	MTU       uint16
	RxQueues  uint16
	TxQueues  uint16
}

// PoolConfig sizes the packet buffer pool a port's receive queues draw from.
// DataRoom must be large enough to hold one full desired-MTU frame unsegmented.
type PoolConfig struct {
	Name     string
	Size     uint32
	DataRoom uint32
}

// LinkStatus is the read-back link state after start. Known is false when the
// device cannot report link state; that is not an error.
type LinkStatus struct {
	Known      bool
	Up         bool
	SpeedMbps  uint32
	FullDuplex bool
}

func (s LinkStatus) String() string {
	if !s.Known {
		return "link unknown"
	}
	state := "DOWN"
	if s.Up {
		state = "UP"
	}
	duplex := "half"
	if s.FullDuplex {
		duplex = "full"
	}
	return fmt.Sprintf("link %s, speed %d Mbps, %s-duplex", state, s.SpeedMbps, duplex)
}

// Errno is an implementation-defined negative failure code returned by the
// device layer, mirroring the underlying driver convention.
type Errno int

func (e Errno) Error() string {
	return fmt.Sprintf("device error code %d", int(e))
}

// Well-known device error codes.
const (
	ErrInvalid      Errno = -22 // bad argument or state for the call
	ErrIO           Errno = -5  // hardware/firmware level failure
	ErrNoMemory     Errno = -12 // resource allocation failed
	ErrNotSupported Errno = -95 // operation not supported by driver/firmware
)

// Code extracts the numeric device code from an error, unwrapping as needed,
// or 0 if the error did not originate in the device layer.
func Code(err error) Errno {
	var e Errno
	if errors.As(err, &e) {
		return e
	}
	return 0
}
