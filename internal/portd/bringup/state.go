package bringup

import "strconv"

// PortState tracks the controller-owned lifecycle of the port. Transitions
// are strictly forward: Unconfigured → Configured → QueuesReady → Started →
// Stopped, with Failed reachable from any state on an unrecoverable error.
type PortState uint8

const (
	Unconfigured PortState = iota
	Configured
	QueuesReady
	Started
	Stopped
	Failed
)

func (s PortState) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case QueuesReady:
		return "queues-ready"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return strconv.Itoa(int(s))
}
