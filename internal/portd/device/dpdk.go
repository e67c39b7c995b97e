//go:build dpdk

package device

/*
#cgo pkg-config: libdpdk
#include <stdlib.h>
#include <rte_eal.h>
#include <rte_ethdev.h>
#include <rte_mbuf.h>

static uint32_t portd_speed_flag(uint32_t mbps) {
	switch (mbps) {
	case 1000:   return RTE_ETH_LINK_SPEED_1G;
	case 10000:  return RTE_ETH_LINK_SPEED_10G;
	case 25000:  return RTE_ETH_LINK_SPEED_25G;
	case 40000:  return RTE_ETH_LINK_SPEED_40G;
	case 100000: return RTE_ETH_LINK_SPEED_100G;
	default:     return 0;
	}
}

static int portd_configure(uint16_t port, uint16_t nrxq, uint16_t ntxq,
                           uint32_t mbps, uint16_t mtu) {
	struct rte_eth_conf conf = {0};
	uint32_t speed = portd_speed_flag(mbps);
	if (speed == 0)
		return -EINVAL;
	conf.link_speeds = speed | RTE_ETH_LINK_SPEED_FIXED;
	conf.rxmode.mtu = mtu;
	return rte_eth_dev_configure(port, nrxq, ntxq, &conf);
}

static int portd_rx_queue_setup(uint16_t port, uint16_t q, uint16_t nb,
                                struct rte_mempool *mp) {
	struct rte_eth_dev_info info;
	int r = rte_eth_dev_info_get(port, &info);
	if (r < 0)
		return r;
	return rte_eth_rx_queue_setup(port, q, nb,
	                              rte_eth_dev_socket_id(port),
	                              &info.default_rxconf, mp);
}

static int portd_tx_queue_setup(uint16_t port, uint16_t q, uint16_t nb) {
	struct rte_eth_dev_info info;
	int r = rte_eth_dev_info_get(port, &info);
	if (r < 0)
		return r;
	return rte_eth_tx_queue_setup(port, q, nb,
	                              rte_eth_dev_socket_id(port),
	                              &info.default_txconf);
}

static uint32_t portd_fec_capa(int mode) {
	switch (mode) {
	case 0: return RTE_ETH_FEC_AUTO;
	case 1: return RTE_ETH_FEC_RS;
	case 2: return RTE_ETH_FEC_BASER;
	default: return RTE_ETH_FEC_NOFEC;
	}
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// DPDKDevice drives one ethdev port through the DPDK API. Construction
// initializes the EAL; ReleaseEnv tears it down.
type DPDKDevice struct {
	id PortID
}

type dpdkPool struct {
	name     string
	capacity uint32
	dataRoom uint32
	mp       *C.struct_rte_mempool
	freed    bool
}

// NewDPDKDevice initializes the EAL with the given arguments and binds to the
// port. The EAL is a per-process singleton; create at most one device.
func NewDPDKDevice(id PortID, ealArgs []string) (*DPDKDevice, error) {
	args := append([]string{"portd"}, ealArgs...)
	cArgs := make([]*C.char, len(args))
	for i, a := range args {
		cArgs[i] = C.CString(a)
	}
	defer func() {
		for _, ca := range cArgs {
			C.free(unsafe.Pointer(ca))
		}
	}()

	if rc := C.rte_eal_init(C.int(len(args)), (**C.char)(unsafe.Pointer(&cArgs[0]))); rc < 0 {
		return nil, fmt.Errorf("rte_eal_init failed: %w", Errno(rc))
	}
	if C.rte_eth_dev_count_avail() == 0 {
		return nil, fmt.Errorf("no available ports: %w", ErrInvalid)
	}
	if C.rte_eth_dev_is_valid_port(C.uint16_t(id)) == 0 {
		return nil, fmt.Errorf("port %d is not a valid port: %w", id, ErrInvalid)
	}
	return &DPDKDevice{id: id}, nil
}

func (d *DPDKDevice) PortID() PortID { return d.id }

func (d *DPDKDevice) CreatePool(cfg PoolConfig) (Pool, error) {
	cName := C.CString(cfg.Name)
	defer C.free(unsafe.Pointer(cName))

	mp := C.rte_pktmbuf_pool_create(cName, C.uint(cfg.Size), 256, 0,
		C.uint16_t(cfg.DataRoom), C.int(C.rte_socket_id()))
	if mp == nil {
		return nil, ErrNoMemory
	}
	return &dpdkPool{name: cfg.Name, capacity: cfg.Size, dataRoom: cfg.DataRoom, mp: mp}, nil
}

func (p *dpdkPool) Name() string     { return p.name }
func (p *dpdkPool) Capacity() uint32 { return p.capacity }
func (p *dpdkPool) DataRoom() uint32 { return p.dataRoom }

func (p *dpdkPool) Free() error {
	if p.freed {
		return nil
	}
	C.rte_mempool_free(p.mp)
	p.mp = nil
	p.freed = true
	return nil
}

func (d *DPDKDevice) Configure(cfg Config) error {
	if rc := C.portd_configure(C.uint16_t(d.id), C.uint16_t(cfg.RxQueues), C.uint16_t(cfg.TxQueues),
		C.uint32_t(cfg.SpeedMbps), C.uint16_t(cfg.MTU)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) SetupRxQueue(queue uint16, descriptors uint16, pool Pool) error {
	p, ok := pool.(*dpdkPool)
	if !ok || p.mp == nil {
		return ErrInvalid
	}
	if rc := C.portd_rx_queue_setup(C.uint16_t(d.id), C.uint16_t(queue), C.uint16_t(descriptors), p.mp); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) SetupTxQueue(queue uint16, descriptors uint16) error {
	if rc := C.portd_tx_queue_setup(C.uint16_t(d.id), C.uint16_t(queue), C.uint16_t(descriptors)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) SetMTU(mtu uint16) error {
	if rc := C.rte_eth_dev_set_mtu(C.uint16_t(d.id), C.uint16_t(mtu)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) SetFEC(mode FECMode) error {
	capa := C.portd_fec_capa(C.int(mode))
	if rc := C.rte_eth_fec_set(C.uint16_t(d.id), capa); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) FEC() (FECMode, error) {
	var capa C.uint32_t
	if rc := C.rte_eth_fec_get(C.uint16_t(d.id), &capa); rc < 0 {
		return FECAuto, Errno(rc)
	}
	switch {
	case capa&C.RTE_ETH_FEC_NOFEC != 0:
		return FECNone, nil
	case capa&C.RTE_ETH_FEC_RS != 0:
		return FECRS, nil
	case capa&C.RTE_ETH_FEC_BASER != 0:
		return FECBaseR, nil
	default:
		return FECAuto, nil
	}
}

func (d *DPDKDevice) Start() error {
	if rc := C.rte_eth_dev_start(C.uint16_t(d.id)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) Stop() error {
	if rc := C.rte_eth_dev_stop(C.uint16_t(d.id)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) Close() error {
	if rc := C.rte_eth_dev_close(C.uint16_t(d.id)); rc < 0 {
		return Errno(rc)
	}
	return nil
}

func (d *DPDKDevice) LinkStatus() LinkStatus {
	var link C.struct_rte_eth_link
	if rc := C.rte_eth_link_get_nowait(C.uint16_t(d.id), &link); rc < 0 {
		return LinkStatus{}
	}
	return LinkStatus{
		Known:      true,
		Up:         link.link_status != 0,
		SpeedMbps:  uint32(link.link_speed),
		FullDuplex: link.link_duplex == C.RTE_ETH_LINK_FULL_DUPLEX,
	}
}

func (d *DPDKDevice) ReleaseEnv() error {
	if rc := C.rte_eal_cleanup(); rc < 0 {
		return Errno(rc)
	}
	return nil
}

var _ Device = (*DPDKDevice)(nil)
