// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

package cs104

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marrasen/go-iecp5/asdu"
	"github.com/marrasen/go-iecp5/clog"
)

// Connection status, tracked independently of the data-transfer (STARTDT)
// activation state.
const (
	initial uint32 = iota
	disconnected
	connected
)

// seqNoCount returns the count of sequence numbers between two 15-bit
// sequence numbers, wrapping at 32768.
func seqNoCount(nextAckNo, seqNo uint16) uint16 {
	return (seqNo - nextAckNo) & 0x7fff
}

// ConnState is a connection lifecycle event delivered to a server's
// ConnState callback.
type ConnState int

// Connection lifecycle events.
const (
	Connected ConnState = iota
	Disconnected
	Activated
	Deactivated
)

func (sf ConnState) String() string {
	switch sf {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Activated:
		return "Activated"
	case Deactivated:
		return "Deactivated"
	default:
		return "Unknown"
	}
}

// SrvSession is one accepted peer connection on a Server; it runs the
// controlled-station side of the APCI state machine: it waits for STARTDT
// rather than initiating it, but otherwise mirrors Client's I/S/U frame
// bookkeeping and timeout checks.
type SrvSession struct {
	config  *Config
	params  *asdu.Params
	handler asdu.Handler
	conn    net.Conn

	rcvASDU  chan []byte
	sendASDU chan []byte
	rcvRaw   chan []byte
	sendRaw  chan []byte

	seqNoSend uint16
	ackNoSend uint16
	seqNoRcv  uint16
	ackNoRcv  uint16

	pending []seqPending

	status   uint32
	rwMux    sync.RWMutex
	isActive uint32

	connState func(asdu.Connect, ConnState)

	clog.Clog

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func (sf *SrvSession) recvLoop() {
	sf.Debug("recvLoop started")
	defer func() {
		sf.cancel()
		sf.wg.Done()
		sf.Debug("recvLoop stopped")
	}()

	for {
		rawData := make([]byte, APDUSizeMax)
		for rdCnt, length := 0, 2; rdCnt < length; {
			byteCount, err := io.ReadFull(sf.conn, rawData[rdCnt:length])
			if err != nil {
				if err != io.EOF && err != io.ErrClosedPipe ||
					strings.Contains(err.Error(), "use of closed network connection") {
					sf.Error("receive failed, %v", err)
					return
				}
				if e, ok := err.(net.Error); ok && !e.Temporary() {
					sf.Error("receive failed, %v", err)
					return
				}
				if rdCnt == 0 && err == io.EOF {
					sf.Error("remote connect closed, %v", err)
					return
				}
			}

			rdCnt += byteCount
			if rdCnt == 0 {
				continue
			} else if rdCnt == 1 {
				if rawData[0] != startFrame {
					rdCnt = 0
					continue
				}
			} else {
				if rawData[0] != startFrame {
					rdCnt, length = 0, 2
					continue
				}
				length = int(rawData[1]) + 2
				if length < APCICtlFiledSize+2 || length > APDUSizeMax {
					rdCnt, length = 0, 2
					continue
				}
				if rdCnt == length {
					apdu := rawData[:length]
					sf.Debug("RX Raw[% x]", apdu)
					sf.rcvRaw <- apdu
				}
			}
		}
	}
}

func (sf *SrvSession) sendLoop() {
	sf.Debug("sendLoop started")
	defer func() {
		sf.cancel()
		sf.wg.Done()
		sf.Debug("sendLoop stopped")
	}()
	for {
		select {
		case <-sf.ctx.Done():
			return
		case apdu := <-sf.sendRaw:
			sf.Debug("TX Raw[% x]", apdu)
			for wrCnt := 0; len(apdu) > wrCnt; {
				byteCount, err := sf.conn.Write(apdu[wrCnt:])
				if err != nil {
					if err != io.EOF && err != io.ErrClosedPipe ||
						strings.Contains(err.Error(), "use of closed network connection") {
						sf.Error("sendRaw failed, %v", err)
						return
					}
					if e, ok := err.(net.Error); !ok || !e.Temporary() {
						sf.Error("sendRaw failed, %v", err)
						return
					}
				}
				wrCnt += byteCount
			}
		}
	}
}

// run is the controlled-station APCI state machine.
func (sf *SrvSession) run(ctx context.Context) error {
	sf.Debug("session started!")
	sf.cleanUp()

	sf.ctx, sf.cancel = context.WithCancel(ctx)
	sf.setConnectStatus(connected)
	sf.wg.Add(3)
	go sf.recvLoop()
	go sf.sendLoop()
	go sf.handlerLoop()

	checkTicker := time.NewTicker(timeoutResolution)

	willNotTimeout := time.Now().Add(time.Hour * 24 * 365 * 100)

	unAckRcvSince := willNotTimeout
	idleTimeout3Since := time.Now()
	testFrAliveSendSince := willNotTimeout

	sendSFrame := func(rcvSN uint16) {
		sf.Debug("TX sFrame %v", sAPCI{rcvSN})
		sf.sendRaw <- newSFrame(rcvSN)
	}

	sendIFrame := func(asdu1 []byte) {
		seqNo := sf.seqNoSend

		iframe, err := newIFrame(seqNo, sf.seqNoRcv, asdu1)
		if err != nil {
			return
		}
		sf.ackNoRcv = sf.seqNoRcv
		sf.seqNoSend = (seqNo + 1) & 32767
		sf.pending = append(sf.pending, seqPending{seqNo & 32767, time.Now()})

		sf.Debug("TX iFrame %v", iAPCI{seqNo, sf.seqNoRcv})
		sf.sendRaw <- iframe
	}

	notify := func(state ConnState) {
		if sf.connState != nil {
			sf.connState(sf, state)
		}
	}

	defer func() {
		atomic.StoreUint32(&sf.isActive, inactive)
		sf.setConnectStatus(disconnected)
		checkTicker.Stop()
		_ = sf.conn.Close()
		sf.wg.Wait()
		notify(Disconnected)
		sf.Debug("session stopped!")
	}()

	notify(Connected)
	for {
		if atomic.LoadUint32(&sf.isActive) == active && seqNoCount(sf.ackNoSend, sf.seqNoSend) <= sf.config.SendUnAckLimitK {
			select {
			case o := <-sf.sendASDU:
				sendIFrame(o)
				idleTimeout3Since = time.Now()
				continue
			case <-sf.ctx.Done():
				return sf.ctx.Err()
			default:
			}
		}
		select {
		case <-sf.ctx.Done():
			return sf.ctx.Err()
		case now := <-checkTicker.C:
			if now.Sub(testFrAliveSendSince) >= sf.config.SendUnAckTimeout1 {
				sf.Error("test frame alive confirm timeout t1")
				return errors.New("test frame alive confirm timeout t1")
			}
			if sf.ackNoSend != sf.seqNoSend &&
				now.Sub(sf.pending[0].sendTime) >= sf.config.SendUnAckTimeout1 {
				sf.ackNoSend++
				sf.Error("fatal transmission timeout t1")
				return errors.New("fatal transmission timeout t1")
			}

			if sf.ackNoRcv != sf.seqNoRcv &&
				(now.Sub(unAckRcvSince) >= sf.config.RecvUnAckTimeout2 ||
					now.Sub(idleTimeout3Since) >= timeoutResolution) {
				sendSFrame(sf.seqNoRcv)
				sf.ackNoRcv = sf.seqNoRcv
			}

			if now.Sub(idleTimeout3Since) >= sf.config.IdleTimeout3 {
				sf.sendUFrame(uTestFrActive)
				testFrAliveSendSince = time.Now()
				idleTimeout3Since = testFrAliveSendSince
			}

		case apdu := <-sf.rcvRaw:
			idleTimeout3Since = time.Now()
			apci, asduVal := parse(apdu)
			switch head := apci.(type) {
			case sAPCI:
				sf.Debug("RX sFrame %v", head)
				if !sf.updateAckNoOut(head.rcvSN) {
					sf.Error("fatal incoming acknowledge either earlier than previous or later than sendTime")
					return errors.New("fatal incoming acknowledge either earlier than previous or later than sendTime")
				}

			case iAPCI:
				sf.Debug("RX iFrame %v", head)
				if atomic.LoadUint32(&sf.isActive) == inactive {
					sf.Warn("station not active")
					break
				}
				if !sf.updateAckNoOut(head.rcvSN) || head.sendSN != sf.seqNoRcv {
					sf.Error("fatal incoming acknowledge either earlier than previous or later than sendTime")
					return errors.New("fatal incoming acknowledge either earlier than previous or later than sendTime")
				}

				sf.rcvASDU <- asduVal
				if sf.ackNoRcv == sf.seqNoRcv {
					unAckRcvSince = time.Now()
				}

				sf.seqNoRcv = (sf.seqNoRcv + 1) & 32767
				if seqNoCount(sf.ackNoRcv, sf.seqNoRcv) >= sf.config.RecvUnAckLimitW {
					sendSFrame(sf.seqNoRcv)
					sf.ackNoRcv = sf.seqNoRcv
				}

			case uAPCI:
				sf.Debug("RX uFrame %v", head)
				switch head.function {
				case uStartDtActive:
					sf.sendUFrame(uStartDtConfirm)
					atomic.StoreUint32(&sf.isActive, active)
					notify(Activated)
				case uStopDtActive:
					sf.sendUFrame(uStopDtConfirm)
					atomic.StoreUint32(&sf.isActive, inactive)
					notify(Deactivated)
				case uTestFrActive:
					sf.sendUFrame(uTestFrConfirm)
				case uTestFrConfirm:
					testFrAliveSendSince = willNotTimeout
				default:
					sf.Error("illegal U-Frame functions[0x%02x] ignored", head.function)
				}
			}
		}
	}
}

func (sf *SrvSession) handlerLoop() {
	sf.Debug("handlerLoop started")
	defer func() {
		sf.wg.Done()
		sf.Debug("handlerLoop stopped")
	}()

	for {
		select {
		case <-sf.ctx.Done():
			return
		case rawAsdu := <-sf.rcvASDU:
			asduPack := asdu.NewEmptyASDU(sf.params)
			if err := asduPack.UnmarshalBinary(rawAsdu); err != nil {
				sf.Warn("asdu UnmarshalBinary failed,%+v", err)
				continue
			}
			if err := sf.serverHandler(asduPack); err != nil {
				sf.Warn("Falied handling I frame, error: %v", err)
			}
		}
	}
}

func (sf *SrvSession) setConnectStatus(status uint32) {
	sf.rwMux.Lock()
	atomic.StoreUint32(&sf.status, status)
	sf.rwMux.Unlock()
}

func (sf *SrvSession) connectStatus() uint32 {
	sf.rwMux.RLock()
	status := atomic.LoadUint32(&sf.status)
	sf.rwMux.RUnlock()
	return status
}

func (sf *SrvSession) cleanUp() {
	sf.ackNoRcv = 0
	sf.ackNoSend = 0
	sf.seqNoRcv = 0
	sf.seqNoSend = 0
	sf.pending = nil
loop:
	for {
		select {
		case <-sf.sendRaw:
		case <-sf.rcvRaw:
		case <-sf.rcvASDU:
		case <-sf.sendASDU:
		default:
			break loop
		}
	}
}

func (sf *SrvSession) sendUFrame(which byte) {
	sf.Debug("TX uFrame %v", uAPCI{which})
	sf.sendRaw <- newUFrame(which)
}

func (sf *SrvSession) updateAckNoOut(ackNo uint16) (ok bool) {
	if ackNo == sf.ackNoSend {
		return true
	}
	if seqNoCount(sf.ackNoSend, sf.seqNoSend) < seqNoCount(ackNo, sf.seqNoSend) {
		return false
	}

	for i, v := range sf.pending {
		if v.seq == (ackNo - 1) {
			sf.pending = sf.pending[i+1:]
			break
		}
	}

	sf.ackNoSend = ackNo
	return true
}

// IsConnected reports whether the peer is still connected.
func (sf *SrvSession) IsConnected() bool {
	return sf.connectStatus() == connected
}

// IsActive reports whether data transfer is active (STARTDT confirmed).
func (sf *SrvSession) IsActive() bool {
	return atomic.LoadUint32(&sf.isActive) == active
}

// serverHandler parses and dispatches one ASDU received from the peer.
func (sf *SrvSession) serverHandler(asduPack *asdu.ASDU) error {
	sf.Debug("ASDU %+v", asduPack)
	msg, err := asdu.ParseASDU(asduPack)
	if err != nil {
		return err
	}
	return sf.handler.Handle(sf, msg)
}

// Params implements asdu.Connect.
func (sf *SrvSession) Params() *asdu.Params {
	return sf.params
}

// Send implements asdu.Connect.
func (sf *SrvSession) Send(a *asdu.ASDU) error {
	if !sf.IsConnected() {
		return ErrUseClosedConnection
	}
	if atomic.LoadUint32(&sf.isActive) == inactive {
		return ErrNotActive
	}
	data, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	select {
	case sf.sendASDU <- data:
	default:
		return ErrBufferFulled
	}
	return nil
}

// UnderlyingConn implements asdu.Connect.
func (sf *SrvSession) UnderlyingConn() net.Conn {
	return sf.conn
}

// Close ends the session.
func (sf *SrvSession) Close() error {
	sf.rwMux.Lock()
	if sf.cancel != nil {
		sf.cancel()
	}
	sf.rwMux.Unlock()
	return nil
}
