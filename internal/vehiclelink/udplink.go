// Package vehiclelink provides a minimal VehicleLink implementation usable
// by the root main.go entrypoint. It owns exactly the pieces the gimbal
// controller depends on -- system/component identity, heading, and a place
// to hand off outbound commands -- and deliberately stops short of a
// MAVLink encoder: framing and wire encoding are an external collaborator's
// job, same as the autopilot link in the original controller this package
// is modeled on.
package vehiclelink

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Speshl/gimbal_client/internal/gimbal"
)

// UDPLink sends one UDP datagram per outbound command/message, logging a
// human-readable description of what would be sent. A real deployment
// swaps this out for a link backed by an actual MAVLink codec; this one
// exists so main.go has something concrete to run against.
type UDPLink struct {
	mu   sync.Mutex
	conn *net.UDPConn

	ourSystemID    uint8
	ourComponentID uint8
	vehicleID      uint8

	headingDeg atomic.Value // float64
	paramsReady atomic.Bool
}

// Dial opens a UDP socket to addr (e.g. "127.0.0.1:14550", the common
// MAVLink ground-station port) and returns a link that is not yet marked
// parameters-ready -- call SetParametersReady once the caller's own
// handshake with the vehicle has completed.
func Dial(addr string, ourSystemID, ourComponentID, vehicleID uint8) (*UDPLink, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("vehiclelink: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("vehiclelink: dial %s: %w", addr, err)
	}
	link := &UDPLink{
		conn:           conn,
		ourSystemID:    ourSystemID,
		ourComponentID: ourComponentID,
		vehicleID:      vehicleID,
	}
	link.headingDeg.Store(0.0)
	return link, nil
}

func (l *UDPLink) Close() error {
	return l.conn.Close()
}

func (l *UDPLink) SetParametersReady(ready bool) { l.paramsReady.Store(ready) }
func (l *UDPLink) SetHeadingDeg(deg float64)      { l.headingDeg.Store(deg) }

func (l *UDPLink) ParametersReady() bool { return l.paramsReady.Load() }
func (l *UDPLink) HeadingDeg() float64   { return l.headingDeg.Load().(float64) }
func (l *UDPLink) OurSystemID() uint8    { return l.ourSystemID }
func (l *UDPLink) OurComponentID() uint8 { return l.ourComponentID }
func (l *UDPLink) VehicleID() uint8      { return l.vehicleID }

// PrimaryLink always reports itself: this implementation has exactly one
// channel. Multi-link failover is a vehicle-link concern, out of scope.
func (l *UDPLink) PrimaryLink() (gimbal.Link, bool) { return udpChannel{}, true }

type udpChannel struct{}

func (udpChannel) Channel() uint8 { return 0 }

func (l *UDPLink) SendCommand(targetCompID uint8, cmdID uint16, showError bool, p1, p2, p3, p4, p5, p6, p7 float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	desc := fmt.Sprintf("COMMAND_LONG target_component=%d command=%d p1=%v p2=%v p3=%v p4=%v p5=%v p6=%v p7=%v",
		targetCompID, cmdID, p1, p2, p3, p4, p5, p6, p7)
	if _, err := l.conn.Write([]byte(desc)); err != nil {
		if showError {
			log.Printf("vehiclelink: send command failed: %v\n", err)
		}
		return err
	}
	return nil
}

func (l *UDPLink) SendMessageOnLink(_ gimbal.Link, message gimbal.WireMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	desc := fmt.Sprintf("msg_id=%d payload=%+v", message.MsgID(), message)
	_, err := l.conn.Write([]byte(desc))
	return err
}
