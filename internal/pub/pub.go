// Package pub provides motion publishers: a UDP CSV sender for downstream
// motor controllers and a structured-log sink for inspection.
package pub

import (
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/hri-lab/shield-engine/internal/motion"
)

// UDPSender publishes motions over UDP as CSV: time, then positions,
// velocities, and accelerations joint by joint.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender creates a UDP sender for the given address. An empty address
// yields a no-op sender.
func NewUDPSender(addr string) (*UDPSender, error) {
	if addr == "" {
		return &UDPSender{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("pub: resolving %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("pub: dialing %s: %w", addr, err)
	}
	return &UDPSender{conn: conn}, nil
}

// Close releases the UDP socket.
func (s *UDPSender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Publish writes the motion as a CSV datagram.
func (s *UDPSender) Publish(m motion.Motion) error {
	if s == nil || s.conn == nil {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%.6f", m.Time)
	for _, vs := range [][]float64{m.Q, m.DQ, m.DDQ} {
		for _, v := range vs {
			fmt.Fprintf(&b, ",%.6f", v)
		}
	}
	_, err := s.conn.Write([]byte(b.String()))
	return err
}

// Logger publishes motions to a zap logger at debug level.
type Logger struct {
	Log *zap.Logger
}

// Publish logs the motion.
func (l Logger) Publish(m motion.Motion) error {
	l.Log.Debug("motion",
		zap.Float64("t", m.Time),
		zap.Float64("s", m.S),
		zap.Float64s("q", m.Q),
		zap.Float64s("dq", m.DQ),
		zap.Float64s("ddq", m.DDQ))
	return nil
}

// Tee fans a motion out to several publishers, returning the first error.
type Tee []interface {
	Publish(m motion.Motion) error
}

// Publish forwards the motion to every sink.
func (t Tee) Publish(m motion.Motion) error {
	var first error
	for _, p := range t {
		if err := p.Publish(m); err != nil && first == nil {
			first = err
		}
	}
	return first
}
