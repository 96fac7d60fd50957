// Package transport implements raft.Transport.
//
// UDPTransport is grounded on original_source/raftos/network.py's
// UDPProtocol: a datagram socket, a buffered outbound queue drained by a
// writer goroutine (the asyncio version's `while not closing: data,
// destination = await queue.get(); sendto(...)`), and a reader that
// decodes each datagram with the configured Serializer and stamps the
// sender's address before handing the frame to the node's handler.
// Delivery is exactly as unreliable/unordered/duplicative as a raw UDP
// socket, matching spec §1's transport assumption.
package transport

import (
	"context"
	"net"

	"go.uber.org/zap"

	raft "github.com/coral-raft/raft"
)

const outboundQueueSize = 256

// outboundFrame pairs a frame with where it's headed, the Go equivalent of
// the asyncio version's (data, destination) tuple pulled off its queue.
type outboundFrame struct {
	frame raft.Frame
	dest  raft.NodeID
}

// UDPTransport is a raft.Transport backed by a single UDP socket.
type UDPTransport struct {
	conn       *net.UDPConn
	serializer raft.Serializer
	log        *zap.SugaredLogger

	outbound chan outboundFrame
	done     chan struct{}
}

// Listen opens a UDP socket at addr ("host:port") and returns a
// UDPTransport ready to Start.
func Listen(addr string, serializer raft.Serializer, log *zap.SugaredLogger) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UDPTransport{
		conn:       conn,
		serializer: serializer,
		log:        log,
		outbound:   make(chan outboundFrame, outboundQueueSize),
		done:       make(chan struct{}),
	}, nil
}

// Start launches the reader and writer goroutines. handler is invoked once
// per received datagram, from the reader goroutine; it must not block.
func (t *UDPTransport) Start(ctx context.Context, handler func(raft.Frame)) error {
	go t.writeLoop()
	go t.readLoop(ctx, handler)
	return nil
}

func (t *UDPTransport) writeLoop() {
	for {
		select {
		case out, ok := <-t.outbound:
			if !ok {
				return
			}
			data, err := t.serializer.Pack(out.frame)
			if err != nil {
				t.log.Errorw("failed to pack outbound frame", "type", out.frame.Type, "error", err)
				continue
			}
			addr, err := net.ResolveUDPAddr("udp", string(out.dest))
			if err != nil {
				t.log.Errorw("failed to resolve destination", "dest", out.dest, "error", err)
				continue
			}
			if _, err := t.conn.WriteToUDP(data, addr); err != nil {
				// Transport errors are logged and not surfaced: the
				// protocol tolerates loss via retry on the next
				// heartbeat/RPC cycle (spec §7).
				t.log.Warnw("udp send failed", "dest", out.dest, "error", err)
			}
		case <-t.done:
			return
		}
	}
}

func (t *UDPTransport) readLoop(ctx context.Context, handler func(raft.Frame)) {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-t.done:
			return
		case <-ctx.Done():
			t.Close()
			return
		default:
		}

		n, sender, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				t.log.Warnw("udp read error", "error", err)
				continue
			}
		}

		frame, err := t.serializer.Unpack(buf[:n])
		if err != nil {
			t.log.Warnw("dropping unparseable datagram", "from", sender, "error", err)
			continue
		}
		frame.Sender = raft.NodeID(sender.String())
		handler(frame)
	}
}

// Send enqueues frame for delivery to destination; it returns immediately.
// If the outbound queue is full the frame is dropped, which is
// indistinguishable from loss on the wire to every caller above this
// layer (spec §7: transport errors are not surfaced).
func (t *UDPTransport) Send(frame raft.Frame, destination raft.NodeID) {
	select {
	case t.outbound <- outboundFrame{frame: frame, dest: destination}:
	default:
		t.log.Warnw("outbound queue full, dropping frame", "type", frame.Type, "dest", destination)
	}
}

// LocalAddr returns the socket's bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close stops both goroutines and releases the socket.
func (t *UDPTransport) Close() error {
	select {
	case <-t.done:
		// already closed
	default:
		close(t.done)
	}
	return t.conn.Close()
}
