// Package node implements the Dini peer layer (§4.7): framed TCP
// connections, one receive goroutine per peer, a central dispatch queue,
// and the three message-sending disciplines (focused, distributed,
// broadcast-with-flood).
//
// The raw socket plumbing here is standard-library net/bufio — nothing in
// the retrieval pack hand-rolls a length-prefixed TCP protocol like §4.1
// specifies, so there is no third-party framing library to adopt (see
// DESIGN.md). The surrounding concurrency shape — a struct holding a
// mutex-guarded map, a *logging.Logger, and a context.CancelFunc for
// graceful shutdown, with one goroutine per long-lived loop — follows the
// teacher's internal/node/retry_worker.go and node.go.
package node

import (
	"bufio"
	"context"
	"crypto/rsa"
	"fmt"
	"net"
	"sync"

	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/protocol"
	"github.com/paper-piper/Dini/internal/storage"
	"github.com/paper-piper/Dini/pkg/logging"
)

// messageQueueSize bounds the dispatch channel so a burst of inbound
// traffic cannot allocate unbounded memory while still being effectively
// unbounded for any realistic gossip load.
const messageQueueSize = 4096

// peerConn is one live TCP connection to a peer, plus the write mutex that
// serializes focused/distributed/broadcast sends against it.
type peerConn struct {
	addr Address
	conn net.Conn
	mu   sync.Mutex
}

func (p *peerConn) send(f protocol.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return protocol.WriteFrame(p.conn, f)
}

// inbound is one message pulled off a peer's receive loop and handed to
// the dispatch loop.
type inbound struct {
	source Address
	frame  protocol.Frame
}

// Node is the peer-layer transport shared by every role. It owns the
// listening socket, the connection map, and the dispatch queue; a Handler
// supplies the role-specific behavior behind the seven message subtypes.
type Node struct {
	self    Identity
	handler Handler
	log     *logging.Logger

	mu        sync.RWMutex
	conns     map[string]*peerConn
	namesToPK map[string]*rsa.PublicKey

	listener  net.Listener
	messages  chan inbound
	reconnect *ReconnectWorker
	peerStore *storage.Storage

	ctx    context.Context
	cancel context.CancelFunc

	// recvWG covers the accept loop and every per-peer receive loop: the
	// only goroutines that ever send on messages. dispatchWG covers only
	// the dispatch loop. Stop must drain recvWG (no more senders left)
	// before closing messages, or a receive loop can still be selecting
	// between a send on messages and <-ctx.Done() and race a close.
	recvWG     sync.WaitGroup
	dispatchWG sync.WaitGroup
}

// New constructs a node with the given identity and role handler. Call
// Start to bind the listening socket and begin serving.
func New(self Identity, handler Handler, log *logging.Logger) *Node {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		self:      self,
		handler:   handler,
		log:       log.Component("node"),
		conns:     make(map[string]*peerConn),
		namesToPK: make(map[string]*rsa.PublicKey),
		messages:  make(chan inbound, messageQueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	n.reconnect = NewReconnectWorker(n, DefaultReconnectPollInterval)
	return n
}

// ScheduleReconnect asks the background reconnect worker to keep retrying
// addr until it connects, for roles that want a failed dial to be
// self-healing rather than a one-shot attempt (e.g. bootstrap directory
// entries that are briefly unreachable).
func (n *Node) ScheduleReconnect(addr Address) {
	n.reconnect.Schedule(addr)
}

// AttachPeerStore wires a persistent address book into the node: every
// connection registered (incoming or outgoing) is recorded, and Start
// redials whatever was persisted from a previous run. Nil (the default)
// disables this entirely; every role shares the same *storage.Storage
// already used for chain/mempool/wallet persistence.
func (n *Node) AttachPeerStore(store *storage.Storage) {
	n.peerStore = store
}

// Start binds the listening socket at self.Addr and launches the accept
// loop and the dispatch loop.
func (n *Node) Start() error {
	ln, err := net.Listen("tcp", n.self.Addr.String())
	if err != nil {
		return fmt.Errorf("node: listen on %s: %w", n.self.Addr, err)
	}
	n.listener = ln
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok && n.self.Addr.Port == 0 {
		n.self.Addr.Port = tcpAddr.Port
	}

	n.recvWG.Add(1)
	go n.acceptLoop()
	n.dispatchWG.Add(1)
	go n.dispatchLoop()
	n.reconnect.Start()
	go n.redialKnownPeers()

	n.log.Info("node started", "addr", n.self.Addr.String(), "name", n.self.Name)
	return nil
}

// ListenAddr returns the address actually bound after Start, which
// resolves any ":0" ephemeral-port configuration to the real port.
func (n *Node) ListenAddr() Address {
	return n.self.Addr
}

// Stop closes the listening socket and every open connection, and waits
// for the accept and receive loops to exit before closing the dispatch
// queue, then waits for the dispatch loop itself to drain and exit.
// Closing messages any earlier would race a receive loop still selecting
// between a send on it and <-ctx.Done().
func (n *Node) Stop() error {
	n.cancel()
	n.reconnect.Stop()
	if n.listener != nil {
		n.listener.Close()
	}

	n.mu.Lock()
	for _, pc := range n.conns {
		pc.conn.Close()
	}
	n.mu.Unlock()

	n.recvWG.Wait()
	close(n.messages)
	n.dispatchWG.Wait()
	return nil
}

// Self returns the node's own identity.
func (n *Node) Self() Identity {
	return n.self
}

// PeerCount returns the number of live connections.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.conns)
}

// KnownAddresses returns a snapshot of every currently connected peer
// address, used to answer reqt/node requests.
func (n *Node) KnownAddresses() []Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Address, 0, len(n.conns))
	for _, pc := range n.conns {
		out = append(out, pc.addr)
	}
	return out
}

// ResolvePublicKeyByName looks up a peer's public key by the name it
// announced during the handshake (§3 Node identity: "maps name → public
// key"), used by the user role to resolve a recipient for
// add_transaction.
func (n *Node) ResolvePublicKeyByName(name string) (*rsa.PublicKey, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	pub, ok := n.namesToPK[name]
	return pub, ok
}

// IsConnected reports whether addr already has a live connection.
func (n *Node) IsConnected(addr Address) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.conns[addr.String()]
	return ok
}

func (n *Node) register(addr Address, conn net.Conn) *peerConn {
	pc := &peerConn{addr: addr, conn: conn}
	n.mu.Lock()
	n.conns[addr.String()] = pc
	n.mu.Unlock()
	n.persistPeer(addr)
	return pc
}

func (n *Node) unregister(addr Address) {
	n.mu.Lock()
	delete(n.conns, addr.String())
	n.mu.Unlock()
}

func (n *Node) acceptLoop() {
	defer n.recvWG.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.ctx.Done():
				return
			default:
				n.log.Warn("accept error", "error", err)
				return
			}
		}
		go n.handleIncoming(conn)
	}
}

// handleIncoming completes the accept-side of connection establishment
// (§4.7): read one resp/init frame carrying the dialer's advertised
// listening address, register it, then spawn the steady-state receive
// loop on the same buffered reader so no bytes already buffered are lost.
func (n *Node) handleIncoming(conn net.Conn) {
	reader := bufio.NewReader(conn)

	frame, err := protocol.ReadFrame(reader)
	if err != nil {
		n.log.Warn("incoming connection: failed to read init frame", "error", err)
		conn.Close()
		return
	}
	if frame.Type != protocol.TypeResponse || frame.Subtype != protocol.SubtypeInit {
		n.log.Warn("incoming connection: expected resp/init", "type", frame.Type, "subtype", frame.Subtype)
		conn.Close()
		return
	}

	var wireInit protocol.WireInit
	if err := protocol.DecodePayload(frame.Payload, &wireInit); err != nil {
		n.log.Warn("incoming connection: malformed init payload", "error", err)
		conn.Close()
		return
	}

	addr := addressFromWire(wireInit.Addr)
	pc := n.register(addr, conn)
	n.log.Info("accepted connection", "peer", addr.String())

	n.recvWG.Add(1)
	go n.receiveLoop(addr, reader, pc)

	n.sendNameHandshake(pc)
}

// ConnectToNode dials addr, completes the init/name handshake, and starts
// a receive loop for it (§4.7 "Outgoing").
func (n *Node) ConnectToNode(addr Address) error {
	if n.IsConnected(addr) {
		return nil
	}

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		return fmt.Errorf("node: dial %s: %w", addr, err)
	}

	payload, err := protocol.EncodePayload(protocol.WireInit{Addr: n.self.Addr.wire()})
	if err != nil {
		conn.Close()
		return fmt.Errorf("node: encode init payload: %w", err)
	}
	if err := protocol.WriteFrame(conn, protocol.Frame{
		Type: protocol.TypeResponse, Subtype: protocol.SubtypeInit, Payload: payload,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("node: send init frame: %w", err)
	}

	pc := n.register(addr, conn)
	n.log.Info("connected to node", "peer", addr.String())

	n.recvWG.Add(1)
	go n.receiveLoop(addr, bufio.NewReader(conn), pc)

	n.sendNameHandshake(pc)
	return nil
}

// sendNameHandshake sends resp/name immediately after a connection starts
// receiving, so the peer can populate its name table. Roles with no
// public key (bootstrap) skip this step entirely.
func (n *Node) sendNameHandshake(pc *peerConn) {
	if !n.self.HasPublicKey() {
		return
	}

	pubPEM, err := keys.MarshalPublicPEM(n.self.PublicKey)
	if err != nil {
		n.log.Warn("failed to marshal public key for name handshake", "error", err)
		return
	}

	payload, err := protocol.EncodePayload(protocol.WireName{Name: n.self.Name, PublicKeyPEM: pubPEM})
	if err != nil {
		n.log.Warn("failed to encode name handshake", "error", err)
		return
	}

	if err := pc.send(protocol.Frame{Type: protocol.TypeResponse, Subtype: protocol.SubtypeName, Payload: payload}); err != nil {
		n.log.Warn("failed to send name handshake", "peer", pc.addr.String(), "error", err)
	}
}

// receiveLoop reads frames from one peer until a socket error, handling
// the name handshake inline and handing everything else to the dispatch
// queue. Per §4.7 a socket error closes the connection and removes the
// peer without crashing the node.
func (n *Node) receiveLoop(addr Address, reader *bufio.Reader, pc *peerConn) {
	defer n.recvWG.Done()
	defer func() {
		pc.conn.Close()
		n.unregister(addr)
		n.log.Info("peer disconnected", "peer", addr.String())
	}()

	for {
		frame, err := protocol.ReadFrame(reader)
		if err != nil {
			n.log.Debug("receive loop ending", "peer", addr.String(), "error", err)
			return
		}

		if frame.Subtype == protocol.SubtypeName {
			n.handleNameHandshake(addr, frame)
			continue
		}

		select {
		case n.messages <- inbound{source: addr, frame: frame}:
		case <-n.ctx.Done():
			return
		}
	}
}
