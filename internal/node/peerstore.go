package node

import (
	"net"
	"strconv"
	"time"

	"github.com/paper-piper/Dini/internal/storage"
)

// persistPeer records addr as seen/connected in the attached peer store,
// creating the row on first sight and bumping connection_count on every
// later reconnect. A nil peerStore (the default) makes this a no-op.
// Failures are logged, never fatal: the address book is a convenience for
// reconnecting after a restart, not required for protocol correctness.
func (n *Node) persistPeer(addr Address) {
	if n.peerStore == nil {
		return
	}
	id := addr.String()

	existing, err := n.peerStore.GetPeer(id)
	if err != nil {
		n.log.Warn("failed to look up persisted peer", "addr", id, "error", err)
		return
	}
	if existing != nil {
		if err := n.peerStore.UpdatePeerConnected(id); err != nil {
			n.log.Warn("failed to update persisted peer", "addr", id, "error", err)
		}
		return
	}

	now := time.Now()
	rec := &storage.PeerRecord{
		PeerID:          id,
		Addresses:       []string{id},
		FirstSeen:       now,
		LastSeen:        now,
		LastConnected:   now,
		ConnectionCount: 1,
	}
	if err := n.peerStore.SavePeer(rec); err != nil {
		n.log.Warn("failed to save persisted peer", "addr", id, "error", err)
	}
}

// redialKnownPeers restores the persisted address book on startup and
// reconnects to every entry, handing anything that fails immediately to
// the reconnect worker so it keeps retrying in the background. A nil
// peerStore makes this a no-op.
func (n *Node) redialKnownPeers() {
	if n.peerStore == nil {
		return
	}

	peers, err := n.peerStore.ListPeers(0)
	if err != nil {
		n.log.Warn("failed to load persisted peer address book", "error", err)
		return
	}

	for _, p := range peers {
		for _, raw := range p.Addresses {
			addr, ok := parseAddress(raw)
			if !ok || addr == n.self.Addr || n.IsConnected(addr) {
				continue
			}
			if err := n.ConnectToNode(addr); err != nil {
				n.log.Debug("failed to redial persisted peer, scheduling retry", "addr", addr.String(), "error", err)
				n.ScheduleReconnect(addr)
			}
		}
	}
}

// parseAddress parses a "host:port" string back into an Address, the
// inverse of Address.String used as the peer store's row key.
func parseAddress(s string) (Address, bool) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Address{}, false
	}
	return Address{IP: host, Port: port}, true
}
