// Package bootstrap implements the directory role (§4.8): a pure
// address-book gossiper that persists its own address in the §6
// directory file and helps new nodes discover peers, while deliberately
// not participating in chain consensus.
package bootstrap

import (
	"sync"

	"github.com/paper-piper/Dini/internal/bootstrapdir"
	"github.com/paper-piper/Dini/internal/node"
	"github.com/paper-piper/Dini/pkg/logging"
)

// Bootstrap is a node.Handler that answers node-discovery requests and
// gossips newly learned addresses, and is a no-op for every chain/
// transaction handler via the embedded node.NopHandler.
type Bootstrap struct {
	node.NopHandler

	mu      sync.Mutex
	n       *node.Node
	dirPath string
	log     *logging.Logger
}

// New returns a bootstrap role backed by the directory file at dirPath.
// Call Attach once the transport Node exists.
func New(dirPath string, log *logging.Logger) *Bootstrap {
	return &Bootstrap{dirPath: dirPath, log: log.Component("bootstrap")}
}

// Attach gives the role a handle to its transport. Node and Handler are
// constructed separately (§9 composition note) since each needs a
// reference to the other.
func (b *Bootstrap) Attach(n *node.Node) {
	b.n = n
}

// Start persists this node's own address, connects to every address
// already in the directory file that isn't itself, and issues a
// distributed reqt/node to learn any further peers those connections
// know about (§4.8).
func (b *Bootstrap) Start() error {
	self := b.n.Self().Addr
	if err := bootstrapdir.Add(b.dirPath, self); err != nil {
		return err
	}

	for _, addr := range bootstrapdir.Load(b.dirPath) {
		if addr == self {
			continue
		}
		b.connect(addr)
	}

	b.n.RequestNodes()
	return nil
}

// Shutdown removes this node's own address from the directory file
// (§4.8, SPEC_FULL.md supplemented feature 4).
func (b *Bootstrap) Shutdown() error {
	return bootstrapdir.Remove(b.dirPath, b.n.Self().Addr)
}

func (b *Bootstrap) connect(addr node.Address) {
	if err := b.n.ConnectToNode(addr); err != nil {
		b.log.Warn("failed to connect to known address, scheduling retry", "addr", addr.String(), "error", err)
		b.n.ScheduleReconnect(addr)
	}
}

// ServeNodeRequest answers with every currently connected peer address.
func (b *Bootstrap) ServeNodeRequest() ([]node.Address, bool) {
	return b.n.KnownAddresses(), true
}

// ProcessNodeData connects to every address the payload mentions that
// this node doesn't already know about, growing the mesh (§4.8).
func (b *Bootstrap) ProcessNodeData(addrs []node.Address) {
	self := b.n.Self().Addr
	for _, addr := range addrs {
		if addr == self || b.n.IsConnected(addr) {
			continue
		}
		go b.connect(addr)
	}
}
