package node

import (
	"github.com/paper-piper/Dini/internal/chain"
)

// Handler is the role-specific half of a node (§9 composition note: a Node
// owns transport, a Role owns chain/wallet state and implements this
// interface; the peer layer is agnostic to which role it is driving).
//
// Every method corresponds to one of the seven message-subtype handlers
// described in §4.7-§4.11. A role that has nothing to say about a subtype
// (e.g. bootstrap's chain handlers) implements it as a pure no-op,
// expressed once via the embeddable NopHandler below rather than checked
// at the dispatch layer — per §9, routing happens once at the boundary,
// not via runtime branches on role identity.
type Handler interface {
	// ServeNodeRequest answers a reqt/node request with the current list
	// of known peer addresses. ok=false means "don't reply" (dispatch
	// drops the request silently, trusting another peer to answer).
	ServeNodeRequest() (addrs []Address, ok bool)

	// ProcessNodeData handles a resp/node reply: addrs are peers the
	// remote side knows about that this node may not yet be connected to.
	ProcessNodeData(addrs []Address)

	// ServeBlockchainRequest answers a reqt/bkcn catch-up request for the
	// sub-chain after latestHash. ok=false means "don't reply".
	ServeBlockchainRequest(latestHash string) (bc *chain.Blockchain, ok bool)

	// ProcessBlockchainData handles a resp/bkcn catch-up reply.
	ProcessBlockchainData(bc *chain.Blockchain)

	// ProcessBlockData handles a bcst/blok block announcement. isNew
	// reports whether the block was newly accepted; the dispatch loop
	// re-broadcasts only when isNew is true, suppressing duplicate
	// gossip for blocks already seen.
	ProcessBlockData(b *chain.Block) (isNew bool)

	// ProcessTransactionData handles a trsn payload, whether it arrived
	// as a focused resp (a user broadcasting a freshly signed
	// transaction to its known peers) or as a bcst flood re-gossip.
	// isNew reports whether the transaction was newly admitted.
	ProcessTransactionData(tx *chain.Transaction) (isNew bool)
}

// NopHandler implements Handler with every method a no-op / "don't
// reply", for roles that don't participate in some or all of these
// disciplines (the bootstrap role embeds this for every chain handler;
// §4.8 says bootstraps deliberately do not participate in consensus).
type NopHandler struct{}

func (NopHandler) ServeNodeRequest() ([]Address, bool)                    { return nil, false }
func (NopHandler) ProcessNodeData([]Address)                              {}
func (NopHandler) ServeBlockchainRequest(string) (*chain.Blockchain, bool) { return nil, false }
func (NopHandler) ProcessBlockchainData(*chain.Blockchain)                {}
func (NopHandler) ProcessBlockData(*chain.Block) bool                     { return false }
func (NopHandler) ProcessTransactionData(*chain.Transaction) bool         { return false }
