package node

import (
	"fmt"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/protocol"
)

// BroadcastBlock floods a newly accepted block to every connected peer
// (§4.9 step 4: "broadcast bcst/blok").
func (n *Node) BroadcastBlock(b *chain.Block) error {
	wb, err := BlockToWire(b)
	if err != nil {
		return fmt.Errorf("node: encode block: %w", err)
	}
	payload, err := protocol.EncodePayload(wb)
	if err != nil {
		return fmt.Errorf("node: encode block payload: %w", err)
	}
	n.SendDistributed(protocol.TypeBroadcast, protocol.SubtypeBlock, payload, nil)
	return nil
}

// DistributeTransaction sends a freshly signed transaction to every known
// peer as a focused resp/trsn each (§4.10's buy/sell/add_transaction:
// "broadcast resp/trsn"). Unlike BroadcastBlock this is a single hop: a
// resp is never re-forwarded by a receiving dispatch loop (§4.7), so a
// user's transaction reaches only the peers it is directly connected to.
func (n *Node) DistributeTransaction(tx *chain.Transaction) error {
	wt, err := TransactionToWire(tx)
	if err != nil {
		return fmt.Errorf("node: encode transaction: %w", err)
	}
	payload, err := protocol.EncodePayload(wt)
	if err != nil {
		return fmt.Errorf("node: encode transaction payload: %w", err)
	}
	n.SendDistributed(protocol.TypeResponse, protocol.SubtypeTransaction, payload, nil)
	return nil
}

// RequestNodes issues a distributed reqt/node to every connected peer,
// asking each to reply with its known peer addresses (§4.8).
func (n *Node) RequestNodes() {
	n.SendDistributed(protocol.TypeRequest, protocol.SubtypeNode, nil, nil)
}

// RequestBlockchain issues a focused reqt/bkcn to target carrying
// latestHash, asking it to reply with the catch-up sub-chain (§4.10).
//
// §4.1 states requests carry no payload in general, but §4.9/§4.10
// require the requester's latest hash to travel with this particular
// request so the responder knows where to start the sub-chain. Apart from
// the reqt/test diagnostic probe sent by Ping, this is the only request
// that carries a payload.
func (n *Node) RequestBlockchain(target Address, latestHash string) error {
	payload, err := protocol.EncodePayload(protocol.WireBlockchainRequest{LatestHash: latestHash})
	if err != nil {
		return fmt.Errorf("node: encode blockchain request: %w", err)
	}
	n.SendFocused(target, protocol.TypeRequest, protocol.SubtypeBlockchain, payload)
	return nil
}
