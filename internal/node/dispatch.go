package node

import (
	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/protocol"
)

// Ping sends a reqt/test diagnostic probe to target, tagged with a fresh
// UUID so the eventual resp/test can be correlated with this call in logs
// across two processes.
func (n *Node) Ping(target Address, message string) error {
	id := newMessageID()
	payload, err := protocol.EncodePayload(protocol.WireTest{MessageID: id, Message: message})
	if err != nil {
		return err
	}
	n.log.Debug("sending test probe", "peer", target.String(), "message_id", id)
	n.SendFocused(target, protocol.TypeRequest, protocol.SubtypeTest, payload)
	return nil
}

// handleNameHandshake records a peer's advertised name and public key,
// sent immediately after a connection starts receiving (§4.7).
func (n *Node) handleNameHandshake(addr Address, frame protocol.Frame) {
	var wireName protocol.WireName
	if err := protocol.DecodePayload(frame.Payload, &wireName); err != nil {
		n.log.Warn("malformed name handshake", "peer", addr.String(), "error", err)
		return
	}

	pub, err := keys.ParsePublicPEM(wireName.PublicKeyPEM)
	if err != nil {
		n.log.Warn("malformed name handshake public key", "peer", addr.String(), "error", err)
		return
	}

	n.mu.Lock()
	n.namesToPK[wireName.Name] = pub
	n.mu.Unlock()

	n.log.Debug("learned peer name", "peer", addr.String(), "name", wireName.Name)
}

// dispatchLoop is the single consumer of the shared message queue,
// draining it and routing each message by (type, subtype) per §4.7.
func (n *Node) dispatchLoop() {
	defer n.dispatchWG.Done()
	for msg := range n.messages {
		switch msg.frame.Type {
		case protocol.TypeRequest:
			n.handleRequest(msg.source, msg.frame)
		case protocol.TypeResponse:
			n.handleResponse(msg.source, msg.frame)
		case protocol.TypeBroadcast:
			n.handleBroadcast(msg.source, msg.frame)
		default:
			n.log.Warn("dropping frame with unknown type", "type", msg.frame.Type)
		}
	}
}

func (n *Node) handleRequest(source Address, frame protocol.Frame) {
	switch frame.Subtype {
	case protocol.SubtypeNode:
		addrs, ok := n.handler.ServeNodeRequest()
		if !ok {
			return
		}
		n.replyNodeList(source, addrs)

	case protocol.SubtypeBlockchain:
		var req protocol.WireBlockchainRequest
		if err := protocol.DecodePayload(frame.Payload, &req); err != nil {
			n.log.Warn("malformed blockchain request", "peer", source.String(), "error", err)
			return
		}
		bc, ok := n.handler.ServeBlockchainRequest(req.LatestHash)
		if !ok {
			return
		}
		n.replyBlockchain(source, bc)

	case protocol.SubtypeTest:
		var wt protocol.WireTest
		if err := protocol.DecodePayload(frame.Payload, &wt); err != nil {
			n.log.Warn("malformed test probe", "peer", source.String(), "error", err)
			return
		}
		n.log.Debug("received test probe, echoing", "peer", source.String(), "message_id", wt.MessageID)
		payload, err := protocol.EncodePayload(wt)
		if err != nil {
			return
		}
		n.SendFocused(source, protocol.TypeResponse, protocol.SubtypeTest, payload)

	default:
		n.log.Warn("dropping request with unhandled subtype", "subtype", frame.Subtype)
	}
}

func (n *Node) handleResponse(source Address, frame protocol.Frame) {
	switch frame.Subtype {
	case protocol.SubtypeNode:
		var list protocol.WireNodeList
		if err := protocol.DecodePayload(frame.Payload, &list); err != nil {
			n.log.Warn("malformed node list response", "peer", source.String(), "error", err)
			return
		}
		addrs := make([]Address, len(list.Addresses))
		for i, w := range list.Addresses {
			addrs[i] = addressFromWire(w)
		}
		n.handler.ProcessNodeData(addrs)

	case protocol.SubtypeBlockchain:
		var wbc protocol.WireBlockchain
		if err := protocol.DecodePayload(frame.Payload, &wbc); err != nil {
			n.log.Warn("malformed blockchain response", "peer", source.String(), "error", err)
			return
		}
		n.handler.ProcessBlockchainData(BlockchainFromWire(wbc))

	case protocol.SubtypeTransaction:
		tx, err := n.decodeTransaction(frame.Payload)
		if err != nil {
			n.log.Warn("malformed transaction response", "peer", source.String(), "error", err)
			return
		}
		// A focused resp/trsn is the first hop of a user's broadcast
		// (§4.10); dispatch never re-forwards a resp regardless of the
		// handler's isNew verdict.
		n.handler.ProcessTransactionData(tx)

	case protocol.SubtypeTest:
		var wt protocol.WireTest
		if err := protocol.DecodePayload(frame.Payload, &wt); err == nil {
			n.log.Debug("test probe echoed back", "peer", source.String(), "message_id", wt.MessageID)
		}

	default:
		n.log.Warn("dropping response with unhandled subtype", "subtype", frame.Subtype)
	}
}

func (n *Node) handleBroadcast(source Address, frame protocol.Frame) {
	switch frame.Subtype {
	case protocol.SubtypeBlock:
		block, err := n.decodeBlock(frame.Payload)
		if err != nil {
			n.log.Warn("malformed block broadcast", "peer", source.String(), "error", err)
			return
		}
		if n.handler.ProcessBlockData(block) {
			n.reflood(source, frame)
		}

	case protocol.SubtypeTransaction:
		tx, err := n.decodeTransaction(frame.Payload)
		if err != nil {
			n.log.Warn("malformed transaction broadcast", "peer", source.String(), "error", err)
			return
		}
		if n.handler.ProcessTransactionData(tx) {
			n.reflood(source, frame)
		}

	case protocol.SubtypeTest:
		// no-op diagnostic.

	default:
		n.log.Warn("dropping broadcast with unhandled subtype", "subtype", frame.Subtype)
	}
}

// reflood re-broadcasts frame to every peer except source, implementing
// gossip flood with duplicate suppression: the handler already told us
// this content is new, so every other peer gets it exactly once from us.
func (n *Node) reflood(source Address, frame protocol.Frame) {
	n.SendDistributed(frame.Type, frame.Subtype, frame.Payload, &source)
}

func (n *Node) replyNodeList(target Address, addrs []Address) {
	wireAddrs := make([]protocol.WireNodeAddr, len(addrs))
	for i, a := range addrs {
		wireAddrs[i] = a.wire()
	}
	payload, err := protocol.EncodePayload(protocol.WireNodeList{Addresses: wireAddrs})
	if err != nil {
		n.log.Warn("failed to encode node list reply", "error", err)
		return
	}
	n.SendFocused(target, protocol.TypeResponse, protocol.SubtypeNode, payload)
}

func (n *Node) replyBlockchain(target Address, bc *chain.Blockchain) {
	payload, err := protocol.EncodePayload(BlockchainToWire(bc))
	if err != nil {
		n.log.Warn("failed to encode blockchain reply", "error", err)
		return
	}
	n.SendFocused(target, protocol.TypeResponse, protocol.SubtypeBlockchain, payload)
}

func (n *Node) decodeTransaction(payload []byte) (*chain.Transaction, error) {
	var wt protocol.WireTransaction
	if err := protocol.DecodePayload(payload, &wt); err != nil {
		return nil, err
	}
	return TransactionFromWire(wt)
}

func (n *Node) decodeBlock(payload []byte) (*chain.Block, error) {
	var wb protocol.WireBlock
	if err := protocol.DecodePayload(payload, &wb); err != nil {
		return nil, err
	}
	return BlockFromWire(wb)
}

// SendFocused writes one frame to exactly the named peer. A peer no
// longer present in the connection map fails silently (§4.7).
func (n *Node) SendFocused(target Address, typ protocol.MsgType, subtype protocol.MsgSubtype, payload []byte) {
	n.mu.RLock()
	pc, ok := n.conns[target.String()]
	n.mu.RUnlock()
	if !ok {
		return
	}

	if err := pc.send(protocol.Frame{Type: typ, Subtype: subtype, Payload: payload}); err != nil {
		n.log.Warn("focused send failed", "peer", target.String(), "error", err)
	}
}

// SendDistributed writes a frame to every connected peer except exclude
// (if non-nil). Connections are snapshotted under the read lock and
// written to without holding it, per §5's shared-resource policy.
func (n *Node) SendDistributed(typ protocol.MsgType, subtype protocol.MsgSubtype, payload []byte, exclude *Address) {
	n.mu.RLock()
	targets := make([]*peerConn, 0, len(n.conns))
	for key, pc := range n.conns {
		if exclude != nil && key == exclude.String() {
			continue
		}
		targets = append(targets, pc)
	}
	n.mu.RUnlock()

	frame := protocol.Frame{Type: typ, Subtype: subtype, Payload: payload}
	for _, pc := range targets {
		if err := pc.send(frame); err != nil {
			n.log.Warn("distributed send failed", "peer", pc.addr.String(), "error", err)
		}
	}
}
