package protocol

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// The wire structs below are the explicit, per-subtype serialization forms
// carried in a Frame's Payload. Each mirrors the canonical field layout of
// its domain counterpart in internal/chain, internal/node, or the Handler
// address book — conversion between domain and wire form lives in
// internal/node (wire.go), never here, and never through reflection over
// an arbitrary value.

// WireTransaction is the wire form of a chain.Transaction.
type WireTransaction struct {
	SenderPEM    []byte
	RecipientPEM []byte
	Amount       uint64
	Tip          uint64
	Signature    []byte
}

// WireBlock is the wire form of a chain.Block.
type WireBlock struct {
	PreviousHash string
	Transactions []WireTransaction
	Difficulty   int
	Timestamp    int64
	Nonce        uint64
	Hash         string
}

// WireBlockchain is the wire form of a chain.Blockchain, used to serve
// catch-up responses.
type WireBlockchain struct {
	Blocks []WireBlock
}

// WireNodeAddr is a single (ip, port) node address.
type WireNodeAddr struct {
	IP   string
	Port int
}

// WireNodeList carries a set of known peer addresses (reqt/resp "node").
type WireNodeList struct {
	Addresses []WireNodeAddr
}

// WireInit is the handshake payload a dialer sends announcing its own
// listening address.
type WireInit struct {
	Addr WireNodeAddr
}

// WireName is the handshake payload announcing a node's name and public
// key, sent immediately after a connection starts receiving.
type WireName struct {
	Name         string
	PublicKeyPEM []byte
}

// WireTest is the diagnostic payload for the test subtype: a UUID message
// ID (see internal/node.Ping) lets operators correlate a probe's request
// and response in logs across two independent processes.
type WireTest struct {
	MessageID string
	Message   string
}

// WireBlockchainRequest carries the requester's latest known hash for a
// reqt/bkcn catch-up request.
type WireBlockchainRequest struct {
	LatestHash string
}

// EncodePayload gob-encodes v into a Frame-ready byte slice.
func EncodePayload(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("protocol: encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePayload gob-decodes payload into v, which must be a pointer to one
// of the Wire* types above.
func DecodePayload(payload []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("protocol: decode payload: %w", err)
	}
	return nil
}
