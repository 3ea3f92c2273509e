package node

import (
	"crypto/rsa"
	"fmt"

	"github.com/paper-piper/Dini/internal/protocol"
)

// Address is a peer's (ip, port) network identity, used both as the
// connection-map key and as the payload of node-discovery gossip.
type Address struct {
	IP   string
	Port int
}

// String renders the address in host:port form, suitable for net.Dial.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

func (a Address) wire() protocol.WireNodeAddr {
	return protocol.WireNodeAddr{IP: a.IP, Port: a.Port}
}

func addressFromWire(w protocol.WireNodeAddr) Address {
	return Address{IP: w.IP, Port: w.Port}
}

// Identity is this node's own address book entry: the address it is
// reachable at, its human name, and (for miner/user roles) its public
// key. Bootstrap nodes have no public key and skip the resp/name
// handshake step (§4.7).
type Identity struct {
	Addr      Address
	Name      string
	PublicKey *rsa.PublicKey
}

// HasPublicKey reports whether this identity advertises a public key.
func (id Identity) HasPublicKey() bool {
	return id.PublicKey != nil
}
