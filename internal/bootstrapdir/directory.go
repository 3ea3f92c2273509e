// Package bootstrapdir implements the §6 bootstrap directory file: the
// one piece of external format peers depend on bit-exactly, since any
// node may need to parse it to find its first peers.
package bootstrapdir

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paper-piper/Dini/internal/node"
)

// document is the exact on-disk JSON shape: {"bootstrap_addresses":
// [["ip", port], ...]}.
type document struct {
	BootstrapAddresses [][2]interface{} `json:"bootstrap_addresses"`
}

// Load reads the directory file at path. A missing or corrupt file is
// treated as an empty directory (§6, §7) rather than an error.
func Load(path string) []node.Address {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	addrs := make([]node.Address, 0, len(doc.BootstrapAddresses))
	for _, pair := range doc.BootstrapAddresses {
		if len(pair) != 2 {
			continue
		}
		ip, ok := pair[0].(string)
		if !ok {
			continue
		}
		portFloat, ok := pair[1].(float64)
		if !ok {
			continue
		}
		addrs = append(addrs, node.Address{IP: ip, Port: int(portFloat)})
	}
	return addrs
}

// Save writes addrs to path in the §6 document shape, overwriting
// whatever was there.
func Save(path string, addrs []node.Address) error {
	doc := document{BootstrapAddresses: make([][2]interface{}, len(addrs))}
	for i, a := range addrs {
		doc.BootstrapAddresses[i] = [2]interface{}{a.IP, a.Port}
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("bootstrapdir: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Add appends addr to the directory file at path if not already present,
// read-modify-write.
func Add(path string, addr node.Address) error {
	addrs := Load(path)
	for _, a := range addrs {
		if a == addr {
			return nil
		}
	}
	return Save(path, append(addrs, addr))
}

// Remove deletes addr from the directory file at path, read-modify-write.
// Used by a bootstrap node removing itself on shutdown (§4.8).
func Remove(path string, addr node.Address) error {
	addrs := Load(path)
	out := addrs[:0]
	for _, a := range addrs {
		if a != addr {
			out = append(out, a)
		}
	}
	return Save(path, out)
}
