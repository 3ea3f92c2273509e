// Package protocol implements the Dini wire format: a binary,
// stream-oriented frame carrying a type, a subtype, and an optional
// gob-encoded payload.
//
// Frame layout:
//
//	<decimal ASCII length> ":" <4-byte type> <4-byte subtype> <payload bytes>
//
// length is the byte length of payload only (0 if absent).
package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// MsgType is the primary command type of a frame.
type MsgType string

// The closed set of message types.
const (
	TypeRequest   MsgType = "reqt"
	TypeResponse  MsgType = "resp"
	TypeBroadcast MsgType = "bcst"
)

func (t MsgType) valid() bool {
	switch t {
	case TypeRequest, TypeResponse, TypeBroadcast:
		return true
	}
	return false
}

// MsgSubtype identifies the kind of payload a frame carries.
type MsgSubtype string

// The closed set of message subtypes.
const (
	SubtypeTest       MsgSubtype = "test"
	SubtypeNode       MsgSubtype = "node"
	SubtypeInit       MsgSubtype = "init"
	SubtypeName       MsgSubtype = "name"
	SubtypeBlock      MsgSubtype = "blok"
	SubtypeTransaction MsgSubtype = "trsn"
	SubtypeBlockchain MsgSubtype = "bkcn"
)

func (s MsgSubtype) valid() bool {
	switch s {
	case SubtypeTest, SubtypeNode, SubtypeInit, SubtypeName, SubtypeBlock, SubtypeTransaction, SubtypeBlockchain:
		return true
	}
	return false
}

// Frame is one unit of the wire protocol: a type, a subtype, and a raw
// (already gob-encoded, or empty) payload.
type Frame struct {
	Type    MsgType
	Subtype MsgSubtype
	Payload []byte
}

// WriteFrame serializes f onto w using the protocol's length-prefixed
// layout. Type and subtype must each be exactly 4 bytes.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Type) != 4 {
		return fmt.Errorf("protocol: message type %q must be 4 bytes", f.Type)
	}
	if len(f.Subtype) != 4 {
		return fmt.Errorf("protocol: message subtype %q must be 4 bytes", f.Subtype)
	}

	header := fmt.Sprintf("%d:%s%s", len(f.Payload), f.Type, f.Subtype)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadFrame parses exactly one frame from r. It returns io.EOF only when
// the stream ends cleanly before any byte of a new frame has been read;
// any other truncation is reported as an error so the caller can treat it
// as a malformed frame per the protocol's error handling rules.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	lengthStr, err := r.ReadString(':')
	if err != nil {
		if err == io.EOF && len(lengthStr) > 0 {
			return Frame{}, fmt.Errorf("protocol: truncated length: %w", io.ErrUnexpectedEOF)
		}
		return Frame{}, err
	}
	lengthStr = lengthStr[:len(lengthStr)-1] // drop the trailing ':'

	var length int
	if _, err := fmt.Sscanf(lengthStr, "%d", &length); err != nil {
		return Frame{}, fmt.Errorf("protocol: malformed length %q: %w", lengthStr, err)
	}
	if length < 0 {
		return Frame{}, fmt.Errorf("protocol: negative length %d", length)
	}

	typeBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, typeBuf); err != nil {
		return Frame{}, fmt.Errorf("protocol: truncated type: %w", err)
	}
	msgType := MsgType(typeBuf)
	if !msgType.valid() {
		return Frame{}, fmt.Errorf("protocol: unknown message type %q", msgType)
	}

	subtypeBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, subtypeBuf); err != nil {
		return Frame{}, fmt.Errorf("protocol: truncated subtype: %w", err)
	}
	msgSubtype := MsgSubtype(subtypeBuf)
	if !msgSubtype.valid() {
		return Frame{}, fmt.Errorf("protocol: unknown message subtype %q", msgSubtype)
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("protocol: truncated payload: %w", err)
		}
	}

	return Frame{Type: msgType, Subtype: msgSubtype, Payload: payload}, nil
}
