// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

// ResponseHandler processes one response frame for the request packet
// it correlates to via opaque.
type ResponseHandler func(pkt *Packet, resp ResponseHeader, body []byte, immerr error) error

// OpcodeTable is a dense opcode-keyed dispatch table. The source relies
// on an array indexed by the single-byte opcode; a Go map gives the
// same O(1) lookup without committing to a fixed 256-entry array when
// only a handful of opcodes are ever registered.
type OpcodeTable struct {
	handlers map[Opcode]ResponseHandler
}

// NewOpcodeTable returns an empty dispatch table.
func NewOpcodeTable() *OpcodeTable {
	return &OpcodeTable{handlers: make(map[Opcode]ResponseHandler)}
}

// Register installs handler for opcode, replacing any prior handler.
func (t *OpcodeTable) Register(opcode Opcode, handler ResponseHandler) {
	t.handlers[opcode] = handler
}

func (t *OpcodeTable) lookup(opcode Opcode) (ResponseHandler, bool) {
	h, ok := t.handlers[opcode]
	return h, ok
}
