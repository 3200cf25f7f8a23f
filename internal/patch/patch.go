// Package patch implements the patch planner (design §4.4): turning an
// assembly source string into bytes via the architecture's Encoder, then
// splicing those bytes onto the ByteStore and driving AssemblyModel's
// incremental re-disassembly.
package patch

import (
	"github.com/xyproto/hexpatch/internal/asmmodel"
	"github.com/xyproto/hexpatch/internal/codec"
	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/store"
)

// Observer is the plugin host's pre-commit hook (design §5 "Plugin hook
// on edit"): it receives the to-be-written bytes and may rewrite them in
// place before the patch is committed. A nil Observer is a no-op.
type Observer func(bytes []byte)

// Patcher binds a ByteStore+AssemblyModel pair to the Encoder/Decoder for
// the file's detected architecture.
type Patcher struct {
	Store    *store.ByteStore
	Model    *asmmodel.Model
	Header   *header.Header
	Decoder  codec.Decoder
	Encoder  codec.Encoder
	Observer Observer
}

// New returns a Patcher over store/model/hdr using the given codec pair.
func New(s *store.ByteStore, m *asmmodel.Model, hdr *header.Header, dec codec.Decoder, enc codec.Encoder) *Patcher {
	return &Patcher{Store: s, Model: m, Header: hdr, Decoder: dec, Encoder: enc}
}

// BytesFromAssembly hands src off to the Encoder bound to this file's
// architecture (design §4.4). Errors surface verbatim.
func (p *Patcher) BytesFromAssembly(src string, virtualAddress uint64) ([]byte, error) {
	return p.Encoder.Encode(src, virtualAddress)
}

// PatchBytes implements design §4.4 step 2: resolve the offset to write
// at from the cursor and whether the write starts at the beginning of
// the current instruction, run the bytes through Observer, commit them
// via ByteStore.PushChange, and re-disassemble.
func (p *Patcher) PatchBytes(cursorByte int, bytes []byte, startFromBeginningOfInstruction bool) (int, error) {
	instructionStart := p.Model.InstructionStart(cursorByte)
	offset := instructionStart
	if !startFromBeginningOfInstruction {
		offset = instructionStart + (cursorByte - instructionStart)
	}

	if p.Observer != nil {
		p.Observer(bytes)
	}

	n, err := p.Store.PushChange(offset, bytes)
	if err != nil {
		return 0, err
	}
	symbols := p.symbols()
	p.Model.EditAssembly(p.Store.Bytes(), p.Decoder, symbols, instructionStart, n+(offset-instructionStart))
	return n, nil
}

// Patch implements design §4.4's patch(src): assemble src and apply it
// starting at the beginning of the current instruction. Assembly errors
// are returned to the caller to report, not propagated as a fatal state
// change — no bytes are touched when encoding fails.
func (p *Patcher) Patch(cursorByte int, src string) (int, error) {
	instructionStart := p.Model.InstructionStart(cursorByte)
	va := p.virtualAddressOf(instructionStart)
	b, err := p.BytesFromAssembly(src, va)
	if err != nil {
		return 0, err
	}
	return p.PatchBytes(cursorByte, b, true)
}

// PatchNibble implements the single-hex-digit edit (design §4.4): cursor
// identifies one nibble of one byte; the edit replaces that nibble, then
// the resulting single byte is passed through the same PushChange +
// EditAssembly pipeline as any other patch.
func (p *Patcher) PatchNibble(cursorByte int, highNibble bool, value byte) (int, error) {
	current, ok := p.Store.Get(cursorByte)
	if !ok {
		return 0, nil
	}
	var updated byte
	if highNibble {
		updated = (current & 0x0F) | (value << 4)
	} else {
		updated = (current & 0xF0) | (value & 0x0F)
	}
	return p.PatchBytes(cursorByte, []byte{updated}, false)
}

func (p *Patcher) virtualAddressOf(fileAddr int) uint64 {
	if p.Header != nil {
		return p.Header.PhysicalToVirtual(uint64(fileAddr))
	}
	return uint64(fileAddr)
}

func (p *Patcher) symbols() *header.SymbolTable {
	if p.Header != nil && p.Header.Parsed {
		return p.Header.Generic.Symbols
	}
	return nil
}
