// Package codec defines the Encoder/Decoder capability contracts design
// §4.7 treats as external collaborators: the native disassembler that
// turns bytes into instructions, and the assembler that turns a source
// string back into bytes. internal/codec/x86 supplies the one concrete,
// real implementation this repo ships (x86-64); Registry implements the
// "unknown architecture falls back to x86-64" policy from design §6.
package codec

import "github.com/xyproto/hexpatch/internal/header"

// Instruction is one decoded instruction, as produced by a Decoder.
// Offset is relative to the byte slice passed to Decode; VirtualAddress
// is the caller-supplied starting address plus Offset.
type Instruction struct {
	Offset         int
	Mnemonic       string
	Operands       string
	VirtualAddress uint64
	Bytes          []byte
}

// Decoder disassembles a byte slice starting at a given virtual address
// (design §4.7). When skipInvalid is true ("skip-invalid-as-.byte mode"),
// a byte sequence that doesn't begin a valid instruction becomes a single
// synthetic ".byte" instruction and decoding continues, guaranteeing the
// call never stalls (design §4.3: "the decoder's skipdata guarantees a
// .byte line, never an infinite loop").
type Decoder interface {
	Decode(data []byte, startingVA uint64, skipInvalid bool) []Instruction
}

// Encoder assembles a source string into machine bytes starting at a
// given virtual address (design §4.4, §4.7). Errors surface verbatim to
// the caller (design §4.4: "Errors surface verbatim").
type Encoder interface {
	Encode(source string, startingVA uint64) ([]byte, error)
}

// Registry resolves an architecture to its Decoder/Encoder pair, falling
// back to x86-64 for any architecture with no registered backend (design
// §6: "Unknown architecture fall back to x86-64 — this is an intentional,
// conservative default, not a correctness guarantee").
type Registry struct {
	decoders map[header.Architecture]Decoder
	encoders map[header.Architecture]Encoder
}

// NewRegistry returns an empty Registry. Callers register backends with
// Register before use; cmd/hexpatch registers the x86-64 codec.
func NewRegistry() *Registry {
	return &Registry{
		decoders: map[header.Architecture]Decoder{},
		encoders: map[header.Architecture]Encoder{},
	}
}

// Register binds a Decoder/Encoder pair to arch.
func (r *Registry) Register(arch header.Architecture, dec Decoder, enc Encoder) {
	r.decoders[arch] = dec
	r.encoders[arch] = enc
}

// For returns the Decoder/Encoder bound to arch, falling back to the
// x86-64 backend if arch has none registered.
func (r *Registry) For(arch header.Architecture) (Decoder, Encoder) {
	dec, decOK := r.decoders[arch]
	enc, encOK := r.encoders[arch]
	if decOK && encOK {
		return dec, enc
	}
	return r.decoders[header.ArchX86_64], r.encoders[header.ArchX86_64]
}
