// Package x86 is the default x86-64 Decoder/Encoder implementation
// (design §4.7, SPEC_FULL §4 "Default Encoder/Decoder"). The decoder
// wraps golang.org/x/arch/x86/x86asm, the same disassembler package
// _examples/mdheller-exp/cmd/bin2asm/sections.go uses to turn a PE's code
// section into instruction listings (x86asm.Inst, x86asm.IntelSyntax);
// the encoder hand-builds machine bytes the way the teacher's mov.go and
// jmp.go do, with explicit REX prefixes and ModR/M bytes.
package x86

import (
	"fmt"
	"strings"

	"github.com/xyproto/hexpatch/internal/codec"
	"golang.org/x/arch/x86/x86asm"
)

// Decoder disassembles x86-64 machine code via x86asm.
type Decoder struct{}

// NewDecoder returns the x86-64 Decoder.
func NewDecoder() Decoder {
	return Decoder{}
}

// Decode implements codec.Decoder. In skipInvalid mode a byte that
// doesn't begin a valid instruction is emitted as a one-byte ".byte"
// pseudo-instruction, matching the design's "skipdata" contract (§4.3,
// §4.7).
func (Decoder) Decode(data []byte, startingVA uint64, skipInvalid bool) []codec.Instruction {
	var out []codec.Instruction
	off := 0
	for off < len(data) {
		inst, err := x86asm.Decode(data[off:], 64)
		if err != nil || inst.Len == 0 {
			if !skipInvalid {
				break
			}
			out = append(out, codec.Instruction{
				Offset:         off,
				Mnemonic:       ".byte",
				Operands:       fmt.Sprintf("0x%02x", data[off]),
				VirtualAddress: startingVA + uint64(off),
				Bytes:          []byte{data[off]},
			})
			off++
			continue
		}
		mnemonic, operands := splitSyntax(x86asm.IntelSyntax(inst, startingVA+uint64(off), nil))
		b := make([]byte, inst.Len)
		copy(b, data[off:off+inst.Len])
		out = append(out, codec.Instruction{
			Offset:         off,
			Mnemonic:       mnemonic,
			Operands:       operands,
			VirtualAddress: startingVA + uint64(off),
			Bytes:          b,
		})
		off += inst.Len
	}
	return out
}

// splitSyntax breaks an x86asm.IntelSyntax rendering ("mov rax, rbx",
// "nop", "jmp rax") into its leading mnemonic and the remaining operand
// text, so AssemblyLine can hold them separately (design §3).
func splitSyntax(text string) (mnemonic, operands string) {
	i := strings.IndexByte(text, ' ')
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i+1:])
}
