package x86

import (
	"strings"

	"github.com/xyproto/hexpatch/internal/herr"
)

// Encoder assembles a small, real subset of x86-64 instructions: nop,
// ret, register-to-register mov, and indirect register jmp — exactly the
// shapes the design's end-to-end scenarios (spec §8) exercise. Anything
// else reports AssembleError, same as a real assembler rejecting
// unrecognized syntax (design §4.4: "Errors surface verbatim").
type Encoder struct{}

// NewEncoder returns the x86-64 Encoder.
func NewEncoder() Encoder {
	return Encoder{}
}

// Encode implements codec.Encoder. source may hold several
// semicolon-or-newline separated statements, assembled back to back
// starting at startingVA (unused by the instructions this encoder
// supports, but kept for interface symmetry with a relocatable real
// assembler).
func (Encoder) Encode(source string, startingVA uint64) ([]byte, error) {
	var out []byte
	for _, stmt := range splitStatements(source) {
		b, err := encodeStatement(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func splitStatements(source string) []string {
	source = strings.ReplaceAll(source, ";", "\n")
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func encodeStatement(stmt string) ([]byte, error) {
	fields := strings.SplitN(stmt, " ", 2)
	mnemonic := strings.ToLower(strings.TrimSpace(fields[0]))
	var rest string
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch mnemonic {
	case "nop":
		return []byte{0x90}, nil
	case "ret":
		return []byte{0xC3}, nil
	case "mov":
		return encodeMovRegReg(rest)
	case "jmp":
		return encodeJmpReg(rest)
	default:
		return nil, herr.New(herr.AssembleError, "unsupported instruction %q", stmt)
	}
}

// encodeMovRegReg assembles "mov dst, src" as MOV r/m64, r64 (opcode
// 0x89), matching the teacher's movX86RegToReg (mov.go): REX.W when
// either operand is 64-bit, REX.R/B extending the reg/r-m fields past
// register 7, ModR/M mod=11 with reg=src, rm=dst.
func encodeMovRegReg(operands string) ([]byte, error) {
	dstName, srcName, err := splitTwoOperands("mov", operands)
	if err != nil {
		return nil, err
	}
	dst, ok := lookupRegister(dstName)
	if !ok {
		return nil, herr.New(herr.AssembleError, "mov: unknown register %q", dstName)
	}
	src, ok := lookupRegister(srcName)
	if !ok {
		return nil, herr.New(herr.AssembleError, "mov: unknown register %q", srcName)
	}

	var out []byte
	if dst.size == 64 || src.size == 64 || dst.encoding >= 8 || src.encoding >= 8 {
		rex := uint8(0x40)
		if dst.size == 64 || src.size == 64 {
			rex |= 0x08
		}
		if src.encoding >= 8 {
			rex |= 0x04
		}
		if dst.encoding >= 8 {
			rex |= 0x01
		}
		out = append(out, rex)
	}
	out = append(out, 0x89)
	modrm := 0xC0 | ((src.encoding & 7) << 3) | (dst.encoding & 7)
	out = append(out, modrm)
	return out, nil
}

// encodeJmpReg assembles "jmp reg" as the indirect near jump FF /4
// (ModR/M reg field 4), e.g. "jmp rax" -> [0xFF, 0xE0] (spec §8 scenario
// 3).
func encodeJmpReg(operand string) ([]byte, error) {
	operand = strings.TrimSpace(operand)
	if operand == "" {
		return nil, herr.New(herr.AssembleError, "jmp: missing operand")
	}
	reg, ok := lookupRegister(operand)
	if !ok {
		return nil, herr.New(herr.AssembleError, "jmp: unknown register %q", operand)
	}
	var out []byte
	if reg.encoding >= 8 {
		out = append(out, 0x41) // REX.B
	}
	out = append(out, 0xFF)
	modrm := 0xE0 | (reg.encoding & 7)
	out = append(out, modrm)
	return out, nil
}

func splitTwoOperands(mnemonic, operands string) (string, string, error) {
	parts := strings.SplitN(operands, ",", 2)
	if len(parts) != 2 {
		return "", "", herr.New(herr.AssembleError, "%s: expected \"dst, src\", got %q", mnemonic, operands)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
