package x86

// register describes one x86-64 general-purpose register: its bit size
// and its 4-bit encoding used in REX prefixes and ModR/M bytes. This is
// the same {Name, Size, Encoding} shape the teacher's reg.go keeps its
// per-architecture register tables in, trimmed to the general-purpose
// registers the encoder actually emits instructions for.
type register struct {
	size     int
	encoding uint8
}

// registers is the x86-64 general-purpose register table, grounded on
// the teacher's x86_64Registers map (reg.go).
var registers = map[string]register{
	"rax": {64, 0}, "rcx": {64, 1}, "rdx": {64, 2}, "rbx": {64, 3},
	"rsp": {64, 4}, "rbp": {64, 5}, "rsi": {64, 6}, "rdi": {64, 7},
	"r8": {64, 8}, "r9": {64, 9}, "r10": {64, 10}, "r11": {64, 11},
	"r12": {64, 12}, "r13": {64, 13}, "r14": {64, 14}, "r15": {64, 15},

	"eax": {32, 0}, "ecx": {32, 1}, "edx": {32, 2}, "ebx": {32, 3},
	"esp": {32, 4}, "ebp": {32, 5}, "esi": {32, 6}, "edi": {32, 7},

	"al": {8, 0}, "cl": {8, 1}, "dl": {8, 2}, "bl": {8, 3},
}

func lookupRegister(name string) (register, bool) {
	r, ok := registers[name]
	return r, ok
}
