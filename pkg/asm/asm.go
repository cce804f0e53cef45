// Package asm is a two-pass assembler for GoCPU assembly text.
//
// Pass 1 records the address of every label, pass 2 encodes instructions
// and resolves label operands. Labels are case-sensitive; mnemonics and
// register names are not.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"silc/pkg/cpu"
)

var zeroOperandOps = map[string]uint16{
	"HLT": cpu.OpHLT,
	"NOP": cpu.OpNOP,
	"RET": cpu.OpRET,
}

var oneRegisterOps = map[string]uint16{
	"NOT":  cpu.OpNOT,
	"PUSH": cpu.OpPUSH,
	"POP":  cpu.OpPOP,
	"LDSP": cpu.OpLDSP,
	"STSP": cpu.OpSTSP,
}

var twoRegisterOps = map[string]uint16{
	"MOV":  cpu.OpMOV,
	"LD":   cpu.OpLD,
	"ST":   cpu.OpST,
	"ADD":  cpu.OpADD,
	"SUB":  cpu.OpSUB,
	"AND":  cpu.OpAND,
	"OR":   cpu.OpOR,
	"XOR":  cpu.OpXOR,
	"MUL":  cpu.OpMUL,
	"DIV":  cpu.OpDIV,
	"IDIV": cpu.OpIDIV,
	"SHL":  cpu.OpSHL,
	"SHR":  cpu.OpSHR,
	"LDB":  cpu.OpLDB,
	"STB":  cpu.OpSTB,
}

var regAndImmediateOps = map[string]uint16{
	"LDI": cpu.OpLDI,
}

var immediateOnlyOps = map[string]uint16{
	"JMP":  cpu.OpJMP,
	"JZ":   cpu.OpJZ,
	"JNZ":  cpu.OpJNZ,
	"JN":   cpu.OpJN,
	"JC":   cpu.OpJC,
	"JNC":  cpu.OpJNC,
	"CALL": cpu.OpCALL,
}

// Error reports a problem on one line of assembly source.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

func errorf(lineNo int, format string, args ...any) error {
	return &Error{Line: lineNo, Msg: fmt.Sprintf(format, args...)}
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble encodes code and returns the machine image together with a
// source map from instruction address to 1-based line number.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	parsed := make([]parsedLine, len(lines))
	for i, raw := range lines {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, nil, err
		}
		parsed[i] = p
	}

	if err := a.pass1(parsed); err != nil {
		return nil, nil, err
	}
	return a.pass2(parsed)
}

// Label returns the address assigned to name by the last Assemble call.
func (a *Assembler) Label(name string) (uint16, bool) {
	addr, ok := a.labels[name]
	return addr, ok
}

func (a *Assembler) pass1(lines []parsedLine) error {
	var address uint32

	for _, p := range lines {
		for _, lbl := range p.labels {
			if address > 0xFFFF {
				return errorf(p.lineNo, "label '%s' points past addressable memory", lbl)
			}
			if _, exists := a.labels[lbl]; exists {
				return errorf(p.lineNo, "duplicate label '%s'", lbl)
			}
			a.labels[lbl] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".ORG" {
			target, err := parseOrg(p)
			if err != nil {
				return err
			}
			if target < address {
				return errorf(p.lineNo, "cannot move origin backward")
			}
			address = target
			continue
		}

		length, ok := instructionLength(p.mnemonic)
		if !ok {
			return errorf(p.lineNo, "unknown instruction: %s", p.mnemonic)
		}
		if address+uint32(length) > 65536 {
			return errorf(p.lineNo, "program too large")
		}
		address += uint32(length)
	}

	return nil
}

func (a *Assembler) pass2(lines []parsedLine) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	emit := func(word uint16) {
		program = append(program, byte(word&0xFF), byte(word>>8))
	}

	for _, p := range lines {
		if p.mnemonic == "" {
			continue
		}
		mnemonic, ops, lineNo := p.mnemonic, p.operands, p.lineNo

		if mnemonic == ".ORG" {
			target, err := parseOrg(p)
			if err != nil {
				return nil, nil, err
			}
			if padding := int(target) - len(program); padding > 0 {
				program = append(program, make([]byte, padding)...)
			}
			continue
		}

		sourceMap[uint16(len(program))] = lineNo

		if err := checkOperands(p); err != nil {
			return nil, nil, err
		}

		if mnemonic == ".WORD" {
			val, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			emit(val)
			continue
		}

		if opcode, ok := zeroOperandOps[mnemonic]; ok {
			emit(cpu.EncodeInstruction(opcode, 0, 0, 0))
			continue
		}

		if opcode, ok := oneRegisterOps[mnemonic]; ok {
			regA, err := parseRegister(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			emit(cpu.EncodeInstruction(opcode, regA, 0, 0))
			continue
		}

		if opcode, ok := twoRegisterOps[mnemonic]; ok {
			regA, err := parseRegister(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			regB, err := parseRegister(ops[1], lineNo)
			if err != nil {
				return nil, nil, err
			}
			emit(cpu.EncodeInstruction(opcode, regA, regB, 0))
			continue
		}

		if opcode, ok := regAndImmediateOps[mnemonic]; ok {
			regA, err := parseRegister(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			imm, err := a.parseImmediate(ops[1], lineNo)
			if err != nil {
				return nil, nil, err
			}
			emit(cpu.EncodeInstruction(opcode, regA, 0, 0))
			emit(imm)
			continue
		}

		if opcode, ok := immediateOnlyOps[mnemonic]; ok {
			imm, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			emit(cpu.EncodeInstruction(opcode, 0, 0, 0))
			emit(imm)
			continue
		}

		return nil, nil, errorf(lineNo, "unknown instruction: %s", mnemonic)
	}

	return program, sourceMap, nil
}

// checkOperands validates the operand count of p against its mnemonic class.
func checkOperands(p parsedLine) error {
	m := p.mnemonic
	want := -1
	if m == ".WORD" {
		want = 1
	} else if _, ok := zeroOperandOps[m]; ok {
		want = 0
	} else if _, ok := oneRegisterOps[m]; ok {
		want = 1
	} else if _, ok := twoRegisterOps[m]; ok {
		want = 2
	} else if _, ok := regAndImmediateOps[m]; ok {
		want = 2
	} else if _, ok := immediateOnlyOps[m]; ok {
		want = 1
	}
	if want >= 0 && len(p.operands) != want {
		return errorf(p.lineNo, "%s expects %d operand(s), got %d", p.mnemonic, want, len(p.operands))
	}
	return nil
}

func parseOrg(p parsedLine) (uint32, error) {
	if len(p.operands) != 1 {
		return 0, errorf(p.lineNo, ".ORG expects exactly one operand")
	}
	target, err := strconv.ParseUint(p.operands[0], 0, 32)
	if err != nil {
		return 0, errorf(p.lineNo, "invalid .ORG value: %s", p.operands[0])
	}
	if target > 0xFFFF {
		return 0, errorf(p.lineNo, ".ORG out of range: %s", p.operands[0])
	}
	return uint32(target), nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" {
			return p, errorf(lineNo, "invalid label")
		}

		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, errorf(lineNo, "invalid label '%s'", beforeColon)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "[", " ", "]", " ")
	return replacer.Replace(line)
}

func parseRegister(token string, lineNo int) (uint16, error) {
	t := strings.ToUpper(token)
	if len(t) == 2 && t[0] == 'R' && t[1] >= '0' && t[1] <= '7' {
		return uint16(t[1] - '0'), nil
	}
	return 0, errorf(lineNo, "invalid register '%s'", token)
}

// parseImmediate accepts unsigned and negative numbers in any Go integer
// base, or a label.
func (a *Assembler) parseImmediate(token string, lineNo int) (uint16, error) {
	if value, err := strconv.ParseInt(token, 0, 32); err == nil {
		if value > 0xFFFF || value < -0x8000 {
			return 0, errorf(lineNo, "immediate out of range: %s", token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[token]; ok {
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, errorf(lineNo, "undefined label '%s'", token)
	}

	return 0, errorf(lineNo, "invalid immediate '%s'", token)
}

// instructionLength returns the byte length of an instruction.
// All instructions are 2 bytes; instructions with an immediate are 4 bytes.
func instructionLength(mnemonic string) (uint16, bool) {
	mnemonic = strings.ToUpper(mnemonic)

	if mnemonic == ".WORD" {
		return 2, true
	}
	if _, ok := zeroOperandOps[mnemonic]; ok {
		return 2, true
	}
	if _, ok := oneRegisterOps[mnemonic]; ok {
		return 2, true
	}
	if _, ok := twoRegisterOps[mnemonic]; ok {
		return 2, true
	}
	if _, ok := regAndImmediateOps[mnemonic]; ok {
		return 4, true
	}
	if _, ok := immediateOnlyOps[mnemonic]; ok {
		return 4, true
	}
	return 0, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
