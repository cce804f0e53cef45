// Package cpu emulates the GoCPU 16-bit machine that SIL programs run on.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	OpHLT  uint16 = 0x00
	OpNOP  uint16 = 0x01
	OpLDI  uint16 = 0x02
	OpMOV  uint16 = 0x03
	OpLD   uint16 = 0x04
	OpST   uint16 = 0x05
	OpADD  uint16 = 0x06
	OpSUB  uint16 = 0x07
	OpAND  uint16 = 0x08
	OpOR   uint16 = 0x09
	OpXOR  uint16 = 0x0A
	OpNOT  uint16 = 0x0B
	OpSHL  uint16 = 0x0C
	OpSHR  uint16 = 0x0D
	OpJMP  uint16 = 0x0E
	OpJZ   uint16 = 0x0F
	OpJNZ  uint16 = 0x10
	OpJN   uint16 = 0x11
	OpPUSH uint16 = 0x12
	OpPOP  uint16 = 0x13
	OpCALL uint16 = 0x14
	OpRET  uint16 = 0x15
	OpLDSP uint16 = 0x1A
	OpSTSP uint16 = 0x1B
	OpMUL  uint16 = 0x1C
	OpDIV  uint16 = 0x1D
	OpLDB  uint16 = 0x20
	OpSTB  uint16 = 0x21
	OpIDIV uint16 = 0x22
	OpJC   uint16 = 0x23
	OpJNC  uint16 = 0x24
)

const (
	RegA uint16 = 0
	RegB uint16 = 1
	RegC uint16 = 2
	RegD uint16 = 3
)

// Memory map. Everything from MMIOBase up is I/O; the stack starts just
// below it and grows down towards the program image.
const (
	MMIOBase uint16 = 0xFF00
	PortChar uint16 = 0xFF00 // write: one character
	PortInt  uint16 = 0xFF01 // write: signed decimal integer
	StackTop uint16 = MMIOBase
)

var (
	// ErrStepLimit is returned by Run when the step budget is exhausted
	// before the program halts.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrStackOverflow is returned when the stack grows into the program image.
	ErrStackOverflow = errors.New("stack overflow")
	// ErrStackUnderflow is returned when a POP or RET reads above StackTop.
	ErrStackUnderflow = errors.New("stack underflow")
	// ErrIllegalInstruction is returned for an undefined opcode.
	ErrIllegalInstruction = errors.New("illegal instruction")
)

type CPU struct {
	Regs [8]uint16

	PC uint16
	SP uint16

	Z bool
	N bool
	C bool

	Halted bool

	Memory [65536]byte

	// StackLimit is the lowest address the stack may occupy. Load sets it
	// to the end of the program image.
	StackLimit uint16

	// Steps counts executed instructions.
	Steps uint64

	// Output is where MMIO writes (0xFF00, 0xFF01) are sent.
	// If nil, os.Stdout is used.
	Output io.Writer
}

// NewCPU creates a machine with an empty memory and the stack pointer at StackTop.
func NewCPU() *CPU {
	return &CPU{SP: StackTop}
}

// Load copies program to address 0 and resets the registers.
func (c *CPU) Load(program []byte) error {
	if len(program) >= int(MMIOBase) {
		return fmt.Errorf("program of %d bytes overlaps I/O space at 0x%04X", len(program), MMIOBase)
	}
	copy(c.Memory[:], program)
	c.Regs = [8]uint16{}
	c.PC = 0
	c.SP = StackTop
	c.Z, c.N, c.C = false, false, false
	c.Halted = false
	c.Steps = 0
	c.StackLimit = uint16(len(program))
	return nil
}

func (c *CPU) outputSink() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stdout
}

func (c *CPU) reg(idx uint16) *uint16 {
	return &c.Regs[idx&0x07]
}

func (c *CPU) updateFlags(result uint16) {
	c.Z = result == 0
	c.N = (result & 0x8000) != 0
}

// Read16 reads a little-endian uint16 from addr and addr+1.
// I/O ports read as zero.
func (c *CPU) Read16(addr uint16) uint16 {
	if addr >= MMIOBase {
		return 0
	}
	lo := uint16(c.Memory[addr])
	hi := uint16(c.Memory[addr+1])
	return lo | (hi << 8)
}

// Write16 writes a little-endian uint16 to addr and addr+1.
// Writes at or above MMIOBase go to the I/O ports instead.
func (c *CPU) Write16(addr uint16, val uint16) {
	if addr >= MMIOBase {
		c.handleMMIOWrite16(addr, val)
		return
	}
	c.Memory[addr] = byte(val & 0xFF)
	c.Memory[addr+1] = byte(val >> 8)
}

func (c *CPU) handleMMIOWrite16(addr uint16, val uint16) {
	switch addr {
	case PortChar:
		fmt.Fprintf(c.outputSink(), "%c", rune(val))
	case PortInt:
		fmt.Fprintf(c.outputSink(), "%d", int16(val))
	}
}

func (c *CPU) push(val uint16) error {
	if c.SP < c.StackLimit+2 {
		return fmt.Errorf("%w: SP=0x%04X PC=0x%04X", ErrStackOverflow, c.SP, c.PC)
	}
	c.SP -= 2
	c.Write16(c.SP, val)
	return nil
}

func (c *CPU) pop() (uint16, error) {
	if c.SP > StackTop-2 {
		return 0, fmt.Errorf("%w: SP=0x%04X PC=0x%04X", ErrStackUnderflow, c.SP, c.PC)
	}
	val := c.Read16(c.SP)
	c.SP += 2
	return val, nil
}

// fetch reads the immediate word following the current instruction.
func (c *CPU) fetch() uint16 {
	imm := c.Read16(c.PC)
	c.PC += 2
	return imm
}

// Step executes one instruction. It is a no-op once the machine has halted.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}

	pc := c.PC
	instr := c.Read16(c.PC)
	c.PC += 2
	c.Steps++

	opcode := (instr >> 10) & 0x3F
	regA := (instr >> 7) & 0x07
	regB := (instr >> 4) & 0x07

	switch opcode {
	case OpHLT:
		c.Halted = true

	case OpNOP:
		// No operation.

	case OpLDI:
		*c.reg(regA) = c.fetch()

	case OpMOV:
		*c.reg(regA) = *c.reg(regB)

	case OpLD:
		*c.reg(regA) = c.Read16(*c.reg(regB))

	case OpST:
		c.Write16(*c.reg(regA), *c.reg(regB))

	case OpLDB:
		addr := *c.reg(regB)
		*c.reg(regA) = uint16(c.Memory[addr])

	case OpSTB:
		addr := *c.reg(regA)
		if addr >= MMIOBase {
			c.handleMMIOWrite16(addr, *c.reg(regB)&0xFF)
		} else {
			c.Memory[addr] = byte(*c.reg(regB))
		}

	case OpADD:
		valA := uint32(*c.reg(regA))
		valB := uint32(*c.reg(regB))
		res32 := valA + valB
		result := uint16(res32)
		c.C = res32 > 0xFFFF
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpSUB:
		valA := *c.reg(regA)
		valB := *c.reg(regB)
		result := valA - valB
		c.C = valA < valB
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpAND, OpOR, OpXOR, OpSHL, OpSHR, OpMUL:
		a, b := *c.reg(regA), *c.reg(regB)
		var result uint16
		switch opcode {
		case OpAND:
			result = a & b
		case OpOR:
			result = a | b
		case OpXOR:
			result = a ^ b
		case OpSHL:
			result = a << b
		case OpSHR:
			result = a >> b
		case OpMUL:
			result = a * b
		}
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpNOT:
		result := ^*c.reg(regA)
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpDIV:
		var result uint16
		if divisor := *c.reg(regB); divisor != 0 {
			result = *c.reg(regA) / divisor
		}
		*c.reg(regA) = result
		c.updateFlags(result)

	case OpIDIV:
		// Division by zero yields 0.
		var result int16
		if divisor := int16(*c.reg(regB)); divisor != 0 {
			result = int16(*c.reg(regA)) / divisor
		}
		*c.reg(regA) = uint16(result)
		c.updateFlags(uint16(result))

	case OpJMP, OpJZ, OpJNZ, OpJN, OpJC, OpJNC:
		target := c.fetch()
		var taken bool
		switch opcode {
		case OpJMP:
			taken = true
		case OpJZ:
			taken = c.Z
		case OpJNZ:
			taken = !c.Z
		case OpJN:
			taken = c.N
		case OpJC:
			taken = c.C
		case OpJNC:
			taken = !c.C
		}
		if taken {
			c.PC = target
		}

	case OpPUSH:
		return c.push(*c.reg(regA))

	case OpPOP:
		val, err := c.pop()
		if err != nil {
			return err
		}
		*c.reg(regA) = val

	case OpCALL:
		target := c.fetch()
		if err := c.push(c.PC); err != nil {
			return err
		}
		c.PC = target

	case OpRET:
		ret, err := c.pop()
		if err != nil {
			return err
		}
		c.PC = ret

	case OpLDSP:
		*c.reg(regA) = c.SP

	case OpSTSP:
		sp := *c.reg(regA)
		if sp < c.StackLimit {
			return fmt.Errorf("%w: SP=0x%04X PC=0x%04X", ErrStackOverflow, sp, pc)
		}
		c.SP = sp

	default:
		c.Halted = true
		return fmt.Errorf("%w 0x%02X at PC=0x%04X", ErrIllegalInstruction, opcode, pc)
	}
	return nil
}

// ctxCheckInterval is how many instructions Run executes between
// context checks.
const ctxCheckInterval = 1024

// Run executes until HLT, an execution error, cancellation of ctx, or
// maxSteps instructions (ErrStepLimit). maxSteps <= 0 means no limit.
func (c *CPU) Run(ctx context.Context, maxSteps int) error {
	for n := 0; !c.Halted; n++ {
		if maxSteps > 0 && n >= maxSteps {
			return fmt.Errorf("%w (%d steps) at PC=0x%04X", ErrStepLimit, maxSteps, c.PC)
		}
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

func EncodeInstruction(opcode, regA, regB, regC uint16) uint16 {
	return (opcode << 10) | ((regA & 0x07) << 7) | ((regB & 0x07) << 4) | ((regC & 0x07) << 1)
}
