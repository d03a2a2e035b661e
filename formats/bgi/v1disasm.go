package bgi

import (
	"bytes"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/encoding"
	"github.com/dsnet/vnscript/internal/errs"
	"github.com/dsnet/vnscript/script"
)

var v1Magic = []byte("BurikoCompiledScriptVer1.00\x00")

// instArg names one decoded operand shape in a BGI V1 instruction template.
type instArg int

const (
	argShort       instArg = iota // i16, discarded
	argInt                        // i32, discarded
	argCodeAddress                // u32 code offset; tracked for the loop end heuristic
	argMessage                    // u32 string offset, recorded with RoleMessage
	argInlineStr                  // an inline cstring in the instruction stream itself
	argName                       // u32 string offset, recorded with RoleName
)

// v1Insts is the fixed-arity instruction table for opcodes whose operand
// shape never depends on runtime stack state. Opcodes not listed here (and
// not one of the stack-driven opcodes handled specially in Disassemble)
// have no operands.
var v1Insts = map[uint32][]instArg{
	0x0000: {argInt},
	0x0001: {argCodeAddress},
	0x0002: {argInt},
	0x0008: {argInt},
	0x0009: {argInt},
	0x000a: {argInt},
	0x0017: {argInt},
	0x0019: {argInt},
	0x003f: {argInt},
	0x007b: {argInt, argInt, argInt},
	0x007e: {argInt},
	0x007f: {argInt, argInt},
}

type v1StackItem struct {
	offset int64
	value  int64
}

// BGIString is one string reference discovered by the V1 disassembler: the
// operand's own offset in the bytecode stream, and the address (relative
// to the bytecode body's start) of the cstring it points at.
type BGIString struct {
	Offset  int64
	Address int64
	Role    script.StringRefRole
}

// V1Disassembler walks a BGI V1 ("BurikoCompiledScriptVer1.00") bytecode
// stream, tracking a small value stack to recognize string-producing
// opcodes (message/name pushes, user function calls, choice-screen
// builds) the way the interpreter itself would, rather than via a static
// opcode table alone.
type V1Disassembler struct {
	r               *binio.Reader
	largestCodeAddr int64
	stacks          []v1StackItem
	enc             encoding.Encoding
	offset          int64
	Strings         []BGIString
}

// NewV1Disassembler validates the header and seeks to the bytecode body,
// whose start is a 32-bit offset relative to byte 28.
func NewV1Disassembler(buf []byte, enc encoding.Encoding) (*V1Disassembler, error) {
	if !bytes.HasPrefix(buf, v1Magic) {
		return nil, errs.New(errs.InvalidMagic, "missing BurikoCompiledScriptVer1.00 magic")
	}
	if len(buf) < 32 {
		return nil, errs.New(errs.Truncated, "BGI V1 script header too small")
	}
	r := binio.NewReader(buf)
	rel, err := r.PeekU32LEAt(28)
	if err != nil {
		return nil, err
	}
	offset := int64(28) + int64(rel)
	if err := r.Seek(offset); err != nil {
		return nil, err
	}
	return &V1Disassembler{r: r, enc: enc, offset: offset}, nil
}

func (d *V1Disassembler) readCodeAddress() error {
	v, err := d.r.ReadU32LE()
	if err != nil {
		return err
	}
	if int64(v) > d.largestCodeAddr {
		d.largestCodeAddr = int64(v)
	}
	return nil
}

func (d *V1Disassembler) readStringAddress(role script.StringRefRole) error {
	offset := d.r.Pos()
	v, err := d.r.ReadU32LE()
	if err != nil {
		return err
	}
	d.Strings = append(d.Strings, BGIString{Offset: offset, Address: int64(v), Role: role})
	return nil
}

func (d *V1Disassembler) skipInlineString() error {
	_, err := d.r.ReadCString()
	return err
}

func (d *V1Disassembler) readOpers(tmpl []instArg) error {
	for _, arg := range tmpl {
		var err error
		switch arg {
		case argShort:
			_, err = d.r.ReadI16LE()
		case argInt:
			_, err = d.r.ReadI32LE()
		case argCodeAddress:
			err = d.readCodeAddress()
		case argMessage:
			err = d.readStringAddress(script.RoleMessage)
		case argInlineStr:
			err = d.skipInlineString()
		case argName:
			err = d.readStringAddress(script.RoleName)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *V1Disassembler) readPushStringAddressOperand() error {
	offset := d.r.Pos()
	v, err := d.r.ReadU32LE()
	if err != nil {
		return err
	}
	d.stacks = append(d.stacks, v1StackItem{offset: offset, value: int64(v)})
	return nil
}

func (d *V1Disassembler) isEmptyString(address int64) (bool, error) {
	b, err := d.r.PeekU8At(d.offset + address)
	if err != nil {
		return false, err
	}
	return b == 0, nil
}

func (d *V1Disassembler) readStringAtAddress(address int64) (string, error) {
	raw, err := d.r.PeekCStringAt(d.offset + address)
	if err != nil {
		return "", err
	}
	// Disassembled text occasionally contains private-use-area characters
	// the script's authoring tool injected; decode loosely rather than
	// failing the whole file over it.
	return encoding.Decode(d.enc, raw, false)
}

func (d *V1Disassembler) popStack() (v1StackItem, bool) {
	if len(d.stacks) == 0 {
		return v1StackItem{}, false
	}
	item := d.stacks[len(d.stacks)-1]
	d.stacks = d.stacks[:len(d.stacks)-1]
	return item, true
}

func (d *V1Disassembler) handleUserFunctionCall() error {
	item, ok := d.popStack()
	if !ok {
		return nil
	}
	d.Strings = append(d.Strings, BGIString{Offset: item.offset, Address: item.value, Role: script.RoleInternal})
	name, err := d.readStringAtAddress(item.value)
	if err != nil {
		return err
	}
	if name == "_SelectEx" || name == "_SelectExtend" {
		return d.handleChoiceScreen()
	}
	return nil
}

func (d *V1Disassembler) handleMessage() error {
	item, ok := d.popStack()
	if !ok {
		return errs.New(errs.Truncated, "BGI V1 message opcode with empty stack")
	}
	if speaker, ok := d.popStack(); ok {
		empty, err := d.isEmptyString(speaker.value)
		if err != nil {
			return err
		}
		role := script.RoleName
		if empty {
			role = script.RoleInternal
		}
		d.Strings = append(d.Strings, BGIString{Offset: speaker.offset, Address: speaker.value, Role: role})
	}
	empty, err := d.isEmptyString(item.value)
	if err != nil {
		return err
	}
	role := script.RoleMessage
	if empty {
		role = script.RoleInternal
	}
	d.Strings = append(d.Strings, BGIString{Offset: item.offset, Address: item.value, Role: role})
	return nil
}

func (d *V1Disassembler) handleChoiceScreen() error {
	var choices []v1StackItem
	for {
		item, ok := d.popStack()
		if !ok {
			break
		}
		choices = append([]v1StackItem{item}, choices...)
	}
	for _, c := range choices {
		d.Strings = append(d.Strings, BGIString{Offset: c.offset, Address: c.value, Role: script.RoleMessage})
	}
	return nil
}

func (d *V1Disassembler) outputInternalStrings() {
	for {
		item, ok := d.popStack()
		if !ok {
			return
		}
		d.Strings = append(d.Strings, BGIString{Offset: item.offset, Address: item.value, Role: script.RoleInternal})
	}
}

// Disassemble walks the bytecode stream to completion, populating Strings
// in encounter order. The loop ends once a terminating opcode (0x001b or
// 0x00f4) is reached whose position is past every code address operand
// seen so far, a "have we read past every branch target" test for the true
// end of the instruction stream.
func (d *V1Disassembler) Disassemble() error {
	for {
		opcode, err := d.r.ReadU32LE()
		if err != nil {
			return err
		}
		switch {
		case opcode == 0x0003:
			err = d.readPushStringAddressOperand()
		case opcode == 0x001c:
			err = d.handleUserFunctionCall()
		case opcode == 0x0140 || opcode == 0x0143:
			err = d.handleMessage()
		case opcode == 0x0160:
			err = d.handleChoiceScreen()
		default:
			if tmpl, ok := v1Insts[opcode]; ok {
				err = d.readOpers(tmpl)
			}
		}
		if err != nil {
			return err
		}
		if (opcode == 0x001b || opcode == 0x00f4) && d.largestCodeAddr < d.r.Pos()-d.offset {
			break
		}
		if opcode == 0x007e || opcode == 0x007f || opcode == 0x00fe {
			d.outputInternalStrings()
		}
	}
	d.outputInternalStrings()
	return nil
}
