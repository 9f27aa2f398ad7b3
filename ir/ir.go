// Package ir is a small, arena-allocated intermediate representation of a
// single function's control-flow graph, shaped after the unoptimized output
// of a C compiler: every local variable lives in an allocation, reads and
// writes go through explicit loads and stores, and declarations carry their
// source name and line the way debug metadata does.
//
// Values are addressed by stable integer indices (ValueID) into the arena
// owned by their Function, so analyses can keep sets of visited values as
// plain integer sets.
//
// Frontends lower real programs into this form: see package ssair for Go
// (via golang.org/x/tools/go/ssa) and package cir for C (via tree-sitter).
package ir

import (
	"errors"
	"fmt"
)

// ValueID identifies a value within its Function's arena.
type ValueID int

// BlockID identifies a basic block within its Function.
type BlockID int

const (
	// NoValue is the ValueID of a missing value.
	NoValue ValueID = -1

	// NoBlock is the BlockID of a missing block.
	NoBlock BlockID = -1

	// NoLine marks a value without a known source line.
	NoLine = -1
)

// Kind discriminates values. Kinds before KindAlloc are not instructions.
type Kind uint8

const (
	// KindConst is a literal constant; Op holds its text.
	KindConst Kind = iota
	// KindParam is a function parameter or captured free variable.
	KindParam
	// KindGlobal is a global variable, function reference or unknown
	// identifier.
	KindGlobal

	// KindAlloc reserves storage for a variable and yields its address.
	KindAlloc
	// KindLoad reads from the address in Operands[0].
	KindLoad
	// KindStore writes Operands[0] to the address in Operands[1].
	KindStore
	// KindCall calls Callee with Operands as arguments.
	KindCall
	// KindBranch transfers control to Succs, on Operands[0] when conditional.
	KindBranch
	// KindReturn leaves the function with Operands as results.
	KindReturn
	// KindDeclare binds the address in Operands[0] to the source variable
	// Var declared at Line.
	KindDeclare
	// KindOther is any other instruction (arithmetic, comparison, casts,
	// address arithmetic, phi nodes...); Op names the operation.
	KindOther
)

var kindNames = [...]string{
	KindConst:   "const",
	KindParam:   "param",
	KindGlobal:  "global",
	KindAlloc:   "alloca",
	KindLoad:    "load",
	KindStore:   "store",
	KindCall:    "call",
	KindBranch:  "br",
	KindReturn:  "ret",
	KindDeclare: "declare",
	KindOther:   "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsInstruction reports whether values of this kind live in a block.
func (k Kind) IsInstruction() bool {
	return k >= KindAlloc
}

// Value is a node of the value graph. Instructions are values too, whether
// or not they produce a result.
type Value struct {
	ID   ValueID
	Kind Kind

	// Op is the operation of a KindOther instruction, or the literal text
	// of a KindConst.
	Op string

	// Name is a register or symbol name used for printing.
	Name string

	// Operands are the used values, in operand order.
	Operands []ValueID

	// Callee is the resolved name of a called function, or "" when the
	// call is indirect.
	Callee string

	// Void is set on calls without a result.
	Void bool

	// Succs are the successor blocks of a branch.
	Succs []BlockID

	// Var is the declared source variable of a KindDeclare.
	Var string

	// Line is the source line, or NoLine.
	Line int

	// Block is the enclosing block of an instruction, or NoBlock.
	Block BlockID
}

// IsInstruction reports whether v is an instruction.
func (v *Value) IsInstruction() bool {
	return v != nil && v.Kind.IsInstruction()
}

// Addr returns the address operand of a load, store or declaration.
func (v *Value) Addr() ValueID {
	switch v.Kind {
	case KindLoad, KindDeclare:
		if len(v.Operands) > 0 {
			return v.Operands[0]
		}
	case KindStore:
		if len(v.Operands) > 1 {
			return v.Operands[1]
		}
	}
	return NoValue
}

// Stored returns the value written by a store.
func (v *Value) Stored() ValueID {
	if v.Kind == KindStore && len(v.Operands) > 0 {
		return v.Operands[0]
	}
	return NoValue
}

// Args returns the arguments of a call.
func (v *Value) Args() []ValueID {
	if v.Kind != KindCall {
		return nil
	}
	return v.Operands
}

// IsConditional reports whether v is a two-way conditional branch.
func (v *Value) IsConditional() bool {
	return v.Kind == KindBranch && len(v.Operands) == 1 && len(v.Succs) == 2
}

// Cond returns the condition of a conditional branch.
func (v *Value) Cond() ValueID {
	if !v.IsConditional() {
		return NoValue
	}
	return v.Operands[0]
}

// Block is a basic block: an ordered list of instructions with a single
// entry, ending in a branch or a return.
type Block struct {
	ID     BlockID
	Name   string
	Instrs []ValueID
	Preds  []BlockID
	Succs  []BlockID

	fn *Function
}

// Parent returns the function the block belongs to.
func (b *Block) Parent() *Function {
	return b.fn
}

// Terminated reports whether the block already ends in a branch or return.
func (b *Block) Terminated() bool {
	if len(b.Instrs) == 0 {
		return false
	}
	last := b.fn.values[b.Instrs[len(b.Instrs)-1]]
	return last.Kind == KindBranch || last.Kind == KindReturn
}

// Emit appends the instruction v to the block and returns its ID. Branch
// successors are linked into the CFG.
func (b *Block) Emit(v *Value) ValueID {
	v.Block = b.ID
	id := b.fn.add(v)
	b.Instrs = append(b.Instrs, id)
	if v.Kind == KindBranch {
		for _, s := range v.Succs {
			b.Succs = append(b.Succs, s)
			if succ := b.fn.Block(s); succ != nil {
				succ.Preds = append(succ.Preds, b.ID)
			}
		}
	}
	return id
}

// Alloc emits storage for a variable.
func (b *Block) Alloc(name string, line int) ValueID {
	return b.Emit(&Value{Kind: KindAlloc, Name: name, Line: line, Void: false})
}

// Declare binds addr to the source variable name declared at line.
func (b *Block) Declare(addr ValueID, name string, line int) ValueID {
	return b.Emit(&Value{Kind: KindDeclare, Operands: []ValueID{addr}, Var: name, Line: line, Void: true})
}

// Load emits a read of addr.
func (b *Block) Load(addr ValueID) ValueID {
	return b.Emit(&Value{Kind: KindLoad, Operands: []ValueID{addr}, Line: NoLine})
}

// Store emits a write of val to addr.
func (b *Block) Store(val, addr ValueID) ValueID {
	return b.Emit(&Value{Kind: KindStore, Operands: []ValueID{val, addr}, Void: true, Line: NoLine})
}

// Call emits a call of callee; pass "" for an indirect call.
func (b *Block) Call(callee string, void bool, args ...ValueID) ValueID {
	return b.Emit(&Value{Kind: KindCall, Callee: callee, Void: void, Operands: args, Line: NoLine})
}

// Op emits any other instruction.
func (b *Block) Op(op string, operands ...ValueID) ValueID {
	return b.Emit(&Value{Kind: KindOther, Op: op, Operands: operands, Line: NoLine})
}

// If emits a conditional branch on cond.
func (b *Block) If(cond ValueID, then, els *Block) ValueID {
	return b.Emit(&Value{Kind: KindBranch, Operands: []ValueID{cond}, Succs: []BlockID{then.ID, els.ID}, Void: true, Line: NoLine})
}

// Jump emits an unconditional branch to to.
func (b *Block) Jump(to *Block) ValueID {
	return b.Emit(&Value{Kind: KindBranch, Succs: []BlockID{to.ID}, Void: true, Line: NoLine})
}

// Return emits a return of results.
func (b *Block) Return(results ...ValueID) ValueID {
	return b.Emit(&Value{Kind: KindReturn, Operands: results, Void: true, Line: NoLine})
}

// Function owns the value arena and the blocks of one function.
type Function struct {
	Name   string
	File   string
	Line   int
	Blocks []*Block

	values []*Value
}

// NewFunction returns an empty function named name.
func NewFunction(name string) *Function {
	return &Function{Name: name, Line: NoLine}
}

func (f *Function) add(v *Value) ValueID {
	v.ID = ValueID(len(f.values))
	if !v.Kind.IsInstruction() {
		v.Block = NoBlock
	}
	f.values = append(f.values, v)
	return v.ID
}

// Len returns the number of values in the arena.
func (f *Function) Len() int {
	return len(f.values)
}

// Valid reports whether id names a value of f.
func (f *Function) Valid(id ValueID) bool {
	return f != nil && id >= 0 && int(id) < len(f.values)
}

// Value returns the value with the given id, or nil.
func (f *Function) Value(id ValueID) *Value {
	if !f.Valid(id) {
		return nil
	}
	return f.values[id]
}

// Const adds a constant with the given literal text.
func (f *Function) Const(text string) ValueID {
	return f.add(&Value{Kind: KindConst, Op: text, Line: NoLine})
}

// Param adds a parameter.
func (f *Function) Param(name string) ValueID {
	return f.add(&Value{Kind: KindParam, Name: name, Line: NoLine})
}

// Global adds a reference to a global symbol.
func (f *Function) Global(name string) ValueID {
	return f.add(&Value{Kind: KindGlobal, Name: name, Line: NoLine})
}

// NewBlock appends a new, empty block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{ID: BlockID(len(f.Blocks)), Name: name, fn: f}
	if b.Name == "" {
		b.Name = fmt.Sprintf("b%d", b.ID)
	}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// Entry returns the entry block, or nil for a function without a body.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Instrs calls visit for every instruction, in block order then
// instruction order, until visit returns false.
func (f *Function) Instrs(visit func(b *Block, v *Value) bool) {
	for _, b := range f.Blocks {
		for _, id := range b.Instrs {
			if !visit(b, f.values[id]) {
				return
			}
		}
	}
}

// Validate checks that every operand and successor refers to something
// that exists.
func (f *Function) Validate() error {
	var errs []error
	for _, v := range f.values {
		for i, op := range v.Operands {
			if !f.Valid(op) {
				errs = append(errs, fmt.Errorf("%s: value %d operand %d: unknown value %d", f.Name, v.ID, i, op))
			}
		}
		for _, s := range v.Succs {
			if f.Block(s) == nil {
				errs = append(errs, fmt.Errorf("%s: value %d: unknown successor block %d", f.Name, v.ID, s))
			}
		}
	}
	return errors.Join(errs...)
}

// Program is an ordered collection of functions.
type Program struct {
	Functions []*Function
}

// Add appends fn to the program.
func (p *Program) Add(fn *Function) {
	p.Functions = append(p.Functions, fn)
}

// Lookup returns the first function named name, or nil.
func (p *Program) Lookup(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
