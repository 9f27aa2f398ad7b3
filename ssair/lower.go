package ssair

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/picatz/seminal/ir"
)

// syntheticAllocs are Alloc comments that name builder temporaries rather
// than source variables.
var syntheticAllocs = map[string]bool{
	"complit":    true,
	"makeslice":  true,
	"new":        true,
	"rangeindex": true,
	"slicelit":   true,
	"varargs":    true,
}

// pending is an emitted instruction whose operands are filled in once every
// instruction of the function has an ID.
type pending struct {
	instr ssa.Instruction
	id    ir.ValueID
}

type lowerer struct {
	fn   *ir.Function
	fset *token.FileSet

	values map[ssa.Value]ir.ValueID
	names  map[*ssa.Alloc]types.Object
	todo   []pending
}

// Lower lowers the body of fn. Every Alloc of a source variable is followed
// by a declaration carrying the variable's name and line; loads become
// KindLoad and calls keep the name of their static callee.
func Lower(fn *ssa.Function) (*ir.Function, error) {
	if fn == nil {
		return nil, fmt.Errorf("lower: nil function")
	}
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("lower %s: function has no body", fn)
	}

	l := &lowerer{
		fn:     ir.NewFunction(fn.String()),
		values: make(map[ssa.Value]ir.ValueID),
		names:  make(map[*ssa.Alloc]types.Object),
	}
	if fn.Prog != nil {
		l.fset = fn.Prog.Fset
	}
	if pos := l.position(fn.Pos()); pos.IsValid() {
		l.fn.File = pos.Filename
		l.fn.Line = pos.Line
	}

	for _, p := range fn.Params {
		l.values[p] = l.fn.Param(p.Name())
	}
	for _, fv := range fn.FreeVars {
		l.values[fv] = l.fn.Param(fv.Name())
	}

	for _, b := range fn.Blocks {
		l.fn.NewBlock(blockName(b))
		for _, instr := range b.Instrs {
			if ref, ok := instr.(*ssa.DebugRef); ok && ref.IsAddr {
				if a, ok := ref.X.(*ssa.Alloc); ok && ref.Object() != nil {
					if _, seen := l.names[a]; !seen {
						l.names[a] = ref.Object()
					}
				}
			}
		}
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			l.emit(l.fn.Block(ir.BlockID(b.Index)), instr)
		}
	}

	for _, p := range l.todo {
		l.fn.Value(p.id).Operands = l.operands(p.instr)
	}

	if err := l.fn.Validate(); err != nil {
		return nil, fmt.Errorf("lower %s: %w", fn, err)
	}

	return l.fn, nil
}

// Program lowers every function in fns that has a body.
func Program(fns []*ssa.Function) (*ir.Program, error) {
	prog := &ir.Program{}
	for _, fn := range fns {
		if fn == nil || len(fn.Blocks) == 0 {
			continue
		}
		lowered, err := Lower(fn)
		if err != nil {
			return nil, err
		}
		prog.Add(lowered)
	}
	return prog, nil
}

func blockName(b *ssa.BasicBlock) string {
	if b.Comment == "" {
		return fmt.Sprintf("b%d", b.Index)
	}
	return fmt.Sprintf("%d.%s", b.Index, b.Comment)
}

func (l *lowerer) position(pos token.Pos) token.Position {
	if l.fset == nil || !pos.IsValid() {
		return token.Position{}
	}
	return l.fset.Position(pos)
}

func (l *lowerer) line(pos token.Pos) int {
	if p := l.position(pos); p.IsValid() && p.Line > 0 {
		return p.Line
	}
	return ir.NoLine
}

// local returns the source variable stored in a, if any.
func (l *lowerer) local(a *ssa.Alloc) (string, int) {
	if obj, ok := l.names[a]; ok {
		return obj.Name(), l.line(obj.Pos())
	}
	if token.IsIdentifier(a.Comment) && a.Comment != "_" && !syntheticAllocs[a.Comment] {
		return a.Comment, l.line(a.Pos())
	}
	return "", ir.NoLine
}

// emit appends a placeholder for instr to b.
func (l *lowerer) emit(b *ir.Block, instr ssa.Instruction) {
	line := l.line(instr.Pos())

	var v *ir.Value
	switch instr := instr.(type) {
	case *ssa.DebugRef:
		return
	case *ssa.Extract:
		if _, ok := instr.Tuple.(*ssa.Call); ok && instr.Index == 0 {
			return
		}
		v = &ir.Value{Kind: ir.KindOther, Op: fmt.Sprintf("extract#%d", instr.Index)}
	case *ssa.Alloc:
		name, declLine := l.local(instr)
		id := b.Alloc(name, declLine)
		l.values[instr] = id
		if name != "" {
			b.Declare(id, name, declLine)
		}
		return
	case *ssa.UnOp:
		if instr.Op == token.MUL {
			v = &ir.Value{Kind: ir.KindLoad}
		} else {
			v = &ir.Value{Kind: ir.KindOther, Op: instr.Op.String()}
		}
	case *ssa.Store:
		v = &ir.Value{Kind: ir.KindStore, Void: true}
	case *ssa.Call:
		v = &ir.Value{
			Kind:   ir.KindCall,
			Callee: callee(&instr.Call),
			Void:   instr.Call.Signature().Results().Len() == 0,
		}
	case *ssa.Go:
		v = &ir.Value{Kind: ir.KindCall, Op: "go", Callee: callee(&instr.Call), Void: true}
	case *ssa.Defer:
		v = &ir.Value{Kind: ir.KindCall, Op: "defer", Callee: callee(&instr.Call), Void: true}
	case *ssa.If:
		v = &ir.Value{Kind: ir.KindBranch, Void: true, Succs: succs(instr.Block())}
	case *ssa.Jump:
		v = &ir.Value{Kind: ir.KindBranch, Void: true, Succs: succs(instr.Block())}
	case *ssa.Return:
		v = &ir.Value{Kind: ir.KindReturn, Void: true}
	default:
		v = &ir.Value{Kind: ir.KindOther, Op: opName(instr)}
		if _, ok := instr.(ssa.Value); !ok {
			v.Void = true
		}
	}

	v.Line = line
	id := b.Emit(v)
	if val, ok := instr.(ssa.Value); ok {
		l.values[val] = id
	}
	l.todo = append(l.todo, pending{instr: instr, id: id})
}

func succs(b *ssa.BasicBlock) []ir.BlockID {
	ids := make([]ir.BlockID, len(b.Succs))
	for i, s := range b.Succs {
		ids[i] = ir.BlockID(s.Index)
	}
	return ids
}

// callee names the function called by c, or returns "" when it is only
// known at run time.
func callee(c *ssa.CallCommon) string {
	if c.IsInvoke() {
		return c.Method.FullName()
	}
	if fn := c.StaticCallee(); fn != nil {
		return fn.String()
	}
	if b, ok := c.Value.(*ssa.Builtin); ok {
		return b.Name()
	}
	return ""
}

// opName names any other instruction by its operator, or else by its type,
// such as fieldaddr or phi.
func opName(instr ssa.Instruction) string {
	if b, ok := instr.(*ssa.BinOp); ok {
		return b.Op.String()
	}
	name := fmt.Sprintf("%T", instr)
	name = strings.TrimPrefix(name, "*ssa.")
	return strings.ToLower(name)
}

// operands maps the operands of instr to IDs.
func (l *lowerer) operands(instr ssa.Instruction) []ir.ValueID {
	switch instr := instr.(type) {
	case *ssa.UnOp:
		return []ir.ValueID{l.valueOf(instr.X)}
	case *ssa.Store:
		return []ir.ValueID{l.valueOf(instr.Val), l.valueOf(instr.Addr)}
	case *ssa.Call:
		return l.args(&instr.Call)
	case *ssa.Go:
		return l.args(&instr.Call)
	case *ssa.Defer:
		return l.args(&instr.Call)
	case *ssa.If:
		return []ir.ValueID{l.valueOf(instr.Cond)}
	case *ssa.Jump:
		return nil
	case *ssa.Return:
		ids := make([]ir.ValueID, 0, len(instr.Results))
		for _, r := range instr.Results {
			ids = append(ids, l.valueOf(r))
		}
		return ids
	}

	var ids []ir.ValueID
	for _, opr := range instr.Operands(nil) {
		if opr == nil || *opr == nil {
			continue
		}
		ids = append(ids, l.valueOf(*opr))
	}
	return ids
}

// args maps the arguments of a call, receiver first for interface method
// calls. A variadic slice built by the call site is replaced by the values
// stored into it.
func (l *lowerer) args(c *ssa.CallCommon) []ir.ValueID {
	var ids []ir.ValueID
	if c.IsInvoke() {
		ids = append(ids, l.valueOf(c.Value))
	}
	for _, arg := range c.Args {
		if elems, ok := varargs(arg); ok {
			for _, e := range elems {
				ids = append(ids, l.valueOf(e))
			}
			continue
		}
		ids = append(ids, l.valueOf(arg))
	}
	return ids
}

// varargs returns the elements stored into the implicit array of a variadic
// call, in store order, with interface conversions removed.
func varargs(v ssa.Value) ([]ssa.Value, bool) {
	s, ok := v.(*ssa.Slice)
	if !ok {
		return nil, false
	}
	a, ok := s.X.(*ssa.Alloc)
	if !ok || a.Comment != "varargs" || a.Referrers() == nil {
		return nil, false
	}

	var elems []ssa.Value
	for _, ref := range *a.Referrers() {
		idx, ok := ref.(*ssa.IndexAddr)
		if !ok || idx.Referrers() == nil {
			continue
		}
		for _, use := range *idx.Referrers() {
			st, ok := use.(*ssa.Store)
			if !ok || st.Addr != idx {
				continue
			}
			elems = append(elems, peelInterface(st.Val))
		}
	}
	return elems, true
}

func peelInterface(v ssa.Value) ssa.Value {
	for {
		switch x := v.(type) {
		case *ssa.MakeInterface:
			v = x.X
		case *ssa.ChangeInterface:
			v = x.X
		default:
			return v
		}
	}
}

// valueOf returns the ID of v, adding constants, globals and functions to
// the arena on first use.
func (l *lowerer) valueOf(v ssa.Value) ir.ValueID {
	if id, ok := l.values[v]; ok {
		return id
	}

	var id ir.ValueID
	switch v := v.(type) {
	case *ssa.Extract:
		// Extract #0 of a call stands for the call itself.
		id = l.valueOf(v.Tuple)
	case *ssa.Const:
		id = l.fn.Const(v.Name())
	case *ssa.Global:
		id = l.fn.Global(v.String())
	case *ssa.Function:
		id = l.fn.Global(v.String())
	case *ssa.Builtin:
		id = l.fn.Global(v.Name())
	case *ssa.Parameter, *ssa.FreeVar:
		id = l.fn.Param(v.Name())
	default:
		id = l.fn.Global(v.Name())
	}

	l.values[v] = id
	return id
}
