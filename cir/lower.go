package cir

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/picatz/seminal/ir"
)

// binops maps C binary operators to the instruction clang emits for them
// on signed integers.
var binops = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "sdiv",
	"%":  "srem",
	"&":  "and",
	"|":  "or",
	"^":  "xor",
	"<<": "shl",
	">>": "ashr",
	"&&": "and",
	"||": "or",
	"==": "icmp eq",
	"!=": "icmp ne",
	"<":  "icmp slt",
	"<=": "icmp sle",
	">":  "icmp sgt",
	">=": "icmp sge",
}

type local struct {
	addr  ir.ValueID
	array bool
}

type jumpTarget struct {
	brk  *ir.Block
	cont *ir.Block
}

type builder struct {
	file *file
	fn   *ir.Function
	cur  *ir.Block

	scopes  []map[string]local
	globals map[string]ir.ValueID
	targets []jumpTarget
}

// lower lowers one function_definition node.
func (f *file) lower(def *sitter.Node) (*ir.Function, error) {
	name := f.functionName(def)
	if name == "" {
		return nil, fmt.Errorf("%s:%d: function definition without a name", f.name, line(def))
	}

	b := &builder{
		file:    f,
		fn:      ir.NewFunction(name),
		globals: make(map[string]ir.ValueID),
	}
	b.fn.File = f.name
	b.fn.Line = line(def)
	b.cur = b.fn.NewBlock("entry")

	b.push()
	b.params(def.ChildByFieldName("declarator"))
	if body := def.ChildByFieldName("body"); body != nil {
		b.block(body)
	}
	b.pop()

	if !b.cur.Terminated() {
		b.cur.Return()
	}

	if err := b.fn.Validate(); err != nil {
		return nil, fmt.Errorf("lower %s: %w", name, err)
	}
	return b.fn, nil
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.file.src)
}

func (b *builder) push() {
	b.scopes = append(b.scopes, make(map[string]local))
}

func (b *builder) pop() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *builder) lookup(name string) (local, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if l, ok := b.scopes[i][name]; ok {
			return l, true
		}
	}
	return local{}, false
}

func (b *builder) global(name string) ir.ValueID {
	if id, ok := b.globals[name]; ok {
		return id
	}
	id := b.fn.Global(name)
	b.globals[name] = id
	return id
}

// at records the source line of node on the instruction id.
func (b *builder) at(id ir.ValueID, node *sitter.Node) ir.ValueID {
	b.fn.Value(id).Line = line(node)
	return id
}

// reachable starts a fresh block when the current one has already been
// terminated, so statements after a return or break still have a home.
func (b *builder) reachable() {
	if b.cur.Terminated() {
		b.cur = b.fn.NewBlock("unreachable")
	}
}

// jump branches to to unless the current block is already terminated.
func (b *builder) jump(to *ir.Block) {
	if !b.cur.Terminated() {
		b.cur.Jump(to)
	}
}

// declare allocates and declares a local variable.
func (b *builder) declare(name string, array bool, node *sitter.Node) ir.ValueID {
	ln := line(node)
	addr := b.cur.Alloc(name, ln)
	b.cur.Declare(addr, name, ln)
	b.scopes[len(b.scopes)-1][name] = local{addr: addr, array: array}
	return addr
}

// params spills every named parameter to its own allocation.
func (b *builder) params(decl *sitter.Node) {
	for decl != nil && decl.Type() != "function_declarator" {
		if decl.Type() == "parenthesized_declarator" {
			decl = decl.NamedChild(0)
			continue
		}
		decl = decl.ChildByFieldName("declarator")
	}
	if decl == nil {
		return
	}
	list := decl.ChildByFieldName("parameters")
	if list == nil {
		return
	}

	type spill struct {
		param ir.ValueID
		addr  ir.ValueID
	}
	var spills []spill
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p.Type() != "parameter_declaration" {
			continue
		}
		name := declaratorName(p.ChildByFieldName("declarator"), b.file.src)
		if name == "" {
			continue
		}
		spills = append(spills, spill{
			param: b.fn.Param(name),
			addr:  b.declare(name, false, p),
		})
	}
	for _, s := range spills {
		b.cur.Store(s.param, s.addr)
	}
}

func (b *builder) block(n *sitter.Node) {
	b.push()
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.stmt(n.NamedChild(i))
	}
	b.pop()
}

func (b *builder) stmt(n *sitter.Node) {
	if n == nil {
		return
	}
	b.reachable()

	switch n.Type() {
	case "compound_statement":
		b.block(n)
	case "declaration":
		b.declaration(n)
	case "expression_statement":
		if n.NamedChildCount() > 0 {
			b.rvalue(n.NamedChild(0))
		}
	case "if_statement":
		b.ifStmt(n)
	case "while_statement":
		b.whileStmt(n)
	case "do_statement":
		b.doStmt(n)
	case "for_statement":
		b.forStmt(n)
	case "switch_statement":
		b.switchStmt(n)
	case "return_statement":
		var results []ir.ValueID
		if n.NamedChildCount() > 0 {
			results = append(results, b.rvalue(n.NamedChild(0)))
		}
		b.at(b.cur.Return(results...), n)
	case "break_statement":
		if len(b.targets) > 0 {
			b.at(b.cur.Jump(b.targets[len(b.targets)-1].brk), n)
		}
	case "continue_statement":
		for i := len(b.targets) - 1; i >= 0; i-- {
			if c := b.targets[i].cont; c != nil {
				b.at(b.cur.Jump(c), n)
				break
			}
		}
	case "labeled_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() != "statement_identifier" {
				b.stmt(c)
			}
		}
	}
}

func (b *builder) declaration(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)

		var value *sitter.Node
		if d.Type() == "init_declarator" {
			value = d.ChildByFieldName("value")
			d = d.ChildByFieldName("declarator")
		}
		if d == nil {
			continue
		}

		switch d.Type() {
		case "identifier", "pointer_declarator", "array_declarator", "parenthesized_declarator":
		default:
			// Types, qualifiers and local function prototypes.
			continue
		}

		name := declaratorName(d, b.file.src)
		if name == "" {
			continue
		}
		addr := b.declare(name, d.Type() == "array_declarator", d)

		if value == nil {
			continue
		}
		if value.Type() == "initializer_list" {
			b.initList(value, addr)
			continue
		}
		b.at(b.cur.Store(b.rvalue(value), addr), value)
	}
}

func (b *builder) initList(n *sitter.Node, addr ir.ValueID) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e := n.NamedChild(i)
		if e.Type() == "initializer_pair" {
			e = e.ChildByFieldName("value")
		}
		if e == nil {
			continue
		}
		elem := b.cur.Op("getelementptr", addr, b.fn.Const(fmt.Sprint(i)))
		if e.Type() == "initializer_list" {
			b.initList(e, elem)
			continue
		}
		b.at(b.cur.Store(b.rvalue(e), elem), e)
	}
}

// cond lowers a condition, comparing it against zero unless it already is
// a comparison.
func (b *builder) cond(n *sitter.Node) ir.ValueID {
	v := b.rvalue(n)
	if c := b.fn.Value(v); c.Kind == ir.KindOther && strings.HasPrefix(c.Op, "icmp ") {
		return v
	}
	return b.cur.Op("icmp ne", v, b.fn.Const("0"))
}

func (b *builder) ifStmt(n *sitter.Node) {
	c := b.cond(n.ChildByFieldName("condition"))

	then := b.fn.NewBlock("if.then")
	end := b.fn.NewBlock("if.end")
	els := end

	alt := n.ChildByFieldName("alternative")
	if alt != nil && alt.Type() == "else_clause" {
		alt = alt.NamedChild(0)
	}
	if alt != nil {
		els = b.fn.NewBlock("if.else")
	}

	b.cur.If(c, then, els)

	b.cur = then
	b.stmt(n.ChildByFieldName("consequence"))
	b.jump(end)

	if alt != nil {
		b.cur = els
		b.stmt(alt)
		b.jump(end)
	}

	b.cur = end
}

func (b *builder) whileStmt(n *sitter.Node) {
	head := b.fn.NewBlock("while.cond")
	body := b.fn.NewBlock("while.body")
	end := b.fn.NewBlock("while.end")

	b.jump(head)
	b.cur = head
	b.cur.If(b.cond(n.ChildByFieldName("condition")), body, end)

	b.cur = body
	b.loopBody(n.ChildByFieldName("body"), end, head)
	b.jump(head)

	b.cur = end
}

func (b *builder) doStmt(n *sitter.Node) {
	body := b.fn.NewBlock("do.body")
	head := b.fn.NewBlock("do.cond")
	end := b.fn.NewBlock("do.end")

	b.jump(body)
	b.cur = body
	b.loopBody(n.ChildByFieldName("body"), end, head)
	b.jump(head)

	b.cur = head
	b.cur.If(b.cond(n.ChildByFieldName("condition")), body, end)

	b.cur = end
}

func (b *builder) forStmt(n *sitter.Node) {
	b.push()
	defer b.pop()

	if init := n.ChildByFieldName("initializer"); init != nil {
		if init.Type() == "declaration" {
			b.declaration(init)
		} else {
			b.rvalue(init)
		}
	}

	head := b.fn.NewBlock("for.cond")
	body := b.fn.NewBlock("for.body")
	inc := b.fn.NewBlock("for.inc")
	end := b.fn.NewBlock("for.end")

	b.jump(head)
	b.cur = head
	if c := n.ChildByFieldName("condition"); c != nil {
		b.cur.If(b.cond(c), body, end)
	} else {
		b.cur.Jump(body)
	}

	b.cur = body
	b.loopBody(n.ChildByFieldName("body"), end, inc)
	b.jump(inc)

	b.cur = inc
	if u := n.ChildByFieldName("update"); u != nil {
		b.rvalue(u)
	}
	b.cur.Jump(head)

	b.cur = end
}

func (b *builder) loopBody(n *sitter.Node, brk, cont *ir.Block) {
	b.targets = append(b.targets, jumpTarget{brk: brk, cont: cont})
	b.stmt(n)
	b.targets = b.targets[:len(b.targets)-1]
}

// switchStmt lowers a switch as a chain of comparisons, one per case, with
// case bodies falling through to the next.
func (b *builder) switchStmt(n *sitter.Node) {
	v := b.rvalue(n.ChildByFieldName("condition"))
	body := n.ChildByFieldName("body")
	end := b.fn.NewBlock("sw.epilog")

	var (
		cases  []*sitter.Node
		blocks []*ir.Block
		def    *ir.Block
	)
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			cs := body.NamedChild(i)
			if cs.Type() != "case_statement" {
				continue
			}
			blk := b.fn.NewBlock("sw.bb")
			if cs.ChildByFieldName("value") == nil {
				blk.Name = "sw.default"
				def = blk
			}
			cases = append(cases, cs)
			blocks = append(blocks, blk)
		}
	}

	for i, cs := range cases {
		value := cs.ChildByFieldName("value")
		if value == nil {
			continue
		}
		next := b.fn.NewBlock("sw.next")
		b.cur.If(b.cur.Op("icmp eq", v, b.rvalue(value)), blocks[i], next)
		b.cur = next
	}
	if def != nil {
		b.cur.Jump(def)
	} else {
		b.cur.Jump(end)
	}

	var cont *ir.Block
	if len(b.targets) > 0 {
		cont = b.targets[len(b.targets)-1].cont
	}
	b.targets = append(b.targets, jumpTarget{brk: end, cont: cont})
	for i, cs := range cases {
		b.cur = blocks[i]
		value := cs.ChildByFieldName("value")
		for j := 0; j < int(cs.NamedChildCount()); j++ {
			s := cs.NamedChild(j)
			if value != nil && s.StartByte() == value.StartByte() && s.EndByte() == value.EndByte() {
				continue
			}
			b.stmt(s)
		}
		if i+1 < len(blocks) {
			b.jump(blocks[i+1])
		} else {
			b.jump(end)
		}
	}
	b.targets = b.targets[:len(b.targets)-1]

	b.cur = end
}

// lvalue returns the address designated by n.
func (b *builder) lvalue(n *sitter.Node) ir.ValueID {
	switch n.Type() {
	case "identifier":
		name := b.text(n)
		if l, ok := b.lookup(name); ok {
			return l.addr
		}
		return b.global(name)
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return b.lvalue(n.NamedChild(0))
		}
	case "pointer_expression":
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "*" {
			return b.rvalue(n.ChildByFieldName("argument"))
		}
	case "subscript_expression":
		return b.at(b.cur.Op("getelementptr", b.base(n.ChildByFieldName("argument")), b.rvalue(n.ChildByFieldName("index"))), n)
	case "field_expression":
		var base ir.ValueID
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "->" {
			base = b.rvalue(n.ChildByFieldName("argument"))
		} else {
			base = b.lvalue(n.ChildByFieldName("argument"))
		}
		return b.at(b.cur.Op("getelementptr", base, b.fn.Const(b.text(n.ChildByFieldName("field")))), n)
	}
	return b.rvalue(n)
}

// base is the pointer indexed by a subscript: the array itself for local
// arrays, otherwise the pointer value.
func (b *builder) base(n *sitter.Node) ir.ValueID {
	if n.Type() == "identifier" {
		if l, ok := b.lookup(b.text(n)); ok && l.array {
			return l.addr
		}
	}
	return b.rvalue(n)
}

// rvalue lowers n for its value.
func (b *builder) rvalue(n *sitter.Node) ir.ValueID {
	if n == nil {
		return b.fn.Const("undef")
	}

	switch n.Type() {
	case "number_literal", "char_literal", "string_literal", "concatenated_string",
		"true", "false", "null", "sizeof_expression", "alignof_expression":
		return b.fn.Const(b.text(n))

	case "identifier":
		name := b.text(n)
		l, ok := b.lookup(name)
		if !ok {
			return b.global(name)
		}
		if l.array {
			// Arrays decay to the address of their storage.
			return l.addr
		}
		return b.at(b.cur.Load(l.addr), n)

	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return b.fn.Const("undef")
		}
		return b.rvalue(n.NamedChild(0))

	case "assignment_expression":
		addr := b.lvalue(n.ChildByFieldName("left"))
		right := b.rvalue(n.ChildByFieldName("right"))
		op := b.text(n.ChildByFieldName("operator"))
		if op != "=" {
			old := b.at(b.cur.Load(addr), n)
			bin, ok := binops[op[:len(op)-1]]
			if !ok {
				bin = op
			}
			right = b.cur.Op(bin, old, right)
		}
		b.at(b.cur.Store(right, addr), n)
		return right

	case "update_expression":
		arg := n.ChildByFieldName("argument")
		addr := b.lvalue(arg)
		old := b.at(b.cur.Load(addr), n)
		op := "add"
		if b.text(n.ChildByFieldName("operator")) == "--" {
			op = "sub"
		}
		updated := b.cur.Op(op, old, b.fn.Const("1"))
		b.at(b.cur.Store(updated, addr), n)
		if n.Child(0) != nil && n.Child(0).StartByte() < arg.StartByte() {
			return updated
		}
		return old

	case "pointer_expression":
		arg := n.ChildByFieldName("argument")
		if b.text(n.ChildByFieldName("operator")) == "&" {
			return b.lvalue(arg)
		}
		return b.at(b.cur.Load(b.rvalue(arg)), n)

	case "unary_expression":
		op := b.text(n.ChildByFieldName("operator"))
		arg := b.rvalue(n.ChildByFieldName("argument"))
		switch op {
		case "!":
			return b.cur.Op("icmp eq", arg, b.fn.Const("0"))
		case "-":
			return b.cur.Op("sub", b.fn.Const("0"), arg)
		case "~":
			return b.cur.Op("xor", arg, b.fn.Const("-1"))
		}
		return arg

	case "binary_expression":
		left := b.rvalue(n.ChildByFieldName("left"))
		right := b.rvalue(n.ChildByFieldName("right"))
		op, ok := binops[b.text(n.ChildByFieldName("operator"))]
		if !ok {
			op = b.text(n.ChildByFieldName("operator"))
		}
		return b.at(b.cur.Op(op, left, right), n)

	case "call_expression":
		return b.call(n)

	case "subscript_expression", "field_expression":
		return b.at(b.cur.Load(b.lvalue(n)), n)

	case "cast_expression":
		return b.cur.Op("cast", b.rvalue(n.ChildByFieldName("value")))

	case "conditional_expression":
		c := b.rvalue(n.ChildByFieldName("condition"))
		t := b.rvalue(n.ChildByFieldName("consequence"))
		f := b.rvalue(n.ChildByFieldName("alternative"))
		return b.cur.Op("select", c, t, f)

	case "comma_expression":
		b.rvalue(n.ChildByFieldName("left"))
		return b.rvalue(n.ChildByFieldName("right"))

	case "compound_literal_expression":
		var elems []ir.ValueID
		if v := n.ChildByFieldName("value"); v != nil {
			for i := 0; i < int(v.NamedChildCount()); i++ {
				elems = append(elems, b.rvalue(v.NamedChild(i)))
			}
		}
		return b.cur.Op("compoundliteral", elems...)
	}

	return b.fn.Const(b.text(n))
}

// call lowers a call. Calls through anything other than a function name
// are indirect and have no callee.
func (b *builder) call(n *sitter.Node) ir.ValueID {
	callee := ""
	if fn := n.ChildByFieldName("function"); fn != nil {
		if fn.Type() == "identifier" {
			if _, local := b.lookup(b.text(fn)); !local {
				callee = b.text(fn)
			}
		}
		if callee == "" {
			b.rvalue(fn)
		}
	}

	var args []ir.ValueID
	if list := n.ChildByFieldName("arguments"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			a := list.NamedChild(i)
			if a.Type() == "comment" {
				continue
			}
			args = append(args, b.rvalue(a))
		}
	}

	return b.at(b.cur.Call(callee, b.file.voids[callee], args...), n)
}
