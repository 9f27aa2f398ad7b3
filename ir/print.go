package ir

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Ref returns the printed reference to the value id: a register (%N or
// %name), a global (@name) or a literal.
func (f *Function) Ref(id ValueID) string {
	v := f.Value(id)
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KindConst:
		return v.Op
	case KindGlobal:
		return "@" + v.Name
	case KindParam:
		return "%" + v.Name
	}
	if v.Kind == KindAlloc && v.Name != "" {
		return "%" + v.Name + ".addr" + strconv.Itoa(int(id))
	}
	return "%" + strconv.Itoa(int(id))
}

func (f *Function) refs(ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = f.Ref(id)
	}
	return strings.Join(parts, ", ")
}

func (f *Function) blockRef(id BlockID) string {
	if b := f.Block(id); b != nil {
		return "label %" + b.Name
	}
	return "label %?"
}

// Format returns the textual form of the instruction v.
func (f *Function) Format(v *Value) string {
	var s string
	switch v.Kind {
	case KindAlloc:
		s = fmt.Sprintf("%s = alloca", f.Ref(v.ID))
	case KindLoad:
		s = fmt.Sprintf("%s = load %s", f.Ref(v.ID), f.Ref(v.Addr()))
	case KindStore:
		s = fmt.Sprintf("store %s, %s", f.Ref(v.Stored()), f.Ref(v.Addr()))
	case KindCall:
		callee := "<indirect>"
		if v.Callee != "" {
			callee = "@" + v.Callee
		}
		if v.Void {
			s = fmt.Sprintf("call void %s(%s)", callee, f.refs(v.Operands))
		} else {
			s = fmt.Sprintf("%s = call %s(%s)", f.Ref(v.ID), callee, f.refs(v.Operands))
		}
	case KindBranch:
		if v.IsConditional() {
			s = fmt.Sprintf("br %s, %s, %s", f.Ref(v.Cond()), f.blockRef(v.Succs[0]), f.blockRef(v.Succs[1]))
		} else if len(v.Succs) == 1 {
			s = "br " + f.blockRef(v.Succs[0])
		} else {
			succs := make([]string, len(v.Succs))
			for i, b := range v.Succs {
				succs[i] = f.blockRef(b)
			}
			s = fmt.Sprintf("br %s [%s]", f.refs(v.Operands), strings.Join(succs, ", "))
		}
	case KindReturn:
		if len(v.Operands) == 0 {
			s = "ret void"
		} else {
			s = "ret " + f.refs(v.Operands)
		}
	case KindDeclare:
		s = fmt.Sprintf("declare %s, %q", f.Ref(v.Addr()), v.Var)
	default:
		s = fmt.Sprintf("%s = %s %s", f.Ref(v.ID), v.Op, f.refs(v.Operands))
	}
	if v.Line > 0 {
		s += fmt.Sprintf("\t; line %d", v.Line)
	}
	return s
}

// WriteTo writes a human readable listing of f to w.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "define @%s()", f.Name)
	if f.File != "" {
		fmt.Fprintf(&buf, " ; %s", f.File)
		if f.Line > 0 {
			fmt.Fprintf(&buf, ":%d", f.Line)
		}
	}
	buf.WriteString(" {\n")

	for i, b := range f.Blocks {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(b.Name + ":")
		if len(b.Preds) > 0 {
			preds := make([]string, len(b.Preds))
			for j, p := range b.Preds {
				preds[j] = "%" + f.Blocks[p].Name
			}
			buf.WriteString("\t\t\t\t; preds = " + strings.Join(preds, ", "))
		}
		buf.WriteString("\n")
		for _, id := range b.Instrs {
			buf.WriteString("  " + f.Format(f.values[id]) + "\n")
		}
	}
	buf.WriteString("}\n")

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// String returns the listing of f.
func (f *Function) String() string {
	var sb strings.Builder
	_, _ = f.WriteTo(&sb)
	return sb.String()
}
