// Package cir lowers C source files into the ir form analyzed by package
// seminal, using tree-sitter's C grammar.
//
// The lowering follows the shape of unoptimized clang output with debug
// information: parameters are spilled to allocations, every local variable
// gets an allocation and a declaration at its declarator's line, reads are
// loads and writes are stores. Identifiers that are not declared in the
// function, such as globals, enumerators or macros like EOF, are lowered as
// global references.
package cir

import (
	"context"
	"errors"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
)

// ErrFunctionNotFound is returned by LowerFunction when the file does not
// define the requested function.
var ErrFunctionNotFound = errors.New("cir: function not found")

func newParser() *sitter.Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return parser
}

// file is a parsed translation unit.
type file struct {
	name  string
	src   []byte
	tree  *sitter.Tree
	defs  []*sitter.Node
	voids map[string]bool
}

func parse(ctx context.Context, name string, src []byte) (*file, error) {
	tree, err := newParser().ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", name)
	}

	f := &file{
		name:  name,
		src:   src,
		tree:  tree,
		voids: make(map[string]bool),
	}

	root := tree.RootNode()
	if root.HasError() {
		irutil.FromContext(ctx).Warning("%s: syntax errors, lowering what could be parsed", name)
	}
	f.collect(root)

	return f, nil
}

// collect finds function definitions, and the names of functions declared
// or defined to return void.
func (f *file) collect(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition", "declaration":
		decl := node.ChildByFieldName("declarator")
		if decl != nil && decl.Type() == "function_declarator" {
			if typ := node.ChildByFieldName("type"); typ != nil && typ.Content(f.src) == "void" {
				f.voids[declaratorName(decl, f.src)] = true
			}
		}
		if node.Type() == "function_definition" {
			f.defs = append(f.defs, node)
		}
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		f.collect(node.NamedChild(i))
	}
}

func (f *file) functionName(def *sitter.Node) string {
	return declaratorName(def.ChildByFieldName("declarator"), f.src)
}

func (f *file) close() {
	f.tree.Close()
}

// Parse lowers every function defined in the C source src. name is recorded
// as the file of each function.
func Parse(name string, src []byte) (*ir.Program, error) {
	return ParseContext(context.Background(), name, src)
}

// ParseContext is like Parse, logging to the logger carried by ctx.
func ParseContext(ctx context.Context, name string, src []byte) (*ir.Program, error) {
	f, err := parse(ctx, name, src)
	if err != nil {
		return nil, err
	}
	defer f.close()

	prog := &ir.Program{}
	for _, def := range f.defs {
		fn, err := f.lower(def)
		if err != nil {
			return nil, err
		}
		prog.Add(fn)
	}

	irutil.FromContext(ctx).Debug("%s: lowered %d functions", name, len(prog.Functions))

	return prog, nil
}

// ParseFile reads and lowers the C file at path.
func ParseFile(ctx context.Context, path string) (*ir.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return ParseContext(ctx, path, src)
}

// LowerFunction lowers the single function called name defined in src.
func LowerFunction(filename string, src []byte, name string) (*ir.Function, error) {
	f, err := parse(context.Background(), filename, src)
	if err != nil {
		return nil, err
	}
	defer f.close()

	for _, def := range f.defs {
		if f.functionName(def) == name {
			return f.lower(def)
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrFunctionNotFound, name, filename)
}

// declaratorName digs the declared identifier out of a declarator.
func declaratorName(node *sitter.Node, src []byte) string {
	for node != nil {
		switch node.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return node.Content(src)
		case "parenthesized_declarator":
			node = node.NamedChild(0)
		default:
			node = node.ChildByFieldName("declarator")
		}
	}
	return ""
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
