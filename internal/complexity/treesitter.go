//go:build cgo

package complexity

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammar lists the node types that open a function and the node types that
// add a branch, per language.
type grammar struct {
	lang      func() *sitter.Language
	functions []string
	decisions []string
	// boolOps are the operator tokens that make a binary node a branch.
	boolOps []string
}

var jsDecisions = []string{
	"if_statement", "for_statement", "for_in_statement", "while_statement",
	"do_statement", "switch_case", "catch_clause", "ternary_expression",
	"binary_expression", "optional_chain_expression",
}

var jsFunctions = []string{
	"function_declaration", "function_expression", "arrow_function",
	"method_definition", "generator_function_declaration",
}

var grammars = map[Language]grammar{
	LangGo: {
		lang:      golang.GetLanguage,
		functions: []string{"function_declaration", "method_declaration", "func_literal"},
		decisions: []string{
			"if_statement", "for_statement", "range_clause", "expression_case",
			"type_case", "select_statement", "communication_case", "binary_expression",
		},
		boolOps: []string{"&&", "||"},
	},
	LangJavaScript: {lang: javascript.GetLanguage, functions: jsFunctions, decisions: jsDecisions, boolOps: []string{"&&", "||", "??"}},
	LangTypeScript: {lang: typescript.GetLanguage, functions: jsFunctions, decisions: jsDecisions, boolOps: []string{"&&", "||", "??"}},
	LangTSX:        {lang: tsx.GetLanguage, functions: jsFunctions, decisions: jsDecisions, boolOps: []string{"&&", "||", "??"}},
	LangPython: {
		lang:      python.GetLanguage,
		functions: []string{"function_definition", "lambda"},
		decisions: []string{
			"if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "with_statement", "boolean_operator",
			"conditional_expression", "list_comprehension",
			"dictionary_comprehension", "set_comprehension", "generator_expression",
		},
		boolOps: []string{"and", "or"},
	},
	LangRust: {
		lang:      rust.GetLanguage,
		functions: []string{"function_item", "closure_expression"},
		decisions: []string{
			"if_expression", "match_arm", "while_expression", "loop_expression",
			"for_expression", "binary_expression",
		},
		boolOps: []string{"&&", "||"},
	},
	LangJava: {
		lang:      java.GetLanguage,
		functions: []string{"method_declaration", "constructor_declaration", "lambda_expression"},
		decisions: []string{
			"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_block_statement_group", "catch_clause",
			"ternary_expression", "binary_expression",
		},
		boolOps: []string{"&&", "||"},
	},
	LangKotlin: {
		lang:      kotlin.GetLanguage,
		functions: []string{"function_declaration", "lambda_literal", "anonymous_function"},
		decisions: []string{
			"if_expression", "when_entry", "for_statement", "while_statement",
			"do_while_statement", "catch_block", "binary_expression", "elvis_expression",
		},
		boolOps: []string{"&&", "||"},
	},
}

// treeEstimator parses with tree-sitter. It is not safe for concurrent use.
type treeEstimator struct {
	parser *sitter.Parser
}

func newTreeEstimator() *treeEstimator {
	return &treeEstimator{parser: sitter.NewParser()}
}

func (t *treeEstimator) estimate(ctx context.Context, lang Language, source []byte) (Estimate, error) {
	g, ok := grammars[lang]
	if !ok {
		return Estimate{}, fmt.Errorf("unsupported language: %s", lang)
	}

	t.parser.SetLanguage(g.lang())
	tree, err := t.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Estimate{}, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	est := Estimate{Method: MethodTreeSitter}
	for _, fn := range collect(tree.RootNode(), g.functions) {
		cc := 1
		for _, d := range collect(fn, g.decisions) {
			if isBinary(d) && !hasOperator(d, source, g.boolOps) {
				continue
			}
			cc++
		}
		est.add(cc)
	}
	return est, nil
}

func isBinary(n *sitter.Node) bool {
	return n.Type() == "binary_expression" || n.Type() == "boolean_operator"
}

func hasOperator(n *sitter.Node, source []byte, ops []string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		tok := child.Type()
		if !child.IsNamed() {
			tok = string(source[child.StartByte():child.EndByte()])
		}
		for _, op := range ops {
			if tok == op {
				return true
			}
		}
	}
	return false
}

// collect returns every descendant of root (root included) whose type is in
// types, in document order.
func collect(root *sitter.Node, types []string) []*sitter.Node {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	var out []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if want[n.Type()] {
			out = append(out, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}
