// Package complexity estimates function counts and cyclomatic complexity
// for source files, with tree-sitter when the build has cgo and a line
// pattern heuristic otherwise.
package complexity

import "context"

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangC          Language = "c"
)

// Method names how an Estimate was produced.
type Method string

const (
	MethodTreeSitter Method = "tree-sitter"
	MethodPattern    Method = "pattern"
)

// Estimate is the complexity summary of one file.
type Estimate struct {
	Method        Method `json:"method"`
	Functions     int    `json:"functions"`
	Cyclomatic    int    `json:"cyclomatic"`
	MaxCyclomatic int    `json:"max_cyclomatic"`
}

func (e *Estimate) add(cc int) {
	e.Functions++
	e.Cyclomatic += cc
	if cc > e.MaxCyclomatic {
		e.MaxCyclomatic = cc
	}
}

// Estimator produces estimates file by file. Create one per analysis run;
// it is not safe for concurrent use.
type Estimator struct {
	tree treeBackend
}

type treeBackend interface {
	estimate(ctx context.Context, lang Language, source []byte) (Estimate, error)
}

// Estimate returns the estimate for source, choosing the language from the
// file extension. ok is false when the extension is not a supported
// programming language.
func (e *Estimator) Estimate(ctx context.Context, ext string, source []byte) (Estimate, bool) {
	lang, ok := LanguageFromExtension(ext)
	if !ok {
		return Estimate{}, false
	}
	if e.tree != nil {
		if est, err := e.tree.estimate(ctx, lang, source); err == nil {
			return est, true
		}
	}
	return estimatePattern(lang, source), true
}

// LanguageFromExtension returns the Language for a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	case ".rb":
		return LangRuby, true
	case ".php":
		return LangPHP, true
	case ".c", ".h", ".cpp", ".hpp", ".cc":
		return LangC, true
	default:
		return "", false
	}
}
