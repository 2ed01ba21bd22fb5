package complexity

import (
	"bufio"
	"bytes"
	"regexp"
)

var (
	functionLine = map[Language]*regexp.Regexp{
		LangGo:         regexp.MustCompile(`^\s*func\b`),
		LangPython:     regexp.MustCompile(`^\s*(async\s+)?def\s+\w+`),
		LangJavaScript: regexp.MustCompile(`\bfunction\b|=>`),
		LangTypeScript: regexp.MustCompile(`\bfunction\b|=>`),
		LangTSX:        regexp.MustCompile(`\bfunction\b|=>`),
		LangRust:       regexp.MustCompile(`^\s*(pub(\([^)]*\))?\s+)?(async\s+)?fn\s+\w+`),
		LangRuby:       regexp.MustCompile(`^\s*def\s+`),
		LangPHP:        regexp.MustCompile(`\bfunction\s+\w+`),
		LangKotlin:     regexp.MustCompile(`\bfun\s+\w+`),
		LangJava:       regexp.MustCompile(`^\s*(public|private|protected|static|\s)+[\w<>\[\],\s]+\s+\w+\s*\([^;]*\)\s*(throws [\w, ]+)?\s*\{?\s*$`),
		LangC:          regexp.MustCompile(`^[\w\*][\w\s\*]*\s+\**\w+\s*\([^;]*\)\s*\{?\s*$`),
	}

	// branch tokens counted once per occurrence
	branchTokens = regexp.MustCompile(`\b(if|elif|else if|for|foreach|while|case|catch|except|when|match)\b|&&|\|\||\band\b|\bor\b|\?\?`)
)

// estimatePattern approximates function count and cyclomatic complexity
// line by line: each function-looking line opens a unit with complexity 1
// and each branch token adds one to the current unit.
func estimatePattern(lang Language, source []byte) Estimate {
	fnRe := functionLine[lang]
	est := Estimate{Method: MethodPattern}

	current := 0 // complexity of the open unit, 0 when none
	flush := func() {
		if current > 0 {
			est.add(current)
		}
		current = 0
	}

	sc := bufio.NewScanner(bytes.NewReader(source))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if fnRe != nil && fnRe.Match(line) {
			flush()
			current = 1
		}
		if current > 0 {
			current += len(branchTokens.FindAllIndex(line, -1))
		}
	}
	flush()
	return est
}
