package usecase

import (
	"context"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"mongo-testkit/internal/shared/utils"
)

// ConstructorMarker is the member name captured for calls made while a value
// is being built: inside a NewXxx function, a package init function or a
// package-level variable initializer.
const ConstructorMarker = ".ctor"

const maxCallSiteDepth = 64

// CallSite is a snapshot of the call stack at a provisioning call, as fully
// qualified function names ordered from the caller outward.
type CallSite struct {
	functions []string
}

// NewCallSite builds a call site from function names, caller first.
func NewCallSite(functions ...string) CallSite {
	return CallSite{functions: append([]string(nil), functions...)}
}

// captureCallSite records the stack starting at the caller of the exported
// function that invoked it. Exported entry points call it directly so the
// skip count stays fixed.
func captureCallSite() CallSite {
	pcs := make([]uintptr, maxCallSiteDepth)
	// 0: runtime.Callers, 1: captureCallSite, 2: entry point, 3: its caller.
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return CallSite{}
	}

	frames := runtime.CallersFrames(pcs[:n])
	var functions []string
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			functions = append(functions, frame.Function)
		}
		if !more {
			break
		}
	}
	return CallSite{functions: functions}
}

// Member is the name of the function or method that issued the call, with
// closure suffixes removed, or ConstructorMarker when the call came from
// construction code. Empty when the stack could not be captured.
func (s CallSite) Member() string {
	if len(s.functions) == 0 {
		return ""
	}
	sym := parseSymbol(s.functions[0])
	if sym.isConstructor() {
		return ConstructorMarker
	}
	return sym.name
}

// ConstructorTypeName walks outward for the nearest NewXxx frame and returns
// Xxx. A bare New function resolves to its package name. Returns "" when no
// constructor frame exists.
func (s CallSite) ConstructorTypeName() string {
	for _, fn := range s.functions {
		sym := parseSymbol(fn)
		if typ := sym.constructedType(); typ != "" {
			return typ
		}
	}
	return ""
}

// inferPrefix picks the collection prefix for a caller that did not pass one:
// the test name carried by ctx, then the captured member name.
func inferPrefix(ctx context.Context, site CallSite) string {
	if name := utils.GetTestNameOrDefault(ctx, ""); name != "" {
		return name
	}
	return site.Member()
}

type symbol struct {
	pkg      string
	receiver string
	name     string
}

// parseSymbol splits a runtime function name such as
// "example.com/pkg.(*Suite).TestX.func1" into package, receiver and name.
func parseSymbol(fn string) symbol {
	var sym symbol

	rest := fn
	if i := strings.LastIndexByte(rest, '/'); i >= 0 {
		rest = rest[i+1:]
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		sym.pkg = rest[:i]
		rest = rest[i+1:]
	}
	rest = stripTypeParams(rest)

	var parts []string
	for _, p := range strings.Split(rest, ".") {
		if isClosureSegment(p) {
			break
		}
		parts = append(parts, p)
	}

	switch {
	case len(parts) == 0:
	case strings.HasPrefix(parts[0], "("):
		sym.receiver = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(parts[0], "("), "*"), ")")
		if len(parts) > 1 {
			sym.name = parts[1]
		}
	case len(parts) > 1 && parts[1] != "":
		sym.receiver = parts[0]
		sym.name = parts[1]
	default:
		sym.name = parts[0]
	}
	return sym
}

func (s symbol) isConstructor() bool {
	return s.isPackageInit() || s.constructedType() != ""
}

func (s symbol) isPackageInit() bool {
	return s.receiver == "" && (s.name == "init" || s.name == "glob")
}

func (s symbol) constructedType() string {
	if s.name == "New" {
		return s.pkg
	}
	if !strings.HasPrefix(s.name, "New") {
		return ""
	}
	typ := strings.TrimPrefix(s.name, "New")
	r, _ := utf8.DecodeRuneInString(typ)
	if !unicode.IsUpper(r) {
		return ""
	}
	return typ
}

// isClosureSegment reports runtime-generated name segments: func1, 2,
// gowrap1, deferwrap1 and the empty segment of "glob..func1".
func isClosureSegment(seg string) bool {
	for _, p := range []string{"func", "gowrap", "deferwrap"} {
		if strings.HasPrefix(seg, p) && isDigits(seg[len(p):]) {
			return true
		}
	}
	return isDigits(seg)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripTypeParams(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
