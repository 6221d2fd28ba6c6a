package ir

import (
	"fmt"

	"github.com/pkg/errors"

	"sysyrv/internal/types"
	"sysyrv/internal/util"
)

// ScopeKind discriminates the kind of lexical scope pushed onto the scope
// stack (spec.md §4.1).
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeIf
	ScopeWhile
)

// Symbol is one entry in a scope's symbol table: a label (its IR operand
// name), a type, and an optional compile-time value.
type Symbol struct {
	Label string
	Type  types.SymType
	Value types.SymVal
}

// scopeFrame is one entry of the scope stack.
type scopeFrame struct {
	kind    ScopeKind
	symbols map[string]*Symbol

	// ReturnType is set for ScopeFunction frames.
	returnType types.Width
	// whileEntry/whileEnd are set for ScopeWhile frames.
	whileEntry, whileEnd string
}

// blockLabelKind is one entry of the closed block-label palette (spec.md
// §4.1).
type blockLabelKind string

const (
	LabelRetThen      blockLabelKind = "ret_then"
	LabelOrFalse      blockLabelKind = "or_false"
	LabelOrEnd        blockLabelKind = "or_end"
	LabelAndTrue      blockLabelKind = "and_true"
	LabelAndEnd       blockLabelKind = "and_end"
	LabelBreakThen    blockLabelKind = "break_then"
	LabelContinueThen blockLabelKind = "continue_then"
	LabelIfThen       blockLabelKind = "if_then"
	LabelIfElse       blockLabelKind = "if_else"
	LabelIfEnd        blockLabelKind = "if_end"
	LabelWhileEntry   blockLabelKind = "while_entry"
	LabelWhileBody    blockLabelKind = "while_body"
	LabelWhileEnd     blockLabelKind = "while_end"
	LabelGeneric      blockLabelKind = "_L"
)

var knownBlockLabelKinds = map[blockLabelKind]bool{
	LabelRetThen: true, LabelOrFalse: true, LabelOrEnd: true,
	LabelAndTrue: true, LabelAndEnd: true, LabelBreakThen: true,
	LabelContinueThen: true, LabelIfThen: true, LabelIfElse: true,
	LabelIfEnd: true, LabelWhileEntry: true, LabelWhileBody: true,
	LabelWhileEnd: true, LabelGeneric: true,
}

// Scope is the lexical scope stack and label factory (spec.md §4.1).
// Grounded on vslc/src/util/stack.go (the scope stack itself, replaced here
// by util.Stack[*scopeFrame]) and vslc/src/util/label.go (the label
// factory, replaced here by plain counters since the pipeline is
// single-threaded and needs no channel-based listener).
type Scope struct {
	frames util.Stack[*scopeFrame]

	tempSeq   int // per-function %N counter, reset by PushFunction.
	localSeq  map[string]int
	globalSeq map[string]int
	blockSeq  map[blockLabelKind]int
}

// NewScope returns a Scope with a single global frame pushed.
func NewScope() *Scope {
	s := &Scope{
		localSeq:  make(map[string]int),
		globalSeq: make(map[string]int),
		blockSeq:  make(map[blockLabelKind]int),
	}
	s.frames.Push(&scopeFrame{kind: ScopeGlobal, symbols: make(map[string]*Symbol)})
	return s
}

// PushScope pushes a new lexical scope of the given kind.
func (s *Scope) PushScope(kind ScopeKind) {
	s.frames.Push(&scopeFrame{kind: kind, symbols: make(map[string]*Symbol)})
}

// PushWhile pushes a while-loop scope carrying its entry/end labels, used
// by WhileEntry/WhileEnd to resolve break/continue.
func (s *Scope) PushWhile(entry, end string) {
	s.frames.Push(&scopeFrame{kind: ScopeWhile, symbols: make(map[string]*Symbol), whileEntry: entry, whileEnd: end})
}

// PushFunction pushes a function scope carrying its return type, and resets
// the per-function temporary counter (spec.md §4.1: "resettable per
// function").
func (s *Scope) PushFunction(ret types.Width) {
	s.frames.Push(&scopeFrame{kind: ScopeFunction, symbols: make(map[string]*Symbol), returnType: ret})
	s.tempSeq = 0
}

// PopScope pops the innermost scope.
func (s *Scope) PopScope() {
	s.frames.Pop()
}

// Declare inserts ident into the topmost scope (or the global scope, if
// forceGlobal is true), returning the freshly minted label. If ident is
// already declared in the target scope, it returns ("", false) ("already
// declared in this scope", spec.md §4.1).
func (s *Scope) Declare(ident string, t types.SymType, val types.SymVal, forceGlobal bool) (string, bool) {
	frame, _ := s.frames.Peek()
	if forceGlobal {
		// The bottom of the stack is always the global frame.
		for i := s.frames.Size(); i >= 1; i-- {
			f, _ := s.frames.Get(i)
			if f.kind == ScopeGlobal {
				frame = f
				break
			}
		}
	}
	if _, exists := frame.symbols[ident]; exists {
		return "", false
	}

	var label string
	if forceGlobal || frame.kind == ScopeGlobal {
		label = s.freshGlobal(ident)
	} else {
		label = s.freshLocal(ident)
	}
	frame.symbols[ident] = &Symbol{Label: label, Type: t, Value: val}
	return label, true
}

// Lookup searches innermost-first for ident.
func (s *Scope) Lookup(ident string) (*Symbol, bool) {
	var found *Symbol
	s.frames.Each(func(f *scopeFrame) bool {
		if sym, ok := f.symbols[ident]; ok {
			found = sym
			return false
		}
		return true
	})
	return found, found != nil
}

// LookupFunction is like Lookup but requires the symbol to hold a
// SymVal::Func.
func (s *Scope) LookupFunction(ident string) (*Symbol, bool) {
	sym, ok := s.Lookup(ident)
	if !ok || sym.Value.Kind != types.ValFunc {
		return nil, false
	}
	return sym, true
}

// CurrentFunctionReturnType locates the nearest enclosing function scope.
func (s *Scope) CurrentFunctionReturnType() (types.Width, error) {
	var rt types.Width
	found := false
	s.frames.Each(func(f *scopeFrame) bool {
		if f.kind == ScopeFunction {
			rt = f.returnType
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, errors.New("return outside function")
	}
	return rt, nil
}

// WhileEntry locates the nearest enclosing while scope's entry label.
func (s *Scope) WhileEntry() (string, error) {
	return s.nearestWhileLabel(func(f *scopeFrame) string { return f.whileEntry })
}

// WhileEnd locates the nearest enclosing while scope's end label.
func (s *Scope) WhileEnd() (string, error) {
	return s.nearestWhileLabel(func(f *scopeFrame) string { return f.whileEnd })
}

func (s *Scope) nearestWhileLabel(pick func(*scopeFrame) string) (string, error) {
	var label string
	found := false
	s.frames.Each(func(f *scopeFrame) bool {
		if f.kind == ScopeWhile {
			label = pick(f)
			found = true
			return false
		}
		return true
	})
	if !found {
		return "", errors.New("break/continue outside loop")
	}
	return label, nil
}

// LoopDepth counts the enclosing while scopes.
func (s *Scope) LoopDepth() int {
	depth := 0
	s.frames.Each(func(f *scopeFrame) bool {
		if f.kind == ScopeWhile {
			depth++
		}
		return true
	})
	return depth
}

// ---------------------------------------------------------------------
// Label factory
// ---------------------------------------------------------------------

// FreshTemp vends the next SSA temporary name, %0, %1, ….
func (s *Scope) FreshTemp() string {
	n := s.tempSeq
	s.tempSeq++
	return fmt.Sprintf("%%%d", n)
}

// freshLocal vends a per-identifier local name %name_k, truncated to 15
// characters (spec.md §4.1).
func (s *Scope) freshLocal(ident string) string {
	k := s.localSeq[ident]
	s.localSeq[ident] = k + 1
	name := fmt.Sprintf("%s_%d", truncate15(ident), k)
	return "%" + name
}

// freshGlobal vends @name on first occurrence, @name_k thereafter.
func (s *Scope) freshGlobal(ident string) string {
	k, seen := s.globalSeq[ident]
	s.globalSeq[ident] = k + 1
	if !seen {
		return "@" + ident
	}
	return fmt.Sprintf("@%s_%d", ident, k)
}

func truncate15(s string) string {
	if len(s) > 15 {
		return s[:15]
	}
	return s
}

// FreshBlockLabel vends the next label of the given palette kind, e.g.
// "if_then_2". Unknown kinds fail per spec.md §4.1 ("undefined block
// label").
func (s *Scope) FreshBlockLabel(kind blockLabelKind) (string, error) {
	if !knownBlockLabelKinds[kind] {
		return "", errors.Errorf("undefined block label %q", kind)
	}
	k := s.blockSeq[kind]
	s.blockSeq[kind] = k + 1
	return fmt.Sprintf("%s_%d", kind, k), nil
}
