package ir

import (
	"strings"
	"testing"

	"sysyrv/internal/types"
)

func TestScopeDeclareAndShadowing(t *testing.T) {
	s := NewScope()
	s.PushScope(ScopeFunction)

	outer, ok := s.Declare("x", types.Scalar(types.I32), types.SymVal{}, false)
	if !ok {
		t.Fatalf("first declaration of x rejected")
	}

	s.PushScope(ScopeBlock)
	inner, ok := s.Declare("x", types.Scalar(types.Float), types.SymVal{}, false)
	if !ok {
		t.Fatalf("shadowing declaration of x rejected")
	}
	if inner == outer {
		t.Errorf("shadowing x reused label %q", inner)
	}
	sym, ok := s.Lookup("x")
	if !ok || sym.Label != inner {
		t.Errorf("Lookup(x) = %+v, want the innermost declaration %q", sym, inner)
	}

	s.PopScope()
	sym, ok = s.Lookup("x")
	if !ok || sym.Label != outer {
		t.Errorf("after pop, Lookup(x) = %+v, want the outer declaration %q", sym, outer)
	}
}

func TestScopeRedeclarationInSameScopeRejected(t *testing.T) {
	s := NewScope()
	if _, ok := s.Declare("x", types.Scalar(types.I32), types.SymVal{}, false); !ok {
		t.Fatalf("first declaration rejected")
	}
	if _, ok := s.Declare("x", types.Scalar(types.I32), types.SymVal{}, false); ok {
		t.Errorf("redeclaration in the same scope accepted")
	}
}

func TestScopeGlobalLabels(t *testing.T) {
	s := NewScope()
	first, _ := s.Declare("g", types.Scalar(types.I32), types.SymVal{}, true)
	if first != "@g" {
		t.Errorf("first global label = %q, want @g", first)
	}
	// A forceGlobal declaration made from a nested scope lands in the global
	// frame with a plain @name label.
	s.PushScope(ScopeFunction)
	s.PushScope(ScopeBlock)
	second, ok := s.Declare("h", types.Scalar(types.I32), types.SymVal{}, true)
	if !ok || second != "@h" {
		t.Errorf("forceGlobal from a nested scope = %q, want @h", second)
	}
}

func TestScopeLocalLabelsTruncateAndNumber(t *testing.T) {
	s := NewScope()
	s.PushScope(ScopeFunction)
	long := "averyveryverylongidentifier"
	l1, _ := s.Declare(long, types.Scalar(types.I32), types.SymVal{}, false)
	if want := "%" + long[:15] + "_0"; l1 != want {
		t.Errorf("long local label = %q, want %q", l1, want)
	}
	s.PushScope(ScopeBlock)
	l2, _ := s.Declare(long, types.Scalar(types.I32), types.SymVal{}, false)
	if want := "%" + long[:15] + "_1"; l2 != want {
		t.Errorf("second local label = %q, want %q", l2, want)
	}
}

func TestScopeFreshTempResetsPerFunction(t *testing.T) {
	s := NewScope()
	s.PushFunction(types.I32)
	if got := s.FreshTemp(); got != "%0" {
		t.Errorf("first temp = %q, want %%0", got)
	}
	if got := s.FreshTemp(); got != "%1" {
		t.Errorf("second temp = %q, want %%1", got)
	}
	s.PopScope()
	s.PushFunction(types.I32)
	if got := s.FreshTemp(); got != "%0" {
		t.Errorf("temp after new function = %q, want the counter reset to %%0", got)
	}
}

func TestScopeWhileLabelsAndDepth(t *testing.T) {
	s := NewScope()
	s.PushFunction(types.Void)
	if _, err := s.WhileEnd(); err == nil || !strings.Contains(err.Error(), "outside loop") {
		t.Errorf("WhileEnd outside loop: err = %v", err)
	}
	if d := s.LoopDepth(); d != 0 {
		t.Errorf("LoopDepth = %d, want 0", d)
	}

	s.PushWhile("while_entry_0", "while_end_0")
	s.PushWhile("while_entry_1", "while_end_1")
	if d := s.LoopDepth(); d != 2 {
		t.Errorf("LoopDepth = %d, want 2", d)
	}
	entry, err := s.WhileEntry()
	if err != nil || entry != "while_entry_1" {
		t.Errorf("WhileEntry = %q (%v), want the innermost while_entry_1", entry, err)
	}
	end, err := s.WhileEnd()
	if err != nil || end != "while_end_1" {
		t.Errorf("WhileEnd = %q (%v), want while_end_1", end, err)
	}
}

func TestScopeReturnTypeOutsideFunctionFails(t *testing.T) {
	s := NewScope()
	if _, err := s.CurrentFunctionReturnType(); err == nil {
		t.Errorf("CurrentFunctionReturnType outside a function succeeded")
	}
}

func TestScopeBlockLabelPalette(t *testing.T) {
	s := NewScope()
	l1, err := s.FreshBlockLabel(LabelIfThen)
	if err != nil || l1 != "if_then_0" {
		t.Errorf("FreshBlockLabel = %q (%v), want if_then_0", l1, err)
	}
	l2, _ := s.FreshBlockLabel(LabelIfThen)
	if l2 != "if_then_1" {
		t.Errorf("second if_then label = %q, want if_then_1", l2)
	}
	if _, err := s.FreshBlockLabel(blockLabelKind("bogus")); err == nil || !strings.Contains(err.Error(), "undefined block label") {
		t.Errorf("unknown palette kind: err = %v", err)
	}
}

func TestScopeLookupFunctionRequiresFuncValue(t *testing.T) {
	s := NewScope()
	s.Declare("v", types.Scalar(types.I32), types.SymVal{Kind: types.ValInt, Lexeme: "1"}, false)
	s.Declare("f", types.Scalar(types.I32), types.SymVal{Kind: types.ValFunc, ReturnType: types.I32}, false)
	if _, ok := s.LookupFunction("v"); ok {
		t.Errorf("LookupFunction found a non-function symbol")
	}
	if _, ok := s.LookupFunction("f"); !ok {
		t.Errorf("LookupFunction missed a function symbol")
	}
}
