package ir

import (
	"strings"
	"testing"

	"sysyrv/internal/ast"
	"sysyrv/internal/config"
	"sysyrv/internal/types"
)

func intLit(s string) *ast.IntLit        { return &ast.IntLit{Lexeme: s} }
func ident(name string) *ast.IdentExpr   { return &ast.IdentExpr{Name: name} }
func retStmt(v ast.Expr) *ast.ReturnStmt { return &ast.ReturnStmt{Value: v} }

func bin(op ast.BinOp, x, y ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, X: x, Y: y}
}

func body(ss ...ast.Stmt) *ast.BlockStmt { return &ast.BlockStmt{Stmts: ss} }

func fn(name string, ret types.Width, b *ast.BlockStmt, params ...ast.Param) *ast.FuncDef {
	return &ast.FuncDef{Name: name, ReturnType: ret, Params: params, Body: b}
}

func unit(tops ...ast.TopLevel) *ast.TranslationUnit {
	return &ast.TranslationUnit{Decls: tops}
}

func lowerOne(t *testing.T, tu *ast.TranslationUnit) *Program {
	t.Helper()
	prog, err := Lower(tu, config.Default())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return prog
}

func countOps(fn *Function, op Op) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}

func blockLabels(fn *Function) []string {
	var out []string
	for _, b := range fn.Blocks {
		out = append(out, b.Label)
	}
	return out
}

func TestLowerFoldsConstantExpression(t *testing.T) {
	prog := lowerOne(t, unit(fn("main", types.I32,
		body(retStmt(bin(ast.Add, intLit("1"), bin(ast.Mul, intLit("2"), intLit("3"))))))))

	f := prog.GetFunction("main")
	entry := f.Entry()
	if len(entry.Instrs) != 1 {
		t.Fatalf("entry = %+v, want a single folded ret", entry.Instrs)
	}
	if entry.Instrs[0].Op != OpRet || entry.Instrs[0].X != "7" {
		t.Errorf("folded ret = %+v, want ret 7", entry.Instrs[0])
	}
}

func TestLowerConstLocalFoldsAtUseSites(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.I32, body(
		&ast.LocalDecl{Decl: ast.Decl{IsConst: true, Type: types.I32, Defs: []ast.Def{
			{Name: "c", Init: &ast.ScalarInit{Value: intLit("5")}},
		}}},
		retStmt(bin(ast.Mul, ident("c"), intLit("2")))))))

	f := prog.GetFunction("f")
	if n := countOps(f, OpMul); n != 0 {
		t.Errorf("const-operand multiply survived folding (%d mul instructions)", n)
	}
	if f.Entry().Instrs[0].X != "10" {
		t.Errorf("ret operand = %q, want folded 10", f.Entry().Instrs[0].X)
	}
}

func TestLowerShortCircuitBlocksAndPhis(t *testing.T) {
	// int x = (a && b) || c;
	opt := config.Default()
	opt.UsePhi = true
	tuIn := unit(fn("f", types.I32, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "a"}, {Name: "b"}, {Name: "c"}}}},
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{
			Name: "x",
			Init: &ast.ScalarInit{Value: bin(ast.LogOr, bin(ast.LogAnd, ident("a"), ident("b")), ident("c"))},
		}}}},
		retStmt(intLit("0")))))
	prog, err := Lower(tuIn, opt)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	f := prog.GetFunction("f")
	labels := strings.Join(blockLabels(f), " ")
	for _, want := range []string{"and_true_0", "and_end_0", "or_false_0", "or_end_0"} {
		if !strings.Contains(labels, want) {
			t.Errorf("short-circuit block %q missing; blocks: %s", want, labels)
		}
	}
	if n := countOps(f, OpPhi); n != 2 {
		t.Errorf("phi count = %d, want 2 (one per short-circuit merge)", n)
	}
	if n := countOps(f, OpZext); n == 0 {
		t.Errorf("i1 result never widened to i32 before the store")
	}
}

func TestLowerShortCircuitWithoutPhiUsesReplacePhiLocal(t *testing.T) {
	opt := config.Default()
	opt.UsePhi = false
	tu := unit(fn("f", types.I32, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "a"}, {Name: "b"}}}},
		retStmt(bin(ast.LogAnd, ident("a"), ident("b"))))))
	prog, err := Lower(tu, opt)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	f := prog.GetFunction("f")
	if n := countOps(f, OpPhi); n != 0 {
		t.Errorf("phi emitted in phi-off mode (%d)", n)
	}
	found := false
	for _, lv := range f.Locals {
		if lv.Name == "%replace_phi_0" {
			found = true
		}
	}
	if !found {
		t.Errorf("replace_phi_0 local never allocated; locals = %+v", f.Locals)
	}
}

func TestLowerShortCircuitConstantLeftFalseSkipsRight(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.I32, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "b"}}}},
		retStmt(bin(ast.LogAnd, intLit("0"), ident("b")))))))

	f := prog.GetFunction("f")
	if len(f.Blocks) != 2 { // entry + ret_then only; no short-circuit blocks
		t.Errorf("blocks = %v, want no short-circuit blocks for a constant-false left operand", blockLabels(f))
	}
	if n := countOps(f, OpLoad); n != 0 {
		t.Errorf("right operand was evaluated (%d loads) despite constant-false left", n)
	}
}

func TestLowerWhileBreakContinueTargets(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.Void, body(
		&ast.WhileStmt{
			Cond: intLit("1"),
			Body: body(
				&ast.IfStmt{Cond: intLit("1"), Then: &ast.BreakStmt{}},
				&ast.ContinueStmt{},
			),
		}))))

	f := prog.GetFunction("f")
	var sawBreakBr, sawContinueBr bool
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op != OpBr || in.X != "" {
				continue
			}
			switch in.Targets[0] {
			case "while_end_0":
				sawBreakBr = true
			case "while_entry_0":
				sawContinueBr = true
			}
		}
	}
	if !sawBreakBr {
		t.Errorf("break never branched to while_end_0; blocks: %v", blockLabels(f))
	}
	if !sawContinueBr {
		t.Errorf("continue never branched to while_entry_0; blocks: %v", blockLabels(f))
	}
}

func TestLowerBreakOutsideLoopFails(t *testing.T) {
	_, err := Lower(unit(fn("f", types.Void, body(&ast.BreakStmt{Line: 3}))), config.Default())
	if err == nil || !strings.Contains(err.Error(), "outside loop") {
		t.Errorf("break outside loop: err = %v, want \"outside loop\"", err)
	}
}

func TestLowerUndefinedIdentifierFails(t *testing.T) {
	_, err := Lower(unit(fn("f", types.I32, body(retStmt(ident("nope"))))), config.Default())
	if err == nil || !strings.Contains(err.Error(), "undefined") {
		t.Errorf("undefined reference: err = %v, want \"undefined\"", err)
	}
}

func TestLowerRedeclarationFails(t *testing.T) {
	_, err := Lower(unit(fn("f", types.Void, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "x"}, {Name: "x"}}}}))),
		config.Default())
	if err == nil || !strings.Contains(err.Error(), "has been defined") {
		t.Errorf("redeclaration: err = %v, want \"has been defined\"", err)
	}
}

func TestLowerCallArgumentCountMismatchFails(t *testing.T) {
	_, err := Lower(unit(
		fn("g", types.I32, body(retStmt(intLit("0"))), ast.Param{Name: "x", Type: types.I32}),
		fn("f", types.I32, body(retStmt(&ast.CallExpr{Callee: "g"}))),
	), config.Default())
	if err == nil || !strings.Contains(err.Error(), "argument") {
		t.Errorf("argument count mismatch: err = %v", err)
	}
}

func TestLowerDivisionByZeroInFoldFails(t *testing.T) {
	_, err := Lower(unit(fn("f", types.I32, body(retStmt(bin(ast.Div, intLit("1"), intLit("0")))))), config.Default())
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("constant division by zero: err = %v", err)
	}
}

func TestLowerLocalArrayEmitsMemsetAndStores(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.Void, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{
			Name: "a", Dims: []int{2, 3},
			Init: &ast.ListInit{Elems: []ast.Init{
				&ast.ListInit{Elems: []ast.Init{&ast.ScalarInit{Value: intLit("1")}}},
				&ast.ListInit{Elems: []ast.Init{&ast.ScalarInit{Value: intLit("2")}}},
			}},
		}}}}))))

	f := prog.GetFunction("f")
	entry := f.Entry()
	var memset *Instr
	for i := range entry.Instrs {
		if entry.Instrs[i].Op == OpCall && entry.Instrs[i].Callee == "memset" {
			memset = &entry.Instrs[i]
		}
	}
	if memset == nil {
		t.Fatalf("no memset call emitted; entry = %+v", entry.Instrs)
	}
	if memset.Args[2] != "24" {
		t.Errorf("memset length = %q, want 24 (2*3 ints)", memset.Args[2])
	}
	if n := countOps(f, OpStore); n != 2 {
		t.Errorf("store count = %d, want 2 initializer stores", n)
	}
	if len(f.Locals) != 1 || !f.Locals[0].Elem.IsArray() {
		t.Errorf("array alloca not tracked in the local-var list: %+v", f.Locals)
	}
}

func TestLowerMisalignedNestedInitializerFails(t *testing.T) {
	// {1, {2}}: the nested list begins at offset 1, not a multiple of the
	// inner dimension 2.
	_, err := Lower(unit(&ast.Decl{Type: types.I32, Defs: []ast.Def{{
		Name: "a", Dims: []int{2, 2},
		Init: &ast.ListInit{Elems: []ast.Init{
			&ast.ScalarInit{Value: intLit("1")},
			&ast.ListInit{Elems: []ast.Init{&ast.ScalarInit{Value: intLit("2")}}},
		}},
	}}}), config.Default())
	if err == nil || !strings.Contains(err.Error(), "wrong initializer format") {
		t.Errorf("misaligned nested initializer: err = %v", err)
	}
}

func TestLowerGlobalArrayPadsWithZeros(t *testing.T) {
	prog := lowerOne(t, unit(&ast.Decl{Type: types.I32, Defs: []ast.Def{{
		Name: "a", Dims: []int{3, 4},
		Init: &ast.ListInit{Elems: []ast.Init{
			&ast.ListInit{Elems: []ast.Init{&ast.ScalarInit{Value: intLit("1")}}},
			&ast.ListInit{Elems: []ast.Init{&ast.ScalarInit{Value: intLit("2")}, &ast.ScalarInit{Value: intLit("3")}}},
			&ast.ScalarInit{Value: intLit("4")},
		}},
	}}}))

	if len(prog.Globals) != 1 {
		t.Fatalf("globals = %+v, want one array", prog.Globals)
	}
	g := prog.Globals[0]
	want := []string{"1", "0", "0", "0", "2", "3", "0", "0", "4", "0", "0", "0"}
	if len(g.Elems) != len(want) {
		t.Fatalf("elems = %d, want %d", len(g.Elems), len(want))
	}
	for i, w := range want {
		if g.Elems[i].Lexeme != w {
			t.Errorf("elem[%d] = %q, want %q", i, g.Elems[i].Lexeme, w)
		}
	}
}

func TestLowerIndexOnNonArrayFails(t *testing.T) {
	_, err := Lower(unit(fn("f", types.I32, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "x"}}}},
		retStmt(&ast.IndexExpr{Base: "x", Indices: []ast.Expr{intLit("0")}})))), config.Default())
	if err == nil || !strings.Contains(err.Error(), "non-array") {
		t.Errorf("index applied to non-array: err = %v", err)
	}
}

func TestLowerDecayedParameterLoadsPointerBeforeIndexing(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.I32,
		body(retStmt(&ast.IndexExpr{Base: "a", Indices: []ast.Expr{intLit("0")}})),
		ast.Param{Name: "a", Type: types.I32, Dims: []int{-1}})))

	f := prog.GetFunction("f")
	var ptrLoads int
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == OpLoad && in.Type == types.I64 {
				ptrLoads++
			}
		}
	}
	if ptrLoads == 0 {
		t.Errorf("no pointer-width load of the decayed parameter before indexing")
	}
}

func TestLowerTypePromotionIntPlusFloat(t *testing.T) {
	prog := lowerOne(t, unit(fn("f", types.Float, body(
		&ast.LocalDecl{Decl: ast.Decl{Type: types.I32, Defs: []ast.Def{{Name: "i"}}}},
		&ast.LocalDecl{Decl: ast.Decl{Type: types.Float, Defs: []ast.Def{{Name: "s"}}}},
		retStmt(bin(ast.Add, ident("i"), ident("s")))))))

	f := prog.GetFunction("f")
	if n := countOps(f, OpSitofp); n != 1 {
		t.Errorf("sitofp count = %d, want the int operand converted once", n)
	}
	var addIsFloat bool
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == OpAdd && in.Type == types.Float {
				addIsFloat = true
			}
		}
	}
	if !addIsFloat {
		t.Errorf("mixed add not promoted to float")
	}
}
