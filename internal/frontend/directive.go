package frontend

import (
	goast "go/ast"
	"go/token"
	"strings"
)

// IgnoreDirective excludes Go code from analysis. Above the package clause
// it covers the whole file, above or in the doc comment of a function it
// covers that function, and before or at the end of a statement it covers
// the statement. Text after the directive is free-form.
const IgnoreDirective = "//asymptote:ignore"

type ignores struct {
	file  bool
	funcs map[*goast.FuncDecl]bool
	stmts map[goast.Stmt]bool
}

func parseIgnores(f *goast.File, fset *token.FileSet) ignores {
	ig := ignores{funcs: map[*goast.FuncDecl]bool{}, stmts: map[goast.Stmt]bool{}}
	stmtMap := indexStatementsByLine(f, fset)
	packageLine := fset.Position(f.Package).Line

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !isIgnore(c.Text) {
				continue
			}
			pos := fset.Position(c.Slash)
			if pos.Line < packageLine {
				ig.file = true
				continue
			}
			if stmt, ok := stmtMap[pos.Line]; ok && pos.Offset > fset.Position(stmt.Pos()).Offset {
				ig.stmts[stmt] = true
				continue
			}
			if fn := funcAfter(f, fset, c, pos.Line); fn != nil {
				ig.funcs[fn] = true
				continue
			}
			if stmt, ok := stmtMap[pos.Line+1]; ok {
				ig.stmts[stmt] = true
			}
		}
	}
	return ig
}

func isIgnore(text string) bool {
	rest, ok := strings.CutPrefix(text, IgnoreDirective)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// indexStatementsByLine maps each line to the first statement starting on it.
func indexStatementsByLine(f *goast.File, fset *token.FileSet) map[int]goast.Stmt {
	stmtMap := make(map[int]goast.Stmt)
	goast.Inspect(f, func(n goast.Node) bool {
		if stmt, ok := n.(goast.Stmt); ok {
			line := fset.Position(stmt.Pos()).Line
			if _, exists := stmtMap[line]; !exists {
				stmtMap[line] = stmt
			}
		}
		return true
	})
	return stmtMap
}

// funcAfter returns the function whose doc comment holds c or that starts
// on the line after it.
func funcAfter(f *goast.File, fset *token.FileSet, c *goast.Comment, line int) *goast.FuncDecl {
	for _, decl := range f.Decls {
		fn, ok := decl.(*goast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Doc != nil && fn.Doc.Pos() <= c.Pos() && c.End() <= fn.Doc.End() {
			return fn
		}
		if fset.Position(fn.Pos()).Line == line+1 {
			return fn
		}
	}
	return nil
}
