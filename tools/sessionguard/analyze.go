// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

const modelPkgSuffix = "/internal/domain/session/model"

// Lifecycle timestamps and status only change through lifecycle.ApplyTransition.
var guardedFields = map[string]struct{}{
	"Status":      {},
	"StartedAt":   {},
	"PausedAt":    {},
	"CompletedAt": {},
}

// writeAllowed may assign guarded fields directly.
var writeAllowed = []string{
	filepath.Join("internal", "domain", "session", "lifecycle"),
	filepath.Join("internal", "domain", "session", "store"),
}

// literalAllowed may construct sessions with guarded fields set (creation,
// rehydration and archive decode).
var literalAllowed = append([]string{
	filepath.Join("internal", "domain", "session", "controller"),
}, writeAllowed...)

// Analyze loads patterns from dir and reports every guarded session write
// outside the allowed packages.
func Analyze(dir string, patterns ...string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedFiles | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s: %s", pkg.PkgPath, pkg.Errors[0].Msg)
		}
		for _, file := range pkg.Syntax {
			filename := pkg.Fset.File(file.Pos()).Name()
			if strings.HasSuffix(filename, "_test.go") {
				continue
			}
			violations = append(violations, inspectFile(pkg, file, filename)...)
		}
	}
	return violations, nil
}

func inspectFile(pkg *packages.Package, file *ast.File, filename string) []string {
	canWrite := inDirs(filename, writeAllowed)
	canLiteral := inDirs(filename, literalAllowed)

	var out []string
	report := func(pos ast.Node, msg string) {
		p := pkg.Fset.Position(pos.Pos())
		out = append(out, fmt.Sprintf("%s:%d: %s", p.Filename, p.Line, msg))
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.AssignStmt:
			if canWrite {
				return true
			}
			for _, lhs := range node.Lhs {
				sel, ok := lhs.(*ast.SelectorExpr)
				if !ok || !isSession(pkg.TypesInfo.TypeOf(sel.X)) {
					continue
				}
				if _, ok := guardedFields[sel.Sel.Name]; ok {
					report(sel, "direct Session."+sel.Sel.Name+" write (use lifecycle.Dispatch/ApplyTransition)")
				}
			}
		case *ast.CompositeLit:
			if canLiteral || !isSession(pkg.TypesInfo.TypeOf(node)) {
				return true
			}
			for _, elt := range node.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				key, ok := kv.Key.(*ast.Ident)
				if !ok {
					continue
				}
				if _, ok := guardedFields[key.Name]; ok {
					report(kv, "Session literal sets "+key.Name+" outside the controller")
				}
			}
		}
		return true
	})
	return out
}

func inDirs(filename string, dirs []string) bool {
	for _, d := range dirs {
		if strings.Contains(filename, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func isSession(typ types.Type) bool {
	if typ == nil {
		return false
	}
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = ptr.Elem()
	}
	named, ok := typ.(*types.Named)
	if !ok || named.Obj().Name() != "Session" || named.Obj().Pkg() == nil {
		return false
	}
	return strings.HasSuffix(named.Obj().Pkg().Path(), modelPkgSuffix)
}
