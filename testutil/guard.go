// Package testutil provides shared helpers for enforcing architectural
// boundary invariants across the repository.
package testutil

import (
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoDirectImports scans all non-test .go files directly in dir
// (typically "." from within the package under test) and fails if any import
// path satisfies the forbidden predicate. Build tags are not evaluated and
// subdirectories are not descended into.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIfViolations(t, reason, viols)
}

// AssertNoTreeImports walks every non-test .go file under root, recursing
// into subdirectories, and fails if any import path satisfies the forbidden
// predicate. Use it for multi-package trees such as plugins/.
func AssertNoTreeImports(t testing.TB, root string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := treeImportViolations(root, forbidden)
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	failIfViolations(t, reason, viols)
}

// InternalImportForbidden matches any import path with an /internal/ segment.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// NonStdlibImportForbidden matches import paths whose first segment carries
// a dot, the convention for third-party modules. Stdlib paths never carry
// one, but neither does this repository's dotless module path, so
// intra-module imports pass: guards that must also exclude those combine
// this predicate with an explicit module-path prefix check.
func NonStdlibImportForbidden(path string) bool {
	first := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		first = path[:i]
	}
	return strings.Contains(first, ".")
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		fileViols, err := fileImportViolations(fset, filepath.Join(dir, name), forbidden)
		if err != nil {
			return nil, err
		}
		viols = append(viols, fileViols...)
	}
	return viols, nil
}

func treeImportViolations(root string, forbidden func(importPath string) bool) ([]string, error) {
	fset := token.NewFileSet()
	var viols []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fileViols, ferr := fileImportViolations(fset, path, forbidden)
		if ferr != nil {
			return ferr
		}
		viols = append(viols, fileViols...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return viols, nil
}

func fileImportViolations(fset *token.FileSet, path string, forbidden func(importPath string) bool) ([]string, error) {
	fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	var viols []string
	for _, imp := range fileAst.Imports {
		ip := strings.Trim(imp.Path.Value, "\"")
		if forbidden(ip) {
			viols = append(viols, ip+" (in "+filepath.Base(path)+")")
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
