package architecture_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "duck-tables"

type layerRule struct {
	sourcePrefix string
	forbidden    []string
	hint         string
}

func pkgs(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = modulePath + "/" + n
	}
	return out
}

var architectureRules = []layerRule{
	{
		sourcePrefix: modulePath + "/internal/domain",
		forbidden:    pkgs("internal", "cmd", "pkg"),
		hint:         "domain may only import the standard library and third-party packages",
	},
	{
		sourcePrefix: modulePath + "/internal/duckdbsql",
		forbidden:    pkgs("internal/querybuilder", "internal/engine", "internal/service", "internal/api", "internal/db", "internal/repository"),
		hint:         "duckdbsql is a leaf: AST and formatter only",
	},
	{
		sourcePrefix: modulePath + "/internal/querybuilder",
		forbidden:    pkgs("internal/engine", "internal/service", "internal/api", "internal/db", "internal/repository"),
		hint:         "querybuilder renders SQL and never executes it",
	},
	{
		sourcePrefix: modulePath + "/internal/aggregation",
		forbidden:    pkgs("internal/engine", "internal/service", "internal/api", "internal/db", "internal/repository", "internal/querybuilder"),
		hint:         "aggregation works on plain rows",
	},
	{
		sourcePrefix: modulePath + "/internal/format",
		forbidden:    pkgs("internal/engine", "internal/service", "internal/api", "internal/db", "internal/repository", "internal/querybuilder"),
		hint:         "format works on plain values",
	},
	{
		sourcePrefix: modulePath + "/internal/engine",
		forbidden:    pkgs("internal/service", "internal/api", "internal/db", "internal/repository", "internal/middleware", "cmd", "pkg"),
		hint:         "engine should depend on domain and duckdbsql",
	},
	{
		sourcePrefix: modulePath + "/internal/service",
		forbidden:    pkgs("internal/api", "internal/db", "internal/repository", "internal/middleware", "internal/app", "cmd", "pkg"),
		hint:         "services reach storage through domain interfaces",
	},
	{
		sourcePrefix: modulePath + "/internal/db",
		forbidden:    pkgs("internal/api", "internal/service", "internal/engine", "internal/repository", "internal/middleware", "cmd", "pkg"),
		hint:         "db should depend on db-local packages",
	},
	{
		sourcePrefix: modulePath + "/internal/repository",
		forbidden:    pkgs("internal/api", "internal/service", "internal/engine", "internal/middleware", "cmd", "pkg"),
		hint:         "repository should depend on db and domain",
	},
	{
		sourcePrefix: modulePath + "/internal/middleware",
		forbidden:    pkgs("internal/service", "internal/db", "internal/repository", "internal/engine", "internal/api"),
		hint:         "middleware should depend on domain and middleware-local packages",
	},
	{
		sourcePrefix: modulePath + "/internal/api",
		forbidden:    pkgs("internal/db", "internal/repository", "internal/app", "cmd", "pkg"),
		hint:         "api should depend on service/domain/api packages",
	},
	{
		sourcePrefix: modulePath + "/pkg/cli",
		forbidden:    pkgs("internal/db", "internal/repository", "internal/app", "cmd"),
		hint:         "the CLI runs tables locally or over HTTP, never against the metastore",
	},
}

func TestImportBoundaries(t *testing.T) {
	root := repoRootDir()
	var files []string
	for _, dir := range []string{"internal", "pkg"} {
		found, err := collectGoFiles(filepath.Join(root, dir))
		require.NoError(t, err)
		files = append(files, found...)
	}
	require.NotEmpty(t, files)

	violations := make([]string, 0)
	fset := token.NewFileSet()

	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		sourcePkg := packageImportPath(root, file)
		rule, ok := findRule(sourcePkg)
		if !ok {
			continue
		}

		parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		require.NoErrorf(t, err, "parse imports for %s", file)

		for _, imp := range parsed.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			if hasPathPrefix(importPath, sourcePkg) {
				continue
			}
			if violatesRule(importPath, rule.forbidden) {
				violations = append(violations,
					sourcePkg+" imports "+importPath+" via "+file+"; allowed direction: "+rule.hint)
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}

func TestFindRule(t *testing.T) {
	rule, ok := findRule(modulePath + "/internal/service/table")
	require.True(t, ok)
	require.Equal(t, modulePath+"/internal/service", rule.sourcePrefix)

	_, ok = findRule(modulePath + "/internal/dataset")
	require.False(t, ok)

	require.True(t, violatesRule(modulePath+"/internal/db", pkgs("internal/db")))
	require.False(t, violatesRule(modulePath+"/internal/dataset", pkgs("internal/data")))
}

func collectGoFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".go") {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	return files, err
}

func repoRootDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func packageImportPath(root, file string) string {
	rel, err := filepath.Rel(root, filepath.Dir(file))
	if err != nil {
		return ""
	}
	return modulePath + "/" + filepath.ToSlash(rel)
}

func findRule(sourcePkg string) (layerRule, bool) {
	for _, rule := range architectureRules {
		if hasPathPrefix(sourcePkg, rule.sourcePrefix) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func violatesRule(importPath string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches whole path elements, so "a/db" does not match "a/dbx".
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
