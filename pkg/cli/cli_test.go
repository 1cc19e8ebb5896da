package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-tables/internal/api"
	"duck-tables/internal/dataset"
	"duck-tables/internal/domain"
	"duck-tables/internal/service/table"
)

// isolate points HOME at a fresh directory and clears the TABLES_* variables
// so no real profile or environment leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TABLES_HOST", "TABLES_OUTPUT", "TABLES_MANIFEST", "TABLES_MOCK_DIR"} {
		t.Setenv(k, "")
	}
	return home
}

// execute runs a fresh root command and returns what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const salesQuery = `
dataset: sales
dimensions: [region]
fields:
  - {name: total, expression: SUM(amount)}
filters:
  - {column: region, op: in, values: [EU, US]}
`

func TestSQLQuery(t *testing.T) {
	isolate(t)
	want := `SELECT "sales"."region" AS "region", SUM(amount) AS "total" FROM "sales" WHERE "sales"."region" IN ('EU', 'US') GROUP BY "sales"."region" ORDER BY "sales"."region"`

	out, err := execute(t, salesQuery, "sql", "query", "-", "-o", "table")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	path := writeFile(t, t.TempDir(), "q.yaml", salesQuery)
	out, err = execute(t, "", "sql", "query", path, "-o", "json")
	require.NoError(t, err)
	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, want, resp["sql"])
}

func TestSQLQuery_Errors(t *testing.T) {
	isolate(t)
	tests := map[string]string{
		"unknown_key": "dataset: sales\ncolour: red\n",
		"empty":       "",
		"no_columns":  "dataset: sales\n",
		"bad_op":      "dataset: sales\ndimensions: [a]\nfilters: [{column: a, op: like, values: [x]}]\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, in, "sql", "query", "-")
			assert.Error(t, err)
		})
	}

	_, err := execute(t, "", "sql", "query", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSQLJoin(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "sql", "join", "-o", "table",
		"--left", "SELECT 1 AS k, 2 AS v", "--right", "SELECT 1 AS k, 3 AS v",
		"--using", "k", "--mode", "left", "--pick", "v")
	require.NoError(t, err)
	assert.Equal(t,
		`WITH "current" AS (SELECT 1 AS k, 2 AS v), "previous" AS (SELECT 1 AS k, 3 AS v) SELECT "current".*, "previous"."v" AS "prev_v" FROM "current" LEFT JOIN "previous" USING ("k")`+"\n",
		out)

	_, err = execute(t, "", "sql", "join", "--left", "SELECT 1", "--right", "SELECT 1", "--using", "k", "--mode", "cross")
	assert.Error(t, err)
}

func TestSQLLag(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"defaults", []string{"col"}, "LAG(col, 1, NULL)"},
		{"window", []string{"col", "--default", "0", "--partition-by", "g", "--order-by", "d"}, `LAG(col, 1, 0) OVER (PARTITION BY "g" ORDER BY "d")`},
		{"offset", []string{"label", "--offset", "2", "--default", "'n/a'", "--order-by", "d"}, `LAG(label, 2, 'n/a') OVER (ORDER BY "d")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"sql", "lag", "-o", "table"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestFormat(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "format", "-o", "table", "5")
	require.NoError(t, err)
	assert.Equal(t, "VALUE  DISPLAY\n5      5.00\n", out)

	out, err = execute(t, "", "format", "-o", "json", "--type", "percentage", "--decimals", "1", "12.34")
	require.NoError(t, err)
	var values []formattedValue
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Equal(t, []formattedValue{{Value: "12.34", Display: "12.3%"}}, values)

	out, err = execute(t, "", "format", "-o", "json", "--type", "time", "--layout", "2006-01", "2024-03-05")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Equal(t, "2024-03", values[0].Display)

	_, err = execute(t, "", "format", "--type", "roman", "1")
	assert.Error(t, err)
	_, err = execute(t, "", "format")
	assert.Error(t, err)
}

func TestMockGenerate(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	out, err := execute(t, "", "mock", "generate", "-o", "json", "--dir", dir, "--rows", "10", "--seed", "1")
	require.NoError(t, err)

	var m dataset.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Len(t, m.Datasets, 3)
	for _, ds := range m.Datasets {
		assert.FileExists(t, ds.Path)
	}
	assert.FileExists(t, filepath.Join(dir, "datasets.yaml"))
}

const runRequest = `
dataset: kpis
dimensions: [region]
measures:
  - {column: amount, aggregation: sum, footer: sum}
`

func runFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "kpis.csv", "region,amount\nEU,1.25\nUS,2.25\nEU,3.50\n")
	return writeFile(t, dir, "datasets.yaml", "datasets:\n  - {name: kpis, path: kpis.csv}\n")
}

func TestRun(t *testing.T) {
	isolate(t)
	manifest := runFixture(t)

	out, err := execute(t, runRequest, "run", "-", "--manifest", manifest, "-o", "json")
	require.NoError(t, err)
	var page table.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Display, 2)
	assert.Equal(t, "4.75", page.Display[0]["sum_amount"])
	assert.Equal(t, "2.25", page.Display[1]["sum_amount"])
	require.Len(t, page.Footers, 1)
	assert.Equal(t, "7.00", page.Footers[0].Display)

	out, err = execute(t, runRequest, "run", "-", "--manifest", manifest, "-o", "table", "--page-size", "1", "--page", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "REGION  SUM_AMOUNT\nUS      2.25\ntotal   2.25\n")
	assert.Contains(t, out, "page 2 of 2, 2 rows")
}

func TestRun_ManifestFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TABLES_MANIFEST", runFixture(t))

	out, err := execute(t, runRequest, "run", "-", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_rows": 2`)
}

func TestRun_Explain(t *testing.T) {
	isolate(t)
	out, err := execute(t, runRequest, "run", "-", "--explain", "-o", "table", "--page", "2", "--page-size", "10")
	require.NoError(t, err)
	assert.Contains(t, out, `SELECT "kpis"."region" AS "region", SUM("kpis"."amount") AS "sum_amount" FROM "kpis"`)
	assert.Contains(t, out, "LIMIT 10 OFFSET 20")
}

func TestRun_MockData(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	out, err := execute(t, "dataset: sales\ndimensions: [region]\nmeasures: [{column: '*', aggregation: count}]\n",
		"run", "-", "--mock-dir", dir, "-o", "json")
	require.NoError(t, err)
	var page table.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.NotEmpty(t, page.Rows)
	assert.FileExists(t, filepath.Join(dir, "sales.csv"))
}

func TestRun_UnknownColumn(t *testing.T) {
	isolate(t)
	_, err := execute(t, "dataset: kpis\ndimensions: [nope]\n", "run", "-", "--manifest", runFixture(t))
	var qerr *domain.QueryError
	assert.ErrorAs(t, err, &qerr)
}

func TestPresets_Remote(t *testing.T) {
	isolate(t)
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/presets":
			_ = json.NewEncoder(w).Encode(api.PresetList{
				Data:  []domain.Preset{{Name: "by-region", Dataset: "sales", Description: "Revenue"}},
				Total: 1, PageCount: 1,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/presets/missing/run":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.Error{Code: 404, Message: `preset "missing" not found`})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	out, err := execute(t, "", "presets", "list", "--host", srv.URL, "--dataset", "sales", "--page-size", "5", "-o", "table")
	require.NoError(t, err)
	assert.Equal(t, "/v1/presets", gotPath)
	assert.Equal(t, "dataset=sales&page_size=5", gotQuery)
	assert.Contains(t, out, "by-region")
	assert.Contains(t, out, "page 1 of 1, 1 presets")

	_, err = execute(t, "", "presets", "run", "missing", "--host", srv.URL)
	require.Error(t, err)
	assert.Equal(t, `preset "missing" not found (HTTP 404)`, err.Error())

	_, err = execute(t, "", "presets", "list", "--host", "localhost:8080")
	assert.ErrorContains(t, err, "scheme must be http or https")
}

func TestConfigProfiles(t *testing.T) {
	home := isolate(t)

	_, err := execute(t, "", "config", "set-profile", "--name", "default", "--default-output", "json", "--host", "http://example.com:9000")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".tables", "config.yaml"))

	// The profile's output format applies when -o is not given.
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	var cfg UserConfig
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "http://example.com:9000", cfg.Profiles["default"].Host)

	_, err = execute(t, "", "config", "set-profile", "--name", "bad", "--host", "ftp://x")
	assert.Error(t, err)
	_, err = execute(t, "", "config", "use-profile", "nope")
	assert.ErrorContains(t, err, `profile "nope" not found`)
	_, err = execute(t, "", "version", "--profile", "nope")
	assert.ErrorContains(t, err, `profile "nope" not found`)
}

func TestOutputFlag_Invalid(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "version", "-o", "yaml")
	assert.ErrorContains(t, err, `unsupported output format "yaml"`)
}
