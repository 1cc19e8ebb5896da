package api

import (
	"context"
	"net/http"

	"duck-tables/internal/duckdbsql"
	"duck-tables/internal/format"
	"duck-tables/internal/querybuilder"
)

// NamedExpr is a caller-written SQL expression with its output name.
type NamedExpr struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// QueryRequest is the wire form of querybuilder.QueryOptions. Segment and
// field expressions are SQL text and are emitted verbatim.
type QueryRequest struct {
	Dataset         string                         `json:"dataset"`
	GroupDimensions []querybuilder.ColumnReference `json:"group_dimensions,omitempty"`
	Segments        []NamedExpr                    `json:"segments,omitempty"`
	Fields          []NamedExpr                    `json:"fields,omitempty"`
	Filters         []querybuilder.Filter          `json:"filters,omitempty"`
}

func (q QueryRequest) options() querybuilder.QueryOptions {
	opts := querybuilder.QueryOptions{
		Dataset:         q.Dataset,
		GroupDimensions: q.GroupDimensions,
		Filters:         q.Filters,
	}
	for _, s := range q.Segments {
		opts.Segments = append(opts.Segments, querybuilder.Segment{Name: s.Name, Expression: rawOrNil(s.Expression)})
	}
	for _, f := range q.Fields {
		opts.Fields = append(opts.Fields, querybuilder.Field{Name: f.Name, Expression: rawOrNil(f.Expression)})
	}
	return opts
}

// rawOrNil keeps empty expressions nil so the builder reports them.
func rawOrNil(sql string) duckdbsql.Expr {
	if sql == "" {
		return nil
	}
	return duckdbsql.Raw(sql)
}

// LagRequest is the wire form of querybuilder.LagSQL.
type LagRequest struct {
	Expression string                  `json:"expression"`
	Offset     *int                    `json:"offset,omitempty"` // nil means 1
	Default    *string                 `json:"default,omitempty"`
	Window     *querybuilder.WindowDef `json:"window,omitempty"`
}

// SQLResponse carries generated SQL.
type SQLResponse struct {
	SQL string `json:"sql"`
}

// FormatRequest formats values with one format configuration.
type FormatRequest struct {
	Format format.Config `json:"format"`
	Values []any         `json:"values"`
}

// FormatResponse holds one display string per input value.
type FormatResponse struct {
	Values []string `json:"values"`
}

// BuildQuery handles POST /v1/sql/query.
func (h *APIHandler) BuildQuery(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ context.Context, req QueryRequest) (SQLResponse, error) {
		sql, err := querybuilder.BuildQuery(req.options())
		return SQLResponse{SQL: sql}, err
	})(w, r)
}

// BuildJoinQuery handles POST /v1/sql/join.
func (h *APIHandler) BuildJoinQuery(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ context.Context, spec querybuilder.JoinSpec) (SQLResponse, error) {
		sql, err := querybuilder.BuildJoinQuery(spec)
		return SQLResponse{SQL: sql}, err
	})(w, r)
}

// BuildLag handles POST /v1/sql/lag.
func (h *APIHandler) BuildLag(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ context.Context, req LagRequest) (SQLResponse, error) {
		if req.Expression == "" {
			return SQLResponse{}, errRequired("expression")
		}
		offset := 1
		if req.Offset != nil {
			offset = *req.Offset
		}
		return SQLResponse{SQL: querybuilder.LagSQL(req.Expression, offset, req.Default, req.Window)}, nil
	})(w, r)
}

// FormatValues handles POST /v1/format.
func (h *APIHandler) FormatValues(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ context.Context, req FormatRequest) (FormatResponse, error) {
		spec, err := req.Format.Spec()
		if err != nil {
			return FormatResponse{}, err
		}
		f := format.New(spec)
		out := make([]string, len(req.Values))
		for i, v := range req.Values {
			if v == nil {
				continue
			}
			out[i] = f(v)
		}
		return FormatResponse{Values: out}, nil
	})(w, r)
}
