package duckdbsql

func (f *formatter) formatStmt(stmt Stmt) {
	if s, ok := stmt.(*SelectStmt); ok {
		f.formatSelectStmt(s)
	}
}

func (f *formatter) formatSelectStmt(stmt *SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.With != nil && len(stmt.With.CTEs) > 0 {
		f.write("WITH ")
		f.commaSep(len(stmt.With.CTEs), func(i int) {
			cte := stmt.With.CTEs[i]
			f.writeIdent(cte.Name)
			f.write(" AS (")
			if cte.Select != nil {
				f.formatSelectStmt(cte.Select)
			} else {
				f.write(cte.Raw)
			}
			f.write(")")
		})
		f.space()
	}
	f.formatSelectCore(stmt.Body)
}

func (f *formatter) formatSelectCore(sc *SelectCore) {
	if sc == nil {
		return
	}

	f.write("SELECT ")
	f.commaSep(len(sc.Columns), func(i int) {
		f.formatSelectItem(sc.Columns[i])
	})

	if sc.From != nil {
		f.write(" FROM ")
		f.formatTableRef(sc.From.Source)
		for _, j := range sc.From.Joins {
			f.formatJoin(j)
		}
	}

	if sc.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(sc.Where)
	}

	// GROUP BY and ORDER BY are omitted entirely when empty.
	if len(sc.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(sc.GroupBy), func(i int) {
			f.formatExpr(sc.GroupBy[i])
		})
	}

	if len(sc.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(sc.OrderBy), func(i int) {
			f.formatOrderByItem(sc.OrderBy[i])
		})
	}

	if sc.Limit != nil {
		f.write(" LIMIT ")
		f.formatExpr(sc.Limit)
	}
	if sc.Offset != nil {
		f.write(" OFFSET ")
		f.formatExpr(sc.Offset)
	}
}

func (f *formatter) formatSelectItem(item SelectItem) {
	switch {
	case item.Star:
		f.write("*")
	case item.TableStar != "":
		f.writeIdent(item.TableStar)
		f.write(".*")
	default:
		f.formatExpr(item.Expr)
		if item.Alias != "" {
			f.write(" AS ")
			f.writeIdent(item.Alias)
		}
	}
}

func (f *formatter) formatTableRef(ref TableRef) {
	switch t := ref.(type) {
	case *TableName:
		if t.Schema != "" {
			f.writeIdent(t.Schema)
			f.write(".")
		}
		f.writeIdent(t.Name)
		if t.Alias != "" {
			f.space()
			f.writeIdent(t.Alias)
		}
	case *DerivedTable:
		f.write("(")
		f.formatSelectStmt(t.Select)
		f.write(")")
		if t.Alias != "" {
			f.space()
			f.writeIdent(t.Alias)
		}
	}
}

func (f *formatter) formatJoin(j *Join) {
	if j == nil {
		return
	}
	f.space()
	f.write(string(j.Type))
	f.write(" JOIN ")
	f.formatTableRef(j.Right)

	if j.Condition != nil {
		f.write(" ON ")
		f.formatExpr(j.Condition)
	}
	if len(j.Using) > 0 {
		f.write(" USING (")
		f.commaSep(len(j.Using), func(i int) {
			f.writeIdent(j.Using[i])
		})
		f.write(")")
	}
}
