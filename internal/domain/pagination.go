package domain

// DefaultPageSize is the table page size when none is specified.
const DefaultPageSize = 50

// MaxPageSize is the largest page a table request may ask for.
const MaxPageSize = 1000

// PageRequest selects one page of table rows. Page is zero-based.
type PageRequest struct {
	Page     int `json:"page" yaml:"page"`
	PageSize int `json:"page_size" yaml:"page_size"`
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Offset returns the index of the first row on the page.
func (p PageRequest) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return p.Page * p.Limit()
}

// PageCount returns how many pages total rows occupy at the effective size.
func (p PageRequest) PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	limit := p.Limit()
	return (total + limit - 1) / limit
}
