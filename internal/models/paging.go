package models

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects one page of a list. PageNo is 1-based.
type PageRequest struct {
	PageNo   int `json:"pageNo"`
	PageSize int `json:"pageSize"`
}

// Normalize clamps the request into the supported range.
func (p PageRequest) Normalize() PageRequest {
	if p.PageNo < 1 {
		p.PageNo = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() uint64 {
	return uint64(p.PageSize * (p.PageNo - 1))
}

// Pagination describes the full result set
type Pagination struct {
	Length   int64 `json:"length"`
	PageSize int   `json:"pageSize"`
}

// Page is one page of entities
type Page[T any] struct {
	Entities   []T        `json:"entities"`
	Pagination Pagination `json:"pagination"`
}
