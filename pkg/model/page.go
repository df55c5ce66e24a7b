// pkg/model/page.go
package model

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200

	// MaxPage 保证 Page*Size 不溢出
	MaxPage = math.MaxInt / MaxPageSize
)

// 允许排序的列
var sortableColumns = map[string]bool{
	"id":     true,
	"ticker": true,
	"name":   true,
}

// Pageable 分页请求，Page 从0开始
type Pageable struct {
	Page int    `json:"page"`
	Size int    `json:"size"`
	Sort string `json:"sort"` // 例如 "name,desc"
}

// Normalize 修正越界的分页参数
func (p Pageable) Normalize() Pageable {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// OrderClause 把 Sort 转为 SQL 排序子句，未知列回退到 id
func (p Pageable) OrderClause() string {
	column, direction := "id", "ASC"

	parts := strings.Split(p.Sort, ",")
	if c := strings.ToLower(strings.TrimSpace(parts[0])); sortableColumns[c] {
		column = c
	}
	if len(parts) > 1 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
		direction = "DESC"
	}

	return column + " " + direction
}

// Page 分页结果
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage 根据总数计算总页数
func NewPage[T any](content []T, p Pageable, total int64) *Page[T] {
	if content == nil {
		content = []T{}
	}

	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}

	return &Page[T]{
		Content:       content,
		Number:        p.Page,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
