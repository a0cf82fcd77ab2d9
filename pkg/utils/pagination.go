package utils

import "math"

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageResult 分页响应结果
type PageResult struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Pages int         `json:"pages"`
}

// GetPageOffset 计算分页偏移量
func (p *Pagination) GetPageOffset() (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	// 超大页码会让偏移量溢出为负数，截断到最大可表示的页
	if maxPage := math.MaxInt / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// FixedPage 固定页大小的分页 (页码从 1 开始，非法页码归一为 1)
func FixedPage(page, size int) Pagination {
	p := Pagination{Page: page, Limit: size}
	p.GetPageOffset()
	return p
}

// TotalPages 计算总页数
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// NewPageResult 组装分页结果
func NewPageResult(list interface{}, total int64, p Pagination) PageResult {
	return PageResult{
		List:  list,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: TotalPages(total, p.Limit),
	}
}
