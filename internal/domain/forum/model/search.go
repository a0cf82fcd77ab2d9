package model

// SearchMode 搜索范围
type SearchMode string

const (
	SearchTitles       SearchMode = "Titles"
	SearchDescriptions SearchMode = "Descriptions"
	SearchBoth         SearchMode = "Both"
)

// ParseSearchMode 未知取值按 Both 处理
func ParseSearchMode(s string) SearchMode {
	switch SearchMode(s) {
	case SearchTitles, SearchDescriptions:
		return SearchMode(s)
	default:
		return SearchBoth
	}
}

// PostFilter 帖子列表过滤条件，Category 与 Query 互斥，Category 优先
type PostFilter struct {
	Category string
	Query    string
	Mode     SearchMode
}
