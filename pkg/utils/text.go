package utils

import (
	"regexp"
	"sort"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions 提取文本中的 @username，去重后返回 (按字典序，便于比较)
// 不校验用户是否存在，由通知分发负责解析
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names
}

// Truncate 取前 n 个 rune 作为预览并追加 "..."
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text + "..."
	}
	return string(runes[:n]) + "..."
}
