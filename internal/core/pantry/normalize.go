package pantry

import (
	"strings"
	"unicode"
)

// Normalize 移除所有空白字元，作為食材比對鍵。
// 只處理空白，不做大小寫或全半形轉換。
func Normalize(name string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, name)
}

// isSpace 與瀏覽器端 \s 相同的字元集：unicode.IsSpace 加上 BOM，但不含 U+0085
func isSpace(r rune) bool {
	switch r {
	case '\ufeff':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

// SameIngredient 兩個名稱是否指同一種食材
func SameIngredient(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
