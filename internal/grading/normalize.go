package grading

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 技术词汇里常见的标点，如 C#、50%、R&D，始终保留
const symbolPunct = "#%&@*_/\\"

// unspacedScripts 书写时不以空格分词的文字
var unspacedScripts = []*unicode.RangeTable{
	unicode.Han, unicode.Hiragana, unicode.Katakana,
	unicode.Thai, unicode.Lao, unicode.Khmer, unicode.Myanmar,
}

// isWordRune 以空格分词文字中的字母或数字
func isWordRune(r rune) bool {
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return false
	}
	return !unicode.In(r, unspacedScripts...)
}

// isSeparator 判断第 i 个字符是否按空白处理。
// 连字符一律视为分隔；其他标点夹在两个字母数字之间时保留（3.14、o'clock），符号（+、$）不受影响。
func isSeparator(rs []rune, i int) bool {
	r := rs[i]
	if unicode.IsSpace(r) || unicode.Is(unicode.Pd, r) {
		return true
	}
	if !unicode.IsPunct(r) || strings.ContainsRune(symbolPunct, r) {
		return false
	}
	inner := i > 0 && i < len(rs)-1 && isWordRune(rs[i-1]) && isWordRune(rs[i+1])
	return !inner
}

// normalize 小写化、去掉词边缘标点、合并空白
func normalize(s string) string {
	rs := []rune(strings.ToLower(s))
	var b strings.Builder
	space := false
	for i, r := range rs {
		if isSeparator(rs, i) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// containsPhrase 在已 normalize 的 text 中查找 phrase，允许词尾变化（recursions 命中 recursion）。
// phrase 以字母数字开头时，命中位置前不能紧挨同类字符，避免 cat 命中 concatenate；中日文等不做该检查。
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(phrase)
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		at := from + i
		if at == 0 || !isWordRune(first) {
			return true
		}
		if prev, _ := utf8.DecodeLastRuneInString(text[:at]); !isWordRune(prev) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[at:])
		from = at + size
	}
	return false
}
