package recommend

import (
	"sort"
	"strings"
	"unicode"
)

// maxKeywords 限定画像最多保留的关键词数量。
const maxKeywords = 10

// minTokenLen 过滤过短的词元。
const minTokenLen = 3

// stopWords 为固定停用词表：冠词、介词与职级修饰词。
var stopWords = map[string]struct{}{
	"and": {}, "or": {}, "the": {}, "a": {}, "an": {}, "to": {}, "of": {},
	"for": {}, "in": {}, "on": {}, "with": {}, "at": {}, "by": {},
	"jr": {}, "junior": {}, "sr": {}, "senior": {}, "lead": {},
	"ii": {}, "iii": {},
}

// Keyword 是画像中的一个词元及其在全部标题中的出现次数。
type Keyword struct {
	Token string
	Count int
}

// MineKeywords 从收藏职位标题挖掘关键词画像：
// 小写化后按非字母数字连续段切分，丢弃短词与停用词，按频次统计；
// 频次相同的词元按首次出现顺序保序（稳定排序），取前 10 个。
// 标题集合为空时返回空画像。
func MineKeywords(titles []string) []Keyword {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, title := range titles {
		for _, token := range tokenize(title) {
			if len(token) < minTokenLen {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			if _, seen := counts[token]; !seen {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	profile := make([]Keyword, 0, len(order))
	for _, token := range order {
		profile = append(profile, Keyword{Token: token, Count: counts[token]})
	}
	return profile
}

// Tokens 提取画像中的词元列表，供评分表达式使用。
func Tokens(profile []Keyword) []string {
	tokens := make([]string, 0, len(profile))
	for _, kw := range profile {
		tokens = append(tokens, kw.Token)
	}
	return tokens
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
