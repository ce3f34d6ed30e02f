package textutil

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML 提取 HTML 片段中的纯文本并压缩空白。
// 职位描述允许携带富文本，搜索评分与提醒匹配都基于纯文本进行。
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.StartTagToken:
			if name, _ := tok.TagName(); isSkippedTag(name) {
				skipDepth++
			}
		case html.EndTagToken:
			if name, _ := tok.TagName(); isSkippedTag(name) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tok.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// Excerpt 返回纯文本的前 n 个字符（按 rune 计），截断时追加省略号。
func Excerpt(s string, n int) string {
	plain := StripHTML(s)
	runes := []rune(plain)
	if len(runes) <= n {
		return plain
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

func isSkippedTag(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
