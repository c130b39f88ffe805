package format

import (
	"regexp"
)

var (
	mdV1Re = regexp.MustCompile("([_*`\\[])")
	mdV2Re = regexp.MustCompile(`([_*\[\]()~` + "`" + `>#+\-=|{}.!\\])`)
)

// EscapeMarkdown escapes user text for Telegram legacy Markdown.
func EscapeMarkdown(text string) string {
	return mdV1Re.ReplaceAllString(text, `\$1`)
}

// EscapeMarkdownV2 escapes user text for Telegram MarkdownV2.
func EscapeMarkdownV2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$1`)
}
