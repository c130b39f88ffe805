package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\[d\`+"`", EscapeMarkdown("a_b*c[d`"))
	assert.Equal(t, "NFC-AB12CD34 (ok).", EscapeMarkdown("NFC-AB12CD34 (ok)."))
	assert.Equal(t, "", EscapeMarkdown(""))
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `NFC\-AB12 \(ok\)\.`, EscapeMarkdownV2("NFC-AB12 (ok)."))
	assert.Equal(t, `a\\b`, EscapeMarkdownV2(`a\b`))
	assert.Equal(t, "plain", EscapeMarkdownV2("plain"))
}
