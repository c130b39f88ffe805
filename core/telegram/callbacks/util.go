package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits callback data into a routing key and payload.
//
// Two encodings are understood: Telebot's "\f<unique>|<payload>" and raw
// "<key>_<payload>" data set on buttons without a unique id. Raw data with no
// underscore is returned whole as the key.
func ParseData(data string) (string, string) {
	if raw, ok := strings.CutPrefix(data, "\f"); ok {
		unique, payload, _ := strings.Cut(raw, "|")
		return strings.TrimSpace(unique), payload
	}
	key, payload, _ := strings.Cut(data, "_")
	return strings.TrimSpace(key), payload
}

// CallbackKey returns cb.Unique if present; otherwise parses from Data.
func CallbackKey(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	k, _ := ParseData(cb.Data)
	return k
}
