package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is an inline button. Data comes back verbatim in the callback query.
type InlineBtn struct {
	Text string
	Data string
}

// ReplyButtons builds a resized reply keyboard, one row per argument.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	keyboard := make([][]tele.ReplyButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.ReplyButton, len(row))
		for i, label := range row {
			buttons[i] = tele.ReplyButton{Text: label}
		}
		keyboard = append(keyboard, buttons)
	}
	return &tele.ReplyMarkup{ResizeKeyboard: true, ReplyKeyboard: keyboard}
}

// InlineButtons stacks buttons vertically, one per row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, len(buttons))
	for i, b := range buttons {
		rows[i] = []InlineBtn{b}
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of buttons. No
// Unique id is set, so telebot leaves Data untouched.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		inline[i] = make([]tele.InlineButton, len(row))
		for j, btn := range row {
			inline[i][j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
