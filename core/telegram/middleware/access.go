package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions configures AdminOnlyMiddleware.
type AdminOptions struct {
	// AdminID is the only chat let through. Zero disables the check.
	AdminID int64
	// OnReject runs instead of the handler for everyone else.
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the update came from the adminID chat. The admin
// chat may be a group, so anyone posting in it counts. An unset admin
// matches nobody.
func IsAdmin(c tele.Context, adminID int64) bool {
	return adminID != 0 && ActorID(c) == adminID
}

// ActorID identifies who acted on an update: the chat it happened in,
// falling back to the sending user when there is no chat, as with inline
// callbacks.
func ActorID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil && chat.ID != 0 {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

// AdminOnlyMiddleware lets only the configured admin reach next.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.AdminID == 0 {
			return next
		}
		return func(c tele.Context) error {
			if IsAdmin(c, opts.AdminID) {
				return next(c)
			}
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
