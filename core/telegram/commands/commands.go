package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Registration failures reported by Validate.
var (
	ErrInvalid       = errors.New("invalid")
	ErrNoSlashPrefix = errors.New("no_slash_prefix")
)

// Command is a slash command and the metadata used to publish it.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin and are never listed.
	AdminOnly bool
	// Hidden commands work when typed but are left out of the command menu.
	Hidden bool
	// Aliases are extra names, with or without the leading slash.
	Aliases []string
}

// Validate checks that cmd can be registered under name.
func (cmd Command) Validate(name string) error {
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		return ErrInvalid
	case !strings.HasPrefix(name, "/"):
		return ErrNoSlashPrefix
	}
	return nil
}

// Listed reports whether the command belongs in the public command menu.
func (cmd Command) Listed() bool {
	return !cmd.Hidden && !cmd.AdminOnly
}

// HasAlias reports whether name, a slash command, is one of the aliases.
func (cmd Command) HasAlias(name string) bool {
	bare := strings.TrimPrefix(name, "/")
	for _, alias := range cmd.Aliases {
		if strings.TrimPrefix(alias, "/") == bare {
			return true
		}
	}
	return false
}
