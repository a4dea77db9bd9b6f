package domain

import (
	"fmt"
	"html"
)

// User identifies a chat participant.
type User struct {
	ID        int64
	Username  string // without "@", may be empty
	FirstName string
}

// Mention renders u for an HTML-formatted message: @username when the user
// has one, otherwise a tg://user link labelled with the first name.
func (u User) Mention() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if name == "" {
		name = defaultMentionName
	}
	return MentionID(u.ID, name)
}

const defaultMentionName = "пользователь"

// MentionID renders a tg://user link for a bare user id.
func MentionID(id int64, name string) string {
	if name == "" {
		name = defaultMentionName
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}
