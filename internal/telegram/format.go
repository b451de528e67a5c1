package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mymmrac/telego"

	"bantrap/internal/platform"
)

// maxMessageLength is Telegram's limit on a text message after entity parsing.
const maxMessageLength = 4096

// DisplayName is the user's full name, falling back to @username and the id.
func DisplayName(user telego.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name != "" {
		return name
	}
	if user.Username != "" {
		return "@" + user.Username
	}
	return strconv.FormatInt(user.ID, 10)
}

// LinkedUserName renders an HTML mention of a user by id.
func LinkedUserName(userID, name string) string {
	return fmt.Sprintf("<a href=\"tg://user?id=%s\">%s</a>", userID, html.EscapeString(name))
}

// ChatLinkID converts a supergroup id to the form used in t.me/c links.
func ChatLinkID(chatID int64) (int64, bool) {
	if chatID < -1000000000000 {
		return -chatID - 1000000000000, true
	}
	return 0, false
}

// MessageURL builds a link to a message. Basic groups have no message links.
func MessageURL(chat telego.Chat, topicID string, messageID int) string {
	var base string
	switch {
	case chat.Username != "":
		base = "https://t.me/" + chat.Username
	default:
		id, ok := ChatLinkID(chat.ID)
		if !ok {
			return ""
		}
		base = fmt.Sprintf("https://t.me/c/%d", id)
	}
	if topicID != "" && topicID != GeneralTopic {
		base += "/" + topicID
	}
	return fmt.Sprintf("%s/%d", base, messageID)
}

// RenderAudit formats an audit record as an HTML message. The content block is
// dropped when it would push the message over Telegram's length limit.
func RenderAudit(record platform.AuditRecord) string {
	var b strings.Builder
	b.WriteString("🚫 <b>Auto Ban (Trap Channel)</b>\n\n")
	fmt.Fprintf(&b, "<b>User:</b> %s (<code>%s</code>)\n",
		LinkedUserName(record.AuthorID, record.AuthorTag), html.EscapeString(record.AuthorID))

	channel := record.ChannelName
	if channel == "" {
		channel = topicLabel(record.ChannelID)
	}
	fmt.Fprintf(&b, "<b>Channel:</b> %s (<code>%s</code>)\n", html.EscapeString(channel), html.EscapeString(record.ChannelID))
	fmt.Fprintf(&b, "<b>Reason:</b> %s\n", html.EscapeString(record.Reason))
	if record.MessageURL != "" {
		fmt.Fprintf(&b, "<b>Message:</b> <a href=\"%s\">Jump to message</a>\n", html.EscapeString(record.MessageURL))
	}
	if record.BanFailure != "" {
		fmt.Fprintf(&b, "<b>⚠️ Ban Failed:</b> %s\n", html.EscapeString(record.BanFailure))
	}
	fmt.Fprintf(&b, "<i>%s</i>", record.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	text := b.String()
	if record.Preview == "" {
		return text
	}
	content := "\n\n<b>Content:</b>\n<blockquote>" + html.EscapeString(record.Preview) + "</blockquote>"
	if utf8.RuneCountInString(text)+utf8.RuneCountInString(content) > maxMessageLength {
		return text
	}
	return text + content
}

// ToHTML escapes a command reply and turns **bold** spans into <b> tags.
func ToHTML(reply string) string {
	parts := strings.Split(html.EscapeString(reply), "**")
	if len(parts)%2 == 0 {
		// unbalanced markers are left as they are
		return html.EscapeString(reply)
	}
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString("<b>" + part + "</b>")
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}

func topicLabel(topicID string) string {
	if topicID == "" || topicID == GeneralTopic {
		return "General"
	}
	return "topic #" + topicID
}
