package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	ta "github.com/mymmrac/telego/telegoapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantrap/internal/platform"
	"bantrap/internal/service"
)

const forumID = int64(-1001234567890)

func forum() telego.Chat {
	return telego.Chat{ID: forumID, Type: telego.ChatTypeSupergroup, Title: "Test Forum", IsForum: true}
}

func topicMessage(text string) telego.Message {
	return telego.Message{
		MessageID:       77,
		MessageThreadID: 12,
		IsTopicMessage:  true,
		Chat:            forum(),
		From:            &telego.User{ID: 42, FirstName: "Spam", LastName: "Bot", Username: "spammer"},
		Date:            1714564800,
		Text:            text,
		ReplyToMessage: &telego.Message{
			MessageID:         12,
			ForumTopicCreated: &telego.ForumTopicCreated{Name: "lobby-trap"},
		},
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Spam Bot", DisplayName(telego.User{ID: 1, FirstName: "Spam", LastName: "Bot"}))
	assert.Equal(t, "Spam", DisplayName(telego.User{ID: 1, FirstName: "Spam"}))
	assert.Equal(t, "@spammer", DisplayName(telego.User{ID: 1, Username: "spammer"}))
	assert.Equal(t, "1", DisplayName(telego.User{ID: 1}))
}

func TestMessageURL(t *testing.T) {
	assert.Equal(t, "https://t.me/c/1234567890/12/77", MessageURL(forum(), "12", 77))
	assert.Equal(t, "https://t.me/c/1234567890/77", MessageURL(forum(), GeneralTopic, 77))

	public := telego.Chat{ID: forumID, Type: telego.ChatTypeSupergroup, Username: "publicgroup"}
	assert.Equal(t, "https://t.me/publicgroup/5", MessageURL(public, GeneralTopic, 5))

	basic := telego.Chat{ID: -4567, Type: telego.ChatTypeGroup}
	assert.Empty(t, MessageURL(basic, GeneralTopic, 5))
}

func TestTopicID(t *testing.T) {
	assert.Equal(t, "12", TopicID(topicMessage("hi")))

	general := topicMessage("hi")
	general.IsTopicMessage = false
	general.MessageThreadID = 0
	assert.Equal(t, GeneralTopic, TopicID(general))

	reply := topicMessage("hi")
	reply.Chat.IsForum = false
	assert.Equal(t, GeneralTopic, TopicID(reply))
}

func TestIsSystemMessage(t *testing.T) {
	assert.False(t, IsSystemMessage(topicMessage("hi")))

	anonymous := topicMessage("hi")
	anonymous.SenderChat = &telego.Chat{ID: forumID}
	assert.True(t, IsSystemMessage(anonymous))

	joined := topicMessage("")
	joined.NewChatMembers = []telego.User{{ID: 9}}
	assert.True(t, IsSystemMessage(joined))

	noSender := topicMessage("hi")
	noSender.From = nil
	assert.True(t, IsSystemMessage(noSender))

	created := topicMessage("")
	created.ForumTopicCreated = &telego.ForumTopicCreated{Name: "new"}
	assert.True(t, IsSystemMessage(created))
}

func TestMessageEvent(t *testing.T) {
	evt := MessageEvent(topicMessage("buy now"))

	assert.Equal(t, "-1001234567890", evt.CommunityID)
	assert.Equal(t, "Test Forum", evt.CommunityName)
	assert.Equal(t, "12", evt.ChannelID)
	assert.Equal(t, "lobby-trap", evt.ChannelName)
	assert.Equal(t, platform.User{ID: "42", Tag: "Spam Bot"}, evt.Author)
	assert.Equal(t, platform.MessageRef{CommunityID: "-1001234567890", ChannelID: "12", MessageID: "77"}, evt.Message)
	assert.Equal(t, "buy now", evt.Content)
	assert.Equal(t, "https://t.me/c/1234567890/12/77", evt.URL)
	assert.Equal(t, time.Unix(1714564800, 0), evt.Timestamp)
	assert.Nil(t, evt.Capabilities)
	assert.False(t, evt.System)

	photo := topicMessage("")
	photo.Caption = "caption text"
	assert.Equal(t, "caption text", MessageEvent(photo).Content)

	private := topicMessage("hi")
	private.Chat = telego.Chat{ID: 42, Type: telego.ChatTypePrivate}
	evt = MessageEvent(private)
	assert.Empty(t, evt.CommunityID)
	assert.Empty(t, evt.URL)
}

func TestMemberCapabilities(t *testing.T) {
	owner := &telego.ChatMemberOwner{Status: telego.MemberStatusCreator, User: telego.User{ID: 1}}
	caps := MemberCapabilities(owner)
	assert.True(t, caps.Has(platform.CapAdminister))
	assert.True(t, caps.Has(platform.CapBanMembers))

	mod := &telego.ChatMemberAdministrator{Status: telego.MemberStatusAdministrator, CanRestrictMembers: true}
	caps = MemberCapabilities(mod)
	assert.True(t, caps.Has(platform.CapBanMembers))
	assert.False(t, caps.Has(platform.CapAdminister))

	admin := &telego.ChatMemberAdministrator{Status: telego.MemberStatusAdministrator, CanPromoteMembers: true}
	assert.True(t, MemberCapabilities(admin).Has(platform.CapAdminister))

	plain := &telego.ChatMemberMember{Status: telego.MemberStatusMember}
	assert.Equal(t, platform.Capabilities(0), MemberCapabilities(plain))
}

func TestTopicChannel(t *testing.T) {
	ch, err := topicChannel("-100", true, "Forum", "12")
	require.NoError(t, err)
	assert.Equal(t, platform.Channel{ID: "12", CommunityID: "-100", Name: "topic #12", TextCapable: true}, ch)

	general, err := topicChannel("-100", true, "Forum", GeneralTopic)
	require.NoError(t, err)
	assert.Equal(t, "General", general.Name)
	assert.True(t, general.TextCapable)

	main, err := topicChannel("-100", false, "Group", GeneralTopic)
	require.NoError(t, err)
	assert.Equal(t, "Group", main.Name)

	_, err = topicChannel("-100", false, "Group", "12")
	assert.ErrorIs(t, err, platform.ErrNotFound)

	_, err = topicChannel("-100", true, "Forum", "abc")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestRenderAudit(t *testing.T) {
	text := RenderAudit(platform.AuditRecord{
		AuthorTag:  "Spam <Bot>",
		AuthorID:   "42",
		ChannelID:  "12",
		Reason:     "Posted in trap channel #lobby-trap",
		MessageURL: "https://t.me/c/1234567890/12/77",
		Preview:    "buy & sell",
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	assert.True(t, strings.HasPrefix(text, "🚫 <b>Auto Ban (Trap Channel)</b>"))
	assert.Contains(t, text, `<a href="tg://user?id=42">Spam &lt;Bot&gt;</a> (<code>42</code>)`)
	assert.Contains(t, text, "<b>Channel:</b> topic #12 (<code>12</code>)")
	assert.Contains(t, text, "<b>Reason:</b> Posted in trap channel #lobby-trap")
	assert.Contains(t, text, `<a href="https://t.me/c/1234567890/12/77">Jump to message</a>`)
	assert.Contains(t, text, "<blockquote>buy &amp; sell</blockquote>")
	assert.Contains(t, text, "2024-05-01 12:00:00 UTC")
	assert.NotContains(t, text, "Ban Failed")

	failed := RenderAudit(platform.AuditRecord{AuthorID: "42", ChannelID: "12", BanFailure: "not enough rights"})
	assert.Contains(t, failed, "<b>⚠️ Ban Failed:</b> not enough rights")
	assert.NotContains(t, failed, "Content")

	long := RenderAudit(platform.AuditRecord{AuthorID: "42", ChannelID: "12", Preview: strings.Repeat("&", 1000)})
	assert.NotContains(t, long, "<blockquote>")
}

func TestToHTML(t *testing.T) {
	assert.Equal(t, "Posting there will result in an <b>instant ban</b>.", ToHTML("Posting there will result in an **instant ban**."))
	assert.Equal(t, "a &lt; b", ToHTML("a < b"))
	assert.Equal(t, "odd ** marker", ToHTML("odd ** marker"))
}

func TestParseCommand(t *testing.T) {
	cmd, req := ParseCommand(topicMessage("/bantrap set"))
	assert.Equal(t, service.CommandSet, cmd)
	assert.Equal(t, "-1001234567890", req.CommunityID)
	assert.Equal(t, "42", req.CallerID)
	assert.Equal(t, "12", req.ChannelID)

	cmd, _ = ParseCommand(topicMessage("/bantrap@trapbot SETLOG"))
	assert.Equal(t, service.CommandSetLog, cmd)

	cmd, _ = ParseCommand(topicMessage("/bantrap"))
	assert.Equal(t, service.CommandStatus, cmd)

	private := topicMessage("/bantrap clear")
	private.Chat = telego.Chat{ID: 42, Type: telego.ChatTypePrivate}
	_, req = ParseCommand(private)
	assert.Empty(t, req.CommunityID)
}

func TestWebhookHelpers(t *testing.T) {
	assert.Equal(t, "secure_webhook_token_abcdef", webhookSecret("123:xyzabcdef", ""))
	assert.Equal(t, "secure_webhook_token_abc", webhookSecret("abc", ""))
	assert.Equal(t, "rotated-Secret_01", webhookSecret("123:xyzabcdef", "rotated-Secret_01"))

	path, err := webhookPath("https://bot.example.com/hooks/tg")
	require.NoError(t, err)
	assert.Equal(t, "/hooks/tg", path)

	path, err = webhookPath("https://bot.example.com")
	require.NoError(t, err)
	assert.Equal(t, "/webhook", path)
}

func TestTranslateError(t *testing.T) {
	notFound := &ta.Error{ErrorCode: 400, Description: "Bad Request: user not found"}
	assert.ErrorIs(t, translateError(notFound), platform.ErrNotFound)

	forbidden := &ta.Error{ErrorCode: 400, Description: "Bad Request: not enough rights to restrict/unrestrict chat member"}
	assert.NotErrorIs(t, translateError(forbidden), platform.ErrNotFound)

	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))
	assert.Nil(t, translateError(nil))
}
