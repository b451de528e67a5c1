package telegram

import (
	"strconv"
	"time"

	"github.com/mymmrac/telego"

	"bantrap/internal/platform"
)

// GeneralTopic is the channel id of a group's main chat (the General topic
// in forums).
const GeneralTopic = "0"

// IsGroup reports whether a chat can be a community.
func IsGroup(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

// TopicID returns the channel id of a message: its forum topic, or GeneralTopic.
func TopicID(m telego.Message) string {
	if m.Chat.IsForum && m.IsTopicMessage && m.MessageThreadID != 0 {
		return strconv.Itoa(m.MessageThreadID)
	}
	return GeneralTopic
}

// TopicName is the topic title when the message carries it.
func TopicName(m telego.Message) string {
	if TopicID(m) == GeneralTopic {
		if m.Chat.IsForum {
			return "General"
		}
		return m.Chat.Title
	}
	if m.ReplyToMessage != nil && m.ReplyToMessage.ForumTopicCreated != nil {
		return m.ReplyToMessage.ForumTopicCreated.Name
	}
	return ""
}

// IsSystemMessage reports service messages and messages sent on behalf of a
// chat (anonymous admins, linked channel posts).
func IsSystemMessage(m telego.Message) bool {
	switch {
	case m.From == nil, m.SenderChat != nil:
		return true
	case len(m.NewChatMembers) > 0, m.LeftChatMember != nil:
		return true
	case m.NewChatTitle != "", m.PinnedMessage != nil:
		return true
	case m.ForumTopicCreated != nil, m.ForumTopicEdited != nil,
		m.ForumTopicClosed != nil, m.ForumTopicReopened != nil:
		return true
	}
	return false
}

func convertUser(user telego.User) platform.User {
	return platform.User{
		ID:  strconv.FormatInt(user.ID, 10),
		Tag: DisplayName(user),
		Bot: user.IsBot,
	}
}

// MessageEvent converts an incoming message. Messages outside groups get an
// empty community id.
func MessageEvent(m telego.Message) platform.MessageEvent {
	topic := TopicID(m)
	evt := platform.MessageEvent{
		ChannelID:   topic,
		ChannelName: TopicName(m),
		Message: platform.MessageRef{
			ChannelID: topic,
			MessageID: strconv.Itoa(m.MessageID),
		},
		Content:   m.Text,
		Timestamp: time.Unix(m.Date, 0),
		System:    IsSystemMessage(m),
	}
	if evt.Content == "" {
		evt.Content = m.Caption
	}
	if m.From != nil {
		evt.Author = convertUser(*m.From)
	}

	if IsGroup(m.Chat) {
		evt.CommunityID = strconv.FormatInt(m.Chat.ID, 10)
		evt.CommunityName = m.Chat.Title
		evt.Message.CommunityID = evt.CommunityID
		evt.URL = MessageURL(m.Chat, topic, m.MessageID)
	}
	return evt
}
