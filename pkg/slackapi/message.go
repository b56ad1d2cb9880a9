package slackapi

import (
	"github.com/slack-go/slack"
)

// Message builds structured message content from an
// ordered sequence of Block Kit blocks, and fallback text.
type Message struct {
	text   string
	blocks []slack.Block
}

func NewMessage() *Message {
	return &Message{}
}

// Text sets the message's top-level text. When the message also
// has blocks, Slack uses it only as a fallback (e.g. in notifications).
func (m *Message) Text(s string) *Message {
	m.text = s
	return m
}

// Section appends a section block with mrkdwn text.
func (m *Message) Section(markdown string) *Message {
	text := slack.NewTextBlockObject(slack.MarkdownType, markdown, false, false)
	m.blocks = append(m.blocks, slack.NewSectionBlock(text, nil, nil))
	return m
}

// Divider appends a divider block.
func (m *Message) Divider() *Message {
	m.blocks = append(m.blocks, slack.NewDividerBlock())
	return m
}

// Context appends a context block with one or more mrkdwn elements.
func (m *Message) Context(markdown ...string) *Message {
	elems := make([]slack.MixedElement, 0, len(markdown))
	for _, s := range markdown {
		elems = append(elems, slack.NewTextBlockObject(slack.MarkdownType, s, false, false))
	}
	m.blocks = append(m.blocks, slack.NewContextBlock("", elems...))
	return m
}

func (m *Message) Blocks() []slack.Block {
	return m.blocks
}

// MsgOptions converts the message to [slack.Client.PostMessage] options.
func (m *Message) MsgOptions() []slack.MsgOption {
	var opts []slack.MsgOption
	if m.text != "" {
		opts = append(opts, slack.MsgOptionText(m.text, false))
	}
	if len(m.blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(m.blocks...))
	}
	return opts
}

// Reply converts the message to a synchronous reply to a slash command or an
// interaction. The response type is either "in_channel" or "ephemeral" (default).
// Based on https://docs.slack.dev/interactivity/implementing-slash-commands.
func (m *Message) Reply(responseType string) slack.Msg {
	msg := slack.Msg{
		Text:         m.text,
		ResponseType: responseType,
	}
	if len(m.blocks) > 0 {
		msg.Blocks = slack.Blocks{BlockSet: m.blocks}
	}
	return msg
}
