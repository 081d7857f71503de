// Package activity holds the bot platform's activity schema and the router that
// dispatches inbound activities to command handlers.
package activity

import (
	"encoding/json"
	"strings"
)

// Activity types the gateway reacts to or sends
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
	TypeInvoke             = "invoke"
)

// AdaptiveCardContentType is the attachment content type of adaptive cards
const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// ChannelAccount identifies a user or bot on a channel
type ChannelAccount struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
	Role        string `json:"role,omitempty"`
}

// ConversationAccount identifies a conversation
type ConversationAccount struct {
	ID               string `json:"id" validate:"required"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          *bool  `json:"isGroup,omitempty"`
}

// Entity is metadata attached to an activity. Only mentions are interpreted.
type Entity struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Mentioned *ChannelAccount `json:"mentioned,omitempty"`
}

// Attachment carries rich content such as an adaptive card
type Attachment struct {
	ContentType string      `json:"contentType"`
	Content     interface{} `json:"content,omitempty"`
}

// Activity is the envelope of every message exchanged with the bot platform.
// Inbound activities carry many more fields; the ones not listed here are ignored.
type Activity struct {
	Type           string               `json:"type" validate:"required"`
	ID             string               `json:"id,omitempty"`
	Timestamp      string               `json:"timestamp,omitempty"`
	ServiceURL     string               `json:"serviceUrl,omitempty"`
	ChannelID      string               `json:"channelId,omitempty"`
	From           *ChannelAccount      `json:"from,omitempty"`
	Conversation   *ConversationAccount `json:"conversation,omitempty"`
	Recipient      *ChannelAccount      `json:"recipient,omitempty"`
	TextFormat     string               `json:"textFormat,omitempty"`
	Text           string               `json:"text,omitempty"`
	Attachments    []Attachment         `json:"attachments,omitempty"`
	Entities       []Entity             `json:"entities,omitempty"`
	MembersAdded   []ChannelAccount     `json:"membersAdded,omitempty"`
	MembersRemoved []ChannelAccount     `json:"membersRemoved,omitempty"`
	ReplyToID      string               `json:"replyToId,omitempty"`
	Value          json.RawMessage      `json:"value,omitempty"`
}

// submitValue is the shape of Value for card submit actions
type submitValue struct {
	Payload json.RawMessage `json:"payload"`
}

// DecodePayload unmarshals value.payload into dst. It returns false when the
// activity has no payload or the payload does not fit dst.
func (a *Activity) DecodePayload(dst interface{}) bool {
	if len(a.Value) == 0 {
		return false
	}
	var v submitValue
	if err := json.Unmarshal(a.Value, &v); err != nil || len(v.Payload) == 0 {
		return false
	}
	return json.Unmarshal(v.Payload, dst) == nil
}

// Action returns value.payload.action, or "" when there is none
func (a *Activity) Action() string {
	var p struct {
		Action string `json:"action"`
	}
	if !a.DecodePayload(&p) {
		return ""
	}
	return p.Action
}

// ConversationID returns the conversation id or "" when the activity has none
func (a *Activity) ConversationID() string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}

// NewMessage creates a plain text message activity
func NewMessage(text string) *Activity {
	return &Activity{Type: TypeMessage, Text: text}
}

// NewCardMessage creates a message activity with one adaptive card attachment
func NewCardMessage(text string, card interface{}) *Activity {
	return &Activity{
		Type: TypeMessage,
		Text: text,
		Attachments: []Attachment{
			{ContentType: AdaptiveCardContentType, Content: card},
		},
	}
}

// IsType compares the activity type case-insensitively
func (a *Activity) IsType(t string) bool {
	return strings.EqualFold(a.Type, t)
}
