// Package cards builds the adaptive cards the bot posts into conversations
package cards

import (
	"fmt"
	"strings"
)

const (
	schemaURL = "http://adaptivecards.io/schemas/adaptive-card.json"
	version   = "1.2"
)

// Card is an adaptive card
type Card struct {
	Type    string    `json:"type"`
	Schema  string    `json:"$schema"`
	Version string    `json:"version"`
	Body    []Element `json:"body"`
}

// Element is any body element. Only the fields of its type are set.
type Element struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text,omitempty"`
	Wrap      bool      `json:"wrap,omitempty"`
	Color     string    `json:"color,omitempty"`
	Weight    string    `json:"weight,omitempty"`
	Size      string    `json:"size,omitempty"`
	FontType  string    `json:"fontType,omitempty"`
	Spacing   string    `json:"spacing,omitempty"`
	Width     string    `json:"width,omitempty"`
	IsSubtle  bool      `json:"isSubtle,omitempty"`
	Separator bool      `json:"separator,omitempty"`
	IsVisible *bool     `json:"isVisible,omitempty"`
	Items     []Element `json:"items,omitempty"`
	Columns   []Element `json:"columns,omitempty"`
	Actions   []Action  `json:"actions,omitempty"`
}

// Action is a card action
type Action struct {
	Type           string      `json:"type"`
	ID             string      `json:"id,omitempty"`
	Title          string      `json:"title"`
	Style          string      `json:"style,omitempty"`
	TargetElements []string    `json:"targetElements,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// SubmitData wraps a payload the way the platform echoes it back in
// activity.value.payload
type SubmitData struct {
	Payload interface{} `json:"payload"`
}

// DeletePayload asks for the deletion of a webhook
type DeletePayload struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// ConfirmPayload confirms a deletion. Date is RFC1123 in UTC.
type ConfirmPayload struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Date   string `json:"date,omitempty"`
}

func newCard(body ...Element) *Card {
	return &Card{Type: "AdaptiveCard", Schema: schemaURL, Version: version, Body: body}
}

func textBlock(text string) Element {
	return Element{Type: "TextBlock", Text: text, Wrap: true}
}

func monospace(text string) Element {
	return Element{Type: "TextBlock", Text: text, FontType: "Monospace", Wrap: true, Spacing: "Small"}
}

// WebhookCreated shows a new webhook's URL and secret
func WebhookCreated(webhookURL, secret string) *Card {
	return newCard(
		Element{Type: "TextBlock", Text: "Here's the webhook I've created for you:", Wrap: true, Color: "Accent", Weight: "Bolder"},
		Element{Type: "Container", Items: []Element{
			{Type: "TextBlock", Text: "Webhook URL:", Spacing: "Small"},
			monospace(webhookURL),
		}},
		Element{Type: "Container", Separator: true, Items: []Element{
			{Type: "TextBlock", Text: "Access token:", Spacing: "Small"},
			monospace(secret),
		}},
	)
}

// WebhookList shows one row per id, each with a delete button
func WebhookList(ids []string) *Card {
	rows := make([]Element, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, Element{Type: "ColumnSet", Columns: []Element{
			{Type: "Column", Width: "stretch", Separator: true, Items: []Element{monospace(id)}},
			{Type: "Column", Width: "auto", Items: []Element{{
				Type: "ActionSet",
				Actions: []Action{{
					Type:  "Action.Submit",
					ID:    "delete/" + id,
					Title: "🗑",
					Data:  SubmitData{Payload: DeletePayload{Action: "delete", ID: id}},
				}},
			}}},
		}})
	}
	return newCard(rows...)
}

// DeleteConfirmation asks whether the webhook should really be deleted. Cancel
// only toggles the card locally.
func DeleteConfirmation(payload ConfirmPayload) *Card {
	hidden := false
	return newCard(
		Element{Type: "Container", ID: "canceled", IsVisible: &hidden, Items: []Element{
			textBlock("Ok, I won't delete it"),
		}},
		Element{Type: "Container", ID: "question", Items: []Element{
			textBlock(fmt.Sprintf("Are you sure you want to delete the webhook %q?", payload.ID)),
			{Type: "ActionSet", Actions: []Action{
				{Type: "Action.ToggleVisibility", Title: "Cancel", TargetElements: []string{"question", "canceled"}},
				{Type: "Action.Submit", ID: "confirm", Title: "Delete", Style: "destructive", Data: SubmitData{Payload: payload}},
			}},
		}},
	)
}

// IncomingMessage renders a message received through a webhook
func IncomingMessage(webhookID, message string) *Card {
	return newCard(
		textBlock(message),
		Element{Type: "TextBlock", Text: "Webhook ID: " + webhookID, Size: "Small", IsSubtle: true, Separator: true},
	)
}

// WebhookURL joins the public base URL and the webhook id
func WebhookURL(baseURL, id string) string {
	return strings.TrimSuffix(baseURL, "/") + "/webhook/" + id
}
