// Package commands implements the chat commands that manage a conversation's
// webhooks.
package commands

import (
	"context"
	stderrors "errors"
	"net/http"
	"regexp"
	"time"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/bot"
	"webhook-gateway/internal/cards"
	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/metrics"
	"webhook-gateway/internal/webhooks"
)

// Card actions
const (
	ActionDelete        = "delete"
	ActionConfirmDelete = "delete/confirm"
)

// ConfirmTimeout is how long a delete confirmation stays valid
const ConfirmTimeout = 5 * time.Minute

// Replies
const (
	MsgTooManyWebhooks = "Sorry, this conversation has already reached the maximum number of webhooks and I can't add another one"
	MsgNoWebhooks      = "I can't find any webhook for this conversation"
	MsgExpired         = "Sorry, this action has expired. Please try again!"
	MsgRemoved         = "Ok, I've removed the webhook from this chat (Note: it may take up to a minute for the operation to complete)"
	MsgHelp            = "Here's what I can do:\n\n" +
		"- **new webhook**: create a webhook that posts into this conversation\n" +
		"- **list webhooks**: show the webhooks of this conversation, with a button to delete each\n" +
		"- **help**: show this message"
)

var (
	newPattern  = regexp.MustCompile(`(?i)^(new|add|create) webhook$`)
	listPattern = regexp.MustCompile(`(?i)^list webhooks?$`)
	helpPattern = regexp.MustCompile(`(?i)^help$`)
)

// ErrNotOwned is returned when a confirmation names a webhook of another conversation
var ErrNotOwned = errors.ForbiddenError("Cannot remove a webhook that is not assigned to this conversation")

// Webhooks is the part of webhooks.Service the commands use
type Webhooks interface {
	Issue(ctx context.Context, b webhooks.Binding) (*webhooks.Credential, error)
	ListForConversation(ctx context.Context, conversationID string) ([]string, error)
	Revoke(ctx context.Context, id string) error
}

// Sender delivers activities into conversations
type Sender interface {
	Send(ctx context.Context, addr bot.Address, a *activity.Activity) (*bot.ResourceResponse, error)
}

// Config holds the settings of the command handlers
type Config struct {
	// BaseURL is the gateway's public URL, used to build webhook URLs
	BaseURL string
	// AutoProvision creates a webhook when the bot is added to a conversation
	AutoProvision bool
}

// Commands holds the handlers of every chat command
type Commands struct {
	webhooks Webhooks
	sender   Sender
	config   Config
	now      func() time.Time
	logger   logging.Logger
}

// New creates the command handlers
func New(w Webhooks, sender Sender, config Config) *Commands {
	return &Commands{
		webhooks: w,
		sender:   sender,
		config:   config,
		now:      time.Now,
		logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "commands"}),
	}
}

// Register adds every command to r. Order matters: the first match wins.
func (c *Commands) Register(r *activity.Router) error {
	type route struct {
		match   activity.Match
		handler activity.Handler
	}
	routes := []route{
		{activity.Match{Type: activity.TypeMessage, TextPattern: newPattern}, c.NewWebhook},
		{activity.Match{Type: activity.TypeMessage, TextPattern: listPattern}, c.ListWebhooks},
		{activity.Match{Type: activity.TypeMessage, TextPattern: helpPattern}, c.Help},
		{activity.Match{Action: ActionDelete}, c.DeleteWebhook},
		{activity.Match{Action: ActionConfirmDelete}, c.ConfirmDelete},
	}
	if c.config.AutoProvision {
		routes = append(routes, route{activity.Match{Type: activity.TypeConversationUpdate, Func: botAdded}, c.BotAdded})
	}

	for _, rt := range routes {
		if err := r.Add(rt.match, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// NewWebhook issues a webhook and posts its URL and secret
func (c *Commands) NewWebhook(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	activity.NormalizeConversationID(a)

	msg, err := c.issue(ctx, a)
	if stderrors.Is(err, webhooks.ErrTooManyWebhooks) {
		msg = activity.NewMessage(MsgTooManyWebhooks)
	} else if err != nil {
		return err
	}
	return c.reply(ctx, a, msg)
}

// ListWebhooks posts the webhooks of the conversation
func (c *Commands) ListWebhooks(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	activity.NormalizeConversationID(a)

	ids, err := c.webhooks.ListForConversation(ctx, a.Conversation.ID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return c.reply(ctx, a, activity.NewMessage(MsgNoWebhooks))
	}
	return c.reply(ctx, a, activity.NewCardMessage("", cards.WebhookList(ids)))
}

// DeleteWebhook asks for confirmation. Nothing is stored; the confirmation card
// carries the id and the time it was asked.
func (c *Commands) DeleteWebhook(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	var p cards.DeletePayload
	if !a.DecodePayload(&p) || p.ID == "" {
		return errors.ValidationError("value.payload.id is missing in activity object")
	}
	activity.NormalizeConversationID(a)

	card := cards.DeleteConfirmation(cards.ConfirmPayload{
		Action: ActionConfirmDelete,
		ID:     p.ID,
		Date:   c.now().UTC().Format(http.TimeFormat),
	})
	return c.reply(ctx, a, activity.NewCardMessage("", card))
}

// ConfirmDelete revokes the webhook once the confirmation is checked: it must carry
// a recent date and name a webhook of this conversation.
func (c *Commands) ConfirmDelete(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	var p cards.ConfirmPayload
	if !a.DecodePayload(&p) || p.ID == "" {
		return errors.ValidationError("value.payload.id is missing in activity object")
	}
	activity.NormalizeConversationID(a)

	// A confirmation without a date cannot be shown to be fresh
	if c.expired(p.Date) {
		return c.reply(ctx, a, activity.NewMessage(MsgExpired))
	}

	if !webhooks.OwnedBy(p.ID, a.Conversation.ID) {
		c.logger.WithContext(ctx).Warn("Refusing to remove webhook of another conversation",
			logging.Field{Key: "webhook_id", Value: p.ID},
			logging.Field{Key: "tag", Value: webhooks.OwnershipTag(a.Conversation.ID)},
		)
		return ErrNotOwned
	}

	if err := c.webhooks.Revoke(ctx, p.ID); err != nil {
		return err
	}
	return c.reply(ctx, a, activity.NewMessage(MsgRemoved))
}

// Help describes the commands
func (c *Commands) Help(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	activity.NormalizeConversationID(a)
	msg := activity.NewMessage(MsgHelp)
	msg.TextFormat = "markdown"
	return c.reply(ctx, a, msg)
}

// BotAdded provisions a webhook for a conversation the bot just joined
func (c *Commands) BotAdded(ctx context.Context, a *activity.Activity) error {
	if err := requireConversation(a); err != nil {
		return err
	}
	activity.NormalizeConversationID(a)

	msg, err := c.issue(ctx, a)
	if stderrors.Is(err, webhooks.ErrTooManyWebhooks) {
		c.logger.WithContext(ctx).Info("Conversation already has webhooks, skipping provisioning")
		return nil
	}
	if err != nil {
		return err
	}
	return c.reply(ctx, a, msg)
}

func (c *Commands) issue(ctx context.Context, a *activity.Activity) (*activity.Activity, error) {
	binding := webhooks.Binding{
		Conversation: *a.Conversation,
		ServiceURL:   a.ServiceURL,
	}
	if a.Recipient != nil {
		binding.Bot = *a.Recipient
	}
	if a.From != nil {
		binding.User = *a.From
	}

	cred, err := c.webhooks.Issue(ctx, binding)
	if err != nil {
		return nil, err
	}
	card := cards.WebhookCreated(cards.WebhookURL(c.config.BaseURL, cred.ID), cred.Secret)
	return activity.NewCardMessage("", card), nil
}

func (c *Commands) reply(ctx context.Context, a *activity.Activity, msg *activity.Activity) error {
	_, err := c.sender.Send(ctx, bot.ReplyAddress(a), msg)
	metrics.Deliveries.WithLabelValues("command", metrics.Result(err)).Inc()
	return err
}

// expired reports whether a confirmation dated date is too old. A date that
// cannot be parsed counts as expired.
func (c *Commands) expired(date string) bool {
	t, err := http.ParseTime(date)
	if err != nil {
		return true
	}
	return c.now().Sub(t) > ConfirmTimeout
}

func requireConversation(a *activity.Activity) error {
	if a.ConversationID() == "" {
		return errors.ValidationError("conversation.id missing in activity object")
	}
	return nil
}

func botAdded(a *activity.Activity) bool {
	return a.Recipient != nil && activity.HasMember(a.MembersAdded, a.Recipient.ID)
}
