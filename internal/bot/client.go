// Package bot sends activities into conversations through the bot platform's
// conversation API.
package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/circuitbreaker"
	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
)

const sendTimeout = 15 * time.Second

// ErrInvalidResponse is returned when the platform accepted a call but did not
// return the activity id
var ErrInvalidResponse = stderrors.New("invalid response format")

// TokenSource provides the bearer token for outbound calls
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// ResourceResponse is the platform's answer to a send, reply or update
type ResourceResponse struct {
	ID string `json:"id"`
}

// Address says where an activity goes and on whose behalf it is sent
type Address struct {
	ServiceURL   string
	Conversation activity.ConversationAccount
	// From is the bot
	From activity.ChannelAccount
	// Recipient is the user the bot talks to
	Recipient activity.ChannelAccount
}

// ReplyAddress addresses a reply to an inbound activity: the bot that received it
// sends to the user that wrote it
func ReplyAddress(a *activity.Activity) Address {
	addr := Address{ServiceURL: a.ServiceURL}
	if a.Conversation != nil {
		addr.Conversation = *a.Conversation
	}
	if a.Recipient != nil {
		addr.From = *a.Recipient
	}
	if a.From != nil {
		addr.Recipient = *a.From
	}
	return addr
}

// Client calls the conversation API
type Client struct {
	tokens      TokenSource
	http        *http.Client
	breaker     *circuitbreaker.GoBreakerAdapter
	overrideURL string
	logger      logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the client used for API calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithServiceURLOverride sends every call to serviceURL instead of the one in the
// address. Used in development.
func WithServiceURLOverride(serviceURL string) Option {
	return func(c *Client) {
		c.overrideURL = serviceURL
	}
}

// NewClient creates a client authenticating with tokens
func NewClient(tokens TokenSource, opts ...Option) *Client {
	logger := logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "bot"})
	c := &Client{
		tokens:  tokens,
		breaker: circuitbreaker.NewGoBreaker("bot-api", circuitbreaker.DeliveryConfig, logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewHTTPClientWithTimeout(sendTimeout)
	}
	return c
}

// Send posts a to the addressed conversation
func (c *Client) Send(ctx context.Context, addr Address, a *activity.Activity) (*ResourceResponse, error) {
	if a == nil {
		return nil, errors.ValidationError("activity is required")
	}
	out := c.addressed(addr, a)
	return c.call(ctx, http.MethodPost, addr.ServiceURL, out.Conversation.ID, "", out)
}

// Reply posts a as a reply to activityID
func (c *Client) Reply(ctx context.Context, addr Address, activityID string, a *activity.Activity) (*ResourceResponse, error) {
	if activityID == "" || a == nil {
		return nil, errors.ValidationError("activity id and activity are required")
	}
	out := c.addressed(addr, a)
	return c.call(ctx, http.MethodPost, addr.ServiceURL, out.Conversation.ID, activityID, out)
}

// Update replaces activityID with a. a must carry its conversation.
func (c *Client) Update(ctx context.Context, serviceURL, activityID string, a *activity.Activity) (*ResourceResponse, error) {
	if activityID == "" || a == nil {
		return nil, errors.ValidationError("activity id and activity are required")
	}
	if a.Conversation == nil || a.Conversation.ID == "" {
		return nil, errors.ValidationError("conversation.id missing in the activity")
	}
	return c.call(ctx, http.MethodPut, serviceURL, a.Conversation.ID, activityID, a)
}

// addressed returns a copy of a with from, conversation and recipient taken from addr
func (c *Client) addressed(addr Address, a *activity.Activity) *activity.Activity {
	out := *a
	from, conversation, recipient := addr.From, addr.Conversation, addr.Recipient
	out.From = &from
	out.Conversation = &conversation
	out.Recipient = &recipient
	return &out
}

func (c *Client) call(ctx context.Context, method, serviceURL, conversationID, activityID string, a *activity.Activity) (*ResourceResponse, error) {
	if a.Type == "" {
		return nil, errors.ValidationError("empty type field for the activity")
	}
	if conversationID == "" {
		return nil, errors.ValidationError("conversation id is required")
	}

	endpoint, err := c.endpoint(serviceURL, conversationID, activityID)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	var resp ResourceResponse
	err = c.breaker.Execute(ctx, func() error {
		if err := httpclient.DoJSON(ctx, c.http, method, endpoint, headers, a, &resp); err != nil {
			return err
		}
		if resp.ID == "" {
			return ErrInvalidResponse
		}
		return nil
	})
	if err != nil {
		return nil, errors.UpstreamError("failed to send activity", err)
	}

	c.logger.WithContext(ctx).Debug("Activity sent",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "conversation_id", Value: conversationID},
		logging.Field{Key: "activity_id", Value: resp.ID},
	)
	return &resp, nil
}

func (c *Client) endpoint(serviceURL, conversationID, activityID string) (string, error) {
	if c.overrideURL != "" {
		serviceURL = c.overrideURL
	}
	if serviceURL == "" {
		return "", errors.ValidationError("service URL is required")
	}
	u, err := url.Parse(serviceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.ValidationError(fmt.Sprintf("invalid service URL %q", serviceURL))
	}

	path := strings.TrimSuffix(serviceURL, "/") + "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	if activityID != "" {
		path += "/" + url.PathEscape(activityID)
	}
	return path, nil
}
