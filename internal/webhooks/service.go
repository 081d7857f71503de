// Package webhooks manages the credentials that let external callers post into a
// conversation. A webhook id starts with the conversation's ownership tag, so the
// webhooks of a conversation are found with a prefix scan and no secondary index.
// Only the hash of a secret is ever stored.
package webhooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strings"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/common/validation"
	"webhook-gateway/internal/metrics"
	"webhook-gateway/internal/store"
)

// DefaultMaxPerConversation is used when the service is created with a limit of 0
const DefaultMaxPerConversation = 5

// listSlack is how many ids List reads beyond the limit so over-limit conversations
// (which the issuance race allows) still show nearly all of their webhooks
const listSlack = 5

var (
	// ErrUnauthorized is returned for every failed authentication, whatever the reason
	ErrUnauthorized = errors.AuthError("Invalid authorization")
	// ErrTooManyWebhooks is returned by Issue when the conversation is at its limit
	ErrTooManyWebhooks = errors.ResourceExhaustedError("conversation has reached the maximum number of webhooks")
)

// Binding is the addressing information captured when a webhook is issued
type Binding struct {
	Conversation activity.ConversationAccount
	ServiceURL   string
	Bot          activity.ChannelAccount
	User         activity.ChannelAccount
}

// Record is the stored form of a webhook
type Record struct {
	Key          string                       `json:"key" validate:"required"`
	Conversation activity.ConversationAccount `json:"conversation"`
	ServiceURL   string                       `json:"serviceUrl" validate:"required"`
	Bot          activity.ChannelAccount      `json:"bot"`
	User         activity.ChannelAccount      `json:"user"`
}

// Credential is returned once at issuance. The secret cannot be recovered later.
type Credential struct {
	ID     string
	Secret string
}

// Service issues, authenticates, revokes and lists webhooks
type Service struct {
	store  store.Store
	max    int
	logger logging.Logger
}

// NewService creates a service over s. Keys are used as-is, so s should already be
// scoped to the webhook namespace.
func NewService(s store.Store, maxPerConversation int) *Service {
	if maxPerConversation <= 0 {
		maxPerConversation = DefaultMaxPerConversation
	}
	return &Service{
		store:  s,
		max:    maxPerConversation,
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "webhooks"}),
	}
}

// Issue creates a webhook for the binding's conversation.
//
// The count check and the write are separate store operations, so concurrent calls
// for one conversation can push it past the limit. The limit is an abuse guard,
// not a hard quota.
func (s *Service) Issue(ctx context.Context, b Binding) (*Credential, error) {
	record := Record{
		Conversation: b.Conversation,
		ServiceURL:   b.ServiceURL,
		Bot:          b.Bot,
		User:         b.User,
	}

	secret, err := newSecret()
	if err != nil {
		return nil, errors.InternalError("failed to generate webhook secret", err)
	}
	record.Key = HashSecret(secret)

	if err := validation.ValidateStruct(record); err != nil {
		metrics.WebhooksIssued.WithLabelValues("error").Inc()
		return nil, err
	}

	tag := OwnershipTag(b.Conversation.ID)
	existing, err := s.store.List(ctx, tag+"/", s.max+1)
	if err != nil {
		metrics.WebhooksIssued.WithLabelValues("error").Inc()
		return nil, errors.InternalError("failed to count webhooks", err)
	}
	if len(existing) >= s.max {
		metrics.WebhooksIssued.WithLabelValues("limit").Inc()
		return nil, ErrTooManyWebhooks
	}

	id, err := newID(b.Conversation.ID)
	if err != nil {
		return nil, errors.InternalError("failed to generate webhook id", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, errors.InternalError("failed to encode webhook", err)
	}
	if err := s.store.Put(ctx, id, data, 0); err != nil {
		metrics.WebhooksIssued.WithLabelValues("error").Inc()
		return nil, errors.InternalError("failed to store webhook", err)
	}

	metrics.WebhooksIssued.WithLabelValues("ok").Inc()
	s.logger.WithContext(ctx).Info("Webhook issued",
		logging.Field{Key: "webhook_id", Value: id},
		logging.Field{Key: "existing", Value: len(existing)},
	)

	return &Credential{ID: id, Secret: secret}, nil
}

// Authenticate returns the record of id when secret is its secret. Every reason for
// refusing (malformed input, unknown id, wrong secret, unusable record) yields the
// same ErrUnauthorized. Store failures are returned as internal errors.
func (s *Service) Authenticate(ctx context.Context, id, secret string) (*Record, error) {
	if !ValidID(id) || !ValidSecret(secret) {
		return nil, ErrUnauthorized
	}

	data, err := s.store.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.InternalError("failed to read webhook", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.WithContext(ctx).Warn("Stored webhook is not valid JSON",
			logging.Field{Key: "webhook_id", Value: id},
		)
		return nil, ErrUnauthorized
	}

	hash := HashSecret(secret)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(record.Key)) != 1 {
		return nil, ErrUnauthorized
	}

	if err := validation.ValidateStruct(record); err != nil {
		s.logger.WithContext(ctx).Warn("Stored webhook is missing addressing fields",
			logging.Field{Key: "webhook_id", Value: id},
			logging.Field{Key: "error", Value: err.Error()},
		)
		return nil, ErrUnauthorized
	}

	return &record, nil
}

// Revoke deletes the webhook. Revoking an unknown id succeeds.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return errors.InternalError("failed to delete webhook", err)
	}
	metrics.WebhooksRevoked.Inc()
	s.logger.WithContext(ctx).Info("Webhook revoked", logging.Field{Key: "webhook_id", Value: id})
	return nil
}

// List returns the ids of the webhooks bound to tag, sorted
func (s *Service) List(ctx context.Context, tag string) ([]string, error) {
	ids, err := s.store.List(ctx, tag+"/", s.max+listSlack)
	if err != nil {
		return nil, errors.InternalError("failed to list webhooks", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListForConversation lists the webhooks of a conversation id
func (s *Service) ListForConversation(ctx context.Context, conversationID string) ([]string, error) {
	return s.List(ctx, OwnershipTag(conversationID))
}

// OwnedBy reports whether id belongs to the conversation
func OwnedBy(id, conversationID string) bool {
	return strings.HasPrefix(id, OwnershipTag(conversationID)+"/")
}
