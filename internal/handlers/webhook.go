package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/bot"
	"webhook-gateway/internal/cards"
	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/delivery"
	"webhook-gateway/internal/metrics"
	"webhook-gateway/internal/webhooks"
)

// IncomingMessageText introduces every message delivered through a webhook
const IncomingMessageText = "I received a message through a webhook:"

// submitWait bounds how long a request waits for room in the delivery queue
const submitWait = 5 * time.Second

var (
	ErrInvalidWebhookID = errors.ValidationError("Invalid webhook ID")
	ErrMissingMessage   = errors.ValidationError("Missing key 'message' in the request body")
	ErrInvalidJSON      = errors.ValidationError("Request body is not formatted as valid JSON")
	ErrEmptyBody        = errors.ValidationError("Request body is empty")
	ErrBodyTooLarge     = errors.PayloadTooLargeError("Request body is too large")
	ErrUnsupportedType  = errors.UnsupportedMediaError("This webhook accepts requests in plain text (text/plain) or JSON (application/json) formats only")
)

type webhookBody struct {
	Message string `json:"message"`
}

// HandleWebhook accepts a message for the conversation a webhook is bound to and
// queues it for delivery. The request is answered before the message is posted.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.acceptWebhook(r, id)
	metrics.WebhookRequests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		httpclient.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) acceptWebhook(r *http.Request, id string) error {
	if !webhooks.ValidID(id) {
		return ErrInvalidWebhookID
	}

	secret := webhooks.ParseSecret(r.Header.Get("Authorization"))
	if secret == "" {
		secret = webhooks.ParseSecret(r.URL.Query().Get("access_token"))
	}
	if secret == "" {
		return webhooks.ErrUnauthorized
	}

	record, err := h.webhooks.Authenticate(r.Context(), id, secret)
	if err != nil {
		return err
	}

	message, err := h.readMessage(r)
	if err != nil {
		return err
	}

	job := delivery.Job{
		WebhookID: id,
		RequestID: logging.RequestIDFromContext(r.Context()),
		Address: bot.Address{
			ServiceURL:   record.ServiceURL,
			Conversation: record.Conversation,
			From:         record.Bot,
			Recipient:    record.User,
		},
		Message: activity.NewCardMessage(IncomingMessageText, cards.IncomingMessage(id, message)),
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitWait)
	defer cancel()
	if err := h.queue.Submit(ctx, job); err != nil {
		return err
	}

	h.logger.WithContext(r.Context()).Info("Webhook message queued",
		logging.Field{Key: "webhook_id", Value: id},
		logging.Field{Key: "chars", Value: utf8.RuneCountInString(message)},
	)
	return nil
}

// readMessage extracts the message from a JSON or plain text body
func (h *Handlers) readMessage(r *http.Request) (string, error) {
	switch mediaType(r.Header.Get("Content-Type")) {
	case "application/json":
		data, err := h.readBody(r.Body)
		if err != nil {
			return "", err
		}
		var body webhookBody
		if err := json.Unmarshal(data, &body); err != nil {
			return "", ErrInvalidJSON
		}
		if strings.TrimSpace(body.Message) == "" {
			return "", ErrMissingMessage
		}
		return body.Message, nil

	case "text/plain":
		data, err := h.readBody(r.Body)
		if err != nil {
			return "", err
		}
		message := string(data)
		if strings.TrimSpace(message) == "" {
			return "", ErrEmptyBody
		}
		return message, nil

	default:
		return "", ErrUnsupportedType
	}
}

// readBody reads at most enough bytes to hold maxChars characters and fails once
// the body holds more, whatever Content-Length says
func (h *Handlers) readBody(body io.Reader) ([]byte, error) {
	limit := int64(h.maxChars) * utf8.UTFMax
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, errors.ValidationError("Failed to read request body")
	}
	if int64(len(data)) > limit || utf8.RuneCount(data) > h.maxChars {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// outcome is the label recorded for a webhook request
func outcome(err error) string {
	switch errors.GetType(err) {
	case "":
		return "accepted"
	case errors.ErrTypeValidation:
		return "invalid"
	case errors.ErrTypeAuth:
		return "unauthorized"
	case errors.ErrTypeUnsupportedMedia:
		return "unsupported_media"
	case errors.ErrTypePayloadTooLarge:
		return "too_large"
	case errors.ErrTypeUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
