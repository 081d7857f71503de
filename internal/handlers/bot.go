package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/auth"
	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/common/validation"
)

// maxActivityBytes bounds the size of an activity posted by the platform
const maxActivityBytes = 1 << 20

// HandleBotMessage receives an activity from the bot platform and runs the first
// matching route. It sits behind auth.Middleware.
func (h *Handlers) HandleBotMessage(w http.ResponseWriter, r *http.Request) {
	var a activity.Activity
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActivityBytes)).Decode(&a); err != nil {
		httpclient.WriteError(w, r, errors.ValidationError("Request body is not a valid activity"))
		return
	}
	if err := validation.ValidateStruct(&a); err != nil {
		httpclient.WriteError(w, r, err)
		return
	}

	// Replies go to the activity's service URL, so it must be the one the token vouches for
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.ServiceURL != "" &&
		!sameServiceURL(claims.ServiceURL, a.ServiceURL) {
		httpclient.WriteError(w, r, auth.ErrServiceURLMismatch)
		return
	}

	activity.NormalizeConversationID(&a)
	if a.Type == activity.TypeMessage && a.Recipient != nil {
		a.Text = activity.RemoveMentions(&a, a.Recipient.ID)
	}

	logger := h.logger.WithContext(r.Context()).WithFields(
		logging.Field{Key: "type", Value: a.Type},
		logging.Field{Key: "conversation", Value: a.ConversationID()},
	)

	handler := h.router.Find(&a)
	if handler == nil {
		logger.Debug("No route for activity")
	} else if err := handler(r.Context(), &a); err != nil {
		httpclient.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func sameServiceURL(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "/"), strings.TrimSuffix(b, "/"))
}
