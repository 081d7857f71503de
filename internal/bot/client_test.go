package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/common/errors"
)

type staticToken string

func (s staticToken) GetToken(ctx context.Context) (string, error) {
	return string(s), nil
}

type failingToken struct{}

func (failingToken) GetToken(ctx context.Context) (string, error) {
	return "", errors.UpstreamError("token request failed", assert.AnError)
}

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Activity      activity.Activity
}

type conversationAPI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newConversationAPI(t *testing.T) *conversationAPI {
	t.Helper()
	api := &conversationAPI{status: http.StatusOK, body: `{"id":"activity-1"}`}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec := recordedRequest{
			Method:        r.Method,
			Path:          r.URL.EscapedPath(),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		}
		json.Unmarshal(data, &rec.Activity)

		api.mu.Lock()
		api.requests = append(api.requests, rec)
		status, body := api.status, api.body
		api.mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(api.Close)
	return api
}

func (api *conversationAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.requests)
	return api.requests[len(api.requests)-1]
}

func (api *conversationAPI) respond(status int, body string) {
	api.mu.Lock()
	api.status, api.body = status, body
	api.mu.Unlock()
}

func testAddress(serviceURL string) Address {
	return Address{
		ServiceURL:   serviceURL + "/",
		Conversation: activity.ConversationAccount{ID: "19:abc@thread.v2"},
		From:         activity.ChannelAccount{ID: "28:bot", Name: "Gateway"},
		Recipient:    activity.ChannelAccount{ID: "29:user", Name: "Ada"},
	}
}

func TestClient_Send(t *testing.T) {
	api := newConversationAPI(t)
	client := NewClient(staticToken("secret-token"))

	// Addressing fields on the activity are replaced
	msg := activity.NewMessage("hello")
	msg.From = &activity.ChannelAccount{ID: "spoofed"}

	resp, err := client.Send(context.Background(), testAddress(api.URL), msg)
	require.NoError(t, err)
	assert.Equal(t, "activity-1", resp.ID)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v3/conversations/19:abc@thread.v2/activities", req.Path)
	assert.Equal(t, "Bearer secret-token", req.Authorization)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "hello", req.Activity.Text)
	assert.Equal(t, "28:bot", req.Activity.From.ID)
	assert.Equal(t, "29:user", req.Activity.Recipient.ID)
	assert.Equal(t, "19:abc@thread.v2", req.Activity.Conversation.ID)

	// The caller's activity is left alone
	assert.Equal(t, "spoofed", msg.From.ID)
}

func TestClient_Reply(t *testing.T) {
	api := newConversationAPI(t)
	client := NewClient(staticToken("t"))

	_, err := client.Reply(context.Background(), testAddress(api.URL), "1234", activity.NewMessage("re"))
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v3/conversations/19:abc@thread.v2/activities/1234", req.Path)

	_, err = client.Reply(context.Background(), testAddress(api.URL), "", activity.NewMessage("re"))
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestClient_Update(t *testing.T) {
	api := newConversationAPI(t)
	client := NewClient(staticToken("t"))

	msg := activity.NewMessage("edited")
	_, err := client.Update(context.Background(), api.URL, "1234", msg)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "conversation is required")

	msg.Conversation = &activity.ConversationAccount{ID: "conv"}
	msg.From = &activity.ChannelAccount{ID: "kept"}
	_, err = client.Update(context.Background(), api.URL, "1234", msg)
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/v3/conversations/conv/activities/1234", req.Path)
	assert.Equal(t, "kept", req.Activity.From.ID)
}

func TestClient_ServiceURLOverride(t *testing.T) {
	api := newConversationAPI(t)
	client := NewClient(staticToken("t"), WithServiceURLOverride(api.URL))

	_, err := client.Send(context.Background(), testAddress("https://unreachable.invalid"), activity.NewMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, "/v3/conversations/19:abc@thread.v2/activities", api.last(t).Path)
}

func TestClient_Errors(t *testing.T) {
	api := newConversationAPI(t)
	client := NewClient(staticToken("t"))
	addr := testAddress(api.URL)

	api.respond(http.StatusForbidden, `{"error":"nope"}`)
	_, err := client.Send(context.Background(), addr, activity.NewMessage("x"))
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))

	api.respond(http.StatusOK, `{}`)
	_, err = client.Send(context.Background(), addr, activity.NewMessage("x"))
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = client.Send(context.Background(), addr, &activity.Activity{Text: "no type"})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = client.Send(context.Background(), Address{ServiceURL: api.URL}, activity.NewMessage("x"))
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "conversation id is required")

	_, err = client.Send(context.Background(), testAddress("ftp://example.com"), activity.NewMessage("x"))
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = NewClient(failingToken{}).Send(context.Background(), addr, activity.NewMessage("x"))
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
}

func TestReplyAddress(t *testing.T) {
	in := &activity.Activity{
		Type:         activity.TypeMessage,
		ServiceURL:   "https://smba.example.com/",
		From:         &activity.ChannelAccount{ID: "user"},
		Recipient:    &activity.ChannelAccount{ID: "bot"},
		Conversation: &activity.ConversationAccount{ID: "conv"},
	}

	addr := ReplyAddress(in)
	assert.Equal(t, "https://smba.example.com/", addr.ServiceURL)
	assert.Equal(t, "bot", addr.From.ID)
	assert.Equal(t, "user", addr.Recipient.ID)
	assert.Equal(t, "conv", addr.Conversation.ID)
}
