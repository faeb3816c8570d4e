package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskwise/internal/pubsub"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var event = pubsub.ErrorEvent{
	Kind:      pubsub.KindPermissionDenied,
	Path:      "tasks/t1",
	Operation: "reorder",
	Err:       "permission denied",
	ActorID:   "u1",
	At:        time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string { return "mock" }

func (m *MockSink) Notify(ctx context.Context, ev pubsub.ErrorEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(webhookID, token, wait, data)
	return nil, args.Error(0)
}

func TestDispatcher_Deliver(t *testing.T) {
	ok := new(MockSink)
	ok.On("Notify", mock.Anything, event).Return(nil)
	failing := new(MockSink)
	failing.On("Notify", mock.Anything, event).Return(errors.New("boom"))

	d := NewDispatcher(0, failing, LogSink{}, ok)
	err := d.Deliver(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock: boom")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestDispatcher_Run(t *testing.T) {
	broker := pubsub.NewBroker[pubsub.ErrorEvent](4)
	delivered := make(chan struct{})
	sink := new(MockSink)
	sink.On("Notify", mock.Anything, event).Return(nil).Run(func(mock.Arguments) { close(delivered) }).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewDispatcher(time.Second, sink).Run(ctx, broker)
		close(done)
	}()

	require.Eventually(t, func() bool { return broker.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	broker.Publish(event)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	cancel()
	<-done
	assert.Zero(t, broker.Subscribers())
}

func TestSlackSink(t *testing.T) {
	var got slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewSlackSink(srv.URL)
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), event))

	assert.Equal(t, "Permission denied: reorder tasks/t1", got.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "warning", got.Attachments[0].Color)
	assert.Equal(t, "permission denied", got.Attachments[0].Text)

	_, err = NewSlackSink("")
	assert.Error(t, err)
}

func TestSlackSink_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink, err := NewSlackSink(srv.URL)
	require.NoError(t, err)
	assert.Error(t, sink.Notify(context.Background(), event))
}

func TestDiscordSink(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("WebhookExecute", "hook", "secret", false, mock.MatchedBy(func(p *discordgo.WebhookParams) bool {
		return len(p.Embeds) == 1 &&
			p.Embeds[0].Color == colorOrange &&
			p.Embeds[0].Description == "permission denied"
	})).Return(nil)

	sink := &DiscordSink{webhookID: "hook", token: "secret", exec: exec}
	require.NoError(t, sink.Notify(context.Background(), event))
	exec.AssertExpectations(t)

	_, err := NewDiscordSink("hook", "")
	assert.Error(t, err)
}
