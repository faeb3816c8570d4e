package notify

import (
	"context"
	"errors"

	"taskwise/internal/pubsub"

	"github.com/slack-go/slack"
)

type SlackSink struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackSink(webhookURL string) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, errors.New("slack: webhook url is required")
	}
	return &SlackSink{webhookURL: webhookURL, post: slack.PostWebhookContext}, nil
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Notify(ctx context.Context, ev pubsub.ErrorEvent) error {
	color := "danger"
	if ev.Kind == pubsub.KindPermissionDenied {
		color = "warning"
	}
	msg := &slack.WebhookMessage{
		Text: title(ev),
		Attachments: []slack.Attachment{{
			Color: color,
			Text:  ev.Err,
			Fields: []slack.AttachmentField{
				{Title: "Actor", Value: ev.ActorID, Short: true},
				{Title: "At", Value: ev.At.UTC().Format("2006-01-02 15:04:05 MST"), Short: true},
			},
		}},
	}
	return s.post(ctx, s.webhookURL, msg)
}
