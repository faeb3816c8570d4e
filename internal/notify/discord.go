package notify

import (
	"context"
	"errors"
	"fmt"

	"taskwise/internal/pubsub"

	"github.com/bwmarrin/discordgo"
)

const (
	colorRed    = 0xdc2626
	colorOrange = 0xf59e0b
)

// webhookExecutor is the part of *discordgo.Session the sink uses.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordSink struct {
	webhookID string
	token     string
	exec      webhookExecutor
}

// NewDiscordSink posts through a token-less session; webhooks authenticate
// with their own token.
func NewDiscordSink(webhookID, token string) (*DiscordSink, error) {
	if webhookID == "" || token == "" {
		return nil, errors.New("discord: webhook id and token are required")
	}
	dg, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &DiscordSink{webhookID: webhookID, token: token, exec: dg}, nil
}

func (d *DiscordSink) Name() string { return "discord" }

func (d *DiscordSink) Notify(ctx context.Context, ev pubsub.ErrorEvent) error {
	color := colorRed
	if ev.Kind == pubsub.KindPermissionDenied {
		color = colorOrange
	}
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title(ev),
			Description: ev.Err,
			Color:       color,
			Timestamp:   ev.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Actor", Value: orDash(ev.ActorID), Inline: true},
			},
		}},
	}
	_, err := d.exec.WebhookExecute(d.webhookID, d.token, false, params, discordgo.WithContext(ctx))
	return err
}

// Discord rejects embed fields with empty values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
