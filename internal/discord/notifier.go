// Package discord posts session highlights (raids, bets and prediction
// results) to a Discord channel.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/event"
	"github.com/osse101/ChannelPointsMiner_Go/internal/logger"
	"github.com/osse101/ChannelPointsMiner_Go/internal/worker"
)

// Sender posts an embed to a channel. *discordgo.Session implements it.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Queue accepts jobs without blocking. *worker.Pool implements it.
type Queue interface {
	Enqueue(job worker.Job) bool
}

// Notifier turns bus events into Discord embeds. Sends run on the queue so
// a slow Discord API never stalls event delivery.
type Notifier struct {
	sender    Sender
	channelID string
	queue     Queue
	now       func() time.Time
}

// NewSession creates a REST-only bot session. No gateway connection is
// opened, so there is nothing to close.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return s, nil
}

// NewNotifier creates a notifier posting to channelID.
func NewNotifier(sender Sender, channelID string, queue Queue) *Notifier {
	return &Notifier{
		sender:    sender,
		channelID: channelID,
		queue:     queue,
		now:       time.Now,
	}
}

// Register subscribes to the events worth a notification.
func (n *Notifier) Register(bus event.Bus) error {
	for _, t := range []event.Type{event.RaidJoined, event.BetPlaced, event.BetFailed, event.PredictionResult} {
		bus.Subscribe(t, n.HandleEvent)
	}
	return nil
}

// HandleEvent builds the embed for evt and queues its delivery. It never
// fails the publisher.
func (n *Notifier) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	embed, err := n.embedFor(evt)
	if err != nil {
		log.Warn(LogMsgPayloadInvalid, "type", evt.Type, "error", err)
		return nil
	}
	if embed == nil {
		return nil
	}

	job := worker.JobFunc(func(ctx context.Context) error {
		if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
			logger.FromContext(ctx).Warn(LogMsgSendFailed, "type", evt.Type, "error", err)
			return err
		}
		return nil
	})
	if !n.queue.Enqueue(job) {
		log.Warn(LogMsgQueueFull, "type", evt.Type)
	}
	return nil
}

func (n *Notifier) embedFor(evt event.Event) (*discordgo.MessageEmbed, error) {
	switch evt.Type {
	case event.RaidJoined:
		p, err := event.DecodePayload[domain.RaidPayload](evt.Payload)
		if err != nil {
			return nil, err
		}
		return n.raidEmbed(p), nil

	case event.BetPlaced, event.BetFailed:
		p, err := event.DecodePayload[domain.BetPayload](evt.Payload)
		if err != nil {
			return nil, err
		}
		return n.betEmbed(p), nil

	case event.PredictionResult:
		p, err := event.DecodePayload[domain.PredictionResultPayload](evt.Payload)
		if err != nil {
			return nil, err
		}
		return n.resultEmbed(p), nil
	}
	return nil, nil
}

func (n *Notifier) raidEmbed(p domain.RaidPayload) *discordgo.MessageEmbed {
	return n.embed(TitleRaid,
		fmt.Sprintf("**%s** raided **%s**", p.Streamer, p.TargetLogin),
		ColorRaid,
		field(FieldStreamer, p.Streamer),
		field(FieldTarget, p.TargetLogin),
		field(FieldViewers, fmt.Sprintf("%d", p.ViewerCount)),
	)
}

func (n *Notifier) betEmbed(p domain.BetPayload) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		field(FieldStreamer, p.Streamer),
		field(FieldOutcome, p.OutcomeTitle),
		field(FieldAmount, fmt.Sprintf("%d", p.Amount)),
		field(FieldStrategy, n.label(string(p.Strategy))),
	}
	if p.Failure != "" {
		fields = append(fields, field(FieldReason, p.Failure))
		return n.embed(TitleBetFailed, p.Title, ColorFailed, fields...)
	}
	return n.embed(TitleBetPlaced, p.Title, ColorBet, fields...)
}

func (n *Notifier) resultEmbed(p domain.PredictionResultPayload) *discordgo.MessageEmbed {
	color := ColorRefund
	switch p.Result {
	case domain.ResultWin:
		color = ColorWin
	case domain.ResultLose:
		color = ColorLose
	}
	return n.embed(TitlePrediction, p.Title, color,
		field(FieldStreamer, p.Streamer),
		field(FieldResult, n.label(string(p.Result))),
		field(FieldGained, fmt.Sprintf("%+d", p.Gained)),
	)
}

func (n *Notifier) embed(title, description string, color int, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   n.now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: FooterText},
	}
}

// label renders enum values such as HIGH_ODDS as "High Odds". Casers are
// stateful, so each call gets its own.
func (n *Notifier) label(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}
