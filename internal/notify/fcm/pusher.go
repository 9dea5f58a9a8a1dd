// Package fcm delivers pushes through Firebase Cloud Messaging. FCM has no
// scheduled delivery, so pushes with a future SendAfter are parked in a Redis
// sorted set scored by due time and sent by Flush.
package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/notify"
)

// DefaultDeferredKey is the sorted set holding parked pushes.
const DefaultDeferredKey = "push:deferred"

var _ booking.Pusher = (*Pusher)(nil)

// Sender is the part of *messaging.Client the pusher needs.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NewMessagingClient initialises a Firebase app from a service account file.
func NewMessagingClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase messaging: %w", err)
	}
	return client, nil
}

// Pusher is a booking.Pusher backed by FCM topics, one topic per user email.
type Pusher struct {
	sender Sender
	rdb    *goredis.Client
	key    string
	now    func() time.Time
	logger *slog.Logger
}

// NewPusher creates an FCM pusher. rdb may be nil, in which case deferred
// pushes are sent immediately.
func NewPusher(sender Sender, rdb *goredis.Client, deferredKey string, logger *slog.Logger) *Pusher {
	if deferredKey == "" {
		deferredKey = DefaultDeferredKey
	}
	return &Pusher{
		sender: sender,
		rdb:    rdb,
		key:    deferredKey,
		now:    time.Now,
		logger: logger,
	}
}

// Topic is the FCM topic a user's devices subscribe to.
func Topic(tag string) string {
	return "email_" + url.QueryEscape(tag)
}

// Push sends to every recipient's topic, or parks the push when SendAfter is in the future.
func (p *Pusher) Push(ctx context.Context, push booking.Push) (string, error) {
	if push.SendAfter != nil && p.rdb != nil && push.SendAfter.After(p.now()) {
		return p.park(ctx, push)
	}
	return p.send(ctx, push)
}

func (p *Pusher) park(ctx context.Context, push booking.Push) (string, error) {
	body, err := json.Marshal(push)
	if err != nil {
		return "", fmt.Errorf("failed to marshal deferred push: %w", err)
	}

	z := goredis.Z{Score: float64(push.SendAfter.Unix()), Member: string(body)}
	if err := p.rdb.ZAdd(ctx, p.key, z).Err(); err != nil {
		return "", fmt.Errorf("failed to park push: %w", err)
	}
	return "deferred until " + push.SendAfter.Format(time.RFC3339), nil
}

func (p *Pusher) send(ctx context.Context, push booking.Push) (string, error) {
	android, ios := notify.Sounds(push.Sound)
	badge := 1

	var ids []string
	var errs []error
	for _, tag := range push.Recipients {
		msg := &messaging.Message{
			Topic: Topic(tag),
			Notification: &messaging.Notification{
				Title: notify.Title,
				Body:  push.Message,
			},
			Data: push.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: android,
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Sound: ios,
						Badge: &badge,
					},
				},
			},
		}

		id, err := p.sender.Send(ctx, msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", tag, err))
			continue
		}
		ids = append(ids, id)
	}
	return strings.Join(ids, ","), errors.Join(errs...)
}

// Flush sends every parked push that is due and returns how many were sent.
// A push is removed before it is sent, so concurrent flushers never send it twice.
func (p *Pusher) Flush(ctx context.Context) (int, error) {
	if p.rdb == nil {
		return 0, nil
	}

	members, err := p.rdb.ZRangeByScore(ctx, p.key, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(p.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read deferred pushes: %w", err)
	}

	sent := 0
	var errs []error
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		removed, err := p.rdb.ZRem(ctx, p.key, member).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to claim deferred push: %w", err))
			continue
		}
		if removed == 0 {
			continue
		}

		var push booking.Push
		if err := json.Unmarshal([]byte(member), &push); err != nil {
			p.logger.Error("Dropping malformed deferred push",
				slog.String("member", member),
				slog.Any("error", err),
			)
			continue
		}

		resp, err := p.send(ctx, push)
		if err != nil {
			p.logger.Error("Deferred push failed",
				slog.Int64("job_id", push.JobID),
				slog.String("notification_type", push.NotificationType),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			continue
		}

		p.logger.Info("Deferred push sent",
			slog.Int64("job_id", push.JobID),
			slog.String("notification_type", push.NotificationType),
			slog.String("response", resp),
		)
		sent++
	}
	return sent, errors.Join(errs...)
}
