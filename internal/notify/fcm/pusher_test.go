package fcm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/messaging"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	fail map[string]error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[m.Topic]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, m)
	return "projects/p/messages/" + m.Topic, nil
}

func newTestPusher(t *testing.T, sender Sender, now time.Time) (*Pusher, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := NewPusher(sender, rdb, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return now }
	return p, mr
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "email_t1%40example.com", Topic("t1@example.com"))
	assert.Equal(t, "email_a%2Bb%40example.com", Topic("a+b@example.com"))
}

func TestPusher_Push_Now(t *testing.T) {
	sender := &fakeSender{}
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	p, _ := newTestPusher(t, sender, now)

	resp, err := p.Push(context.Background(), booking.Push{
		JobID:      1,
		Recipients: []string{"t1@example.com", "t2@example.com"},
		Message:    "Ny bokning",
		Data:       map[string]string{"job_id": "1"},
		Sound:      booking.SoundEmergency,
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/p/messages/email_t1%40example.com,projects/p/messages/email_t2%40example.com", resp)

	require.Len(t, sender.sent, 2)
	msg := sender.sent[0]
	assert.Equal(t, "DigitalTolk", msg.Notification.Title)
	assert.Equal(t, "Ny bokning", msg.Notification.Body)
	assert.Equal(t, "emergency_booking", msg.Android.Notification.Sound)
	assert.Equal(t, "emergency_booking.mp3", msg.APNS.Payload.Aps.Sound)
	assert.Equal(t, "1", msg.Data["job_id"])
}

func TestPusher_Push_PartialFailure(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{"email_t1%40example.com": errors.New("unregistered")}}
	p, _ := newTestPusher(t, sender, time.Now())

	_, err := p.Push(context.Background(), booking.Push{Recipients: []string{"t1@example.com", "t2@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t1@example.com")
	assert.Len(t, sender.sent, 1)
}

func TestPusher_DeferAndFlush(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	now := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	p, mr := newTestPusher(t, sender, now)

	morning := now.Add(8 * time.Hour)
	resp, err := p.Push(ctx, booking.Push{
		JobID:            7,
		Recipients:       []string{"t1@example.com"},
		Message:          "Ny bokning",
		Data:             map[string]string{"job_id": "7"},
		SendAfter:        &morning,
		NotificationType: booking.NotificationSuitableJob,
	})
	require.NoError(t, err)
	assert.Contains(t, resp, "deferred until")
	assert.Empty(t, sender.sent)

	members, err := mr.ZMembers(DefaultDeferredKey)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	t.Run("nothing due yet", func(t *testing.T) {
		n, err := p.Flush(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, sender.sent)
	})

	t.Run("due push is sent once", func(t *testing.T) {
		p.now = func() time.Time { return morning }

		n, err := p.Flush(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "7", sender.sent[0].Data["job_id"])

		n, err = p.Flush(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestPusher_PastSendAfterGoesOutNow(t *testing.T) {
	sender := &fakeSender{}
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	p, _ := newTestPusher(t, sender, now)

	past := now.Add(-time.Minute)
	_, err := p.Push(context.Background(), booking.Push{Recipients: []string{"t1@example.com"}, SendAfter: &past})
	require.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}
