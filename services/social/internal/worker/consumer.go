// Package worker consumes comment commands published by other services
// (bulk imports, moderation tooling) and applies them through the service
// layer, so queued writes obey the same rules as HTTP writes.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/gallery-platform/services/social/internal/service"
	"github.com/example/gallery-platform/services/social/internal/store"
)

const (
	StreamName       = "SOCIAL_COMMANDS"
	SubjectPrefix    = "social.commands."
	SubjectCreate    = SubjectPrefix + "comment_create"
	durableName      = "social_commands"
	defaultBatchSize = 100
	defaultMaxWait   = 2 * time.Second
	defaultHandleTTL = 30 * time.Second
	releaseTimeout   = 5 * time.Second
)

// CreateCommentCommand is the payload on SubjectCreate.
type CreateCommentCommand struct {
	EventID   string `json:"event_id"`
	GalleryID int64  `json:"gallery_id"`
	UserID    int64  `json:"user_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Text      string `json:"text"`
}

// errPermanent marks a message that will never succeed; it is acked and dropped.
var errPermanent = errors.New("permanent command failure")

type Consumer struct {
	svc       *service.Service
	dedupe    Deduper
	log       *zap.Logger
	BatchSize int
	MaxWait   time.Duration
	// HandleTimeout bounds one message. Fetched messages finish after Run's
	// context is cancelled.
	HandleTimeout time.Duration
}

func NewConsumer(svc *service.Service, dedupe Deduper, log *zap.Logger) *Consumer {
	return &Consumer{
		svc:           svc,
		dedupe:        dedupe,
		log:           log,
		BatchSize:     defaultBatchSize,
		MaxWait:       defaultMaxWait,
		HandleTimeout: defaultHandleTTL,
	}
}

// EnsureStream creates the command stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + ">"},
		MaxAge:   72 * time.Hour,
	})
	return err
}

// Run pulls batches until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.PullSubscribe(SubjectPrefix+">", durableName)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectPrefix, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.BatchSize, nats.MaxWait(c.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.log.Warn("commands: fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, m := range msgs {
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.HandleTimeout)
			c.settle(m, c.handle(hctx, m.Subject, m.Data))
			cancel()
		}
	}
}

func (c *Consumer) settle(m *nats.Msg, err error) {
	switch {
	case err == nil:
		_ = m.Ack()
	case errors.Is(err, errPermanent):
		c.log.Warn("commands: dropping message", zap.String("subject", m.Subject), zap.Error(err))
		_ = m.Term()
	default:
		c.log.Warn("commands: will retry", zap.String("subject", m.Subject), zap.Error(err))
		_ = m.Nak()
	}
}

// release drops a claim after a failed create. It runs even when ctx is
// already done, otherwise the redelivered message would be skipped as a
// duplicate and the comment lost.
func (c *Consumer) release(ctx context.Context, eventID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := c.dedupe.Release(rctx, eventID); err != nil {
		c.log.Warn("commands: release claim failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

// handle applies one command. Transient failures release the dedupe claim so a
// redelivery can retry.
func (c *Consumer) handle(ctx context.Context, subject string, data []byte) error {
	switch subject {
	case SubjectCreate:
		var cmd CreateCommentCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return fmt.Errorf("%w: decode: %v", errPermanent, err)
		}
		if strings.TrimSpace(cmd.EventID) == "" || cmd.GalleryID <= 0 || cmd.UserID <= 0 {
			return fmt.Errorf("%w: missing event_id, gallery_id or user_id", errPermanent)
		}

		fresh, err := c.dedupe.Claim(ctx, cmd.EventID)
		if err != nil {
			return fmt.Errorf("claim %s: %w", cmd.EventID, err)
		}
		if !fresh {
			return nil
		}

		_, err = c.svc.CreateComment(ctx, store.NewComment{
			GalleryID: cmd.GalleryID,
			UserID:    cmd.UserID,
			ParentID:  cmd.ParentID,
			Text:      cmd.Text,
		})
		if errors.Is(err, service.ErrEmptyText) || errors.Is(err, store.ErrInvalidParent) {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		if err != nil {
			c.release(ctx, cmd.EventID)
			return err
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown subject %s", errPermanent, subject)
	}
}
