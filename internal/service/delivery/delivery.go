// Package delivery is the real-time core: it persists submitted messages,
// fans them out to whichever participants are live, and drives each
// message through its receipt lifecycle.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dm_chat/internal/metrics"
	"dm_chat/internal/model"
	"dm_chat/internal/service/presence"
	"dm_chat/internal/utils/log"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrValidation rejects a message before any persistence.
	ErrValidation = errors.New("invalid message")
	// ErrBlocked rejects submission into a blocked thread.
	ErrBlocked = errors.New("conversation is blocked")
)

type (
	// Store is the durable side of the engine, implemented by the mongo
	// chat repository.
	Store interface {
		Resolve(ctx context.Context, userA, userB string) (*model.Thread, error)
		GetExisting(ctx context.Context, userA, userB string) (*model.Thread, error)
		GetByID(ctx context.Context, threadID primitive.ObjectID) (*model.Thread, error)
		AppendMessage(ctx context.Context, threadID primitive.ObjectID, msg *model.Message) error
		AdvanceStatus(ctx context.Context, threadID primitive.ObjectID, messageID string, from, to model.Status) (bool, error)
		MarkRead(ctx context.Context, threadID primitive.ObjectID, reader string) ([]string, error)
	}

	Engine struct {
		store    Store
		registry *presence.Registry
		queue    Queue
		locks    threadLocks
	}
)

func NewEngine(store Store, registry *presence.Registry, queue Queue) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		queue:    queue,
	}
}

// Submit persists the message and notifies both participants. The
// returned message carries the assigned id and its status at return time:
// delivered normally, sent if the delivered transition itself failed.
func (e *Engine) Submit(ctx context.Context, in *model.Message) (*model.Message, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	thread, err := e.store.Resolve(ctx, in.Sender, in.Receiver)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}
	if thread.Blocked {
		return nil, ErrBlocked
	}

	msg := &model.Message{
		ID:          uuid.NewString(),
		ChatID:      thread.ID.Hex(),
		Sender:      in.Sender,
		Receiver:    in.Receiver,
		Body:        in.Body,
		Attachments: in.Attachments,
		Status:      model.StatusSent,
		CreatedAt:   time.Now().UTC(),
	}

	unlock := e.locks.lock(thread.ID.Hex())
	err = e.store.AppendMessage(ctx, thread.ID, msg)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	metrics.MessagesSubmitted.Inc()

	// best-effort notification; absence of either party is not an error
	ev := model.NewMessageEvent(msg)
	e.push(ctx, msg.Sender, ev)
	e.push(ctx, msg.Receiver, ev)

	advanced, err := e.store.AdvanceStatus(ctx, thread.ID, msg.ID, model.StatusSent, model.StatusDelivered)
	if err != nil {
		// already persisted as sent; the caller can retry the transition
		log.Error("mark delivered failed",
			zap.String("thread", thread.ID.Hex()),
			zap.String("message", msg.ID),
			zap.Error(err))
		return msg, nil
	}
	if advanced {
		msg.Status = model.StatusDelivered
		metrics.MessagesDelivered.Inc()
		e.push(ctx, msg.Sender, model.NewReceiptEvent(thread.ID.Hex(), msg.ID, model.StatusDelivered))
	}
	return msg, nil
}

// OpenHistory resolves the thread for (user, other), marks every
// delivered message addressed to user as read, notifies the other party,
// and returns the thread as it stands afterwards.
func (e *Engine) OpenHistory(ctx context.Context, user, other string) (*model.Thread, error) {
	if user == other || user == "" || other == "" {
		return nil, fmt.Errorf("%w: bad participant pair", ErrValidation)
	}

	thread, err := e.store.Resolve(ctx, user, other)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	unlock := e.locks.lock(thread.ID.Hex())
	ids, err := e.store.MarkRead(ctx, thread.ID, user)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	for _, id := range ids {
		metrics.MessagesRead.Inc()
		e.push(ctx, other, model.NewReceiptEvent(thread.ID.Hex(), id, model.StatusRead))
	}
	if len(ids) == 0 {
		return thread, nil
	}

	updated, err := e.store.GetByID(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("reload thread: %w", err)
	}
	return updated, nil
}

// Replay drains the user's pending events into a freshly registered link,
// before the read loop starts consuming from it.
func (e *Engine) Replay(ctx context.Context, user string, l presence.Link) error {
	if e.queue == nil {
		return nil
	}

	events, err := e.queue.Drain(ctx, user)
	if err != nil {
		return fmt.Errorf("drain pending events: %w", err)
	}

	for i, ev := range events {
		if err := l.Send(ev); err != nil {
			// connection died mid-replay; keep the rest for next time
			for _, rest := range events[i:] {
				if qerr := e.queue.Enqueue(ctx, user, rest); qerr != nil {
					log.Error("requeue pending event failed", zap.String("user", user), zap.Error(qerr))
				}
			}
			return err
		}
	}
	return nil
}

// push delivers an event to the user's live connection if one exists. A
// transport error means the connection is stale: it is dropped, and the
// event is queued for replay like any other offline push. Never fails the
// caller.
func (e *Engine) push(ctx context.Context, user string, ev model.Event) {
	if l, ok := e.registry.Lookup(user); ok {
		if err := l.Send(ev); err == nil {
			metrics.PushesDelivered.Inc()
			return
		}
		e.registry.Unregister(user, l)
		l.Close()
		log.Debug("dropped stale connection", zap.String("user", user))
	}

	if e.queue == nil {
		return
	}
	if err := e.queue.Enqueue(ctx, user, ev); err != nil {
		log.Error("queue pending event failed", zap.String("user", user), zap.Error(err))
		return
	}
	metrics.PushesQueued.Inc()
}

func validate(m *model.Message) error {
	switch {
	case m.Sender == "":
		return fmt.Errorf("%w: missing sender", ErrValidation)
	case m.Receiver == "":
		return fmt.Errorf("%w: missing receiver", ErrValidation)
	case m.Sender == m.Receiver:
		return fmt.Errorf("%w: sender and receiver are the same user", ErrValidation)
	case strings.TrimSpace(m.Body) == "" && len(m.Attachments) == 0:
		return fmt.Errorf("%w: empty message", ErrValidation)
	}
	return nil
}
