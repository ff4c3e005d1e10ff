// Package chat owns thread durability: one document per unordered
// participant pair, messages embedded in append order.
package chat

import (
	"context"
	"errors"
	"time"

	"dm_chat/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrThreadNotFound = errors.New("thread not found")

type (
	ChatRepo struct {
		collection *mongo.Collection
	}
)

func NewChatRepo(db *mongo.Database) *ChatRepo {
	return &ChatRepo{
		collection: db.Collection("chats"),
	}
}

// EnsureIndexes creates the unique index on the canonical participant
// pair. Concurrent first-contact creation relies on it: the loser of the
// race gets a duplicate-key error and re-reads.
func (r *ChatRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Resolve finds the thread for the pair, creating an empty one if absent.
// Order-independent and idempotent under concurrent callers.
func (r *ChatRepo) Resolve(ctx context.Context, userA, userB string) (*model.Thread, error) {
	pair := model.CanonicalPair(userA, userB)

	thread, err := r.findByPair(ctx, pair)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, ErrThreadNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := model.Thread{
		Participants: pair,
		Messages:     []model.Message{},
		CreatedAt:    now,
		LastUpdated:  now,
	}

	res, err := r.collection.InsertOne(ctx, &created)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the first-contact race; the winner's document is unique now
			return r.findByPair(ctx, pair)
		}
		return nil, err
	}

	created.ID = res.InsertedID.(primitive.ObjectID)
	return &created, nil
}

// GetExisting looks the thread up without creating it.
func (r *ChatRepo) GetExisting(ctx context.Context, userA, userB string) (*model.Thread, error) {
	return r.findByPair(ctx, model.CanonicalPair(userA, userB))
}

func (r *ChatRepo) findByPair(ctx context.Context, pair []string) (*model.Thread, error) {
	var thread model.Thread
	err := r.collection.FindOne(ctx, bson.M{"participants": pair}).Decode(&thread)
	if err == mongo.ErrNoDocuments {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// AppendMessage pushes the message onto the thread and bumps last_updated.
func (r *ChatRepo) AppendMessage(ctx context.Context, threadID primitive.ObjectID, msg *model.Message) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": threadID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"last_updated": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// AdvanceStatus moves one message from `from` to `to`. The filter matches
// only while the message still holds `from`, so repeated or stale
// transitions fall through as no-ops; the bool reports whether the status
// actually changed.
func (r *ChatRepo) AdvanceStatus(ctx context.Context, threadID primitive.ObjectID, messageID string, from, to model.Status) (bool, error) {
	if !from.CanAdvance(to) {
		return false, nil
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":      threadID,
			"messages": bson.M{"$elemMatch": bson.M{"id": messageID, "status": from}},
		},
		bson.M{"$set": bson.M{"messages.$.status": to}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MarkRead advances every delivered message addressed to reader in a
// single update and returns the ids that changed.
func (r *ChatRepo) MarkRead(ctx context.Context, threadID primitive.ObjectID, reader string) ([]string, error) {
	var thread model.Thread
	err := r.collection.FindOne(ctx, bson.M{"_id": threadID}).Decode(&thread)
	if err == mongo.ErrNoDocuments {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, m := range thread.Messages {
		if m.Receiver == reader && m.Status == model.StatusDelivered {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": threadID},
		bson.M{"$set": bson.M{"messages.$[m].status": model.StatusRead}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"m.receiver": reader, "m.status": model.StatusDelivered},
			},
		}),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetByID reads one thread document.
func (r *ChatRepo) GetByID(ctx context.Context, threadID primitive.ObjectID) (*model.Thread, error) {
	var thread model.Thread
	err := r.collection.FindOne(ctx, bson.M{"_id": threadID}).Decode(&thread)
	if err == mongo.ErrNoDocuments {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// SetBlocked marks the pair's thread blocked by the given user. New
// submissions are rejected while the flag is set.
func (r *ChatRepo) SetBlocked(ctx context.Context, userA, userB, blockedBy string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"participants": model.CanonicalPair(userA, userB)},
		bson.M{"$set": bson.M{"blocked": true, "blocked_by": blockedBy}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// ListUserThreads returns summaries of every thread the user belongs to,
// most recently updated first.
func (r *ChatRepo) ListUserThreads(ctx context.Context, userID string) ([]model.ThreadSummary, error) {
	cur, err := r.collection.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var summaries []model.ThreadSummary
	for cur.Next(ctx) {
		var thread model.Thread
		if err := cur.Decode(&thread); err != nil {
			return nil, err
		}
		summaries = append(summaries, thread.Summary())
	}
	return summaries, cur.Err()
}
