package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bookwell/notify/pkg/notify"
)

const collectionName = "notifications"

// Storage is the MongoDB implementation of notify.Storage. Per-channel
// outcomes are written as targeted $set updates keyed by channel name
// ("channels.email.sent", ...), so two channels settling concurrently on
// the same record can never overwrite each other's status. Record expiry is
// handled natively by the TTL index on expiresAt.
type Storage struct {
	coll *mongo.Collection
}

// New creates a notification store on the given database.
func New(db *mongo.Database) *Storage {
	return &Storage{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the query and TTL indexes the store relies on. Call
// once at service start.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "isRead", Value: 1}, {Key: "isArchived", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "scheduledFor", Value: 1}, {Key: "dispatchedAt", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("mongostore: failed to create indexes: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, n notify.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("mongostore: failed to insert notification: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, id string) (*notify.Notification, error) {
	var n notify.Notification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notify.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: failed to load notification: %w", err)
	}
	return &n, nil
}

func (s *Storage) List(ctx context.Context, recipientID string, opts notify.ListOptions) (*notify.Page, error) {
	filter := bson.M{
		"recipientId": recipientID,
		"isArchived":  false,
		// The TTL monitor deletes expired records with up to a minute of
		// lag; exclude them from listings in the meantime.
		"$or": bson.A{
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gt": time.Now()}},
		},
	}
	if opts.Type != "" {
		filter["type"] = opts.Type
	}
	if opts.IsRead != nil {
		filter["isRead"] = *opts.IsRead
	}
	if opts.Priority != "" {
		filter["priority"] = opts.Priority
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: failed to list notifications: %w", err)
	}
	var items []notify.Notification
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongostore: failed to decode notifications: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongostore: failed to count notifications: %w", err)
	}
	unread, err := s.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &notify.Page{
		Items:       items,
		Total:       int(total),
		UnreadCount: unread,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}, nil
}

func (s *Storage) SetChannelResult(ctx context.Context, id string, ch notify.Channel, res notify.ChannelResult) error {
	prefix := "channels." + string(ch)

	set := bson.M{
		prefix + ".sent":  res.Sent,
		prefix + ".error": res.Error,
	}
	if res.SentAt != nil {
		set[prefix+".sentAt"] = *res.SentAt
	}

	// The sent guard in the filter makes success write-once: a channel
	// already marked sent matches nothing and the result is discarded.
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, prefix + ".sent": bson.M{"$ne": true}},
		bson.M{
			"$set": set,
			"$inc": bson.M{prefix + ".attempts": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("mongostore: failed to update channel status: %w", err)
	}
	if result.MatchedCount == 0 {
		// Either the id is unknown or the channel already settled as sent.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) MarkRead(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.authorized(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	switch n.State() {
	case notify.StateArchived:
		return nil, notify.ErrArchived
	case notify.StateRead:
		return n, nil
	}

	now := time.Now()
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"isRead":       true,
			"inApp.read":   true,
			"inApp.readAt": now,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mongostore: failed to mark notification read: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Storage) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	now := time.Now()
	result, err := s.coll.UpdateMany(ctx,
		bson.M{"recipientId": recipientID, "isRead": false, "isArchived": false},
		bson.M{
			"$set": bson.M{
				"isRead":       true,
				"inApp.read":   true,
				"inApp.readAt": now,
			},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("mongostore: failed to mark all read: %w", err)
	}
	return int(result.ModifiedCount), nil
}

func (s *Storage) Archive(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.authorized(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	if n.IsArchived {
		return n, nil
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isArchived": true}}); err != nil {
		return nil, fmt.Errorf("mongostore: failed to archive notification: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Storage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"recipientId": recipientID,
		"isRead":      false,
		"isArchived":  false,
		"$or": bson.A{
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gt": time.Now()}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("mongostore: failed to count unread: %w", err)
	}
	return int(count), nil
}

func (s *Storage) ListDue(ctx context.Context, now time.Time, limit int) ([]notify.Notification, error) {
	filter := bson.M{
		"dispatchedAt": nil,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"scheduledFor": nil},
				bson.M{"scheduledFor": bson.M{"$lte": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"expiresAt": nil},
				bson.M{"expiresAt": bson.M{"$gt": now}},
			}},
		},
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "scheduledFor", Value: 1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: failed to list due notifications: %w", err)
	}
	var items []notify.Notification
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongostore: failed to decode due notifications: %w", err)
	}
	return items, nil
}

func (s *Storage) ClaimForDispatch(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "dispatchedAt": nil},
		bson.M{"$set": bson.M{"dispatchedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("mongostore: failed to claim notification: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// DeleteExpired is a no-op: the TTL index on expiresAt deletes expired
// records server-side.
func (s *Storage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// authorized loads a record and verifies recipient ownership.
func (s *Storage) authorized(ctx context.Context, id, recipientID string) (*notify.Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, notify.ErrAccessDenied
	}
	return n, nil
}
