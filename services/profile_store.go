package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cavision/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileStore persists users/{id}. All writes are $set / $inc upserts so
// concurrent writers never overwrite each other's counters.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	// Upsert sets the provided fields, creating the document if needed.
	Upsert(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error)
	// Ensure creates the document with defaults if it does not exist and leaves an existing one alone.
	Ensure(ctx context.Context, id string, defaults models.ProfileUpdate) (*models.UserProfile, error)
	IncrementCounters(ctx context.Context, id string, d models.StatsDelta) error
}

type MongoProfileStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func NewMongoProfileStore(coll *mongo.Collection) *MongoProfileStore {
	return &MongoProfileStore{coll: coll, timeout: 10 * time.Second, now: time.Now}
}

func (s *MongoProfileStore) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var p models.UserProfile
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

func (s *MongoProfileStore) Upsert(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error) {
	now := s.now().UTC()
	set := updateFields(u)
	set["updatedAt"] = now
	update := bson.M{
		"$set":         set,
		"$setOnInsert": insertDefaults(now, set),
	}
	return s.findAndUpsert(ctx, id, update)
}

func (s *MongoProfileStore) Ensure(ctx context.Context, id string, defaults models.ProfileUpdate) (*models.UserProfile, error) {
	now := s.now().UTC()
	onInsert := updateFields(defaults)
	for k, v := range insertDefaults(now, onInsert) {
		onInsert[k] = v
	}
	onInsert["updatedAt"] = now
	return s.findAndUpsert(ctx, id, bson.M{"$setOnInsert": onInsert})
}

func (s *MongoProfileStore) IncrementCounters(ctx context.Context, id string, d models.StatsDelta) error {
	if d.IsZero() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	update := bson.M{
		"$inc": bson.M{
			"totalQuizzesGenerated": d.Generated,
			"totalMcqsAttempted":    d.Attempted,
			"totalMcqsCorrect":      d.Correct,
		},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"createdAt":   now,
			"isAnonymous": false,
		},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

func (s *MongoProfileStore) findAndUpsert(ctx context.Context, id string, update bson.M) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p models.UserProfile
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&p)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return &p, nil
}

func updateFields(u models.ProfileUpdate) bson.M {
	set := bson.M{}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.DisplayName != nil {
		set["displayName"] = *u.DisplayName
	}
	if u.Bio != nil {
		set["bio"] = *u.Bio
	}
	if u.City != nil {
		set["city"] = *u.City
	}
	if u.CALevel != nil {
		set["caLevel"] = *u.CALevel
	}
	if u.PhotoURL != nil {
		set["photoURL"] = *u.PhotoURL
	}
	if u.SocialLinks != nil {
		set["socialLinks"] = *u.SocialLinks
	}
	if u.IsAnonymous != nil {
		set["isAnonymous"] = *u.IsAnonymous
	}
	return set
}

// insertDefaults fills the fields a new document needs, skipping any that
// the same update already sets.
func insertDefaults(now time.Time, set bson.M) bson.M {
	out := bson.M{}
	defaults := bson.M{
		"createdAt":             now,
		"isAnonymous":           false,
		"totalQuizzesGenerated": int64(0),
		"totalMcqsAttempted":    int64(0),
		"totalMcqsCorrect":      int64(0),
	}
	for k, v := range defaults {
		if _, ok := set[k]; !ok {
			out[k] = v
		}
	}
	return out
}
