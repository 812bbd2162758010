package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pollbox/pollbox/internal/poll"
)

// MongoPollRepository implements PollRepository on a Mongo collection.
// Poll IDs are application-generated UUID strings stored as _id.
type MongoPollRepository struct {
	col *mongo.Collection
}

func NewMongoPollRepository(col *mongo.Collection) *MongoPollRepository {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoPollRepository{col: col}
}

func (r *MongoPollRepository) Create(ctx context.Context, p *poll.Poll) error {
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoPollRepository) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	var p poll.Poll
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoPollRepository) Update(ctx context.Context, p *poll.Poll) error {
	set := bson.M{
		"question":  p.Question,
		"options":   p.Options,
		"updatedAt": p.UpdatedAt,
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPollRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPollRepository) ListByOwner(ctx context.Context, ownerID string) ([]*poll.Poll, error) {
	return r.list(ctx, bson.M{"ownerId": ownerID})
}

func (r *MongoPollRepository) ListAll(ctx context.Context) ([]*poll.Poll, error) {
	return r.list(ctx, bson.M{})
}

func (r *MongoPollRepository) list(ctx context.Context, filter bson.M) ([]*poll.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*poll.Poll{}
	for cur.Next(ctx) {
		var p poll.Poll
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

// MongoVoteRepository implements VoteRepository. The unique compound index on
// (pollId, voterKey) is created here; it is what makes the duplicate check
// safe under concurrent submissions.
type MongoVoteRepository struct {
	col *mongo.Collection
}

func NewMongoVoteRepository(col *mongo.Collection) *MongoVoteRepository {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "pollId", Value: 1}, {Key: "voterKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoVoteRepository{col: col}
}

func (r *MongoVoteRepository) Create(ctx context.Context, v *poll.Vote) error {
	if _, err := r.col.InsertOne(ctx, v); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateVote
		}
		return err
	}
	return nil
}

func (r *MongoVoteRepository) Find(ctx context.Context, pollID, voterKey string) (*poll.Vote, error) {
	var v poll.Vote
	err := r.col.FindOne(ctx, bson.M{"pollId": pollID, "voterKey": voterKey}).Decode(&v)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *MongoVoteRepository) ListByPoll(ctx context.Context, pollID string) ([]*poll.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"pollId": pollID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*poll.Vote{}
	for cur.Next(ctx) {
		var v poll.Vote
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func (r *MongoVoteRepository) DeleteByPoll(ctx context.Context, pollID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"pollId": pollID})
	return err
}
