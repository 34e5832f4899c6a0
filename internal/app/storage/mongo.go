package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"planpoker/internal/app/room"
	"planpoker/internal/app/user"
)

const roomsCollection = "rooms"

// mongoStore keeps each room as a MongoDB document keyed by _id. Apply replaces
// the document only while its revision is unchanged and retries otherwise.
type mongoStore struct {
	client *mongo.Client
	rooms  *mongo.Collection
}

type roomDocument struct {
	ID        string         `bson:"_id"`
	Rev       int64          `bson:"rev"`
	Name      string         `bson:"name"`
	OwnerID   string         `bson:"ownerId"`
	Users     []userDocument `bson:"users"`
	Revealed  bool           `bson:"revealed"`
	Cards     []any          `bson:"cards"`
	CreatedAt int64          `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

type userDocument struct {
	ID        string `bson:"id"`
	Name      string `bson:"name"`
	Emoji     string `bson:"emoji"`
	IsReady   bool   `bson:"isReady"`
	Vote      any    `bson:"vote"`
	Spectator bool   `bson:"spectator"`
}

// NewMongoStore connects to MongoDB and returns a RoomStore using database.
func NewMongoStore(ctx context.Context, uri, database string) (RoomStore, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo store requires a URI and a database name")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	rooms := client.Database(database).Collection(roomsCollection)
	_, err = rooms.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: 1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create rooms index: %w", err)
	}

	return &mongoStore{client: client, rooms: rooms}, nil
}

func (s *mongoStore) Insert(ctx context.Context, r room.Room) error {
	doc := toDocument(r, 1)
	if _, err := s.rooms.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert room %s: %w", r.ID, err)
	}
	return nil
}

func (s *mongoStore) Get(ctx context.Context, id string) (room.Room, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return room.Room{}, err
	}
	return fromDocument(doc)
}

func (s *mongoStore) load(ctx context.Context, id string) (roomDocument, error) {
	var doc roomDocument
	err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return roomDocument{}, ErrNotFound
		}
		return roomDocument{}, fmt.Errorf("get room %s: %w", id, err)
	}
	return doc, nil
}

func (s *mongoStore) List(ctx context.Context) ([]room.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.rooms.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer cur.Close(ctx)

	var out []room.Room
	for cur.Next(ctx) {
		var doc roomDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode room: %w", err)
		}
		r, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

func (s *mongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.rooms.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return int(n), nil
}

func (s *mongoStore) Apply(ctx context.Context, id string, m room.Mutation) (room.Room, room.Outcome, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		doc, err := s.load(ctx, id)
		if err != nil {
			return room.Room{}, room.Unchanged, err
		}
		current, err := fromDocument(doc)
		if err != nil {
			return room.Room{}, room.Unchanged, err
		}

		next, out, err := applyMutation(current, m)
		if err != nil {
			return room.Room{}, room.Unchanged, err
		}

		filter := bson.M{"_id": id, "rev": doc.Rev}
		var matched int64
		switch out {
		case room.Unchanged:
			return next, out, nil
		case room.Updated:
			res, err := s.rooms.ReplaceOne(ctx, filter, toDocument(next, doc.Rev+1))
			if err != nil {
				return room.Room{}, room.Unchanged, fmt.Errorf("update room %s: %w", id, err)
			}
			matched = res.MatchedCount
		case room.Deleted:
			res, err := s.rooms.DeleteOne(ctx, filter)
			if err != nil {
				return room.Room{}, room.Unchanged, fmt.Errorf("delete room %s: %w", id, err)
			}
			matched = res.DeletedCount
		}

		if matched == 1 {
			return next, out, nil
		}
	}
	return room.Room{}, room.Unchanged, ErrConflict
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toDocument(r room.Room, rev int64) roomDocument {
	doc := roomDocument{
		ID:        r.ID,
		Rev:       rev,
		Name:      r.Name,
		OwnerID:   r.OwnerID,
		Users:     make([]userDocument, len(r.Users)),
		Revealed:  r.Revealed,
		Cards:     make([]any, len(r.Cards)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	for i, c := range r.Cards {
		doc.Cards[i] = cardValue(c)
	}
	for i, u := range r.Users {
		ud := userDocument{
			ID:        u.ID,
			Name:      u.Name,
			Emoji:     u.Emoji,
			IsReady:   u.IsReady,
			Spectator: u.Spectator,
		}
		if u.Vote != nil {
			ud.Vote = cardValue(*u.Vote)
		}
		doc.Users[i] = ud
	}
	return doc
}

func fromDocument(doc roomDocument) (room.Room, error) {
	r := room.Room{
		ID:        doc.ID,
		Name:      doc.Name,
		OwnerID:   doc.OwnerID,
		Users:     make([]user.User, len(doc.Users)),
		Revealed:  doc.Revealed,
		Cards:     make([]user.Card, len(doc.Cards)),
		CreatedAt: doc.CreatedAt,
	}
	for i, v := range doc.Cards {
		c, err := cardFromValue(v)
		if err != nil {
			return room.Room{}, fmt.Errorf("room %s card %d: %w", doc.ID, i, err)
		}
		r.Cards[i] = c
	}
	for i, ud := range doc.Users {
		u := user.User{
			ID:        ud.ID,
			Name:      ud.Name,
			Emoji:     ud.Emoji,
			IsReady:   ud.IsReady,
			Spectator: ud.Spectator,
		}
		if ud.Vote != nil {
			c, err := cardFromValue(ud.Vote)
			if err != nil {
				return room.Room{}, fmt.Errorf("room %s vote of %s: %w", doc.ID, ud.ID, err)
			}
			u.Vote = &c
		}
		r.Users[i] = u
	}
	return r, nil
}

func cardValue(c user.Card) any {
	if f, ok := c.Float(); ok {
		return f
	}
	return c.String()
}

func cardFromValue(v any) (user.Card, error) {
	switch t := v.(type) {
	case float64:
		return user.NumberCard(t), nil
	case int32:
		return user.NumberCard(float64(t)), nil
	case int64:
		return user.NumberCard(float64(t)), nil
	case string:
		if t == "" {
			return user.Card{}, fmt.Errorf("empty card token")
		}
		return user.TokenCard(t), nil
	default:
		return user.Card{}, fmt.Errorf("unsupported card value %T", v)
	}
}
