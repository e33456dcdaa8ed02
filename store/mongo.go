package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists orders in a collection and generates ids with an
// atomic $inc on a counters document, so ids stay monotonic across
// restarts and across instances.
type MongoStore struct {
	client   *mongo.Client
	orders   *mongo.Collection
	counters *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// hideObjectID keeps Mongo's own _id out of decoded records, so API
// responses carry only the numeric order id.
var hideObjectID = bson.M{"_id": 0}

func OpenMongoStore(ctx context.Context, uri, database, ordersColl, countersColl string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	slog.InfoContext(ctx, "connected to mongo",
		slog.String("database", database),
		slog.String("orders_collection", ordersColl),
	)

	db := client.Database(database)
	return &MongoStore{
		client:   client,
		orders:   db.Collection(ordersColl),
		counters: db.Collection(countersColl),
	}, nil
}

func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

// Ping is used by the health checker.
func (ms *MongoStore) Ping(ctx context.Context) error {
	return ms.client.Ping(ctx, nil)
}

func (ms *MongoStore) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		LastID int64 `bson:"last_id"`
	}
	err := ms.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"last_id": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("increment order counter: %w", err)
	}
	return counter.LastID, nil
}

func (ms *MongoStore) Insert(ctx context.Context, order *Order) (*Order, error) {
	id, err := ms.nextID(ctx)
	if err != nil {
		return nil, err
	}
	order.ID = id
	order.Timestamp = newTimestamp()

	if _, err := ms.orders.InsertOne(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	stored := *order
	return &stored, nil
}

func (ms *MongoStore) List(ctx context.Context) ([]Order, error) {
	cursor, err := ms.orders.Find(ctx, bson.D{}, options.Find().SetProjection(hideObjectID))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := []Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (ms *MongoStore) FindByID(ctx context.Context, id int64) (*Order, error) {
	var order Order
	err := ms.orders.FindOne(ctx,
		bson.M{"id": id},
		options.FindOne().SetProjection(hideObjectID),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &order, nil
}

// updateDocument translates a patch into the $set document for one
// atomic update. Known fields keep their stored types, unknown keys pass
// through as-is, and the timestamp is always refreshed. The id is
// immutable and the timestamp is owned by the store, mirroring Apply.
func updateDocument(patch Patch) bson.M {
	set := bson.M{"timestamp": newTimestamp()}
	for key, value := range patch {
		switch key {
		case "id", "timestamp":
		case "phone", "type", "customer_name", "status", "date", "time":
			set[key] = asString(value)
		case "products":
			products := asStringSlice(value)
			if products == nil {
				products = []string{}
			}
			set[key] = products
		case "party_size":
			set[key] = asInt(value)
		default:
			set[key] = value
		}
	}
	return set
}

func (ms *MongoStore) Update(ctx context.Context, id int64, patch Patch) (*Order, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(hideObjectID)

	var order Order
	err := ms.orders.FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": updateDocument(patch)},
		opts,
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	return &order, nil
}

func (ms *MongoStore) Delete(ctx context.Context, id int64) error {
	res, err := ms.orders.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
