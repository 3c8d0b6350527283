package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const nameIndex = "name_unique"

// mongoProduct is the document layout of a product.
type mongoProduct struct {
	ID    bson.ObjectID `bson:"_id,omitempty"`
	Name  string        `bson:"name"`
	Price float64       `bson:"price"`
	Image string        `bson:"image"`
}

func (d mongoProduct) toProduct() *Product {
	return &Product{
		ID:    d.ID.Hex(),
		Name:  d.Name,
		Price: d.Price,
		Image: d.Image,
	}
}

func newMongoProduct(fields ProductFields) mongoProduct {
	return mongoProduct{Name: fields.Name, Price: fields.Price, Image: fields.Image}
}

// MongoStore implements ProductStore on a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a new instance of ProductStore backed by the given collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// productSchema mirrors the rules of ProductFields.Validate so that writes are re-checked by the server.
var productSchema = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"name", "price", "image"},
		"properties": bson.M{
			"name":  bson.M{"bsonType": "string", "minLength": 1},
			"price": bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0, "exclusiveMinimum": true},
			"image": bson.M{"bsonType": "string", "minLength": 1},
		},
	},
}

// EnsureSchema creates the collection with its validator, or updates the validator of an existing one,
// and creates the unique index on name.
func (m *MongoStore) EnsureSchema(ctx context.Context) error {
	db := m.coll.Database()
	name := m.coll.Name()

	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		if err := db.CreateCollection(ctx, name, options.CreateCollection().SetValidator(productSchema)); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", name, err)
		}
	} else {
		cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: productSchema}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update validator of collection %q: %w", name, err)
		}
	}

	_, err = m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(nameIndex),
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", nameIndex, err)
	}
	return nil
}

// FindAll retrieves all products in natural order.
func (m *MongoStore) FindAll(ctx context.Context) ([]Product, error) {
	cursor, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	var docs []mongoProduct
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, *d.toProduct())
	}
	return products, nil
}

// Insert adds a new product document.
func (m *MongoStore) Insert(ctx context.Context, fields ProductFields) (*Product, error) {
	doc := newMongoProduct(fields)
	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, classifyWriteError("failed to create product", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = id
	return doc.toProduct(), nil
}

// FindByIDAndReplace replaces the document atomically and returns the post-update state.
func (m *MongoStore) FindByIDAndReplace(ctx context.Context, id string, fields ProductFields) (*Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, perrors.ErrInvalidID
	}

	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var doc mongoProduct
	err = m.coll.FindOneAndReplace(ctx, bson.D{{Key: "_id", Value: oid}}, newMongoProduct(fields), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, classifyWriteError("failed to update product", err)
	}
	return doc.toProduct(), nil
}

// FindByIDAndRemove deletes the document and returns it.
func (m *MongoStore) FindByIDAndRemove(ctx context.Context, id string) (*Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, perrors.ErrInvalidID
	}

	var doc mongoProduct
	if err := m.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return doc.toProduct(), nil
}

// Ping checks the primary is reachable.
func (m *MongoStore) Ping(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func classifyWriteError(msg string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return perrors.ErrDuplicateName
	}
	return fmt.Errorf("%s: %w", msg, err)
}
