package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blockmark/internal/domain"
)

const documentsCollection = "documents"

// MongoDocumentStore implements domain.DocumentStore over a MongoDB
// collection. Content is kept as the JSON document string.
type MongoDocumentStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Required  bool      `bson:"required"`
	Content   string    `bson:"content_json"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// OpenMongo connects to uri and uses dbName, falling back to the database
// named in the URI path and then "blockmark".
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoDocumentStore, error) {
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	log.Printf("[MONGO] Connecting to %s (database %s)", maskURI(uri), dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoDocumentStore{
		client: client,
		coll:   client.Database(dbName).Collection(documentsCollection),
	}, nil
}

func (s *MongoDocumentStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoDocumentStore) CreateDocument(ctx context.Context, d *domain.StoredDocument) error {
	content, err := encodeContent(d.Content)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err = s.coll.InsertOne(ctx, mongoDocument{
		ID: d.ID, Title: d.Title, Required: d.Required, Content: content,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *MongoDocumentStore) GetDocument(ctx context.Context, id string) (*domain.StoredDocument, error) {
	var md mongoDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return md.toDomain()
}

func (s *MongoDocumentStore) ListDocuments(ctx context.Context) ([]domain.StoredDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cur.Close(ctx)

	var docs []domain.StoredDocument
	for cur.Next(ctx) {
		var md mongoDocument
		if err := cur.Decode(&md); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		d, err := md.toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, cur.Err()
}

func (s *MongoDocumentStore) UpdateDocument(ctx context.Context, d *domain.StoredDocument) error {
	content, err := encodeContent(d.Content)
	if err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: d.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: d.Title},
		{Key: "required", Value: d.Required},
		{Key: "content_json", Value: content},
		{Key: "updated_at", Value: d.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("document %s: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *MongoDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (md mongoDocument) toDomain() (*domain.StoredDocument, error) {
	doc, err := domain.ParseDocument([]byte(md.Content))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", md.ID, err)
	}
	return &domain.StoredDocument{
		ID: md.ID, Title: md.Title, Required: md.Required, Content: doc,
		CreatedAt: md.CreatedAt, UpdatedAt: md.UpdatedAt,
	}, nil
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash != -1 {
		path := rest[slash+1:]
		if q := strings.Index(path, "?"); q != -1 {
			path = path[:q]
		}
		if path != "" {
			return path
		}
	}
	return "blockmark"
}

func maskURI(uri string) string {
	scheme := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if scheme == -1 || at == -1 || at < scheme {
		return uri
	}
	creds := uri[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		return uri[:scheme+3] + creds[:colon] + ":***" + uri[at:]
	}
	return uri
}
