package extract

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/model"
)

// mongoExtractor keeps the teacher's own document-store connector (the
// benchmark's MongoDB -> PostgreSQL migration used go.mongodb.org/mongo-driver
// to cursor over a `users` collection) in its original role, now feeding
// the concurrent extract engine's Payload protocol instead of a one-off
// goroutine in a benchmark's main().
type mongoExtractor struct {
	cfg    config.SourceConfig
	client *mongo.Client
}

// NewMongoExtractor is the registry.ExtractorFactory for the "mongo"
// source type.
func NewMongoExtractor(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
	return &mongoExtractor{cfg: sc}, nil
}

func (e *mongoExtractor) Category() string { return e.cfg.Category }
func (e *mongoExtractor) Name() string      { return e.cfg.Name }

func (e *mongoExtractor) Setup(ctx context.Context, ec *etlcontext.ETLContext) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(e.cfg.ConnectionString))
	if err != nil {
		return fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	e.client = client
	return nil
}

func (e *mongoExtractor) Validate(ctx context.Context, ec *etlcontext.ETLContext) error {
	if e.cfg.Properties["database"] == "" || e.cfg.Properties["collection"] == "" {
		return fmt.Errorf("mongo: source %q requires properties.database and properties.collection", e.cfg.Name)
	}
	return nil
}

func (e *mongoExtractor) Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan contracts.Payload, error) {
	collection := e.client.Database(e.cfg.Properties["database"]).Collection(e.cfg.Properties["collection"])

	start := ec.CurrentDate
	end := start.AddDate(0, 0, 1)
	filter := bson.M{"createdAt": bson.M{"$gte": start, "$lt": end}}

	ch := make(chan contracts.Payload, 256)
	go func() {
		defer close(ch)

		cursor, err := collection.Find(ctx, filter)
		if err != nil {
			select {
			case ch <- contracts.Payload{Err: fmt.Errorf("mongo: find: %w", err)}:
			case <-ctx.Done():
			}
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc struct {
				ID        string    `bson:"_id"`
				Username  string    `bson:"username"`
				Email     string    `bson:"email"`
				Country   string    `bson:"country"`
				CreatedAt time.Time `bson:"createdAt"`
			}
			if err := cursor.Decode(&doc); err != nil {
				select {
				case ch <- contracts.Payload{Err: fmt.Errorf("mongo: decode: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			rec := model.UserDoc{
				ID:        doc.ID,
				Username:  doc.Username,
				Email:     doc.Email,
				Country:   doc.Country,
				CreatedAt: doc.CreatedAt,
			}
			select {
			case ch <- contracts.Payload{Data: rec}:
			case <-ctx.Done():
				return
			}
		}
		if err := cursor.Err(); err != nil {
			select {
			case ch <- contracts.Payload{Err: fmt.Errorf("mongo: cursor: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (e *mongoExtractor) Cleanup() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Disconnect(context.Background())
	e.client = nil
	return err
}
