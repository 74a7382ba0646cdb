package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resume-graph-service/internal/config"
	"resume-graph-service/models"
)

const (
	stagingPrefix  = "entities_staging_"
	cleanupTimeout = 5 * time.Second
)

// MongoEntityStore keeps one document per entity in a single collection. Replacements
// are written to a private staging collection which is then renamed over the live one,
// so readers see the old collection until the rename lands.
type MongoEntityStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection string
	logger     *slog.Logger
}

func NewMongoEntityStore(client *mongo.Client, dbName string, logger *slog.Logger) *MongoEntityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoEntityStore{
		client:     client,
		db:         client.Database(dbName),
		collection: config.EntitiesCollection,
		logger:     logger,
	}
}

func (s *MongoEntityStore) ReplaceAll(ctx context.Context, entities []models.Entity) error {
	deduped := models.DedupeByName(entities)
	staging := stagingPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := s.db.CreateCollection(ctx, staging); err != nil {
		return storeError("create staging collection", err)
	}
	col := s.db.Collection(staging)

	if err := config.EnsureEntityIndexes(ctx, col); err != nil {
		s.dropStaging(col)
		return storeError("index staging collection", err)
	}

	if len(deduped) > 0 {
		docs := make([]interface{}, 0, len(deduped))
		for _, e := range deduped {
			docs = append(docs, e)
		}
		if _, err := col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
			s.dropStaging(col)
			return storeError("insert entities", err)
		}
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: s.db.Name() + "." + staging},
		{Key: "to", Value: s.db.Name() + "." + s.collection},
		{Key: "dropTarget", Value: true},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		s.dropStaging(col)
		return storeError("swap collections", err)
	}

	s.logger.Debug("entity graph replaced", "backend", "mongo", "entities", len(deduped))
	return nil
}

func (s *MongoEntityStore) ReadAll(ctx context.Context) ([]models.Entity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetProjection(bson.M{"_id": 0, "name": 1, "label": 1})

	cursor, err := s.db.Collection(s.collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storeError("read entities", err)
	}
	defer cursor.Close(ctx)

	out := []models.Entity{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storeError("decode entities", err)
	}
	return out, nil
}

func (s *MongoEntityStore) Ping(ctx context.Context) error {
	return storeError("ping", s.client.Ping(ctx, nil))
}

func (s *MongoEntityStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// DropStaleStaging removes staging collections left behind by crashed writers. Only
// call it while no replacement is running.
func (s *MongoEntityStore) DropStaleStaging(ctx context.Context) (int, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": bson.M{"$regex": "^" + stagingPrefix}})
	if err != nil {
		return 0, storeError("list staging collections", err)
	}
	for _, name := range names {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return 0, storeError("drop staging collection", err)
		}
	}
	return len(names), nil
}

func (s *MongoEntityStore) dropStaging(col *mongo.Collection) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := col.Drop(ctx); err != nil {
		s.logger.Warn("failed to drop staging collection", "collection", col.Name(), "error", err)
	}
}
