package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"resume-graph-service/models"
)

const (
	createEntityConstraintCypher = `CREATE CONSTRAINT entity_name_unique IF NOT EXISTS
FOR (e:Entity) REQUIRE e.name IS UNIQUE`

	// Taking a write lock on one well-known node first serializes replacements across
	// processes: a second transaction only reaches its MATCH after the first committed.
	lockEntityGraphCypher = `MERGE (l:EntityGraphLock {id: 1}) SET l.replaced_at = timestamp()`

	deleteEntitiesCypher = `MATCH (e:Entity) DETACH DELETE e`

	mergeEntitiesCypher = `UNWIND $rows AS row
MERGE (e:Entity {name: row.name})
SET e.label = row.label`

	readEntitiesCypher = `MATCH (e:Entity) RETURN e.name AS name, e.label AS label ORDER BY name`
)

// Neo4jEntityStore stores entities as (:Entity {name, label}) nodes without edges.
type Neo4jEntityStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewNeo4jEntityStore wraps a connected driver and makes sure the name constraint exists.
func NewNeo4jEntityStore(ctx context.Context, driver neo4j.DriverWithContext, database string, logger *slog.Logger) (*Neo4jEntityStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Neo4jEntityStore{driver: driver, database: database, logger: logger}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the uniqueness constraint on Entity.name.
func (s *Neo4jEntityStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, createEntityConstraintCypher, nil)
	if err != nil {
		return storeError("create constraint", err)
	}
	_, err = result.Consume(ctx)
	return storeError("create constraint", err)
}

type cypherStep struct {
	op     string
	query  string
	params map[string]any
}

// ReplaceAll runs delete and insert in a single explicit transaction. Failures are
// returned without driver-level retries.
func (s *Neo4jEntityStore) ReplaceAll(ctx context.Context, entities []models.Entity) error {
	rows := entityRows(models.DedupeByName(entities))

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return storeError("begin transaction", err)
	}

	steps := []cypherStep{
		{"lock graph", lockEntityGraphCypher, nil},
		{"delete entities", deleteEntitiesCypher, nil},
	}
	if len(rows) > 0 {
		steps = append(steps, cypherStep{"merge entities", mergeEntitiesCypher, map[string]any{"rows": rows}})
	}

	for _, step := range steps {
		result, err := tx.Run(ctx, step.query, step.params)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Warn("neo4j rollback failed", "error", rbErr)
			}
			return storeError(step.op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit", err)
	}

	s.logger.Debug("entity graph replaced", "backend", "neo4j", "entities", len(rows))
	return nil
}

func (s *Neo4jEntityStore) ReadAll(ctx context.Context) ([]models.Entity, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, readEntitiesCypher, nil)
	if err != nil {
		return nil, storeError("read entities", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, storeError("read entities", err)
	}

	out := make([]models.Entity, 0, len(records))
	for _, record := range records {
		name, _ := record.Get("name")
		label, _ := record.Get("label")
		out = append(out, models.Entity{Name: asString(name), Label: asString(label)})
	}
	return out, nil
}

func (s *Neo4jEntityStore) Ping(ctx context.Context) error {
	return storeError("verify connectivity", s.driver.VerifyConnectivity(ctx))
}

func (s *Neo4jEntityStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jEntityStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func entityRows(entities []models.Entity) []map[string]any {
	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, map[string]any{"name": e.Name, "label": e.Label})
	}
	return rows
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
