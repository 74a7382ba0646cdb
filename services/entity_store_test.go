package services

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-graph-service/internal/config"
	"resume-graph-service/models"
)

func sortedByName(entities []models.Entity) []models.Entity {
	out := append([]models.Entity(nil), entities...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// runEntityStoreContract exercises the behavior every backend shares.
func runEntityStoreContract(t *testing.T, store EntityStore) {
	ctx := context.Background()

	t.Run("dedupes by name with last label winning", func(t *testing.T) {
		require.NoError(t, store.ReplaceAll(ctx, []models.Entity{
			{Name: "Washington", Label: "GPE"},
			{Name: "Jane Doe", Label: "PERSON"},
			{Name: "Washington", Label: "PERSON"},
		}))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Entity{
			{Name: "Jane Doe", Label: "PERSON"},
			{Name: "Washington", Label: "PERSON"},
		}, sortedByName(got))
	})

	t.Run("replace discards previous entities", func(t *testing.T) {
		require.NoError(t, store.ReplaceAll(ctx, []models.Entity{{Name: "Acme", Label: "ORG"}}))
		require.NoError(t, store.ReplaceAll(ctx, []models.Entity{{Name: "Paris", Label: "GPE"}}))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Entity{{Name: "Paris", Label: "GPE"}}, got)
	})

	t.Run("empty replace clears the store", func(t *testing.T) {
		require.NoError(t, store.ReplaceAll(ctx, []models.Entity{{Name: "Acme", Label: "ORG"}}))
		require.NoError(t, store.ReplaceAll(ctx, nil))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("replace is idempotent", func(t *testing.T) {
		input := []models.Entity{{Name: "Acme", Label: "ORG"}, {Name: "2020", Label: "DATE"}}
		require.NoError(t, store.ReplaceAll(ctx, input))
		first, err := store.ReadAll(ctx)
		require.NoError(t, err)

		require.NoError(t, store.ReplaceAll(ctx, input))
		second, err := store.ReadAll(ctx)
		require.NoError(t, err)

		assert.Equal(t, sortedByName(first), sortedByName(second))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryEntityStore(t *testing.T) {
	runEntityStoreContract(t, NewMemoryEntityStore())
}

func TestMemoryEntityStore_ReadersNeverSeeMixedState(t *testing.T) {
	store := NewMemoryEntityStore()
	ctx := context.Background()

	setA := []models.Entity{{Name: "a1", Label: "X"}, {Name: "a2", Label: "X"}, {Name: "a3", Label: "X"}}
	setB := []models.Entity{{Name: "b1", Label: "Y"}, {Name: "b2", Label: "Y"}}
	require.NoError(t, store.ReplaceAll(ctx, setA))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			next := setA
			if i%2 == 0 {
				next = setB
			}
			_ = store.ReplaceAll(ctx, next)
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := store.ReadAll(ctx)
				if !assert.NoError(t, err) {
					return
				}
				if len(got) != len(setA) && len(got) != len(setB) {
					t.Errorf("observed partial state with %d entities", len(got))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMemoryEntityStore_ReadAllReturnsCopy(t *testing.T) {
	store := NewMemoryEntityStore()
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, []models.Entity{{Name: "Acme", Label: "ORG"}}))

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	got[0].Label = "CHANGED"

	again, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORG", again[0].Label)
}

func TestMemoryEntityStore_CanceledContext(t *testing.T) {
	store := NewMemoryEntityStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.ReplaceAll(ctx, nil), context.Canceled)
	_, err := store.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNeo4jEntityStore(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	cfg := &config.Config{
		Neo4jURI:      uri,
		Neo4jUsername: os.Getenv("NEO4J_TEST_USER"),
		Neo4jPassword: os.Getenv("NEO4J_TEST_PASSWORD"),
	}
	driver, err := config.ConnectNeo4j(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewNeo4jEntityStore(ctx, driver, os.Getenv("NEO4J_TEST_DATABASE"), nil)
	require.NoError(t, err)
	defer store.Close(context.Background())

	runEntityStoreContract(t, store)
}

func TestMongoEntityStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	cfg := &config.Config{MongoURI: uri, DBName: "resume_graph_test"}
	client, err := config.ConnectMongoDB(cfg)
	require.NoError(t, err)

	store := NewMongoEntityStore(client, cfg.DBName, nil)
	defer func() {
		_ = client.Database(cfg.DBName).Drop(context.Background())
		_ = store.Close(context.Background())
	}()

	runEntityStoreContract(t, store)

	dropped, err := store.DropStaleStaging(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dropped)
}
