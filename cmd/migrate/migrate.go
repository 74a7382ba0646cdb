package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"resume-graph-service/internal/config"
	"resume-graph-service/internal/logger"
	"resume-graph-service/services"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  ensure-schema    - Create the unique name constraint/index of the configured entity store")
		fmt.Println("  cleanup-staging  - Drop staging collections left behind by interrupted Mongo replaces")
		fmt.Println("  verify           - Count stored entities and check names are unique")
		fmt.Println("  export-csv       - Write the stored entities as CSV to stdout")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "ensure-schema":
		if err := ensureSchema(ctx, cfg); err != nil {
			log.Fatalf("Schema setup failed: %v", err)
		}
		fmt.Println("Schema is up to date.")

	case "cleanup-staging":
		if cfg.EntityStore != config.StoreMongo {
			fmt.Println("Nothing to clean: staging collections only exist for ENTITY_STORE=mongo")
			return
		}
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		store := services.NewMongoEntityStore(client, cfg.DBName, appLogger)
		defer store.Close(context.Background())

		dropped, err := store.DropStaleStaging(ctx)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Dropped %d staging collections\n", dropped)

	case "verify":
		if err := verify(ctx, cfg); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}

	case "export-csv":
		store, err := openStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open entity store: %v", err)
		}
		defer store.Close(context.Background())

		entities, err := store.ReadAll(ctx)
		if err != nil {
			log.Fatalf("Failed to read entities: %v", err)
		}
		out, err := services.EncodeEntitiesCSV(entities)
		if err != nil {
			log.Fatalf("Failed to encode entities: %v", err)
		}
		os.Stdout.Write(out)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (services.EntityStore, error) {
	switch cfg.EntityStore {
	case config.StoreNeo4j:
		driver, err := config.ConnectNeo4j(cfg)
		if err != nil {
			return nil, err
		}
		store, err := services.NewNeo4jEntityStore(ctx, driver, cfg.Neo4jDatabase, logger.Get())
		if err != nil {
			driver.Close(context.Background())
			return nil, err
		}
		return store, nil
	case config.StoreMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		return services.NewMongoEntityStore(client, cfg.DBName, logger.Get()), nil
	default:
		return nil, fmt.Errorf("ENTITY_STORE=%s keeps nothing between runs", cfg.EntityStore)
	}
}

// ensureSchema relies on the stores creating their constraint or index when opened.
func ensureSchema(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if neo, ok := store.(*services.Neo4jEntityStore); ok {
		return neo.EnsureSchema(ctx)
	}
	return nil
}

func verify(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Verifying %s entity store...\n", cfg.EntityStore)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	entities, err := store.ReadAll(ctx)
	if err != nil {
		return err
	}

	labels := make(map[string]int)
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if seen[e.Name] {
			return fmt.Errorf("duplicate entity name %q", e.Name)
		}
		seen[e.Name] = true
		labels[e.Label]++
	}

	fmt.Printf("Found %d entities\n", len(entities))
	for label, n := range labels {
		fmt.Printf("  %s: %d\n", label, n)
	}
	return nil
}
