package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"gorm.io/gorm"

	"bantrap/internal/config"
	"bantrap/internal/models"
	"bantrap/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status, import)")
	from := flag.String("from", "config.json", "JSON config file to import from")
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx := context.Background()

	switch *action {
	case "migrate":
		db := openDatabase(cfg)
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		db := openDatabase(cfg)
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		if err := checkStatus(ctx, cfg); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
	case "import":
		n, err := importFile(ctx, cfg, *from)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		log.Printf("Imported %d communities from %s", n, *from)
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func openDatabase(cfg *config.Config) *gorm.DB {
	if cfg.Storage.Driver != config.StorageMySQL {
		log.Fatalf("Storage driver is %q, this action needs %q", cfg.Storage.Driver, config.StorageMySQL)
	}
	db, err := storage.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return db
}

// migrateDatabase performs database migration
func migrateDatabase(db *gorm.DB) error {
	fmt.Println("Migrating database...")

	if err := storage.NewCommunityRepository(db).MigrateTable(); err != nil {
		return fmt.Errorf("failed to migrate CommunityConfig model: %w", err)
	}
	return nil
}

// resetDatabase drops the table and recreates it
func resetDatabase(db *gorm.DB) error {
	fmt.Println("Resetting database...")

	fmt.Print("WARNING: This will delete all trap and log channel settings! Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	if err := db.Migrator().DropTable(&models.CommunityConfig{}); err != nil {
		return fmt.Errorf("failed to drop CommunityConfig table: %w", err)
	}

	return migrateDatabase(db)
}

// checkStatus prints what the configured backend holds.
func checkStatus(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Checking %s storage...\n", cfg.Storage.Driver)

	if cfg.Storage.Driver == config.StorageMySQL {
		db := openDatabase(cfg)
		if !db.Migrator().HasTable(&models.CommunityConfig{}) {
			fmt.Println("❌ CommunityConfig table does not exist")
			return nil
		}
		fmt.Println("✅ CommunityConfig table exists")
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	configs, err := backend.Load(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("   - Contains %d communities\n", len(ids))
	for _, id := range ids {
		c := configs[id]
		fmt.Printf("   - %s: trap=%q log=%q\n", id, c.TrapChannelID, c.LogChannelID)
	}
	return nil
}

// importFile copies a JSON config file into the configured database backend.
func importFile(ctx context.Context, cfg *config.Config, path string) (int, error) {
	if cfg.Storage.Driver == config.StorageFile {
		return 0, fmt.Errorf("storage driver is %q, nothing to import into", config.StorageFile)
	}

	configs, err := storage.NewFileBackend(path).Load(ctx)
	if err != nil {
		return 0, err
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	imported := 0
	for id := range configs {
		if err := backend.Persist(ctx, configs, id); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
