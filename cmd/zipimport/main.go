package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/database"
	"github.com/choosemypower/ziproute/internal/pkg/datasync"
	"github.com/choosemypower/ziproute/internal/pkg/env"
	"github.com/choosemypower/ziproute/internal/pkg/zipimport"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	mappings := repository.GetGlobalFactory().GetZipMappingRepository()

	switch os.Args[1] {
	case "import":
		if len(os.Args) < 3 {
			log.Fatalf("Please provide a CSV file to import")
		}
		runImport(mappings, os.Args[2])

	case "export":
		if len(os.Args) < 3 {
			log.Fatalf("Please provide an output file")
		}
		runExport(mappings, os.Args[2])

	case "snapshot":
		runSnapshot(mappings)

	case "restore":
		if len(os.Args) < 3 {
			log.Fatalf("Please provide an S3 object key to restore from")
		}
		runRestore(mappings, os.Args[2])

	default:
		printUsage()
		os.Exit(1)
	}
}

func runImport(mappings repository.ZipMappingRepository, path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer file.Close()

	result, err := zipimport.NewImporter(mappings).ImportCSV(file)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	reportResult(result)
}

func runExport(mappings repository.ZipMappingRepository, path string) {
	data, err := datasync.ExportMappingsCSV(mappings)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	log.Printf("Exported mapping table to %s (%d bytes)", path, len(data))
}

func runSnapshot(mappings repository.ZipMappingRepository) {
	client, cfg := snapshotClient()

	data, err := datasync.ExportMappingsCSV(mappings)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	key := cfg.SnapshotObjectKey(time.Now().UTC())
	if err := client.UploadSnapshot(context.Background(), key, data); err != nil {
		log.Fatalf("Snapshot upload failed: %v", err)
	}
	log.Printf("Snapshot uploaded as %s", key)
}

func runRestore(mappings repository.ZipMappingRepository, objectKey string) {
	client, _ := snapshotClient()

	data, err := client.DownloadSnapshot(context.Background(), objectKey)
	if err != nil {
		log.Fatalf("Snapshot download failed: %v", err)
	}

	result, err := zipimport.NewImporter(mappings).ImportCSV(bytes.NewReader(data))
	if err != nil {
		log.Fatalf("Restore failed: %v", err)
	}
	reportResult(result)
}

func snapshotClient() (*datasync.Client, *datasync.Config) {
	cfg, err := datasync.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid S3 configuration: %v", err)
	}
	client, err := datasync.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}
	return client, cfg
}

func reportResult(result *zipimport.Result) {
	log.Printf("Imported %d rows, skipped %d", result.Imported, result.Skipped)
	for _, e := range result.Errors {
		log.Printf("  skipped: %s", e)
	}
}

func printUsage() {
	fmt.Println("Usage: zipimport <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  import <file.csv>   Import ZIP territory mappings from CSV")
	fmt.Println("  export <file.csv>   Export the mapping table to CSV")
	fmt.Println("  snapshot            Export and upload a dataset snapshot to S3")
	fmt.Println("  restore <key>       Download a snapshot from S3 and import it")
}
