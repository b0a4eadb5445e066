// Command import runs a bulk report import synchronously against a local CSV
// file and prints the terminal job snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"ngo-report-api/config"
	"ngo-report-api/models"
	"ngo-report-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var filePath string
	flag.StringVar(&filePath, "file", "", "path to the CSV file to import (required)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.InitDB()
	if err := config.DB.AutoMigrate(&models.Report{}, &models.ImportJob{}); err != nil {
		log.Fatal("Failed to migrate database schema:", err)
	}

	// The pipeline deletes its input when done, so hand it a scratch copy
	// instead of the caller's file.
	scratch, err := copyToScratch(filePath)
	if err != nil {
		log.Fatalf("cannot stage import file: %v", err)
	}

	jobSvc := services.NewImportJobService(nil)
	job, err := jobSvc.Create(scratch)
	if err != nil {
		log.Fatalf("cannot create import job: %v", err)
	}

	services.NewReportImportService(nil).Process(context.Background(), job.JobID, scratch)

	final, err := jobSvc.GetByJobID(job.JobID)
	if err != nil {
		log.Fatalf("cannot load import job %s: %v", job.JobID, err)
	}

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		log.Fatalf("cannot render job snapshot: %v", err)
	}
	fmt.Println(string(out))

	if final.Status != models.ImportJobStatusCompleted {
		os.Exit(1)
	}
}

func copyToScratch(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "report-import-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
