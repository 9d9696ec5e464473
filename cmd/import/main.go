// Command import loads a patient list exported from the clinic's medical
// records system into the reception table. Each line is "patientID,name";
// blank and malformed lines are skipped.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/nssukenkyu-prog/SCC-reception-system/cmd/mainconfig"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	appconfig "github.com/nssukenkyu-prog/SCC-reception-system/internal/config"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/patients"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	var (
		file    = flag.String("file", "", "path to the patient list (required)")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall import deadline")
	)
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if *file == "" {
		logger.Error("missing -file argument")
		os.Exit(2)
	}

	clock, err := clinictime.New(cfg.ClinicTimezone)
	if err != nil {
		logger.Warn("clinic timezone unavailable, using UTC", "timezone", cfg.ClinicTimezone, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	repo := patients.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), cfg.ReceptionTable)
	importer := patients.NewImporter(repo, clock.Now)

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("failed to open patient list", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	processed, err := importer.Import(ctx, f)
	if err != nil {
		logger.Error("import failed", "file", *file, "processed", processed, "error", err)
		os.Exit(1)
	}
	logger.Info("import finished", "file", *file, "processed", processed)
}
