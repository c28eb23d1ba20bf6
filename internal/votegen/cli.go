package votegen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/wallarena/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "vote_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the vote test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Wallarena Vote Test Tool
========================

A concurrent tool for exercising the wallpaper arena: uploads synthetic
images, drives match/vote traffic, and verifies the leaderboard.

Usage:
  go run cmd/test-votes/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -wallpapers int
        Number of synthetic wallpapers to upload (default 200)
  -votes int
        Number of votes to submit (default 5000)
  -top int
        Number of top entries to fetch from leaderboard (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for test output (default: vote_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-votes/main.go

  # Test with custom parameters
  go run cmd/test-votes/main.go -wallpapers 500 -votes 20000 -workers 16

  # Test with verbose output
  go run cmd/test-votes/main.go -verbose -votes 1000
`)
}
