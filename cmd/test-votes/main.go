package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/wallarena/internal/votegen"
)

// Default configuration constants.
const (
	defaultNumWallpapers = 200
	defaultNumVotes      = 5000
	defaultTopN          = 50
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numWallpapers = flag.Int("wallpapers", defaultNumWallpapers, "Number of synthetic wallpapers to upload")
		numVotes      = flag.Int("votes", defaultNumVotes, "Number of votes to submit")
		topN          = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Log file for test output (default: vote_test_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		votegen.ShowHelp()
		return
	}

	// Setup logging
	if err := votegen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &votegen.Config{
		BaseURL:       *baseURL,
		NumWallpapers: *numWallpapers,
		NumVotes:      *numVotes,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the test
	if err := votegen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
