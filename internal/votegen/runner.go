package votegen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/wallarena/pkg/logger"
)

// Run executes the complete vote traffic test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting wallarena vote test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("wallpapers", config.NumWallpapers),
		logger.Int("votes", config.NumVotes),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Render synthetic images
	images, err := generateImages(ctx, config)
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}

	// Step 3: Upload wallpapers concurrently
	wallpapers, err := uploadWallpapers(ctx, config, images, stats)
	if err != nil {
		return fmt.Errorf("wallpaper upload failed: %w", err)
	}

	// Step 4: Let the fingerprint workers catch up, then backfill stragglers
	logger.Get().Info(ctx, "waiting for fingerprint processing")
	time.Sleep(ProcessingDelay)
	if _, err := triggerBackfill(ctx, config); err != nil {
		logger.Get().Warn(ctx, "backfill trigger failed", logger.Error(err))
	}

	// Step 5: Drive match/vote traffic
	if err := submitVotes(ctx, config, stats); err != nil {
		return fmt.Errorf("vote submission failed: %w", err)
	}

	// Step 6: Retrieve rankings concurrently
	rankings, err := retrieveRankings(ctx, config, wallpapers, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	// Step 7: Get leaderboard
	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 8: Duplicate report
	if _, err := getDuplicateGroups(ctx, config, stats); err != nil {
		logger.Get().Warn(ctx, "duplicate report failed", logger.Error(err))
	}

	// Step 9: Verify results
	if err := verifyResults(config, rankings, leaderboard); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, votesPerSecond float64

	if stats.VotesSubmitted > 0 {
		successRate = float64(stats.VotesApplied) / float64(stats.VotesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		votesPerSecond = float64(stats.VotesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("wallpapersUploaded", stats.WallpapersUploaded),
		logger.Int("uploadsFailed", stats.UploadsFailed),
		logger.Int("votesSubmitted", stats.VotesSubmitted),
		logger.Int("votesApplied", stats.VotesApplied),
		logger.Int("votesDuplicate", stats.VotesDuplicate),
		logger.Int("votesFailed", stats.VotesFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("duplicateGroups", stats.DuplicateGroups),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("votesPerSecond", votesPerSecond))
}
