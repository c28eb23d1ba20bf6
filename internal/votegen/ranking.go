package votegen

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveRankings retrieves rankings for all uploaded wallpapers concurrently.
func retrieveRankings(ctx context.Context, config *Config, wallpapers []Wallpaper, stats *Stats) ([]Entry, error) {
	log.Printf("🏆 Retrieving rankings for %d wallpapers with %d workers...", len(wallpapers), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	rankings := make([]Entry, len(wallpapers))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					id := wallpapers[index].ID
					entry, err := retrieveSingleRanking(client, config.BaseURL, id)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get rank for %s: %v", id, err)
						}
					} else {
						rankings[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("🏆 Rankings: %d/%d retrieved (success: %d, failed: %d)",
							total, len(wallpapers), ret, fail)
					}
				}
			}
		}(i)
	}

	// Send wallpaper indices to workers
	go func() {
		defer close(indexChan)
		for i := range wallpapers {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed retrievals)
	validRankings := make([]Entry, 0, len(rankings))
	for _, entry := range rankings {
		if entry.ID != "" { // Empty ID indicates failed retrieval
			validRankings = append(validRankings, entry)
		}
	}

	// Update stats
	stats.RankingsRetrieved = len(validRankings)

	log.Printf(`✅ Ranking retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validRankings), int(atomic.LoadInt64(&failed)))

	return validRankings, nil
}

// retrieveSingleRanking retrieves ranking for a single wallpaper.
func retrieveSingleRanking(client *HTTPClient, baseURL, id string) (Entry, error) {
	url := fmt.Sprintf("%s/rank/%s", baseURL, id)

	resp, err := client.Get(url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("✅ Retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}

// getDuplicateGroups fetches the duplicate report.
func getDuplicateGroups(ctx context.Context, config *Config, stats *Stats) (int, error) {
	log.Println("👯 Getting duplicate groups...")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/duplicates"

	resp, err := client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var report struct {
		Groups []struct {
			Members []struct {
				ID string `json:"id"`
			} `json:"members"`
		} `json:"groups"`
	}
	if err := unmarshalJSON(body, &report); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.DuplicateGroups = len(report.Groups)
	log.Printf("✅ Found %d duplicate groups", len(report.Groups))

	return len(report.Groups), nil
}

// triggerBackfill asks the service to fingerprint anything it missed.
func triggerBackfill(ctx context.Context, config *Config) (BackfillReport, error) {
	log.Println("🧮 Triggering fingerprint backfill...")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/backfill"

	resp, err := client.Post(url, struct{}{})
	if err != nil {
		return BackfillReport{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return BackfillReport{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var report BackfillReport
	if err := unmarshalJSON(body, &report); err != nil {
		return BackfillReport{}, fmt.Errorf("failed to parse response: %w", err)
	}

	log.Printf("✅ Backfill report: processed=%d updated=%d failed=%d",
		report.Processed, report.Updated, report.Failed)
	return report, nil
}
