package votegen

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults verifies the consistency of rankings and leaderboard.
func verifyResults(config *Config, rankings, leaderboard []Entry) error {
	log.Println("🔍 Verifying results...")

	if len(rankings) == 0 {
		return fmt.Errorf("no rankings to verify")
	}

	// Sort rankings by rating (descending) to get top contenders
	sortedRankings := make([]Entry, len(rankings))
	copy(sortedRankings, rankings)
	sort.Slice(sortedRankings, func(i, j int) bool {
		return sortedRankings[i].Rating > sortedRankings[j].Rating
	})

	// Verify leaderboard consistency if we have leaderboard data
	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(sortedRankings, leaderboard); err != nil {
			log.Printf("⚠️  Leaderboard consistency warning: %v", err)
		} else {
			log.Println("✅ Leaderboard consistency verified")
		}
	}

	// Display top contenders
	displayTopContenders(sortedRankings, leaderboard, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks if the leaderboard matches the
// per-wallpaper rank lookups.
func verifyLeaderboardConsistency(sortedRankings, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	// The top leaderboard rating must match the best rating seen via
	// the rank endpoint. Ties make the exact id ambiguous, so compare
	// ratings, not ids.
	topRanking := sortedRankings[0]
	topLeaderboard := leaderboard[0]

	if topRanking.Rating != topLeaderboard.Rating {
		return fmt.Errorf("top leaderboard rating (%d) does not match best ranked rating (%d)",
			topLeaderboard.Rating, topRanking.Rating)
	}

	// Check if leaderboard is properly sorted
	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].Rating > leaderboard[i-1].Rating {
			return fmt.Errorf("leaderboard not properly sorted: entry %d outranks entry %d",
				i, i-1)
		}
	}

	// Tied ratings must share a rank, and ranks must never decrease
	for i := 1; i < len(leaderboard); i++ {
		prev, cur := leaderboard[i-1], leaderboard[i]
		if cur.Rating == prev.Rating && cur.Rank != prev.Rank {
			return fmt.Errorf("tied entries %d and %d have different ranks", i-1, i)
		}
		if cur.Rank < prev.Rank {
			return fmt.Errorf("rank order broken between entries %d and %d", i-1, i)
		}
	}

	return nil
}

// displayTopContenders shows the top contenders from rankings and leaderboard.
func displayTopContenders(sortedRankings, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sortedRankings) < topN {
		topN = len(sortedRankings)
	}

	log.Printf("🏆 Top %d contenders from rankings:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedRankings[i]
		log.Printf("   %d. %s - Rating: %d (W%d/L%d)", i+1, entry.ID, entry.Rating, entry.Wins, entry.Losses)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("🥇 Top %d contenders from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s - Rating: %d (rank %d)", i+1, entry.ID, entry.Rating, entry.Rank)
		}
	}

	if verbose {
		// Show some statistics
		if len(sortedRankings) > 0 {
			avgRating := calculateAverageRating(sortedRankings)
			maxRating := sortedRankings[0].Rating
			minRating := sortedRankings[len(sortedRankings)-1].Rating

			log.Printf(`📊 Rating statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
`, avgRating, maxRating, minRating)
		}
	}
}

// calculateAverageRating calculates the average rating from rankings.
func calculateAverageRating(rankings []Entry) float64 {
	if len(rankings) == 0 {
		return 0
	}

	sum := 0
	for _, entry := range rankings {
		sum += entry.Rating
	}

	return float64(sum) / float64(len(rankings))
}
