package votegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Vote traffic shaping constants.
const (
	replayEveryN     = 25
	winnerBiasBound  = 10
	winnerBiasHigher = 7
)

// submitVotes drives match/vote traffic concurrently. Each worker asks
// the service for a pair, picks a winner (biased toward the higher
// rated contender so ratings converge), and posts the outcome. Every
// replayEveryN-th vote reuses its own vote id to exercise idempotency.
func submitVotes(ctx context.Context, config *Config, stats *Stats) error {
	log.Printf("🗳️  Submitting %d votes with %d workers...", config.NumVotes, config.Workers)

	client := newHTTPClient(config.Timeout)
	matchURL := config.BaseURL + "/match"
	votesURL := config.BaseURL + "/votes"
	runTag := timestampSuffix()

	var (
		submitted int64
		applied   int64
		duplicate int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	voteChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range voteChan {
				select {
				case <-ctx.Done():
					return
				default:
					voteID := "vote_" + strconv.Itoa(index) + "_" + runTag
					result := playSingleMatch(client, matchURL, votesURL, voteID)

					// Replay to exercise the idempotency path
					if result == "applied" && index%replayEveryN == 0 {
						// A replayed id must come back as duplicate
						if replayVote(client, votesURL, voteID) {
							atomic.AddInt64(&duplicate, 1)
						}
					}

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "applied":
						atomic.AddInt64(&applied, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						app := atomic.LoadInt64(&applied)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (applied: %d, duplicate: %d, failed: %d)",
								total, config.NumVotes, app, dup, fail)
						} else {
							fmt.Printf("\r🗳️  Submitted: %d/%d (applied: %d, duplicate: %d, failed: %d)",
								total, config.NumVotes, app, dup, fail)
						}
					}
				}
			}
		}(i)
	}

	go func() {
		defer close(voteChan)
		for i := 0; i < config.NumVotes; i++ {
			select {
			case <-ctx.Done():
				return
			case voteChan <- i:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	stats.VotesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.VotesApplied = int(atomic.LoadInt64(&applied))
	stats.VotesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.VotesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Vote submission completed:
   Applied: %d
   Duplicate: %d
   Failed: %d
`, stats.VotesApplied, stats.VotesDuplicate, stats.VotesFailed)

	return nil
}

// playSingleMatch fetches a pair and submits one vote for it.
func playSingleMatch(client *HTTPClient, matchURL, votesURL, voteID string) string {
	pair, err := fetchMatch(client, matchURL)
	if err != nil {
		return "failed"
	}

	winner, loser := pickWinner(pair)
	vote := Vote{
		VoteID:    voteID,
		WinnerID:  winner,
		LoserID:   loser,
		ElapsedMS: elapsedForVote(),
	}

	resp, err := client.Post(votesURL, vote)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	if resp.StatusCode != StatusOK {
		return "failed"
	}

	var ack AckResponse
	if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
		return "duplicate"
	}
	return "applied"
}

// replayVote resubmits an already-applied vote id and reports whether
// the service acknowledged it as a duplicate.
func replayVote(client *HTTPClient, votesURL, voteID string) bool {
	vote := Vote{
		VoteID:   voteID,
		WinnerID: "replay-winner",
		LoserID:  "replay-loser",
	}
	// The contender ids are irrelevant: the idempotency check fires
	// before the records are touched.
	resp, err := client.Post(votesURL, vote)
	if err != nil {
		return false
	}

	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != StatusOK {
		return false
	}

	var ack AckResponse
	return unmarshalJSON(body, &ack) == nil && ack.Duplicate
}

// fetchMatch asks the service for the next comparison pair.
func fetchMatch(client *HTTPClient, matchURL string) (MatchPair, error) {
	resp, err := client.Get(matchURL)
	if err != nil {
		return MatchPair{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return MatchPair{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return MatchPair{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pair MatchPair
	if err := unmarshalJSON(body, &pair); err != nil {
		return MatchPair{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return pair, nil
}

// pickWinner chooses the winner, favoring the higher rated contender.
func pickWinner(pair MatchPair) (winner, loser string) {
	higher, lower := pair.A.ID, pair.B.ID
	if pair.B.Rating > pair.A.Rating {
		higher, lower = pair.B.ID, pair.A.ID
	}

	n, _ := rand.Int(rand.Reader, big.NewInt(winnerBiasBound))
	if n.Int64() < winnerBiasHigher {
		return higher, lower
	}
	return lower, higher
}
