package votegen

import "time"

// Config holds configuration for the vote traffic test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumWallpapers int           // Number of wallpapers to upload
	NumVotes      int           // Number of votes to submit
	TopN          int           // Number of top entries to fetch
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Wallpaper mirrors the record returned by the upload endpoint
type Wallpaper struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

// Vote represents a contest outcome to be submitted
type Vote struct {
	VoteID    string `json:"vote_id"`
	WinnerID  string `json:"winner_id"`
	LoserID   string `json:"loser_id"`
	ElapsedMS *int64 `json:"elapsed_ms,omitempty"`
}

// Contender is one side of a served match
type Contender struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
}

// MatchPair is the response from the match endpoint
type MatchPair struct {
	A Contender `json:"a"`
	B Contender `json:"b"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Rating int    `json:"rating"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// AckResponse represents the response from vote submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// BackfillReport mirrors the backfill endpoint response
type BackfillReport struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Stats holds test statistics
type Stats struct {
	WallpapersUploaded int
	UploadsFailed      int
	VotesSubmitted     int
	VotesApplied       int
	VotesDuplicate     int
	VotesFailed        int
	RankingsRetrieved  int
	LeaderboardEntries int
	DuplicateGroups    int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
