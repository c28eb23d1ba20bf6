// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Rating int    `json:"rating"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// Contender is one side of a comparison pair served to a voter.
type Contender struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Rating int    `json:"rating"`
}

// MatchPair is a pair of wallpapers to compare.
type MatchPair struct {
	A Contender `json:"a"`
	B Contender `json:"b"`
}

// DuplicateMember is one wallpaper inside a near-duplicate group.
type DuplicateMember struct {
	ID                string `json:"id"`
	Distance          int    `json:"distance"`
	SimilarityPercent int    `json:"similarity_percent"`
}

// DuplicateGroup is a set of mutually similar wallpapers, most similar first.
type DuplicateGroup struct {
	Members []DuplicateMember `json:"members"`
}

// BackfillReport summarizes one fingerprint backfill pass.
type BackfillReport struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}
