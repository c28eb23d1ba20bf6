// Package cluster groups fingerprinted wallpapers into near-duplicate sets.
//
// A full pairwise Hamming comparison is O(n^2) and dominates once the corpus
// reaches tens of thousands of fingerprints. The finder instead partitions
// items into buckets by a hex prefix of the hash and only compares an item
// against its bucket-neighborhood (buckets sharing a shorter common prefix).
// Two items whose neighborhood prefixes disagree are assumed too dissimilar
// to compare. That is a controlled approximation: for realistic thresholds
// (<= 20 of 64 bits) a disagreement in the top prefix bits already implies a
// distance likely past the threshold, trading a small false-negative rate
// for an O(n*k) pass, k being the average neighborhood size.
package cluster

import (
	"sort"

	"github.com/okian/wallarena/internal/domain/fingerprint"
)

// Default prefix widths, in hex characters of the fingerprint.
const (
	defaultBucketPrefixLen       = 4 // 16 bits per bucket
	defaultNeighborhoodPrefixLen = 3 // buckets sharing 12 bits are neighbors

	minThreshold = 1
	maxThreshold = fingerprint.HashBits
)

// Item is one fingerprinted wallpaper offered for clustering.
type Item struct {
	ID          string
	Fingerprint string
}

// Member is one wallpaper inside a group, with its distance to the seed.
type Member struct {
	ID                string
	Distance          int
	SimilarityPercent int
}

// Group is an unordered set of at least two mutually similar wallpapers,
// sorted ascending by distance to the seed (the seed itself comes first).
type Group struct {
	Members []Member
}

// Option applies a configuration option to the Finder.
type Option func(*Finder)

// WithBucketPrefix sets the bucket hex-prefix width.
func WithBucketPrefix(chars int) Option {
	return func(f *Finder) {
		if chars > 0 && chars <= fingerprint.HexLen {
			f.bucketPrefixLen = chars
		}
	}
}

// WithNeighborhoodPrefix sets the neighborhood hex-prefix width. It must not
// exceed the bucket prefix width; wider values are ignored at Find time by
// clamping to the bucket width.
func WithNeighborhoodPrefix(chars int) Option {
	return func(f *Finder) {
		if chars > 0 && chars <= fingerprint.HexLen {
			f.neighborhoodPrefixLen = chars
		}
	}
}

// Finder runs bucketed near-duplicate clustering passes. It holds no state
// across calls; every pass operates on the snapshot the caller passes in.
type Finder struct {
	bucketPrefixLen       int
	neighborhoodPrefixLen int
}

// New creates a Finder with configuration options.
func New(opts ...Option) *Finder {
	f := &Finder{
		bucketPrefixLen:       defaultBucketPrefixLen,
		neighborhoodPrefixLen: defaultNeighborhoodPrefixLen,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Find partitions items into near-duplicate groups under the given Hamming
// threshold. Items without a usable fingerprint are skipped (not yet
// analyzed, not an error). Each item lands in at most one group; groups of
// size one are not emitted. The input order is the processing order, so
// results are deterministic for a given snapshot.
func (f *Finder) Find(items []Item, threshold int) []Group {
	if threshold < minThreshold {
		threshold = minThreshold
	}
	if threshold > maxThreshold {
		threshold = maxThreshold
	}

	nbhLen := f.neighborhoodPrefixLen
	if nbhLen > f.bucketPrefixLen {
		nbhLen = f.bucketPrefixLen
	}

	// Keep only analyzable items, preserving input order.
	idx := make([]int, 0, len(items))
	for i, it := range items {
		if len(it.Fingerprint) == fingerprint.HexLen {
			idx = append(idx, i)
		}
	}

	// Bucket by prefix, then join buckets sharing the shorter prefix into
	// neighborhoods. Neighborhood membership is what bounds the candidate set.
	buckets := make(map[string][]int)
	neighborhoods := make(map[string][]string)
	for _, i := range idx {
		key := items[i].Fingerprint[:f.bucketPrefixLen]
		if _, seen := buckets[key]; !seen {
			nbhKey := key[:nbhLen]
			neighborhoods[nbhKey] = append(neighborhoods[nbhKey], key)
		}
		buckets[key] = append(buckets[key], i)
	}

	claimed := make(map[int]struct{}, len(idx))
	var groups []Group

	for _, i := range idx {
		if _, ok := claimed[i]; ok {
			continue
		}
		claimed[i] = struct{}{}

		seed := items[i]
		var members []Member
		for _, bucketKey := range neighborhoods[seed.Fingerprint[:nbhLen]] {
			for _, j := range buckets[bucketKey] {
				if j == i {
					continue
				}
				if _, ok := claimed[j]; ok {
					continue
				}
				d := fingerprint.Distance(seed.Fingerprint, items[j].Fingerprint)
				if d > threshold {
					continue
				}
				claimed[j] = struct{}{}
				members = append(members, Member{
					ID:                items[j].ID,
					Distance:          d,
					SimilarityPercent: fingerprint.SimilarityPercent(d),
				})
			}
		}

		if len(members) == 0 {
			// Singleton: stays claimed so it cannot join a later group,
			// but is not a result.
			continue
		}

		sort.SliceStable(members, func(a, b int) bool {
			return members[a].Distance < members[b].Distance
		})

		group := Group{Members: make([]Member, 0, len(members)+1)}
		group.Members = append(group.Members, Member{
			ID:                seed.ID,
			Distance:          0,
			SimilarityPercent: fingerprint.SimilarityPercent(0),
		})
		group.Members = append(group.Members, members...)
		groups = append(groups, group)
	}

	return groups
}
