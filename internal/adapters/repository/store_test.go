package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/okian/wallarena/internal/adapters/repository"
	"github.com/okian/wallarena/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// backends names both Store implementations so every contract check runs
// against each one.
var backends = []string{"memory", "sqlite"}

// newStore builds a fresh backend instance. Called inside the Convey
// blocks, which re-run per assertion branch, so every branch starts from
// an empty store.
func newStore(t *testing.T, backend string) repository.Store {
	t.Helper()

	if backend == "memory" {
		return repository.NewMemoryStore()
	}

	sqliteStore, err := repository.NewSQLiteStore(context.Background(),
		filepath.Join(t.TempDir(), "wallarena.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return sqliteStore
}

func wallpaper(id string, rating int) model.Wallpaper {
	return model.Wallpaper{
		ID:     id,
		Title:  "title-" + id,
		Rating: rating,
	}
}

func TestStoreCatalog(t *testing.T) {
	for _, backend := range backends {
		Convey(fmt.Sprintf("Given an empty %s store", backend), t, func() {
			store := newStore(t, backend)
			ctx := context.Background()

			Convey("When creating a wallpaper", func() {
				err := store.Create(ctx, wallpaper("cat-a", 1000))

				Convey("Then it should be retrievable", func() {
					So(err, ShouldBeNil)
					w, err := store.Get(ctx, "cat-a")
					So(err, ShouldBeNil)
					So(w.Title, ShouldEqual, "title-cat-a")
					So(w.Rating, ShouldEqual, 1000)
					So(w.CreatedAt.IsZero(), ShouldBeFalse)
					So(store.Count(ctx), ShouldEqual, 1)
				})

				Convey("And creating it again should fail", func() {
					So(errors.Is(store.Create(ctx, wallpaper("cat-a", 1000)), repository.ErrExists), ShouldBeTrue)
				})

				Convey("And deleting it should make it unknown", func() {
					So(store.Delete(ctx, "cat-a"), ShouldBeNil)
					_, err := store.Get(ctx, "cat-a")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					So(store.Count(ctx), ShouldEqual, 0)
				})
			})

			Convey("When asking for an unknown wallpaper", func() {
				_, err := store.Get(ctx, "nope")

				Convey("Then it should report not found", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When deleting an unknown wallpaper", func() {
				So(errors.Is(store.Delete(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	}
}

func TestStoreFingerprints(t *testing.T) {
	for _, backend := range backends {
		Convey(fmt.Sprintf("Given a %s store with unfingerprinted wallpapers", backend), t, func() {
			store := newStore(t, backend)
			ctx := context.Background()
			So(store.Create(ctx, wallpaper("fp-a", 1000)), ShouldBeNil)
			So(store.Create(ctx, wallpaper("fp-b", 1000)), ShouldBeNil)

			Convey("When nothing has a fingerprint", func() {
				missing, err := store.MissingFingerprints(ctx)

				Convey("Then all ids should be reported missing", func() {
					So(err, ShouldBeNil)
					So(missing, ShouldResemble, []string{"fp-a", "fp-b"})
					So(store.CountFingerprinted(ctx), ShouldEqual, 0)
				})
			})

			Convey("When a fingerprint is stored", func() {
				before := store.Version(ctx)
				ok, err := store.SetFingerprint(ctx, "fp-a", "00ff00ff00ff00ff")

				Convey("Then the snapshot and counters should reflect it", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(store.Version(ctx), ShouldBeGreaterThan, before)

					rows, err := store.Fingerprinted(ctx)
					So(err, ShouldBeNil)
					So(rows, ShouldResemble, []repository.FingerprintRow{
						{ID: "fp-a", Fingerprint: "00ff00ff00ff00ff"},
					})

					missing, err := store.MissingFingerprints(ctx)
					So(err, ShouldBeNil)
					So(missing, ShouldResemble, []string{"fp-b"})
					So(store.CountFingerprinted(ctx), ShouldEqual, 1)
				})
			})

			Convey("When fingerprinting a vanished wallpaper", func() {
				ok, err := store.SetFingerprint(ctx, "gone", "00ff00ff00ff00ff")

				Convey("Then it should report a miss without an error", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeFalse)
				})
			})
		})
	}
}

func TestStoreApplyContest(t *testing.T) {
	for _, backend := range backends {
		Convey(fmt.Sprintf("Given a %s store with two contenders", backend), t, func() {
			store := newStore(t, backend)
			ctx := context.Background()
			So(store.Create(ctx, wallpaper("con-a", 1000)), ShouldBeNil)
			So(store.Create(ctx, wallpaper("con-b", 1200)), ShouldBeNil)

			Convey("When a contest is applied", func() {
				err := store.ApplyContest(ctx, "con-a", "con-b",
					func(winner, loser model.Wallpaper) (int, int) {
						So(winner.ID, ShouldEqual, "con-a")
						So(loser.ID, ShouldEqual, "con-b")
						return winner.Rating + 32, loser.Rating - 32
					})

				Convey("Then both records should change together", func() {
					So(err, ShouldBeNil)

					a, err := store.Get(ctx, "con-a")
					So(err, ShouldBeNil)
					So(a.Rating, ShouldEqual, 1032)
					So(a.Wins, ShouldEqual, 1)
					So(a.Losses, ShouldEqual, 0)

					b, err := store.Get(ctx, "con-b")
					So(err, ShouldBeNil)
					So(b.Rating, ShouldEqual, 1168)
					So(b.Wins, ShouldEqual, 0)
					So(b.Losses, ShouldEqual, 1)
				})
			})

			Convey("When one side is unknown", func() {
				err := store.ApplyContest(ctx, "con-a", "gone",
					func(winner, loser model.Wallpaper) (int, int) {
						return winner.Rating + 32, loser.Rating - 32
					})

				Convey("Then nothing should change", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

					a, getErr := store.Get(ctx, "con-a")
					So(getErr, ShouldBeNil)
					So(a.Rating, ShouldEqual, 1000)
					So(a.Wins, ShouldEqual, 0)
				})
			})
		})
	}
}

func TestStoreLeaderboard(t *testing.T) {
	for _, backend := range backends {
		Convey(fmt.Sprintf("Given a %s store with rated wallpapers", backend), t, func() {
			store := newStore(t, backend)
			ctx := context.Background()
			So(store.Create(ctx, wallpaper("lb-a", 1200)), ShouldBeNil)
			So(store.Create(ctx, wallpaper("lb-b", 1500)), ShouldBeNil)
			So(store.Create(ctx, wallpaper("lb-c", 1200)), ShouldBeNil)
			So(store.Create(ctx, wallpaper("lb-d", 900)), ShouldBeNil)

			Convey("When requesting the full leaderboard", func() {
				entries, err := store.TopN(ctx, 10)

				Convey("Then it should be sorted with dense tie ranks", func() {
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 4)
					So(entries[0].ID, ShouldEqual, "lb-b")
					So(entries[0].Rank, ShouldEqual, 1)
					// Tied ratings share a rank, ordered by id.
					So(entries[1].ID, ShouldEqual, "lb-a")
					So(entries[1].Rank, ShouldEqual, 2)
					So(entries[2].ID, ShouldEqual, "lb-c")
					So(entries[2].Rank, ShouldEqual, 2)
					So(entries[3].ID, ShouldEqual, "lb-d")
					So(entries[3].Rank, ShouldEqual, 3)
				})
			})

			Convey("When requesting a truncated leaderboard", func() {
				entries, err := store.TopN(ctx, 2)

				Convey("Then only the best should be returned", func() {
					So(err, ShouldBeNil)
					So(len(entries), ShouldEqual, 2)
					So(entries[0].ID, ShouldEqual, "lb-b")
					So(entries[1].ID, ShouldEqual, "lb-a")
				})
			})

			Convey("When the limit is invalid", func() {
				_, err := store.TopN(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("When asking for a single rank", func() {
				entry, err := store.Rank(ctx, "lb-c")

				Convey("Then it should match its leaderboard position", func() {
					So(err, ShouldBeNil)
					So(entry.Rank, ShouldEqual, 2)
					So(entry.Rating, ShouldEqual, 1200)
				})
			})

			Convey("When asking for the rank of an unknown id", func() {
				_, err := store.Rank(ctx, "gone")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("When reading the matchmaking snapshot", func() {
				rows, err := store.Eligible(ctx)

				Convey("Then every wallpaper should appear with its rating", func() {
					So(err, ShouldBeNil)
					So(len(rows), ShouldEqual, 4)
					So(rows[0], ShouldResemble, repository.RatingRow{ID: "lb-a", Title: "title-lb-a", Rating: 1200})
				})
			})
		})
	}
}

func TestStoreVersion(t *testing.T) {
	for _, backend := range backends {
		Convey(fmt.Sprintf("Given a %s store", backend), t, func() {
			store := newStore(t, backend)
			ctx := context.Background()

			Convey("When the catalog mutates", func() {
				v0 := store.Version(ctx)
				So(store.Create(ctx, wallpaper("ver-a", 1000)), ShouldBeNil)
				v1 := store.Version(ctx)
				So(store.Delete(ctx, "ver-a"), ShouldBeNil)
				v2 := store.Version(ctx)

				Convey("Then the version should advance each time", func() {
					So(v1, ShouldBeGreaterThan, v0)
					So(v2, ShouldBeGreaterThan, v1)
				})
			})

			Convey("When only ratings change", func() {
				So(store.Create(ctx, wallpaper("ver-b", 1000)), ShouldBeNil)
				So(store.Create(ctx, wallpaper("ver-c", 1000)), ShouldBeNil)
				before := store.Version(ctx)
				err := store.ApplyContest(ctx, "ver-b", "ver-c",
					func(winner, loser model.Wallpaper) (int, int) {
						return winner.Rating + 32, loser.Rating - 32
					})

				Convey("Then the version should hold still", func() {
					So(err, ShouldBeNil)
					So(store.Version(ctx), ShouldEqual, before)
				})
			})
		})
	}
}
