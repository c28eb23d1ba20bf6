package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/wallarena/internal/adapters/http/api"
	"github.com/okian/wallarena/internal/adapters/repository"
	"github.com/okian/wallarena/internal/domain/match"
	"github.com/okian/wallarena/internal/domain/model"
	"github.com/okian/wallarena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps is a scriptable Dependencies implementation.
type fakeDeps struct {
	wallpapers map[string]model.Wallpaper
	created    []model.Wallpaper
	votes      []model.Vote
	seenVotes  map[string]bool
	pair       types.MatchPair
	matchErr   error
	groups     []types.DuplicateGroup
	report     types.BackfillReport
	entries    []types.Entry
	failAll    bool
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		wallpapers: make(map[string]model.Wallpaper),
		seenVotes:  make(map[string]bool),
	}
}

func (f *fakeDeps) CreateWallpaper(ctx context.Context, title, fileName string, data []byte) (model.Wallpaper, error) {
	if f.failAll {
		return model.Wallpaper{}, errors.New("boom")
	}
	w := model.Wallpaper{
		ID:        "wp-created",
		Title:     title,
		FileName:  fileName,
		Rating:    model.DefaultRating,
		CreatedAt: time.Now().UTC(),
	}
	f.created = append(f.created, w)
	f.wallpapers[w.ID] = w
	return w, nil
}

func (f *fakeDeps) GetWallpaper(ctx context.Context, id string) (model.Wallpaper, error) {
	w, ok := f.wallpapers[id]
	if !ok {
		return model.Wallpaper{}, repository.ErrNotFound
	}
	return w, nil
}

func (f *fakeDeps) DeleteWallpaper(ctx context.Context, id string) error {
	if _, ok := f.wallpapers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.wallpapers, id)
	return nil
}

func (f *fakeDeps) SubmitVote(ctx context.Context, v model.Vote) (bool, error) {
	if _, ok := f.wallpapers[v.WinnerID]; !ok {
		return false, repository.ErrNotFound
	}
	if _, ok := f.wallpapers[v.LoserID]; !ok {
		return false, repository.ErrNotFound
	}
	if f.seenVotes[v.VoteID] {
		return false, nil
	}
	f.seenVotes[v.VoteID] = true
	f.votes = append(f.votes, v)
	return true, nil
}

func (f *fakeDeps) NextMatch(ctx context.Context, exclude map[string]struct{}) (types.MatchPair, error) {
	if f.matchErr != nil {
		return types.MatchPair{}, f.matchErr
	}
	return f.pair, nil
}

func (f *fakeDeps) Duplicates(ctx context.Context, threshold int) ([]types.DuplicateGroup, error) {
	return f.groups, nil
}

func (f *fakeDeps) Backfill(ctx context.Context) (types.BackfillReport, error) {
	return f.report, nil
}

func (f *fakeDeps) TopN(ctx context.Context, n int) ([]api.Entry, error) {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[:n], nil
}

func (f *fakeDeps) Rank(ctx context.Context, id string) (api.Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return api.Entry{}, repository.ErrNotFound
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, deps, opts...)
	server.Register(context.Background(), mux)
	return mux
}

func multipartUpload(t *testing.T, title string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "upload.png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestWallpaperEndpoints(t *testing.T) {
	Convey("Given the wallpaper routes", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		Convey("When uploading a wallpaper", func() {
			body, contentType := multipartUpload(t, "sunset", []byte("fake image bytes"))
			req := httptest.NewRequest(http.MethodPost, "/wallpapers", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should create the record", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(len(deps.created), ShouldEqual, 1)
				So(deps.created[0].Title, ShouldEqual, "sunset")
				So(deps.created[0].FileName, ShouldEqual, "upload.png")
				So(w.Body.String(), ShouldContainSubstring, "wp-created")
			})
		})

		Convey("When uploading without an image part", func() {
			body, contentType := multipartUpload(t, "no image", nil)
			req := httptest.NewRequest(http.MethodPost, "/wallpapers", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should reject the upload", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(len(deps.created), ShouldEqual, 0)
			})
		})

		Convey("When fetching a known wallpaper", func() {
			deps.wallpapers["wp-1"] = model.Wallpaper{ID: "wp-1", Title: "dunes", Rating: 1040}
			req := httptest.NewRequest(http.MethodGet, "/wallpapers/wp-1", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the record", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"dunes"`)
				So(w.Body.String(), ShouldContainSubstring, `"rating":1040`)
			})
		})

		Convey("When fetching an unknown wallpaper", func() {
			req := httptest.NewRequest(http.MethodGet, "/wallpapers/nope", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When deleting a wallpaper", func() {
			deps.wallpapers["wp-2"] = model.Wallpaper{ID: "wp-2"}
			req := httptest.NewRequest(http.MethodDelete, "/wallpapers/wp-2", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be removed", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				_, exists := deps.wallpapers["wp-2"]
				So(exists, ShouldBeFalse)
			})
		})

		Convey("When deleting an unknown wallpaper", func() {
			req := httptest.NewRequest(http.MethodDelete, "/wallpapers/nope", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestVoteEndpoint(t *testing.T) {
	Convey("Given the votes route", t, func() {
		deps := newFakeDeps()
		deps.wallpapers["wp-a"] = model.Wallpaper{ID: "wp-a"}
		deps.wallpapers["wp-b"] = model.Wallpaper{ID: "wp-b"}
		mux := newTestMux(deps)

		postVote := func(payload string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/votes", strings.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When submitting a valid vote", func() {
			w := postVote(`{"vote_id":"v-1","winner_id":"wp-a","loser_id":"wp-b","elapsed_ms":4200}`)

			Convey("Then it should be applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"applied"`)
				So(len(deps.votes), ShouldEqual, 1)
				So(deps.votes[0].ElapsedMS, ShouldNotBeNil)
				So(*deps.votes[0].ElapsedMS, ShouldEqual, 4200)
			})
		})

		Convey("When replaying the same vote id", func() {
			postVote(`{"vote_id":"v-2","winner_id":"wp-a","loser_id":"wp-b"}`)
			w := postVote(`{"vote_id":"v-2","winner_id":"wp-a","loser_id":"wp-b"}`)

			Convey("Then it should acknowledge the duplicate without reapplying", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.votes), ShouldEqual, 1)
			})
		})

		Convey("When the winner and loser are the same", func() {
			w := postVote(`{"vote_id":"v-3","winner_id":"wp-a","loser_id":"wp-a"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a contender is unknown", func() {
			w := postVote(`{"vote_id":"v-4","winner_id":"wp-a","loser_id":"ghost"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the payload is malformed", func() {
			w := postVote(`{"vote_id":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When elapsed_ms is negative", func() {
			w := postVote(`{"vote_id":"v-5","winner_id":"wp-a","loser_id":"wp-b","elapsed_ms":-5}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the vote id is missing", func() {
			w := postVote(`{"winner_id":"wp-a","loser_id":"wp-b"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMatchEndpoint(t *testing.T) {
	Convey("Given the match route", t, func() {
		deps := newFakeDeps()
		deps.pair = types.MatchPair{
			A: types.Contender{ID: "wp-a", Rating: 1000},
			B: types.Contender{ID: "wp-b", Rating: 1100},
		}
		mux := newTestMux(deps)

		Convey("When requesting a match", func() {
			req := httptest.NewRequest(http.MethodGet, "/match", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the pair", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var pair types.MatchPair
				So(json.Unmarshal(w.Body.Bytes(), &pair), ShouldBeNil)
				So(pair.A.ID, ShouldEqual, "wp-a")
				So(pair.B.ID, ShouldEqual, "wp-b")
			})
		})

		Convey("When the pool is too small", func() {
			deps.matchErr = match.ErrInsufficientPopulation
			req := httptest.NewRequest(http.MethodGet, "/match?exclude=wp-a,wp-b", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should report a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "insufficient_population")
			})
		})
	})
}

func TestDuplicatesEndpoint(t *testing.T) {
	Convey("Given the duplicates route", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		Convey("When there are duplicate groups", func() {
			deps.groups = []types.DuplicateGroup{{
				Members: []types.DuplicateMember{
					{ID: "wp-a", Distance: 0, SimilarityPercent: 100},
					{ID: "wp-b", Distance: 3, SimilarityPercent: 95},
				},
			}}
			req := httptest.NewRequest(http.MethodGet, "/duplicates?threshold=10", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then they should be listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"similarity_percent":95`)
			})
		})

		Convey("When there are no groups", func() {
			req := httptest.NewRequest(http.MethodGet, "/duplicates", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the groups array should be empty, not null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"groups":[]`)
			})
		})

		Convey("When the threshold is invalid", func() {
			req := httptest.NewRequest(http.MethodGet, "/duplicates?threshold=zero", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestBackfillEndpoint(t *testing.T) {
	Convey("Given the backfill route", t, func() {
		deps := newFakeDeps()
		deps.report = types.BackfillReport{Processed: 5, Updated: 4, Failed: 1}
		mux := newTestMux(deps)

		Convey("When triggering a backfill", func() {
			req := httptest.NewRequest(http.MethodPost, "/backfill", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the report", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var report types.BackfillReport
				So(json.Unmarshal(w.Body.Bytes(), &report), ShouldBeNil)
				So(report.Processed, ShouldEqual, 5)
				So(report.Updated, ShouldEqual, 4)
				So(report.Failed, ShouldEqual, 1)
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest(http.MethodGet, "/backfill", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given the leaderboard route", t, func() {
		deps := newFakeDeps()
		deps.entries = []types.Entry{
			{Rank: 1, ID: "wp-b", Rating: 1200, Wins: 4},
			{Rank: 2, ID: "wp-a", Rating: 1000, Losses: 4},
		}
		mux := newTestMux(deps, api.WithMaxLeaderboardLimit(10))

		Convey("When requesting the top entries", func() {
			req := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=2", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return them in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].ID, ShouldEqual, "wp-b")
			})
		})

		Convey("When the limit is missing", func() {
			req := httptest.NewRequest(http.MethodGet, "/leaderboard", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the cap", func() {
			req := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=1000", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})
	})
}

func TestRankEndpoint(t *testing.T) {
	Convey("Given the rank route", t, func() {
		deps := newFakeDeps()
		deps.entries = []types.Entry{{Rank: 1, ID: "wp-a", Rating: 1300}}
		mux := newTestMux(deps)

		Convey("When asking for a known wallpaper", func() {
			req := httptest.NewRequest(http.MethodGet, "/rank/wp-a", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the entry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"rank":1`)
			})
		})

		Convey("When asking for an unknown wallpaper", func() {
			req := httptest.NewRequest(http.MethodGet, "/rank/ghost", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the id is missing", func() {
			req := httptest.NewRequest(http.MethodGet, "/rank/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats route", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		Convey("When requesting stats", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should return the stats JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})
	})
}
