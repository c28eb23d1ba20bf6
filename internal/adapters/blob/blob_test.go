package blob_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/wallarena/internal/adapters/blob"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFileStore(t *testing.T) {
	Convey("Given a file-backed blob store", t, func() {
		store, err := blob.NewFileStore(t.TempDir())
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When saving and loading a blob", func() {
			So(store.Save(ctx, "id-1", []byte("image bytes")), ShouldBeNil)
			data, err := store.Load(ctx, "id-1")

			Convey("Then the bytes should round-trip", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "image bytes")
			})
		})

		Convey("When overwriting a blob", func() {
			So(store.Save(ctx, "id-1", []byte("old")), ShouldBeNil)
			So(store.Save(ctx, "id-1", []byte("new")), ShouldBeNil)
			data, err := store.Load(ctx, "id-1")

			Convey("Then the latest write should win", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "new")
			})
		})

		Convey("When loading an unknown blob", func() {
			_, err := store.Load(ctx, "never-saved")

			Convey("Then it should report not found", func() {
				So(errors.Is(err, blob.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When removing a blob", func() {
			So(store.Save(ctx, "id-2", []byte("bytes")), ShouldBeNil)
			So(store.Remove(ctx, "id-2"), ShouldBeNil)

			Convey("Then it should be gone, and removing again is fine", func() {
				_, err := store.Load(ctx, "id-2")
				So(errors.Is(err, blob.ErrNotFound), ShouldBeTrue)
				So(store.Remove(ctx, "id-2"), ShouldBeNil)
			})
		})

		Convey("When the id tries to escape the directory", func() {
			err := store.Save(ctx, "../outside", []byte("nope"))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, blob.ErrInvalidID), ShouldBeTrue)
			})
		})
	})
}
