package jsonl_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/okian/ntag/internal/adapters/jsonl"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReader(t *testing.T) {
	Convey("Given a stream of events", t, func() {
		in := strings.Join([]string{
			`{"id":"ev1","hits":[{"t":10,"q":1.5,"ch":3},{"t":20,"q":1,"ch":4,"gate":2}],"prompt_vertex":{"X":1,"Y":2,"Z":3}}`,
			``,
			`{"hits":[],"taggables":[{"type":"n","energy":2.2,"time":150000}]}`,
		}, "\n")
		rd := jsonl.NewReader(strings.NewReader(in))

		Convey("Then events decode in order", func() {
			e, err := rd.Next()
			So(err, ShouldBeNil)
			So(e.ID, ShouldEqual, "ev1")
			So(e.Hits, ShouldHaveLength, 2)
			So(e.Hits[1].IsInGate(), ShouldBeTrue)
			So(e.PromptVertex, ShouldNotBeNil)
			So(e.PromptVertex.Z, ShouldEqual, 3)

			e, err = rd.Next()
			So(err, ShouldBeNil)
			So(e.ID, ShouldNotBeEmpty)
			So(e.Taggables, ShouldHaveLength, 1)
			So(e.Taggables[0].Type, ShouldEqual, types.TaggableNeutron)

			_, err = rd.Next()
			So(err, ShouldEqual, io.EOF)
		})
	})

	Convey("Given a malformed line", t, func() {
		_, err := jsonl.ReadAll(strings.NewReader("{\"id\":\"ok\"}\n{broken\n"))

		Convey("Then the error names the line", func() {
			So(errors.Is(err, jsonl.ErrDecode), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "line 2")
		})
	})
}

func TestWriter(t *testing.T) {
	Convey("Given a writer", t, func() {
		var buf bytes.Buffer
		w := jsonl.NewWriter(&buf)
		ctx := context.Background()

		Convey("When storing two results", func() {
			So(w.Store(ctx, model.Result{EventID: "a"}), ShouldBeNil)
			So(w.Store(ctx, model.Result{EventID: "b", Counters: model.Counters{TaggedNeutrons: 1}}), ShouldBeNil)
			So(w.Flush(), ShouldBeNil)

			Convey("Then each is one line", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[1], ShouldContainSubstring, `"n_tagged_n":1`)
			})
		})

		Convey("When the context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(w.Store(cctx, model.Result{}), ShouldNotBeNil)
		})
	})
}
