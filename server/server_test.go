package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"chairsolver/analysis"
	"chairsolver/codec"
	"chairsolver/game"
	"chairsolver/strategystore"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	outDir, err := os.MkdirTemp("", "server-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(outDir) })
	return NewServer("", outDir), outDir
}

func TestHandleStrategyNotFound(t *testing.T) {
	Convey("Given no stored strategy for a state", t, func() {
		s, _ := newTestServer(t)
		ts := httptest.NewServer(s.Router(context.Background()))
		defer ts.Close()

		enc := codec.Encode(game.State{Turn: 1, Chairs: game.AllChairsMask})

		Convey("GET /strategy/{hex} returns 404", func() {
			resp, err := http.Get(ts.URL + "/strategy/" + hexOf(enc))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandleStrategyBadHex(t *testing.T) {
	Convey("Given a malformed hex path segment", t, func() {
		s, _ := newTestServer(t)
		ts := httptest.NewServer(s.Router(context.Background()))
		defer ts.Close()

		Convey("GET /strategy/{hex} returns 400", func() {
			resp, err := http.Get(ts.URL + "/strategy/not-hex")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandleStrategyFound(t *testing.T) {
	Convey("Given a persisted strategy", t, func() {
		s, outDir := newTestServer(t)
		enc := codec.Encode(game.State{Turn: 1, Chairs: game.AllChairsMask})

		store, err := strategystore.Open(filepath.Join(outDir, "turn-1"), strategystore.DefaultChunkSize, strategystore.DefaultLRUSize)
		So(err, ShouldBeNil)
		rec := strategystore.Record{Value: 0.75}
		rec.P1Probs[0] = 1
		So(store.Put(enc, rec), ShouldBeNil)
		So(store.Flush(), ShouldBeNil)

		ts := httptest.NewServer(s.Router(context.Background()))
		defer ts.Close()

		Convey("GET /strategy/{hex} returns the strategy as JSON", func() {
			resp, err := http.Get(ts.URL + "/strategy/" + hexOf(enc))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body struct {
				Value   float64
				P1Probs [game.NumChairs]float64
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.Value, ShouldEqual, 0.75)
			So(body.P1Probs[0], ShouldEqual, 1)
		})
	})
}

func TestHandleProgress(t *testing.T) {
	Convey("Given a saved progress report", t, func() {
		s, outDir := newTestServer(t)
		p, err := analysis.LoadProgress(outDir)
		So(err, ShouldBeNil)
		p.TotalStates["1"] = 5
		p.AnalyzedStates["1"] = 2
		So(analysis.SaveProgress(outDir, p, time.Now()), ShouldBeNil)

		ts := httptest.NewServer(s.Router(context.Background()))
		defer ts.Close()

		Convey("GET /progress returns it as JSON", func() {
			resp, err := http.Get(ts.URL + "/progress")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var report analysis.ProgressReport
			So(json.NewDecoder(resp.Body).Decode(&report), ShouldBeNil)
			So(report.TotalStates["1"], ShouldEqual, 5)
			So(report.AnalyzedStates["1"], ShouldEqual, 2)
		})
	})
}

func TestWebsocketPushesProgressSnapshot(t *testing.T) {
	Convey("Given a websocket client connected before progress.json changes", t, func() {
		s, outDir := newTestServer(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ts := httptest.NewServer(s.Router(ctx))
		defer ts.Close()
		wsURL := "ws" + ts.URL[len("http"):] + "/ws"

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("writing a new progress.json pushes a snapshot over the socket", func() {
			p, err := analysis.LoadProgress(outDir)
			So(err, ShouldBeNil)
			p.TotalStates["1"] = 3
			p.AnalyzedStates["1"] = 1
			So(analysis.SaveProgress(outDir, p, time.Now()), ShouldBeNil)

			So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)
			var report analysis.ProgressReport
			So(conn.ReadJSON(&report), ShouldBeNil)
			So(report.TotalStates["1"], ShouldEqual, 3)
			So(report.AnalyzedStates["1"], ShouldEqual, 1)
		})
	})
}

func hexOf(x uint32) string {
	return fmt.Sprintf("%x", x)
}
