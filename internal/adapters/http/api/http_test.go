package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/kunstquiz/internal/adapters/http/api"
	service "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var painters = []string{"Edvard Munch", "Harriet Backer", "J.C. Dahl", "Nikolai Astrup", "Carl Larsson", "Anders Zorn"}

func items() ([]model.Item, map[string]string) {
	var out []model.Item
	answers := map[string]string{}
	for i, p := range painters {
		for j := 0; j < 3; j++ {
			id := fmt.Sprintf("p%d-%d", i, j)
			out = append(out, model.Item{ID: id, Subject: "Painting " + id, GroupKey: p})
			answers[id] = p
		}
	}
	return out, answers
}

func newTestServer(load bool) (*httptest.Server, *service.Service) {
	ctx := context.Background()
	svc := service.New(service.WithSeed(3), service.WithPrefetch(0, 0, 0))
	So(svc.Start(ctx), ShouldBeNil)
	if load {
		catalogItems, _ := items()
		_, err := svc.LoadCatalog(ctx, catalogItems)
		So(err, ShouldBeNil)
	}
	return httptest.NewServer(api.NewServer(svc, nil, nil).Handler()), svc
}

func call(srv *httptest.Server, method, path, body string) (int, map[string]any) {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	So(err, ShouldBeNil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func newSession(srv *httptest.Server, body string) string {
	code, out := call(srv, http.MethodPost, "/sessions", body)
	So(code, ShouldEqual, http.StatusCreated)
	id, _ := out["session_id"].(string)
	So(id, ShouldNotBeBlank)
	return id
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a running API", t, func() {
		srv, svc := newTestServer(true)
		defer srv.Close()
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When GET /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(resp.Body)

			Convey("Then Prometheus metrics are exposed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, "kunstquiz_engine_active_sessions")
			})
		})

		Convey("When GET /stats", func() {
			code, out := call(srv, http.MethodGet, "/stats", "")

			Convey("Then service stats are returned", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(out["started"], ShouldEqual, true)
				So(out["catalogItems"], ShouldEqual, 18)
			})
		})

		Convey("When GET /stats selects keys", func() {
			code, out := call(srv, http.MethodGet, "/stats?keys=started,sessions", "")

			Convey("Then only those keys are returned", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(out, ShouldHaveLength, 2)
				So(out["started"], ShouldEqual, true)
			})
		})

		Convey("When GET /stats names an unknown key", func() {
			code, out := call(srv, http.MethodGet, "/stats?keys=nope", "")

			Convey("Then it is a bad request", func() {
				So(code, ShouldEqual, http.StatusBadRequest)
				So(out["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When a CORS preflight arrives", func() {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/sessions", nil)
			req.Header.Set("Origin", "https://quiz.example.org")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			_ = resp.Body.Close()

			Convey("Then the origin is allowed", func() {
				So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})
	})
}

func TestFilters(t *testing.T) {
	Convey("Given a running API", t, func() {
		srv, svc := newTestServer(true)
		defer srv.Close()
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When listing filters", func() {
			code, out := call(srv, http.MethodGet, "/filters", "")

			Convey("Then the built-in filters are listed", func() {
				So(code, ShouldEqual, http.StatusOK)
				list, _ := out["filters"].([]any)
				So(len(list), ShouldBeGreaterThanOrEqualTo, 10)
			})
		})

		Convey("When reading the all view", func() {
			code, out := call(srv, http.MethodGet, "/filters/all/view", "")

			Convey("Then aggregates are returned", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(out["count"], ShouldEqual, 18)
				So(out["distinct_keys"], ShouldEqual, 6)
				So(out["max_key_count"], ShouldEqual, 3)
			})
		})

		Convey("When reading an unknown view", func() {
			code, out := call(srv, http.MethodGet, "/filters/cubism/view", "")

			Convey("Then 404 unknown_filter is returned", func() {
				So(code, ShouldEqual, http.StatusNotFound)
				So(out["code"], ShouldEqual, "unknown_filter")
			})
		})
	})
}

func TestSessionFlow(t *testing.T) {
	Convey("Given a running API with a session", t, func() {
		srv, svc := newTestServer(true)
		defer srv.Close()
		defer func() { _ = svc.Stop(context.Background()) }()
		sid := newSession(srv, `{"player_id":"ola"}`)
		base := "/sessions/" + sid

		Convey("When asking for a question before a round", func() {
			code, out := call(srv, http.MethodGet, base+"/question", "")

			Convey("Then 404 no_question is returned", func() {
				So(code, ShouldEqual, http.StatusNotFound)
				So(out["code"], ShouldEqual, "no_question")
			})
		})

		Convey("When answering before a round", func() {
			code, out := call(srv, http.MethodPost, base+"/answers", `{"value":"Edvard Munch"}`)

			Convey("Then 409 invalid_transition is returned", func() {
				So(code, ShouldEqual, http.StatusConflict)
				So(out["code"], ShouldEqual, "invalid_transition")
			})
		})

		Convey("When a full round is played correctly", func() {
			_, answers := items()
			code, out := call(srv, http.MethodPost, base+"/rounds", `{"filter":"all"}`)
			So(code, ShouldEqual, http.StatusCreated)
			So(out["status"], ShouldEqual, "in_progress")

			q, _ := out["question"].(map[string]any)
			var last map[string]any
			for i := 0; i < 10; i++ {
				So(q, ShouldNotBeNil)
				So(q["options"], ShouldHaveLength, 4)
				cur, qout := call(srv, http.MethodGet, base+"/question", "")
				So(cur, ShouldEqual, http.StatusOK)
				So(qout["item_id"], ShouldEqual, q["item_id"])

				value := answers[q["item_id"].(string)]
				code, last = call(srv, http.MethodPost, base+"/answers", fmt.Sprintf(`{"value":%q}`, value))
				So(code, ShouldEqual, http.StatusOK)
				So(last["is_correct"], ShouldEqual, true)
				So(last["rating_delta"], ShouldEqual, 38)
				q, _ = last["next"].(map[string]any)
			}

			Convey("Then the round is complete and perfect", func() {
				So(last["status"], ShouldEqual, "complete")
				So(last["rating"], ShouldEqual, 1180)
				summary, _ := last["summary"].(map[string]any)
				So(summary["perfect"], ShouldEqual, true)
				So(summary["correct"], ShouldEqual, 10)

				code, st := call(srv, http.MethodGet, base+"/status", "")
				So(code, ShouldEqual, http.StatusOK)
				So(st["status"], ShouldEqual, "complete")
				So(st["answered"], ShouldEqual, 10)
			})

			Convey("And the rating history can be read and reset", func() {
				code, r := call(srv, http.MethodGet, base+"/rating", "")
				So(code, ShouldEqual, http.StatusOK)
				So(r["value"], ShouldEqual, 1180)
				So(r["history"], ShouldHaveLength, 11)

				code, r = call(srv, http.MethodDelete, base+"/rating", "")
				So(code, ShouldEqual, http.StatusOK)
				So(r["value"], ShouldEqual, 800)
				So(r["history"], ShouldHaveLength, 1)
			})

			Convey("And a new session for the same player restores the rating", func() {
				code, out := call(srv, http.MethodPost, "/sessions", `{"player_id":"ola"}`)
				So(code, ShouldEqual, http.StatusCreated)
				So(out["rating"], ShouldEqual, 1180)
				So(out["restored"], ShouldEqual, true)
			})
		})

		Convey("When the filter is switched mid-round", func() {
			code, _ := call(srv, http.MethodPost, base+"/rounds", "")
			So(code, ShouldEqual, http.StatusCreated)
			code, st := call(srv, http.MethodPut, base+"/filter", `{"filter":"popular"}`)

			Convey("Then the session is idle on the new filter", func() {
				So(code, ShouldEqual, http.StatusOK)
				So(st["status"], ShouldEqual, "idle")
				So(st["filter"], ShouldEqual, "popular")
			})
		})

		Convey("When a round starts on a filter matching nothing", func() {
			code, out := call(srv, http.MethodPost, base+"/rounds", `{"filter":"female_artists"}`)

			Convey("Then 422 no_candidates is returned", func() {
				So(code, ShouldEqual, http.StatusUnprocessableEntity)
				So(out["code"], ShouldEqual, "no_candidates")
			})
		})

		Convey("When bodies are malformed", func() {
			c1, o1 := call(srv, http.MethodPost, base+"/answers", `{"value":`)
			c2, _ := call(srv, http.MethodPost, base+"/answers", `{"value":"  "}`)
			c3, _ := call(srv, http.MethodPut, base+"/filter", `{}`)
			c4, _ := call(srv, http.MethodPost, "/sessions", `{"player":"x"}`)

			Convey("Then 400 bad_request is returned", func() {
				So(c1, ShouldEqual, http.StatusBadRequest)
				So(o1["code"], ShouldEqual, "bad_request")
				So(c2, ShouldEqual, http.StatusBadRequest)
				So(c3, ShouldEqual, http.StatusBadRequest)
				So(c4, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the session is deleted", func() {
			code, _ := call(srv, http.MethodDelete, base, "")
			So(code, ShouldEqual, http.StatusNoContent)
			code, out := call(srv, http.MethodGet, base+"/status", "")

			Convey("Then it is no longer found", func() {
				So(code, ShouldEqual, http.StatusNotFound)
				So(out["code"], ShouldEqual, "session_not_found")
			})
		})
	})
}

func TestEmptyCatalog(t *testing.T) {
	Convey("Given an API whose catalog was never loaded", t, func() {
		srv, svc := newTestServer(false)
		defer srv.Close()
		defer func() { _ = svc.Stop(context.Background()) }()
		sid := newSession(srv, "")

		Convey("When a round starts", func() {
			code, out := call(srv, http.MethodPost, "/sessions/"+sid+"/rounds", "")

			Convey("Then 500 empty_catalog is returned", func() {
				So(code, ShouldEqual, http.StatusInternalServerError)
				So(out["code"], ShouldEqual, "empty_catalog")
			})
		})
	})
}
