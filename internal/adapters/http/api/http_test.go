package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gavelhq/gavel/internal/adapters/http/api"
	"github.com/gavelhq/gavel/internal/adapters/repository"
	service "github.com/gavelhq/gavel/internal/app"
	"github.com/gavelhq/gavel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockService struct {
	submitStatus service.SubmitStatus
	submitted    []model.PickEvent

	projections []model.ProjectionEntry
	projErr     error

	draftID     string
	draftBudget float64
	draftSlots  int
	draftErr    error

	snapshot    model.InflationSnapshot
	hasSnapshot bool

	subCh       chan model.InflationSnapshot
	subCanceled bool

	board    []api.Entry
	boardErr error

	rankEntry api.Entry
	rankErr   error

	depletion model.BudgetDepletionResult
	depArgs   []float64

	state model.DraftState
	ready bool
}

func (m *mockService) SubmitPick(ctx context.Context, pick model.PickEvent) service.SubmitStatus {
	m.submitted = append(m.submitted, pick)
	return m.submitStatus
}

func (m *mockService) ReplaceProjections(ctx context.Context, entries []model.ProjectionEntry) error {
	if m.projErr != nil {
		return m.projErr
	}
	m.projections = entries
	return nil
}

func (m *mockService) ConfigureDraft(ctx context.Context, draftID string, totalBudget float64, totalSlots int) error {
	if m.draftErr != nil {
		return m.draftErr
	}
	m.draftID = draftID
	m.draftBudget = totalBudget
	m.draftSlots = totalSlots
	return nil
}

func (m *mockService) LatestSnapshot() (model.InflationSnapshot, bool) {
	return m.snapshot, m.hasSnapshot
}

func (m *mockService) Subscribe() (<-chan model.InflationSnapshot, func()) {
	if m.subCh == nil {
		m.subCh = make(chan model.InflationSnapshot)
	}
	return m.subCh, func() { m.subCanceled = true }
}

func (m *mockService) TopBoard(ctx context.Context, n int) ([]api.Entry, error) {
	if m.boardErr != nil {
		return nil, m.boardErr
	}
	if n > len(m.board) {
		return m.board, nil
	}
	return m.board[:n], nil
}

func (m *mockService) PlayerRank(ctx context.Context, playerID string) (api.Entry, error) {
	if m.rankErr != nil {
		return api.Entry{}, m.rankErr
	}
	return m.rankEntry, nil
}

func (m *mockService) BudgetDepletion(totalBudget, spentBudget, slotsRemaining, totalSlots float64) model.BudgetDepletionResult {
	m.depArgs = []float64{totalBudget, spentBudget, slotsRemaining, totalSlots}
	return m.depletion
}

func (m *mockService) DraftState(ctx context.Context) model.DraftState {
	return m.state
}

func (m *mockService) Ready() bool {
	return m.ready
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func sampleSnapshot() model.InflationSnapshot {
	return model.InflationSnapshot{
		DraftID: "main",
		Seq:     5,
		Overall: 0.2727,
		ByTier: map[model.ValueTier]float64{
			model.TierElite: 0.25,
			model.TierMid:   0.3,
			model.TierLower: 0,
		},
		Depletion: model.BudgetDepletionResult{
			Multiplier:     1.075,
			Spent:          140,
			Remaining:      860,
			SlotsRemaining: 78,
		},
		Purchases: 2,
		PoolSize:  5,
		TS:        time.Date(2025, 8, 24, 19, 0, 0, 0, time.UTC),
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockService{
			submitStatus: service.SubmitAccepted,
			snapshot:     sampleSnapshot(),
			hasSnapshot:  true,
			board:        []api.Entry{{Rank: 1, PlayerID: "alpha", ProjectedValue: 60, Tier: "ELITE"}},
			rankEntry:    api.Entry{Rank: 1, PlayerID: "alpha", ProjectedValue: 60, Tier: "ELITE"},
			ready:        true,
		}
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		server := api.NewServer(deps, statsProvider, 100)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})

			Convey("And readiness endpoint should report ready", func() {
				req := httptest.NewRequest("GET", "/readyz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And metrics endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/metrics", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/api/v1/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And picks endpoint should reject an empty body", func() {
				req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And picks endpoint should stamp a request id", func() {
				req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":42}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})

			Convey("And picks endpoint should echo a caller request id", func() {
				req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":42}`))
				req.Header.Set("X-Request-ID", "req-42")
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-42")
			})

			Convey("And inflation endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/api/v1/inflation", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And board endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/api/v1/board?n=1", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And rank endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/api/v1/players/alpha/rank", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And depletion endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/api/v1/depletion", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And root endpoint should catch everything else", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And dashboard endpoint should serve HTML with refresh control", func() {
				req := httptest.NewRequest("GET", "/dashboard", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "id=\"refresh-interval\"")
				So(body, ShouldContainSubstring, "id=\"refresh-control\"")
			})
		})
	})
}

func TestPicksHandler_HandlePostPick(t *testing.T) {
	Convey("Given a picks handler", t, func() {
		deps := &mockService{submitStatus: service.SubmitAccepted}
		handler := api.NewPicksHandler(deps)

		Convey("When handling a valid POST request", func() {
			validPick := `{
				"event_id": "pick-1",
				"player_id": "alpha",
				"price": 75,
				"ts": "2025-08-24T19:00:00Z"
			}`

			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(validPick))
			w := httptest.NewRecorder()

			Convey("Then it should return accepted status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusAccepted)

				var response ackResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "accepted")
				So(response.EventID, ShouldEqual, "pick-1")
				So(response.Duplicate, ShouldBeFalse)

				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].PlayerID, ShouldEqual, "alpha")
				So(deps.submitted[0].Price, ShouldEqual, 75.0)
				So(deps.submitted[0].TS.Equal(time.Date(2025, 8, 24, 19, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the service reports a duplicate", func() {
			deps.submitStatus = service.SubmitDuplicate
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"event_id":"pick-1","player_id":"alpha","price":75}`))
			w := httptest.NewRecorder()

			Convey("Then it should return duplicate status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response ackResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "duplicate")
				So(response.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the queue is saturated", func() {
			deps.submitStatus = service.SubmitRejected
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":75}`))
			w := httptest.NewRecorder()

			Convey("Then it should return service unavailable", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "error")
				So(response.Error.Kind, ShouldEqual, "backpressure")
			})
		})

		Convey("When handling an invalid JSON request", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{invalid json`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the player id is missing", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"event_id":"pick-1","price":75}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Message, ShouldContainSubstring, "missing player_id")
			})
		})

		Convey("When the price is negative", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":-5}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the tier is not a known tier", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":5,"tier":"GOLD"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the timestamp is not RFC3339", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":5,"ts":"yesterday"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the event id is omitted", func() {
			req := httptest.NewRequest("POST", "/api/v1/picks", strings.NewReader(`{"player_id":"alpha","price":5}`))
			w := httptest.NewRecorder()

			Convey("Then the pick should still be accepted", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].EventID, ShouldBeEmpty)
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/api/v1/picks", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandlePostPick(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestProjectionsHandler_HandlePutProjections(t *testing.T) {
	Convey("Given a projections handler", t, func() {
		deps := &mockService{}
		handler := api.NewProjectionsHandler(deps)

		Convey("When replacing the pool with valid rows", func() {
			body := `[
				{"player_id":"alpha","projected_value":60},
				{"player_id":"bravo","projected_value":50,"tier":"MID"}
			]`
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should replace the pool", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"replaced"`)
				So(w.Body.String(), ShouldContainSubstring, `"count":2`)

				So(deps.projections, ShouldHaveLength, 2)
				So(deps.projections[0].PlayerID, ShouldEqual, "alpha")
				So(deps.projections[1].Tier, ShouldEqual, model.TierMid)
			})
		})

		Convey("When the pool is empty", func() {
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(`[]`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a row is missing its player id", func() {
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(`[{"projected_value":10}]`))
			w := httptest.NewRecorder()

			Convey("Then it should name the offending row", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Message, ShouldContainSubstring, "entry 0")
			})
		})

		Convey("When a row carries an unknown tier", func() {
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(`[{"player_id":"alpha","projected_value":10,"tier":"BRONZE"}]`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body is not a JSON array", func() {
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(`{"player_id":"alpha"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service fails", func() {
			deps.projErr = fmt.Errorf("store sealed")
			req := httptest.NewRequest("PUT", "/api/v1/projections", strings.NewReader(`[{"player_id":"alpha","projected_value":10}]`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-PUT request", func() {
			req := httptest.NewRequest("POST", "/api/v1/projections", strings.NewReader(`[]`))
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandlePutProjections(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestDraftHandler_HandlePostDraft(t *testing.T) {
	Convey("Given a draft handler", t, func() {
		deps := &mockService{}
		handler := api.NewDraftHandler(deps)

		Convey("When configuring a draft", func() {
			body := `{"draft_id":"league-9","total_budget":2600,"total_slots":208}`
			req := httptest.NewRequest("POST", "/api/v1/draft", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should configure and echo the draft id", func() {
				handler.HandlePostDraft(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"draft_id":"league-9"`)

				So(deps.draftID, ShouldEqual, "league-9")
				So(deps.draftBudget, ShouldEqual, 2600.0)
				So(deps.draftSlots, ShouldEqual, 208)
			})
		})

		Convey("When the draft id is omitted", func() {
			body := `{"total_budget":1000,"total_slots":100}`
			req := httptest.NewRequest("POST", "/api/v1/draft", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then one should be generated", func() {
				handler.HandlePostDraft(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.draftID, ShouldNotBeEmpty)

				var response draftAck
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.DraftID, ShouldEqual, deps.draftID)
			})
		})

		Convey("When the budget is not positive", func() {
			req := httptest.NewRequest("POST", "/api/v1/draft", strings.NewReader(`{"total_budget":0,"total_slots":10}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostDraft(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the slots are not positive", func() {
			req := httptest.NewRequest("POST", "/api/v1/draft", strings.NewReader(`{"total_budget":100,"total_slots":-1}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostDraft(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service fails", func() {
			deps.draftErr = fmt.Errorf("draft rejected")
			req := httptest.NewRequest("POST", "/api/v1/draft", strings.NewReader(`{"total_budget":100,"total_slots":10}`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandlePostDraft(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestInflationHandler_HandleGetInflation(t *testing.T) {
	Convey("Given an inflation handler", t, func() {
		deps := &mockService{snapshot: sampleSnapshot(), hasSnapshot: true}
		handler := api.NewInflationHandler(deps)

		Convey("When a snapshot is available", func() {
			req := httptest.NewRequest("GET", "/api/v1/inflation", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the wire payload", func() {
				handler.HandleGetInflation(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var payload map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&payload)
				So(err, ShouldBeNil)
				So(payload["draft_id"], ShouldEqual, "main")
				So(payload["seq"], ShouldEqual, 5)
				So(payload["overall_inflation"], ShouldAlmostEqual, 0.2727, 0.0001)

				byTier, ok := payload["tier_inflation"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(byTier["ELITE"], ShouldAlmostEqual, 0.25, 0.0001)

				depletion, ok := payload["budget_depletion"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(depletion["multiplier"], ShouldAlmostEqual, 1.075, 0.0001)
			})
		})

		Convey("When no snapshot exists yet", func() {
			deps.hasSnapshot = false
			req := httptest.NewRequest("GET", "/api/v1/inflation", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return service unavailable", func() {
				handler.HandleGetInflation(w, req)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Kind, ShouldEqual, "not_ready")
			})
		})
	})
}

func TestStreamHandler_HandleStream(t *testing.T) {
	Convey("Given a stream handler", t, func() {
		deps := &mockService{snapshot: sampleSnapshot(), hasSnapshot: true}
		handler := api.NewStreamHandler(deps)

		Convey("When a subscriber receives one snapshot and the feed closes", func() {
			next := sampleSnapshot()
			next.Seq = 6
			deps.subCh = make(chan model.InflationSnapshot, 1)
			deps.subCh <- next
			close(deps.subCh)

			req := httptest.NewRequest("GET", "/api/v1/inflation/stream", nil)
			w := httptest.NewRecorder()

			Convey("Then it should replay the latest snapshot and stream the next", func() {
				handler.HandleStream(w, req)

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/event-stream")
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-cache")

				body := w.Body.String()
				So(body, ShouldContainSubstring, "id: 5\n")
				So(body, ShouldContainSubstring, "id: 6\n")
				So(body, ShouldContainSubstring, "event: snapshot")
				So(body, ShouldContainSubstring, `"draft_id":"main"`)
				So(w.Flushed, ShouldBeTrue)
				So(deps.subCanceled, ShouldBeTrue)
			})
		})

		Convey("When the client disconnects", func() {
			deps.subCh = make(chan model.InflationSnapshot)

			ctx, cancel := context.WithCancel(context.Background())
			req := httptest.NewRequest("GET", "/api/v1/inflation/stream", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			done := make(chan struct{})
			go func() {
				handler.HandleStream(w, req)
				close(done)
			}()

			cancel()

			Convey("Then the handler should return and unsubscribe", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("stream handler did not stop on client disconnect")
				}
				So(deps.subCanceled, ShouldBeTrue)
			})
		})

		Convey("When the connection cannot stream", func() {
			req := httptest.NewRequest("GET", "/api/v1/inflation/stream", nil)
			w := httptest.NewRecorder()
			plain := &noFlushWriter{ResponseWriter: w}

			Convey("Then it should refuse the request", func() {
				handler.HandleStream(plain, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "stream_unsupported")
			})
		})

		Convey("When handling a non-GET request", func() {
			req := httptest.NewRequest("POST", "/api/v1/inflation/stream", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleStream(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestDepletionHandler_HandleGetDepletion(t *testing.T) {
	Convey("Given a depletion handler", t, func() {
		deps := &mockService{
			depletion: model.BudgetDepletionResult{Multiplier: 1.125, Spent: 100, Remaining: 900, SlotsRemaining: 80},
			state:     model.DraftState{DraftID: "main", TotalBudget: 1000, SpentBudget: 100, TotalSlots: 100, SlotsFilled: 20},
		}
		handler := api.NewDepletionHandler(deps)

		Convey("When queried without parameters", func() {
			req := httptest.NewRequest("GET", "/api/v1/depletion", nil)
			w := httptest.NewRecorder()

			Convey("Then it should compute from the live draft state", func() {
				handler.HandleGetDepletion(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.depArgs, ShouldResemble, []float64{1000, 100, 80, 100})

				var payload map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&payload)
				So(err, ShouldBeNil)
				So(payload["multiplier"], ShouldAlmostEqual, 1.125, 0.0001)
				So(payload["remaining"], ShouldAlmostEqual, 900.0, 0.0001)
			})
		})

		Convey("When queried with explicit parameters", func() {
			req := httptest.NewRequest("GET", "/api/v1/depletion?total_budget=2600&spent_budget=600&slots_remaining=150&total_slots=208", nil)
			w := httptest.NewRecorder()

			Convey("Then it should compute the what-if form", func() {
				handler.HandleGetDepletion(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.depArgs, ShouldResemble, []float64{2600, 600, 150, 208})
			})
		})

		Convey("When only some parameters are given", func() {
			req := httptest.NewRequest("GET", "/api/v1/depletion?total_budget=2600", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleGetDepletion(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Message, ShouldContainSubstring, "missing spent_budget")
			})
		})

		Convey("When a parameter is not a number", func() {
			req := httptest.NewRequest("GET", "/api/v1/depletion?total_budget=lots&spent_budget=1&slots_remaining=2&total_slots=3", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleGetDepletion(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestBoardHandler_HandleGetBoard(t *testing.T) {
	Convey("Given a board handler", t, func() {
		deps := &mockService{
			board: []api.Entry{
				{Rank: 1, PlayerID: "alpha", ProjectedValue: 60, Tier: "ELITE"},
				{Rank: 2, PlayerID: "bravo", ProjectedValue: 50, Tier: "MID"},
				{Rank: 3, PlayerID: "charlie", ProjectedValue: 30, Tier: "MID"},
			},
		}
		handler := api.NewBoardHandler(deps, 100)

		Convey("When requesting the top of the board", func() {
			req := httptest.NewRequest("GET", "/api/v1/board?n=2", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the top entries", func() {
				handler.HandleGetBoard(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response []api.Entry
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(len(response), ShouldEqual, 2)
				So(response[0].PlayerID, ShouldEqual, "alpha")
				So(response[1].PlayerID, ShouldEqual, "bravo")
			})
		})

		Convey("When no n is specified", func() {
			req := httptest.NewRequest("GET", "/api/v1/board", nil)
			w := httptest.NewRecorder()

			handler.HandleGetBoard(w, req)

			Convey("Then it should return 400 Bad Request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When n exceeds the configured limit", func() {
			req := httptest.NewRequest("GET", "/api/v1/board?n=1000", nil)
			w := httptest.NewRecorder()

			Convey("Then it should refuse the request", func() {
				handler.HandleGetBoard(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Kind, ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the store reports an invalid limit", func() {
			deps.boardErr = repository.ErrInvalidLimit
			req := httptest.NewRequest("GET", "/api/v1/board?n=10", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleGetBoard(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the board returns an error", func() {
			deps.boardErr = fmt.Errorf("database error")
			req := httptest.NewRequest("GET", "/api/v1/board?n=10", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleGetBoard(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestRankHandler_HandleGetRank(t *testing.T) {
	Convey("Given a rank handler", t, func() {
		deps := &mockService{
			rankEntry: api.Entry{Rank: 5, PlayerID: "echo", ProjectedValue: 10, Tier: "LOWER"},
		}
		handler := api.NewRankHandler(deps)

		Convey("When requesting rank for a known player", func() {
			req := httptest.NewRequest("GET", "/api/v1/players/echo/rank", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the rank information", func() {
				handler.HandleGetRank(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var response api.Entry
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.PlayerID, ShouldEqual, "echo")
				So(response.Rank, ShouldEqual, 5)
				So(response.Tier, ShouldEqual, "LOWER")
			})
		})

		Convey("When requesting rank for an unknown player", func() {
			deps.rankErr = fmt.Errorf("rank: %w", repository.ErrNotFound)
			req := httptest.NewRequest("GET", "/api/v1/players/nobody/rank", nil)
			w := httptest.NewRecorder()

			handler.HandleGetRank(w, req)

			Convey("Then it should return not found status", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Error.Kind, ShouldEqual, "not_found")
			})
		})

		Convey("When the store returns another error", func() {
			deps.rankErr = fmt.Errorf("database error")
			req := httptest.NewRequest("GET", "/api/v1/players/echo/rank", nil)
			w := httptest.NewRecorder()

			handler.HandleGetRank(w, req)

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When the path has no player id", func() {
			req := httptest.NewRequest("GET", "/api/v1/players//rank", nil)
			w := httptest.NewRecorder()

			handler.HandleGetRank(w, req)

			Convey("Then it should return bad request status", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the path is missing the rank suffix", func() {
			req := httptest.NewRequest("GET", "/api/v1/players/echo", nil)
			w := httptest.NewRecorder()

			handler.HandleGetRank(w, req)

			Convey("Then it should return bad request status", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestReadyHandler_HandleReady(t *testing.T) {
	Convey("Given a readiness handler", t, func() {
		deps := &mockService{}
		handler := api.NewReadyHandler(deps)

		Convey("When the service is not started", func() {
			req := httptest.NewRequest("GET", "/readyz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return service unavailable", func() {
				handler.HandleReady(w, req)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the service is started", func() {
			deps.ready = true
			req := httptest.NewRequest("GET", "/readyz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleReady(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ready"`)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"purchases": 42,
				"poolSize":  150,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/api/v1/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["purchases"], ShouldEqual, 42)
				So(response["poolSize"], ShouldEqual, 150)
			})
		})
	})
}

// noFlushWriter hides the recorder's Flush method so the handler sees a
// connection that cannot stream.
type noFlushWriter struct {
	http.ResponseWriter
}

// Local types for testing
type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type draftAck struct {
	Status  string `json:"status"`
	DraftID string `json:"draft_id"`
}
