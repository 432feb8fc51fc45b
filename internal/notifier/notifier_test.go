package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
)

func TestSendWithRetry_RecoversAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["chat_id"] != "42" {
			t.Errorf("unexpected chat id %q", payload["chat_id"])
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "", logging.Discard())
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond

	if err := tn.Notify(context.Background(), "hola"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "", logging.Discard())
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond

	if err := tn.SendWithRetry(context.Background(), "hola", 2); err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	run := &model.RunSummary{
		Locality:          "Tijuana",
		StartedAt:         start,
		FinishedAt:        start.Add(3 * time.Minute),
		DaysRequested:     15,
		DaysCollected:     14,
		DaysSkipped:       1,
		EntitiesSeen:      3,
		EntitiesPublished: 2,
		EntitiesDropped:   1,
		RemotePath:        model.RemoteFallback,
		RecordsAttempted:  120,
		RecordsFailed:     2,
	}
	batch := []*model.ReconciledEntity{
		{Name: "Hotel <Caro>", AveragePrice: 2500, LowPrice: 2400, HighPrice: 2600, ObservedNights: 14},
		{Name: "Hotel Barato", AveragePrice: 800, LowPrice: 750, HighPrice: 850, ObservedNights: 14},
	}
	msg := FormatRunSummary(run, batch)

	for _, want := range []string{"Tijuana", "14/15", "(2/120 registros fallidos)", "Hotel &lt;Caro&gt;", "Duración: 3m0s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}
	if strings.Index(msg, "Hotel Barato") > strings.Index(msg, "Hotel &lt;Caro&gt;") {
		t.Error("cheapest property should be listed first")
	}
}

func TestFormatRecentRuns(t *testing.T) {
	if got := FormatRecentRuns(nil); !strings.Contains(got, "Sin ejecuciones") {
		t.Errorf("unexpected empty output: %s", got)
	}
	out := FormatRecentRuns([]model.RunSummary{{Trigger: model.TriggerSchedule, EntitiesPublished: 9, RemotePath: model.RemoteBulk}})
	if !strings.Contains(out, "SCHEDULE: 9 hoteles, bulk, ok") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	if err := n.Notify(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}
