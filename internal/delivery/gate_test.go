package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/millionvolts/adgather/internal/model"
)

func TestDeliverPostsPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGate(srv.URL, Meta{User: "u1", Geo: "EU", Sign: "s1"})
	round := &model.RoundResult{
		Range:  model.DateRange{Since: "2026-08-30", Until: "2026-08-30"},
		Blocks: []model.AccountBlock{{AccountNum: "100"}},
	}

	if err := g.Deliver(context.Background(), round); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if round.Tag == "" {
		t.Error("tag should be assigned")
	}
	if !g.Acked(round.Tag) {
		t.Error("accepted payload should be acknowledged")
	}
	if got.User != "u1" || got.Geo != "EU" || got.Sign != "s1" {
		t.Errorf("meta = %q/%q/%q", got.User, got.Geo, got.Sign)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].AccountNum != "100" {
		t.Errorf("blocks = %+v", got.Blocks)
	}
	if got.TSClient == "" {
		t.Error("ts_client missing")
	}
	if got.BillingMode != 0 || got.BillingStage != "" {
		t.Errorf("non-init round carried init fields: %d/%q", got.BillingMode, got.BillingStage)
	}
}

func TestDeliverInitCarriesBaselines(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	g := NewGate(srv.URL, Meta{})
	round := &model.RoundResult{
		Init: true,
		Baseline: []model.BaselineEntry{
			{AccountID: "100", CampaignID: "c1"},
		},
	}

	if err := g.Deliver(context.Background(), round); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if got.BillingMode != 1 || got.BillingStage != "init" {
		t.Errorf("init markers = %d/%q", got.BillingMode, got.BillingStage)
	}
	if len(got.BaselineBlocks) != 1 {
		t.Errorf("baseline blocks = %d, want 1", len(got.BaselineBlocks))
	}
}

func TestDeliverAtMostOncePerTag(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := NewGate(srv.URL, Meta{})
	round := &model.RoundResult{Tag: "fixed-tag"}

	if err := g.Deliver(context.Background(), round); err != nil {
		t.Fatalf("first Deliver: %v", err)
	}
	err := g.Deliver(context.Background(), round)
	if !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("second Deliver err = %v, want ErrAlreadyDelivered", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestDeliverFailedAttemptStillConsumesTag(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGate(srv.URL, Meta{})
	round := &model.RoundResult{Tag: "t1"}

	if err := g.Deliver(context.Background(), round); err == nil {
		t.Fatal("want error on 502")
	}
	if g.Acked("t1") {
		t.Error("failed delivery must not be acknowledged")
	}
	if err := g.Deliver(context.Background(), round); !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("retry err = %v, want ErrAlreadyDelivered", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestDeliverFreshTagsAreIndependent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := NewGate(srv.URL, Meta{})

	for i := 0; i < 3; i++ {
		round := &model.RoundResult{}
		if err := g.Deliver(context.Background(), round); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
}
