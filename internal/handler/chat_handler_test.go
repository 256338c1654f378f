package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"pos-service/pkg/config"
	"pos-service/pkg/llm"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		question string
		want     string
	}{
		{"What was my revenue last week?", intentRevenue},
		{"how are SALES going", intentRevenue},
		{"show me my income", intentRevenue},
		{"what are my top products", intentTopProducts},
		{"Top 3 Products this month?", intentTopProducts},
		{"what is the weather today", intentUnknown},
		{"", intentUnknown},
		// "product" alone is not enough without "top"
		{"list my products", intentUnknown},
	}
	for _, tc := range cases {
		if got := detectIntent(tc.question); got != tc.want {
			t.Errorf("detectIntent(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}

// chatStubs wires the chat handler against local analytics and LLM
// servers and returns their request counters.
func chatStubs(t *testing.T, analyticsHandler http.HandlerFunc) (*int64, *int64) {
	t.Helper()

	var analyticsCalls, llmCalls int64

	analytics := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&analyticsCalls, 1)
		analyticsHandler(w, r)
	}))
	t.Cleanup(analytics.Close)

	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&llmCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Your shop earned 27000 IDR this week!"}},
			},
		})
	}))
	t.Cleanup(llmServer.Close)

	cfg := &config.Config{}
	cfg.Analytics.BaseURL = analytics.URL
	cfg.Analytics.Timeout = 5 * time.Second
	InitChat(cfg, &llm.Client{
		BaseURL:    llmServer.URL,
		Model:      "gpt-4o-mini",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     zap.NewNop(),
	})
	return &analyticsCalls, &llmCalls
}

func TestAskUnknownIntentMakesNoOutboundCalls(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	analyticsCalls, llmCalls := chatStubs(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	c, rec := request(http.MethodPost, "/api/chat", `{"question":"what is the weather"}`, owner)
	if err := Ask(c); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown intent, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "couldn't understand") {
		t.Fatalf("expected guidance message, got %s", rec.Body.String())
	}
	if *analyticsCalls != 0 || *llmCalls != 0 {
		t.Fatalf("unknown intent must not call upstreams, got analytics=%d llm=%d", *analyticsCalls, *llmCalls)
	}
}

func TestAskRevenueFlow(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	var gotPath, gotAuth string
	analyticsCalls, llmCalls := chatStubs(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(RevenueResponse{Total: 27000, Currency: "IDR"})
	})

	c, rec := request(http.MethodPost, "/api/chat", `{"question":"how much revenue did I make?"}`, owner)
	c.Set("bearer_token", "caller-token")
	if err := Ask(c); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Your shop earned 27000 IDR this week!" {
		t.Fatalf("expected the LLM answer, got %q", resp.Answer)
	}
	if resp.Data == nil {
		t.Fatalf("expected the raw analytics data alongside the answer")
	}
	if gotPath != "/api/analytics/revenue" {
		t.Fatalf("expected revenue endpoint, got %s", gotPath)
	}
	if gotAuth != "Bearer caller-token" {
		t.Fatalf("analytics call must carry the caller's token, got %q", gotAuth)
	}
	if *analyticsCalls != 1 || *llmCalls != 1 {
		t.Fatalf("expected one call to each upstream, got analytics=%d llm=%d", *analyticsCalls, *llmCalls)
	}
}

func TestAskTopProductsFlow(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	var gotPath, gotTake string
	chatStubs(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTake = r.URL.Query().Get("take")
		json.NewEncoder(w).Encode([]TopProductResponse{
			{ProductID: 1, Name: "Bakso", QuantitySold: 3, Revenue: 30000},
		})
	})

	c, rec := request(http.MethodPost, "/api/chat", `{"question":"top products this week","take":3}`, owner)
	if err := Ask(c); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotPath != "/api/analytics/top-products" {
		t.Fatalf("expected top-products endpoint, got %s", gotPath)
	}
	if gotTake != "3" {
		t.Fatalf("expected take=3 forwarded, got %q", gotTake)
	}
}

func TestAskAnalyticsFailureIsBadGateway(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	_, llmCalls := chatStubs(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c, rec := request(http.MethodPost, "/api/chat", `{"question":"revenue please"}`, owner)
	if err := Ask(c); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on analytics failure, got %d", rec.Code)
	}
	if *llmCalls != 0 {
		t.Fatalf("LLM must not be called when analytics fails, got %d", *llmCalls)
	}
}

func TestAskLLMFailureIsBadGateway(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db, "owner@example.com")

	analytics := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RevenueResponse{Total: 1000, Currency: "IDR"})
	}))
	t.Cleanup(analytics.Close)
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(llmServer.Close)

	cfg := &config.Config{}
	cfg.Analytics.BaseURL = analytics.URL
	cfg.Analytics.Timeout = 5 * time.Second
	InitChat(cfg, &llm.Client{
		BaseURL:    llmServer.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     zap.NewNop(),
	})

	c, rec := request(http.MethodPost, "/api/chat", `{"question":"revenue please"}`, owner)
	if err := Ask(c); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on LLM failure, got %d", rec.Code)
	}
}
