package devotional

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/encontrocomfe/backend/internal/repo/redis"
)

func fixedDay() time.Time {
	return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
}

func TestTodayFetchesTranslatesAndCaches(t *testing.T) {
	var translateCalls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"verse":{"details":{"text":"Trust in the Lord. He cares for you.","reference":"Psalm 37:5","version":"NIV"}}}`)
	}))
	defer upstream.Close()

	translator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		translateCalls++
		q := r.URL.Query().Get("q")
		fmt.Fprintf(w, `{"responseData":{"translatedText":"PT(%s)"}}`, q)
	}))
	defer translator.Close()

	mr := miniredis.RunT(t)
	cache := redrepo.NewDevotionalRepo(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	svc := NewService(Dependencies{Cache: cache}, Config{
		BaseURL:      upstream.URL,
		TranslateURL: translator.URL,
	})
	svc.now = fixedDay

	d, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if d.Reference != "Psalm 37:5" || d.Source != "ourmanna" {
		t.Fatalf("unexpected devotional: %+v", d)
	}
	if translateCalls != 2 {
		t.Fatalf("translator calls = %d, want one per sentence", translateCalls)
	}
	if !strings.Contains(d.Text, "PT(Trust in the Lord.)") {
		t.Fatalf("text not translated sentence by sentence: %q", d.Text)
	}
	if d.Date != "2025-03-10" {
		t.Fatalf("date = %q", d.Date)
	}

	// Second call must come from the cache.
	d2, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today (cached): %v", err)
	}
	if translateCalls != 2 {
		t.Fatalf("cached read still hit the translator (%d calls)", translateCalls)
	}
	if d2.Text != d.Text {
		t.Fatalf("cached text diverges: %q vs %q", d2.Text, d.Text)
	}
}

func TestTodayFallsBackWhenUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	svc := NewService(Dependencies{}, Config{BaseURL: upstream.URL, TranslateURL: upstream.URL})
	svc.now = fixedDay

	d, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today should never fail outright: %v", err)
	}
	if d.Source != "builtin" || d.Reference == "" || d.Text == "" {
		t.Fatalf("expected builtin fallback verse, got %+v", d)
	}

	// Same day, same fallback verse.
	again, _ := svc.Today(context.Background())
	if again.Reference != d.Reference {
		t.Fatalf("fallback not stable within a day: %q vs %q", again.Reference, d.Reference)
	}
}

func TestTodayFallsBackWhenTranslatorFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"verse":{"details":{"text":"Be strong.","reference":"Joshua 1:9","version":"NIV"}}}`)
	}))
	defer upstream.Close()

	translator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{}`)
	}))
	defer translator.Close()

	svc := NewService(Dependencies{}, Config{BaseURL: upstream.URL, TranslateURL: translator.URL})
	svc.now = fixedDay

	d, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if d.Source != "builtin" {
		t.Fatalf("expected fallback when translation fails, got source %q", d.Source)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	if len(got) != 4 || got[3] != "Four" {
		t.Fatalf("splitSentences = %v", got)
	}
	if got := splitSentences("no terminator"); len(got) != 1 {
		t.Fatalf("single fragment should survive, got %v", got)
	}
}
