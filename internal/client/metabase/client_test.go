package metabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestQueryCardSendsFormEncodedParameters(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/card/42/query/json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = w.Write([]byte(`[{"CgePortfolio": 1}]`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "user", "pass", "/api/public/card/{card_id}/query/json")
	rows, err := c.QueryCard(context.Background(), 42, DateFilter("DtCarteira", "2024-05-31"))
	if err != nil {
		t.Fatalf("QueryCard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !strings.HasPrefix(gotContentType, "application/x-www-form-urlencoded") {
		t.Fatalf("content type: %s", gotContentType)
	}

	form, err := url.ParseQuery(gotBody)
	if err != nil {
		t.Fatalf("body is not form encoded: %v", err)
	}
	var filters []Filter
	if err := json.Unmarshal([]byte(form.Get("parameters")), &filters); err != nil {
		t.Fatalf("parameters is not a filter array: %v", err)
	}
	if len(filters) != 1 || filters[0].Type != "date/single" || filters[0].Value != "2024-05-31" {
		t.Fatalf("unexpected filters: %+v", filters)
	}
	if filters[0].ID != dateParamID {
		t.Fatalf("private date filter must carry the saved parameter id, got %q", filters[0].ID)
	}
}

func TestQueryPublicCardEncodesParametersInQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/public/card/9/query/json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var filters []Filter
		if err := json.Unmarshal([]byte(r.URL.Query().Get("parameters")), &filters); err != nil {
			t.Fatalf("parameters query param: %v", err)
		}
		if len(filters) != 2 {
			t.Fatalf("expected 2 filters, got %d", len(filters))
		}
		if filters[0].ID != "" {
			t.Fatalf("public filters must not carry the private parameter id")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "user", "pass", "/api/public/card/{card_id}/query/json")
	_, err := c.QueryPublicCard(context.Background(), 9,
		DateFilter("Data", "2024-05-31"),
		NumberFilter("CGE", "123"))
	if err != nil {
		t.Fatalf("QueryPublicCard: %v", err)
	}
}

func TestExpiredSessionTriggersSingleReloginAndRetry(t *testing.T) {
	var logins, cardCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session":
			logins++
			var creds map[string]string
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds["username"] != "user" || creds["password"] != "pass" {
				t.Fatalf("unexpected credentials: %v", creds)
			}
			http.SetCookie(w, &http.Cookie{Name: "metabase.SESSION", Value: "fresh"})
			_, _ = w.Write([]byte(`{"id":"fresh"}`))
		case "/api/card/7/query/json":
			cardCalls++
			if cookie, err := r.Cookie("metabase.SESSION"); err != nil || cookie.Value != "fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[{"CgePortfolio": 5}]`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "user", "pass", "/api/public/card/{card_id}/query/json")
	rows, err := c.QueryCard(context.Background(), 7, DateFilter("DtCarteira", "2024-05-31"))
	if err != nil {
		t.Fatalf("QueryCard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if logins != 1 {
		t.Fatalf("expected exactly one re-login, got %d", logins)
	}
	if cardCalls != 2 {
		t.Fatalf("expected exactly one retry, got %d card calls", cardCalls)
	}
}

func TestPersistent401FailsAfterOneRetry(t *testing.T) {
	var cardCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session":
			_, _ = w.Write([]byte(`{"id":"x"}`))
		default:
			cardCalls++
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "user", "pass", "/api/public/card/{card_id}/query/json")
	_, err := c.QueryCard(context.Background(), 7)
	if err == nil {
		t.Fatalf("expected error on persistent 401")
	}
	if cardCalls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", cardCalls)
	}
}

func TestDecodeRowsEmptyBody(t *testing.T) {
	rows, err := decodeRows([]byte("null"))
	if err != nil || rows != nil {
		t.Fatalf("null body must decode to no rows, got %v %v", rows, err)
	}
	if _, err := decodeRows([]byte(`{"error":"bad card"}`)); err == nil {
		t.Fatalf("object body must fail decoding")
	}
}
