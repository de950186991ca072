package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRequiresURLAndKey(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if _, err := New(Config{URL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing APIKey")
	}
}

func TestExecuteBuildsQuery(t *testing.T) {
	var gotPath, gotQuery string
	var gotAPIKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.From("DatasUser").
		Select("*").
		ILike("email", "Alice@Example.com").
		Limit(1).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if gotPath != "/rest/v1/DatasUser" {
		t.Errorf("path = %q, want /rest/v1/DatasUser", gotPath)
	}
	if gotQuery != "email=ilike.Alice%40Example.com&limit=1&select=%2A" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("apikey header = %q", gotAPIKey)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization header = %q", gotAuth)
	}

	var rows []map[string]string
	if err := resp.JSON(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExecuteInsertRequestsRepresentation(t *testing.T) {
	var gotMethod, gotPrefer string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"42","name":"Bob"}]`))
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.From("DatasUser").ExecuteInsert(context.Background(), map[string]string{"name": "Bob"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if gotBody["name"] != "Bob" {
		t.Errorf("body = %v", gotBody)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestExecuteUpdateSendsPatchWithFilters(t *testing.T) {
	var gotMethod, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":"7","sugar":"120"}]`))
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.From("DatasUser").Eq("id", "7").ExecuteUpdate(context.Background(), map[string]string{"sugar": "120"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
	if gotQuery != "id=eq.7" {
		t.Errorf("query = %q, want id=eq.7", gotQuery)
	}
}

func TestResponseErrorPassesMessageThrough(t *testing.T) {
	resp := &Response{
		StatusCode: http.StatusConflict,
		Body:       []byte(`{"message":"duplicate key value violates unique constraint"}`),
	}

	err := resp.Error()
	if err == nil {
		t.Fatal("expected error")
	}
	want := "supabase error: duplicate key value violates unique constraint"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T, want *RemoteError", err)
	}
	if remote.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", remote.StatusCode)
	}
}

func TestResponseErrorNilOnSuccess(t *testing.T) {
	resp := &Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}
	if err := resp.Error(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
