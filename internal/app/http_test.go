package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(fs *fakeStore) (*httptest.Server, *Service) {
	svc := newTestService(fs)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	return server, svc
}

func authedRequest(t *testing.T, method, url, token string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(newFakeStore())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("payload = %v", payload)
	}
}

func TestProposalsRequireSession(t *testing.T) {
	server, _ := newTestServer(newFakeStore())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/proposals")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSubmitAndListOverHTTP(t *testing.T) {
	fs := newFakeStore()
	server, svc := newTestServer(fs)
	defer server.Close()

	session, err := svc.SignUp(context.Background(), "lee@mayker.com", "hunter2hunter2", "Lee")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	submission := map[string]any{
		"clientName":   "Acme Corp",
		"venueName":    "The Foundry",
		"status":       "Pending",
		"sectionsJSON": `[{"name":"Lounge","products":[{"name":"Velvet Sofa","quantity":2}]}]`,
	}
	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/api/proposals", session.Token, submission))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d", resp.StatusCode)
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.ClientName != "Acme Corp" || result.ProjectNumber != "0001" {
		t.Fatalf("result = %+v", result)
	}

	listResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/api/proposals", session.Token, nil))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", listResp.StatusCode)
	}

	var payload struct {
		Proposals []ProposalView `json:"proposals"`
		Catalog   []any          `json:"catalog"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(payload.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(payload.Proposals))
	}
	if payload.Proposals[0].ClientName != "Acme Corp" {
		t.Fatalf("client name = %q", payload.Proposals[0].ClientName)
	}
}

func TestSubmitFailureShape(t *testing.T) {
	fs := newFakeStore()
	server, svc := newTestServer(fs)
	defer server.Close()

	session, err := svc.SignUp(context.Background(), "lee@mayker.com", "hunter2hunter2", "Lee")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/api/proposals", session.Token, map[string]any{
		"clientName":   "Acme Corp",
		"sectionsJSON": "{broken",
	}))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Success {
		t.Fatal("expected success=false")
	}
	if payload.Error == "" {
		t.Fatal("failure response must carry an error message")
	}
}

func TestSessionRoutesOverHTTP(t *testing.T) {
	server, _ := newTestServer(newFakeStore())
	defer server.Close()

	resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/api/session/signup", "", map[string]any{
		"email":       "lee@mayker.com",
		"password":    "hunter2hunter2",
		"displayName": "Lee",
	}))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}

	var created map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	token, _ := created["token"].(string)
	if token == "" {
		t.Fatal("signup must return a token")
	}

	whoResp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/api/session", token, nil))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer whoResp.Body.Close()

	var who map[string]any
	if err := json.NewDecoder(whoResp.Body).Decode(&who); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if who["authenticated"] != true || who["userName"] != "Lee" {
		t.Fatalf("session payload = %v", who)
	}
}
