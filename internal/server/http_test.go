package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accountrepo "hybrid-session-hub/internal/account/repository"
	accountservice "hybrid-session-hub/internal/account/service"
	"hybrid-session-hub/internal/audit"
	auditrepo "hybrid-session-hub/internal/audit/repository"
	"hybrid-session-hub/internal/device"
	devicerepo "hybrid-session-hub/internal/device/repository"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/security"
	"hybrid-session-hub/internal/session/ledger"
	sessionrepo "hybrid-session-hub/internal/session/repository"
	"hybrid-session-hub/internal/zalotoken"
	zalorepo "hybrid-session-hub/internal/zalotoken/repository"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	accounts := accountrepo.NewMemoryRepository()
	devices := devicerepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()

	registry := device.NewRegistry(devices)
	l := ledger.New(accounts, devices, sessions)
	tokens := security.NewTokenProvider([]byte("test-secret"), "session-hub", 15*time.Minute, 24*time.Hour)
	auditLogger := audit.NewLogger(auditrepo.NewMemoryRepository())
	coordinator := ownership.NewCoordinator(registry, l, tokens, auditLogger)
	authSvc := accountservice.NewAuthService(accounts, coordinator, security.NewHasher(4))
	vault := zalotoken.NewVault(zalorepo.NewMemoryRepository(), nil)

	srv := httptest.NewServer(NewRouter(Deps{
		Auth:        authSvc,
		Coordinator: coordinator,
		Registry:    registry,
		Ledger:      l,
		Vault:       vault,
		Audit:       auditLogger,
		Tokens:      tokens,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	return doJSON(t, http.MethodPost, url, token, body)
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func registerAccount(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", username, resp.StatusCode, body)
	}
	return body["id"].(string)
}

func registerDevice(t *testing.T, srv *httptest.Server, fingerprint string) string {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/v1/devices", "", map[string]string{
		"fingerprint": fingerprint,
		"brand":       "Google",
		"model":       "Pixel 9",
		"platform":    "android",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register device: status %d body %v", resp.StatusCode, body)
	}
	return body["id"].(string)
}

func login(t *testing.T, srv *httptest.Server, username, deviceID string) map[string]interface{} {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/v1/auth/login", "", map[string]string{
		"username":  username,
		"password":  "s3cret-pass",
		"device_id": deviceID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d body %v", username, resp.StatusCode, body)
	}
	return body
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)
	aliceID := registerAccount(t, srv, "alice")
	deviceID := registerDevice(t, srv, "fp-1")

	res := login(t, srv, "alice", deviceID)
	if res["account_id"] != aliceID || res["device_id"] != deviceID {
		t.Errorf("login result = %v", res)
	}
	if res["access_token"] == "" || res["refresh_token"] == "" {
		t.Error("login result missing tokens")
	}

	// Device owner pointer now set.
	resp, dev := doJSON(t, http.MethodGet, srv.URL+"/v1/devices/"+deviceID, res["access_token"].(string), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get device: %d", resp.StatusCode)
	}
	if dev["owner_account_id"] != aliceID {
		t.Errorf("owner = %v, want %s", dev["owner_account_id"], aliceID)
	}
}

func TestLoginRequiresKnownDevice(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice")
	resp, _ := postJSON(t, srv.URL+"/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "s3cret-pass", "device_id": "ghost",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProtectedEndpointRejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/a/sessions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHybridModeBothAccountsActive(t *testing.T) {
	srv := newTestServer(t)
	aliceID := registerAccount(t, srv, "alice")
	bobID := registerAccount(t, srv, "bob")
	deviceID := registerDevice(t, srv, "fp-1")

	login(t, srv, "alice", deviceID)
	bobRes := login(t, srv, "bob", deviceID)
	token := bobRes["access_token"].(string)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/devices/"+deviceID+"/sessions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list sessions: %d", resp.StatusCode)
	}
	sessions := body["sessions"].([]interface{})
	active := map[string]bool{}
	for _, s := range sessions {
		m := s.(map[string]interface{})
		if m["active"].(bool) {
			active[m["account_id"].(string)] = true
		}
	}
	if !active[aliceID] || !active[bobID] {
		t.Errorf("active accounts = %v, want both %s and %s", active, aliceID, bobID)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/v1/devices/"+deviceID+"/accounts", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("device accounts: %d", resp.StatusCode)
	}
	if ids := body["account_ids"].([]interface{}); len(ids) != 2 {
		t.Errorf("account_ids = %v, want 2 entries", ids)
	}
}

func TestSwitchClosesFromAccountSessions(t *testing.T) {
	srv := newTestServer(t)
	aliceID := registerAccount(t, srv, "alice")
	bobID := registerAccount(t, srv, "bob")
	deviceID := registerDevice(t, srv, "fp-1")

	aliceRes := login(t, srv, "alice", deviceID)
	token := aliceRes["access_token"].(string)

	resp, res := postJSON(t, srv.URL+"/v1/devices/"+deviceID+"/switch", token, map[string]string{
		"from_account_id": aliceID,
		"to_account_id":   bobID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("switch: %d %v", resp.StatusCode, res)
	}
	if res["account_id"] != bobID {
		t.Errorf("switched to %v, want %s", res["account_id"], bobID)
	}
	if res["previous_owner_id"] != aliceID {
		t.Errorf("previous_owner_id = %v, want %s", res["previous_owner_id"], aliceID)
	}

	// Alice has no active session left on the device.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/"+aliceID+"/sessions/active", res["access_token"].(string), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("alice active session: %d %v, want 404", resp.StatusCode, body)
	}
}

func TestLogoutClosesActiveSession(t *testing.T) {
	srv := newTestServer(t)
	registerAccount(t, srv, "alice")
	deviceID := registerDevice(t, srv, "fp-1")
	res := login(t, srv, "alice", deviceID)
	token := res["access_token"].(string)

	resp, body := postJSON(t, srv.URL+"/v1/sessions/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d %v", resp.StatusCode, body)
	}
	if body["active"] != false {
		t.Errorf("logout body = %v", body)
	}

	resp, _ = postJSON(t, srv.URL+"/v1/sessions/logout", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second logout: %d, want 404", resp.StatusCode)
	}
}

func TestZaloTokenEndpoints(t *testing.T) {
	srv := newTestServer(t)
	aliceID := registerAccount(t, srv, "alice")
	deviceID := registerDevice(t, srv, "fp-1")
	res := login(t, srv, "alice", deviceID)
	token := res["access_token"].(string)
	base := srv.URL + "/v1/accounts/" + aliceID + "/zalo-token"

	resp, body := doJSON(t, http.MethodPut, base, token, map[string]interface{}{
		"access_token":       "za-1",
		"refresh_token":      "zr-1",
		"expires_in_seconds": 3600,
		"profile":            map[string]string{"id": "z-1", "name": "Alice"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save: %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/valid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid: %d %v", resp.StatusCode, body)
	}
	if body["access_token"] != "za-1" {
		t.Errorf("valid token = %v", body["access_token"])
	}

	resp, _ = postJSON(t, base+"/revoke", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, base+"/valid", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("valid after revoke: %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, base, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("purge: %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, base, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after purge: %d, want 404", resp.StatusCode)
	}
}

func TestAuditTrailRecordsTransitions(t *testing.T) {
	srv := newTestServer(t)
	aliceID := registerAccount(t, srv, "alice")
	deviceID := registerDevice(t, srv, "fp-1")
	res := login(t, srv, "alice", deviceID)
	token := res["access_token"].(string)

	if resp, _ := postJSON(t, srv.URL+"/v1/sessions/logout", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/"+aliceID+"/audit", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit: %d", resp.StatusCode)
	}
	entries := body["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want login + logout", len(entries))
	}
	first := entries[0].(map[string]interface{})
	if first["action"] != "logout" {
		t.Errorf("newest action = %v, want logout", first["action"])
	}
}
