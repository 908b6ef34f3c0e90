package api

import (
	"net/http"
	"testing"
	"time"
)

func TestAuthRequiredRejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestAPI(t, testAPIOptions{authEnabled: true})

	expired, err := IssueToken(testSecret, "owner", time.Hour, env.now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}
	foreign, err := IssueToken("another-secret-another-secret-xx", "owner", time.Hour, env.now)
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Basic b3duZXI6c2VjcmV0"},
		{name: "garbage", header: "Bearer not-a-token"},
		{name: "expired", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + foreign},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			response := env.do(t, http.MethodGet, "/api/foods", nil, headers)
			expectStatus(t, response, http.StatusUnauthorized)
			if message := readAPIError(t, response); message != "Unauthorized" {
				t.Fatalf("unexpected message %q", message)
			}
		})
	}
}

func TestAuthRequiredAcceptsIssuedToken(t *testing.T) {
	env := newTestAPI(t, testAPIOptions{authEnabled: true})

	token, err := IssueToken(testSecret, "", 0, env.now)
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}

	response := env.do(t, http.MethodGet, "/api/foods", nil, map[string]string{"Authorization": "Bearer " + token})
	expectStatus(t, response, http.StatusOK)
}

func TestHealthIsPublicWithAuthEnabled(t *testing.T) {
	env := newTestAPI(t, testAPIOptions{authEnabled: true})
	expectStatus(t, env.do(t, http.MethodGet, "/healthz", nil, nil), http.StatusOK)
}

func TestNewHandlerRequiresSecretWhenAuthEnabled(t *testing.T) {
	env := newTestAPI(t, testAPIOptions{})
	_, err := NewHandler(HandlerOptions{
		Store:       env.handler.store,
		I18n:        env.handler.i18n,
		AuthEnabled: true,
	})
	if err == nil {
		t.Fatal("expected an error without a secret key")
	}
}

func TestAuthRequiredThrottlesRepeatedFailures(t *testing.T) {
	env := newTestAPI(t, testAPIOptions{authEnabled: true})
	bad := map[string]string{"Authorization": "Bearer nope"}

	for attempt := 0; attempt < authFailureLimit; attempt++ {
		expectStatus(t, env.do(t, http.MethodGet, "/api/foods", nil, bad), http.StatusUnauthorized)
	}

	token, err := IssueToken(testSecret, "owner", time.Hour, env.now)
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}
	blocked := env.do(t, http.MethodGet, "/api/foods", nil, map[string]string{"Authorization": "Bearer " + token})
	expectStatus(t, blocked, http.StatusTooManyRequests)
	if message := readAPIError(t, blocked); message != "Too many failed attempts, try again later" {
		t.Fatalf("unexpected message %q", message)
	}
}
