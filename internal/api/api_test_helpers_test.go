package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/logging"
	"github.com/terraincognita07/actiontracker/internal/metrics"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/services"
	"github.com/terraincognita07/actiontracker/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const testSecretKey = "test-secret-key-with-at-least-32-bytes!!"

type capturedTokens struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newCapturedTokens() *capturedTokens {
	return &capturedTokens{verification: map[string]string{}, reset: map[string]string{}}
}

func (tokens *capturedTokens) SendVerification(_ context.Context, user models.PublicUser, token string) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.verification[user.Email] = token
	return nil
}

func (tokens *capturedTokens) SendPasswordReset(_ context.Context, user models.PublicUser, token string) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.reset[user.Email] = token
	return nil
}

func (tokens *capturedTokens) verificationFor(t *testing.T, email string) string {
	t.Helper()
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	token, ok := tokens.verification[email]
	if !ok {
		t.Fatalf("expected verification token for %s", email)
	}
	return token
}

func (tokens *capturedTokens) resetFor(t *testing.T, email string) string {
	t.Helper()
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	token, ok := tokens.reset[email]
	if !ok {
		t.Fatalf("expected reset token for %s", email)
	}
	return token
}

type apiTestEnv struct {
	app      *fiber.App
	handler  *Handler
	memory   *store.Memory
	identity *services.IdentityService
	tokens   *capturedTokens
	metrics  *metrics.Registry
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	return newAPITestEnvWithLimits(t, 6000, 1000)
}

func newAPITestEnvWithLimits(t *testing.T, perMinute int, burst int) *apiTestEnv {
	t.Helper()

	memory := store.NewMemory()
	tokens := newCapturedTokens()
	registry := metrics.New()
	logger := logging.Discard()

	identity := services.NewIdentityService(
		memory.Users(),
		tokens,
		logger,
		services.WithPasswordCost(bcrypt.MinCost),
		services.WithEventRecorder(registry),
	)
	handler, err := NewHandler(Dependencies{
		Identity:          identity,
		Templates:         services.NewTemplateService(memory.Templates()),
		Trackers:          services.NewTrackerService(memory.Trackers()),
		Reports:           services.NewReportService(memory.Trackers(), memory.Templates()),
		SecretKey:         testSecretKey,
		Logger:            logger,
		Metrics:           registry,
		AuthRatePerMinute: perMinute,
		AuthRateBurst:     burst,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	return &apiTestEnv{
		app:      NewApp(handler),
		handler:  handler,
		memory:   memory,
		identity: identity,
		tokens:   tokens,
		metrics:  registry,
	}
}

func (env *apiTestEnv) do(t *testing.T, method string, path string, body any, session string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		request.Header.Set("Authorization", "Bearer "+session)
	}

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return response
}

func decodeBody(t *testing.T, response *http.Response, target any) {
	t.Helper()
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func expectStatus(t *testing.T, response *http.Response, status int) {
	t.Helper()
	if response.StatusCode != status {
		payload, _ := io.ReadAll(response.Body)
		response.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", status, response.StatusCode, string(payload))
	}
}

func expectError(t *testing.T, response *http.Response, status int, message string) {
	t.Helper()
	expectStatus(t, response, status)
	body := map[string]any{}
	decodeBody(t, response, &body)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %#v", message, body["error"])
	}
}

func (env *apiTestEnv) registerVerified(t *testing.T, username string, email string, password string, role models.Role, centerID *string) models.PublicUser {
	t.Helper()

	user, err := env.identity.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		CenterID: centerID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if err := env.identity.VerifyEmail(context.Background(), env.tokens.verificationFor(t, email)); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	if role != models.DefaultRole {
		if _, err := env.identity.AssignRole(context.Background(), email, role); err != nil {
			t.Fatalf("assign role %s: %v", role, err)
		}
	}
	public, err := env.identity.FindUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find user %s: %v", email, err)
	}
	return public
}

func (env *apiTestEnv) login(t *testing.T, email string, password string) string {
	t.Helper()

	response := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	expectStatus(t, response, http.StatusOK)

	body := struct {
		Token string `json:"token"`
	}{}
	decodeBody(t, response, &body)
	if body.Token == "" {
		t.Fatalf("expected session token in login response")
	}
	return body.Token
}

func stringPointer(value string) *string {
	return &value
}
