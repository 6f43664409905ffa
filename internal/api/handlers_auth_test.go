package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/terraincognita07/actiontracker/internal/models"
)

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newAPITestEnv(t)

	response := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "amy",
		"email":    "Amy@Example.com",
		"password": "StrongPass1",
		"role":     "cos",
	}, "")
	expectStatus(t, response, http.StatusCreated)
	registered := struct {
		User map[string]any `json:"user"`
	}{}
	decodeBody(t, response, &registered)
	if registered.User["email"] != "amy@example.com" {
		t.Fatalf("expected normalized email, got %#v", registered.User["email"])
	}
	if registered.User["role"] != "cos" {
		t.Fatalf("expected cos role, got %#v", registered.User["role"])
	}
	if _, leaked := registered.User["password_hash"]; leaked {
		t.Fatalf("expected password hash to stay private")
	}

	loginBody := map[string]string{"email": "amy@example.com", "password": "StrongPass1"}
	expectError(t, env.do(t, http.MethodPost, "/api/auth/login", loginBody, ""), http.StatusForbidden, "email not verified")

	token := env.tokens.verificationFor(t, "amy@example.com")
	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/verify-email?token="+token, nil, ""), http.StatusOK)
	expectError(t, env.do(t, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": token}, ""), http.StatusBadRequest, "invalid verification token")

	response = env.do(t, http.MethodPost, "/api/auth/login", loginBody, "")
	expectStatus(t, response, http.StatusOK)
	if !strings.Contains(response.Header.Get("Set-Cookie"), authCookieName+"=") {
		t.Fatalf("expected auth cookie in login response")
	}
	session := struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}{}
	decodeBody(t, response, &session)
	if session.User["email_verified"] != true {
		t.Fatalf("expected verified user in login response, got %#v", session.User)
	}

	response = env.do(t, http.MethodGet, "/api/auth/me", nil, session.Token)
	expectStatus(t, response, http.StatusOK)
	me := struct {
		User models.PublicUser `json:"user"`
	}{}
	decodeBody(t, response, &me)
	if me.User.Username != "amy" || me.User.LastLoginAt == nil {
		t.Fatalf("unexpected current user: %#v", me.User)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newAPITestEnv(t)

	cases := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{name: "missing username", body: map[string]any{"email": "a@example.com", "password": "StrongPass1"}, message: "invalid input"},
		{name: "bad email", body: map[string]any{"username": "a", "email": "not-an-email", "password": "StrongPass1"}, message: "invalid email"},
		{name: "weak password", body: map[string]any{"username": "a", "email": "a@example.com", "password": "short"}, message: "weak password"},
		{name: "unknown role", body: map[string]any{"username": "a", "email": "a@example.com", "password": "StrongPass1", "role": "wizard"}, message: "invalid role"},
		{name: "admin self-registration", body: map[string]any{"username": "a", "email": "a@example.com", "password": "StrongPass1", "role": "admin"}, message: "role not allowed"},
		{name: "head of niat self-registration", body: map[string]any{"username": "a", "email": "a@example.com", "password": "StrongPass1", "role": "head_of_niat"}, message: "role not allowed"},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			response := env.do(t, http.MethodPost, "/api/auth/register", testCase.body, "")
			expectError(t, response, http.StatusBadRequest, testCase.message)
		})
	}
}

func TestRegisterDuplicatesReturnConflict(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.RoleCOS, nil)

	duplicateEmail := map[string]any{"username": "amy2", "email": "AMY@example.com", "password": "StrongPass1"}
	expectError(t, env.do(t, http.MethodPost, "/api/auth/register", duplicateEmail, ""), http.StatusConflict, "email already registered")

	duplicateUsername := map[string]any{"username": "amy", "email": "other@example.com", "password": "StrongPass1"}
	expectError(t, env.do(t, http.MethodPost, "/api/auth/register", duplicateUsername, ""), http.StatusConflict, "username already taken")
}

func TestLoginRejectsWrongPasswordAndUnknownEmailAlike(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "amy@example.com", "password": "WrongPass1"}, "")
	expectError(t, wrongPassword, http.StatusUnauthorized, "invalid credentials")

	unknown := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@example.com", "password": "StrongPass1"}, "")
	expectError(t, unknown, http.StatusUnauthorized, "invalid credentials")
}

func TestForgotPasswordRespondsUniformly(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)

	known := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "amy@example.com"}, "")
	expectStatus(t, known, http.StatusOK)
	knownBody := map[string]any{}
	decodeBody(t, known, &knownBody)

	unknown := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, "")
	expectStatus(t, unknown, http.StatusOK)
	unknownBody := map[string]any{}
	decodeBody(t, unknown, &unknownBody)

	if knownBody["message"] != unknownBody["message"] || knownBody["message"] != forgotPasswordMessage {
		t.Fatalf("expected identical responses, got %#v and %#v", knownBody, unknownBody)
	}
	if _, leaked := knownBody["token"]; leaked {
		t.Fatalf("expected reset token to stay out of the response")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)

	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "amy@example.com"}, ""), http.StatusOK)
	token := env.tokens.resetFor(t, "amy@example.com")

	weak := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "weak"}, "")
	expectError(t, weak, http.StatusBadRequest, "weak password")

	mismatch := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":            token,
		"password":         "NewStrong2",
		"confirm_password": "NewStrong3",
	}, "")
	expectError(t, mismatch, http.StatusBadRequest, "password mismatch")

	reset := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "NewStrong2"}, "")
	expectStatus(t, reset, http.StatusOK)

	reused := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "NewStrong3"}, "")
	expectError(t, reused, http.StatusBadRequest, "invalid or expired reset token")

	old := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "amy@example.com", "password": "StrongPass1"}, "")
	expectError(t, old, http.StatusUnauthorized, "invalid credentials")
	env.login(t, "amy@example.com", "NewStrong2")
}

func TestResendVerification(t *testing.T) {
	env := newAPITestEnv(t)

	register := map[string]any{"username": "amy", "email": "amy@example.com", "password": "StrongPass1"}
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/register", register, ""), http.StatusCreated)
	first := env.tokens.verificationFor(t, "amy@example.com")

	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/resend-verification", map[string]string{"email": "amy@example.com"}, ""), http.StatusOK)
	second := env.tokens.verificationFor(t, "amy@example.com")
	if first == second {
		t.Fatalf("expected a fresh verification token")
	}

	expectError(t, env.do(t, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": first}, ""), http.StatusBadRequest, "invalid verification token")
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": second}, ""), http.StatusOK)

	again := env.do(t, http.MethodPost, "/api/auth/resend-verification", map[string]string{"email": "amy@example.com"}, "")
	expectError(t, again, http.StatusConflict, "email already verified")

	missing := env.do(t, http.MethodPost, "/api/auth/resend-verification", map[string]string{"email": "ghost@example.com"}, "")
	expectError(t, missing, http.StatusNotFound, "user not found")
}

func TestChangePassword(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)
	session := env.login(t, "amy@example.com", "StrongPass1")

	unauthenticated := env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"current_password": "StrongPass1",
		"new_password":     "NewStrong2",
	}, "")
	expectError(t, unauthenticated, http.StatusUnauthorized, "unauthorized")

	wrongCurrent := env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"current_password": "WrongPass1",
		"new_password":     "NewStrong2",
	}, session)
	expectError(t, wrongCurrent, http.StatusBadRequest, "current password is incorrect")

	changed := env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"current_password": "StrongPass1",
		"new_password":     "NewStrong2",
		"confirm_password": "NewStrong2",
	}, session)
	expectStatus(t, changed, http.StatusOK)

	env.login(t, "amy@example.com", "NewStrong2")
}

func TestPasswordsOverBcryptLimitAreRejected(t *testing.T) {
	env := newAPITestEnv(t)
	tooLong := "Aa1" + strings.Repeat("x", 80)

	register := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "long",
		"email":    "long@example.com",
		"password": tooLong,
	}, "")
	expectError(t, register, http.StatusBadRequest, "password too long")

	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "amy@example.com"}, ""), http.StatusOK)
	token := env.tokens.resetFor(t, "amy@example.com")
	reset := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": tooLong}, "")
	expectError(t, reset, http.StatusBadRequest, "password too long")

	session := env.login(t, "amy@example.com", "StrongPass1")
	change := env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"current_password": "StrongPass1",
		"new_password":     tooLong,
	}, session)
	expectError(t, change, http.StatusBadRequest, "password too long")
}

func TestSessionTokenRejectedWhenTamperedOrMissing(t *testing.T) {
	env := newAPITestEnv(t)
	env.registerVerified(t, "amy", "amy@example.com", "StrongPass1", models.DefaultRole, nil)
	session := env.login(t, "amy@example.com", "StrongPass1")

	expectError(t, env.do(t, http.MethodGet, "/api/auth/me", nil, ""), http.StatusUnauthorized, "unauthorized")
	expectError(t, env.do(t, http.MethodGet, "/api/auth/me", nil, session+"x"), http.StatusUnauthorized, "unauthorized")

	logout := env.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	expectStatus(t, logout, http.StatusOK)
	if !strings.Contains(logout.Header.Get("Set-Cookie"), authCookieName+"=;") {
		t.Fatalf("expected logout to clear the auth cookie, got %q", logout.Header.Get("Set-Cookie"))
	}
}
