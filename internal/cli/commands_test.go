package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/terraincognita07/actiontracker/internal/logging"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/services"
	"github.com/terraincognita07/actiontracker/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func scriptedPasswords(values ...string) PasswordReader {
	return func(string) (string, error) {
		if len(values) == 0 {
			return "", errors.New("no more input")
		}
		next := values[0]
		values = values[1:]
		return next, nil
	}
}

func seedUser(t *testing.T, memory *store.Memory, email string) {
	t.Helper()
	identity := services.NewIdentityService(memory.Users(), discardTokens{}, logging.Discard(), services.WithPasswordCost(bcrypt.MinCost))
	if _, err := identity.Register(context.Background(), services.RegisterInput{
		Username: strings.Split(email, "@")[0],
		Email:    email,
		Password: "OldPass1",
	}); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

type discardTokens struct{}

func (discardTokens) SendVerification(context.Context, models.PublicUser, string) error  { return nil }
func (discardTokens) SendPasswordReset(context.Context, models.PublicUser, string) error { return nil }

func newTestCommands(memory *store.Memory, out *bytes.Buffer, password PasswordReader) *Commands {
	return NewCommands(memory.Users(), logging.Discard(), out, password, services.WithPasswordCost(bcrypt.MinCost))
}

func TestResetPasswordCommandSetsNewPassword(t *testing.T) {
	memory := store.NewMemory()
	seedUser(t, memory, "amy@example.com")
	out := &bytes.Buffer{}

	commands := newTestCommands(memory, out, scriptedPasswords("Fresh-Pass9", "Fresh-Pass9"))
	if err := commands.ResetPassword(context.Background(), " AMY@example.com "); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	user, err := memory.Users().FindByEmail(context.Background(), "amy@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Fresh-Pass9")) != nil {
		t.Fatalf("expected stored hash to match the new password")
	}
	if user.PasswordReset != nil {
		t.Fatalf("expected reset grant to be consumed")
	}
	if !strings.Contains(out.String(), "Password updated for amy@example.com") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestResetPasswordCommandRejectsBadInput(t *testing.T) {
	memory := store.NewMemory()
	seedUser(t, memory, "amy@example.com")

	mismatch := newTestCommands(memory, &bytes.Buffer{}, scriptedPasswords("Fresh-Pass9", "Other-Pass9"))
	if err := mismatch.ResetPassword(context.Background(), "amy@example.com"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	empty := newTestCommands(memory, &bytes.Buffer{}, scriptedPasswords(""))
	if err := empty.ResetPassword(context.Background(), "amy@example.com"); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}

	missing := newTestCommands(memory, &bytes.Buffer{}, scriptedPasswords("Fresh-Pass9", "Fresh-Pass9"))
	if err := missing.ResetPassword(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := missing.ResetPassword(context.Background(), "not-an-email"); err == nil {
		t.Fatal("expected invalid email to be rejected")
	}
}

func TestVerifyEmailCommand(t *testing.T) {
	memory := store.NewMemory()
	seedUser(t, memory, "amy@example.com")
	out := &bytes.Buffer{}
	commands := newTestCommands(memory, out, nil)

	if err := commands.VerifyEmail(context.Background(), "amy@example.com"); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	user, err := memory.Users().FindByEmail(context.Background(), "amy@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !user.EmailVerified || user.EmailVerificationToken != nil {
		t.Fatalf("expected verified user without pending token, got %#v", user)
	}

	if err := commands.VerifyEmail(context.Background(), "amy@example.com"); err != nil {
		t.Fatalf("expected repeated verify to be a no-op, got %v", err)
	}
	if !strings.Contains(out.String(), "already verified") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestAssignRoleCommand(t *testing.T) {
	memory := store.NewMemory()
	seedUser(t, memory, "amy@example.com")
	commands := newTestCommands(memory, &bytes.Buffer{}, nil)

	if err := commands.AssignRole(context.Background(), "amy@example.com", " Head_Of_NIAT "); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	user, err := memory.Users().FindByEmail(context.Background(), "amy@example.com")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Role != models.RoleHeadOfNIAT {
		t.Fatalf("expected head_of_niat, got %q", user.Role)
	}

	if err := commands.AssignRole(context.Background(), "amy@example.com", "wizard"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := commands.AssignRole(context.Background(), "ghost@example.com", "pm"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTerminalPasswordReaderReadsPipedLines(t *testing.T) {
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { reader.Close() })

	if _, err := writer.WriteString("first-secret\r\nsecond-secret\n"); err != nil {
		t.Fatalf("write pipe: %v", err)
	}
	writer.Close()

	prompts := &bytes.Buffer{}
	read := TerminalPasswordReader(reader, prompts)

	first, err := read("New password: ")
	if err != nil || first != "first-secret" {
		t.Fatalf("expected first-secret, got %q (%v)", first, err)
	}
	second, err := read("Repeat password: ")
	if err != nil || second != "second-secret" {
		t.Fatalf("expected second-secret, got %q (%v)", second, err)
	}
	if _, err := read("again: "); err == nil {
		t.Fatal("expected EOF error once input is exhausted")
	}
	if strings.Contains(prompts.String(), "secret") {
		t.Fatalf("expected prompts only, got %q", prompts.String())
	}
}
