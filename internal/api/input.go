package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/security"
	"github.com/terraincognita07/actiontracker/internal/services"
)

var (
	errWeakPassword    = errors.New("weak password")
	errPasswordTooLong = errors.New("password too long")
)

// validatePasswordStrength is an HTTP-surface rule. The identity core accepts any
// non-empty password.
func validatePasswordStrength(password string) error {
	if len(password) > security.MaxPasswordBytes {
		return errPasswordTooLong
	}
	if len([]rune(password)) < 8 {
		return errWeakPassword
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if hasUpper && hasLower && hasDigit {
		return nil
	}
	return errWeakPassword
}

// optional tells an absent JSON field apart from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (field *optional[T]) UnmarshalJSON(data []byte) error {
	field.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		field.Value = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	field.Value = &value
	return nil
}

type registerInput struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	CenterID *string `json:"center_id"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenInput struct {
	Token string `json:"token"`
}

type emailInput struct {
	Email string `json:"email"`
}

type resetPasswordInput struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type templateCreateInput struct {
	Role        string   `json:"role"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Items       []string `json:"items"`
}

type templatePatchInput struct {
	Role        optional[string]   `json:"role"`
	Title       optional[string]   `json:"title"`
	Description optional[string]   `json:"description"`
	Items       optional[[]string] `json:"items"`
	IsActive    optional[bool]     `json:"is_active"`
}

type trackerCreateInput struct {
	UserID         uint     `json:"user_id"`
	TemplateID     uint     `json:"template_id"`
	CenterID       *string  `json:"center_id"`
	Date           string   `json:"date"`
	CompletedItems []string `json:"completed_items"`
	Notes          *string  `json:"notes"`
}

type trackerPatchInput struct {
	CompletedItems optional[[]string]  `json:"completed_items"`
	Notes          optional[string]    `json:"notes"`
	CompletedAt    optional[time.Time] `json:"completed_at"`
	CenterID       optional[string]    `json:"center_id"`
}

func parseRegisterInput(c *fiber.Ctx) (services.RegisterInput, string) {
	input := registerInput{}
	if err := c.BodyParser(&input); err != nil {
		return services.RegisterInput{}, "invalid input"
	}

	username := services.NormalizeUsername(input.Username)
	email := services.NormalizeAuthEmail(input.Email)
	if username == "" || strings.TrimSpace(input.Password) == "" {
		return services.RegisterInput{}, "invalid input"
	}
	if email == "" {
		return services.RegisterInput{}, "invalid email"
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		return services.RegisterInput{}, err.Error()
	}

	role := strings.TrimSpace(input.Role)
	if role != "" {
		parsed := models.Role(strings.ToLower(role))
		if !parsed.Valid() {
			return services.RegisterInput{}, "invalid role"
		}
		// Privileged roles are granted by an operator, never self-assigned.
		if parsed == models.RoleAdmin || parsed == models.RoleHeadOfNIAT {
			return services.RegisterInput{}, "role not allowed"
		}
	}

	return services.RegisterInput{
		Username: username,
		Email:    email,
		Password: input.Password,
		Role:     role,
		CenterID: trimmedOptional(input.CenterID),
	}, ""
}

func parseLoginInput(c *fiber.Ctx) (loginInput, string) {
	input := loginInput{}
	if err := c.BodyParser(&input); err != nil {
		return loginInput{}, "invalid input"
	}
	input.Email = services.NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return loginInput{}, "invalid input"
	}
	return input, ""
}

func parseEmailInput(c *fiber.Ctx) (string, string) {
	input := emailInput{}
	if err := c.BodyParser(&input); err != nil {
		return "", "invalid input"
	}
	email := services.NormalizeAuthEmail(input.Email)
	if email == "" {
		return "", "invalid email"
	}
	return email, ""
}

func parseVerificationToken(c *fiber.Ctx) (string, string) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" && len(c.Body()) > 0 {
		input := tokenInput{}
		if err := c.BodyParser(&input); err != nil {
			return "", "invalid input"
		}
		token = strings.TrimSpace(input.Token)
	}
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}

func parseResetPasswordInput(c *fiber.Ctx) (resetPasswordInput, string) {
	input := resetPasswordInput{}
	if err := c.BodyParser(&input); err != nil {
		return resetPasswordInput{}, "invalid input"
	}

	input.Token = strings.TrimSpace(input.Token)
	if input.Token == "" || input.Password == "" {
		return resetPasswordInput{}, "invalid input"
	}
	if input.ConfirmPassword != "" && input.Password != input.ConfirmPassword {
		return resetPasswordInput{}, "password mismatch"
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		return resetPasswordInput{}, err.Error()
	}
	return input, ""
}

func parseChangePasswordInput(c *fiber.Ctx) (changePasswordInput, string) {
	input := changePasswordInput{}
	if err := c.BodyParser(&input); err != nil {
		return changePasswordInput{}, "invalid input"
	}

	if input.CurrentPassword == "" || input.NewPassword == "" {
		return changePasswordInput{}, "invalid input"
	}
	if input.ConfirmPassword != "" && input.NewPassword != input.ConfirmPassword {
		return changePasswordInput{}, "password mismatch"
	}
	if err := validatePasswordStrength(input.NewPassword); err != nil {
		return changePasswordInput{}, err.Error()
	}
	return input, ""
}

func parseTemplateCreateInput(c *fiber.Ctx) (services.TemplateInput, string) {
	input := templateCreateInput{}
	if err := c.BodyParser(&input); err != nil {
		return services.TemplateInput{}, "invalid input"
	}

	role, ok := parseStrictRole(input.Role)
	if !ok {
		return services.TemplateInput{}, "invalid role"
	}
	if strings.TrimSpace(input.Title) == "" {
		return services.TemplateInput{}, "title is required"
	}

	return services.TemplateInput{
		Role:        role,
		Title:       input.Title,
		Description: input.Description,
		Items:       input.Items,
	}, ""
}

func parseTemplatePatchInput(c *fiber.Ctx) (services.TemplatePatch, string) {
	input := templatePatchInput{}
	if err := c.BodyParser(&input); err != nil {
		return services.TemplatePatch{}, "invalid input"
	}

	patch := services.TemplatePatch{}
	if input.Role.Set {
		if input.Role.Value == nil {
			return services.TemplatePatch{}, "invalid role"
		}
		role, ok := parseStrictRole(*input.Role.Value)
		if !ok {
			return services.TemplatePatch{}, "invalid role"
		}
		patch.Role = &role
	}
	if input.Title.Set {
		if input.Title.Value == nil || strings.TrimSpace(*input.Title.Value) == "" {
			return services.TemplatePatch{}, "title is required"
		}
		patch.Title = input.Title.Value
	}
	if input.Description.Set {
		patch.DescriptionSet = true
		patch.Description = input.Description.Value
	}
	if input.Items.Set {
		items := []string{}
		if input.Items.Value != nil {
			items = *input.Items.Value
		}
		patch.Items = &items
	}
	if input.IsActive.Set {
		if input.IsActive.Value == nil {
			return services.TemplatePatch{}, "invalid input"
		}
		patch.IsActive = input.IsActive.Value
	}
	return patch, ""
}

// parseTrackerCreateInput defaults a blank date to today in the server's location.
func parseTrackerCreateInput(c *fiber.Ctx, now time.Time) (services.TrackerInput, string) {
	input := trackerCreateInput{}
	if err := c.BodyParser(&input); err != nil {
		return services.TrackerInput{}, "invalid input"
	}
	if input.TemplateID == 0 {
		return services.TrackerInput{}, "template_id is required"
	}
	date := services.DateAtLocation(now, time.Local)
	if raw := strings.TrimSpace(input.Date); raw != "" {
		parsed, err := services.ParseDay(raw)
		if err != nil {
			return services.TrackerInput{}, "invalid date"
		}
		date = parsed
	}

	return services.TrackerInput{
		UserID:         input.UserID,
		TemplateID:     input.TemplateID,
		CenterID:       trimmedOptional(input.CenterID),
		Date:           date,
		CompletedItems: input.CompletedItems,
		Notes:          input.Notes,
	}, ""
}

func parseTrackerPatchInput(c *fiber.Ctx) (services.TrackerPatch, string) {
	input := trackerPatchInput{}
	if err := c.BodyParser(&input); err != nil {
		return services.TrackerPatch{}, "invalid input"
	}

	patch := services.TrackerPatch{}
	if input.CompletedItems.Set {
		items := []string{}
		if input.CompletedItems.Value != nil {
			items = *input.CompletedItems.Value
		}
		patch.CompletedItems = &items
	}
	if input.Notes.Set {
		patch.NotesSet = true
		patch.Notes = input.Notes.Value
	}
	if input.CompletedAt.Set {
		patch.CompletedAtSet = true
		patch.CompletedAt = input.CompletedAt.Value
	}
	if input.CenterID.Set {
		patch.CenterIDSet = true
		patch.CenterID = trimmedOptional(input.CenterID.Value)
	}
	return patch, ""
}

func parseDateQuery(c *fiber.Ctx) (time.Time, string) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return time.Time{}, "date is required"
	}
	date, err := services.ParseDay(raw)
	if err != nil {
		return time.Time{}, "invalid date"
	}
	return date, ""
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

func parseStrictRole(raw string) (models.Role, bool) {
	role := models.Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

func trimmedOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
