package api

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/metrics"
	"github.com/terraincognita07/actiontracker/internal/services"
)

const (
	authCookieName      = "actiontracker_auth"
	contextUserKey      = "current_user"
	contextRequestIDKey = "requestid"
	defaultAuthTokenTTL = 7 * 24 * time.Hour
)

type Handler struct {
	identity     *services.IdentityService
	templates    *services.TemplateService
	trackers     *services.TrackerService
	reports      *services.ReportService
	secretKey    []byte
	sessionTTL   time.Duration
	cookieSecure bool
	logger       logrus.FieldLogger
	metrics      *metrics.Registry
	authLimiter  *authRateLimiter
	healthCheck  func(context.Context) error
	now          func() time.Time
}

type Dependencies struct {
	Identity     *services.IdentityService
	Templates    *services.TemplateService
	Trackers     *services.TrackerService
	Reports      *services.ReportService
	SecretKey    string
	SessionTTL   time.Duration
	CookieSecure bool
	Logger       logrus.FieldLogger
	Metrics      *metrics.Registry

	// AuthRatePerMinute and AuthRateBurst bound unauthenticated auth requests per client.
	AuthRatePerMinute int
	AuthRateBurst     int

	// HealthCheck backs /healthz. Nil reports healthy.
	HealthCheck func(context.Context) error
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Identity == nil || deps.Templates == nil || deps.Trackers == nil || deps.Reports == nil {
		return nil, errors.New("identity, template, tracker and report services are required")
	}
	if len(deps.SecretKey) < 32 {
		return nil, errors.New("secret key must be at least 32 bytes")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = defaultAuthTokenTTL
	}

	return &Handler{
		identity:     deps.Identity,
		templates:    deps.Templates,
		trackers:     deps.Trackers,
		reports:      deps.Reports,
		secretKey:    []byte(deps.SecretKey),
		sessionTTL:   deps.SessionTTL,
		cookieSecure: deps.CookieSecure,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		authLimiter:  newAuthRateLimiter(deps.AuthRatePerMinute, deps.AuthRateBurst),
		healthCheck:  deps.HealthCheck,
		now:          time.Now,
	}, nil
}
