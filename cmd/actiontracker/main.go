package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/api"
	"github.com/terraincognita07/actiontracker/internal/cli"
	"github.com/terraincognita07/actiontracker/internal/config"
	"github.com/terraincognita07/actiontracker/internal/db"
	"github.com/terraincognita07/actiontracker/internal/logging"
	"github.com/terraincognita07/actiontracker/internal/metrics"
	"github.com/terraincognita07/actiontracker/internal/notify"
	"github.com/terraincognita07/actiontracker/internal/services"
)

const usage = `usage:
  actiontracker [serve]
  actiontracker reset-password <email>
  actiontracker verify-email <email>
  actiontracker assign-role <email> <role>`

var insecureSecretPlaceholders = []string{
	"change_me_in_production",
	"replace_with_at_least_32_random_characters",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if !cfg.SecretIsTemp {
		if err := validateSecretKey(cfg.SecretKey); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		return serve(cfg, logger)
	case "reset-password", "verify-email", "assign-role":
		return runOperatorCommand(cfg, logger, command, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func serve(cfg *config.Config, logger *logrus.Logger) error {
	time.Local = cfg.Location
	if cfg.SecretIsTemp {
		logger.Warn("SECRET_KEY is not set; sessions will not survive a restart")
	}

	database, err := db.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	repositories := db.NewRepositories(database)
	registry := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeded, err := services.NewSeedService(repositories.Templates, logger).EnsureBuiltinTemplates(ctx)
	if err != nil {
		return fmt.Errorf("seed builtin templates: %w", err)
	}
	registry.AddSeededTemplates(seeded)

	identity := services.NewIdentityService(
		repositories.Users,
		buildNotifier(cfg, logger),
		logger,
		services.WithPasswordResetTTL(cfg.PasswordResetTTL),
		services.WithPasswordCost(cfg.BcryptCost),
		services.WithEventRecorder(registry),
	)

	handler, err := api.NewHandler(api.Dependencies{
		Identity:          identity,
		Templates:         services.NewTemplateService(repositories.Templates),
		Trackers:          services.NewTrackerService(repositories.Trackers),
		Reports:           services.NewReportService(repositories.Trackers, repositories.Templates),
		SecretKey:         cfg.SecretKey,
		SessionTTL:        cfg.SessionTTL,
		CookieSecure:      cfg.CookieSecure,
		Logger:            logger,
		Metrics:           registry,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := api.NewApp(handler)

	sweeper := services.NewResetSweeper(
		repositories.Users,
		logger.WithField("component", "reset_sweeper"),
		cfg.ResetSweepSchedule,
		services.WithClearedReporter(registry.AddResetsCleared),
	)
	sweeperDone := make(chan error, 1)
	go func() {
		sweeperDone <- sweeper.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":   cfg.Port,
		"db":     cfg.DBPath,
		"tz":     cfg.Location.String(),
		"smtp":   cfg.SMTP.Enabled(),
		"seeded": seeded,
	}).Info("action tracker listening")

	listenErr := app.Listen(":" + cfg.Port)
	stop()
	if err := <-sweeperDone; err != nil {
		logger.WithError(err).Error("reset sweeper stopped")
	}
	if listenErr != nil {
		return fmt.Errorf("server exited: %w", listenErr)
	}
	return nil
}

// buildNotifier sends real mail only when SMTP is configured. Otherwise deliveries
// are logged without their tokens.
func buildNotifier(cfg *config.Config, logger logrus.FieldLogger) services.TokenNotifier {
	if !cfg.SMTP.Enabled() {
		logger.Warn("SMTP is not configured; verification and reset mail will only be logged")
		return notify.NewLogNotifier(logger)
	}
	mailer := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	return notify.NewEmailNotifier(mailer, cfg.PublicBaseURL)
}

func runOperatorCommand(cfg *config.Config, logger *logrus.Logger, command string, args []string) error {
	required := 1
	if command == "assign-role" {
		required = 2
	}
	if len(args) != required {
		return fmt.Errorf("%s: wrong number of arguments\n%s", command, usage)
	}

	database, err := db.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	repositories := db.NewRepositories(database)

	commands := cli.NewCommands(
		repositories.Users,
		logger,
		os.Stdout,
		cli.TerminalPasswordReader(os.Stdin, os.Stderr),
		services.WithPasswordCost(cfg.BcryptCost),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "reset-password":
		return commands.ResetPassword(ctx, args[0])
	case "verify-email":
		return commands.VerifyEmail(ctx, args[0])
	default:
		return commands.AssignRole(ctx, args[0], args[1])
	}
}

func validateSecretKey(secret string) error {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return errors.New("SECRET_KEY is required")
	}
	for _, placeholder := range insecureSecretPlaceholders {
		if strings.EqualFold(trimmed, placeholder) {
			return errors.New("SECRET_KEY uses an insecure placeholder value")
		}
	}
	if len(trimmed) < 32 {
		return errors.New("SECRET_KEY must be at least 32 characters")
	}
	return nil
}

func validatePort(raw string) error {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", raw)
	}
	return nil
}
