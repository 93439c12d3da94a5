package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	api "github.com/safespace/safespace-server/internal/api/http"
	"github.com/safespace/safespace-server/internal/config"
	"github.com/safespace/safespace-server/internal/logger"
	"github.com/safespace/safespace-server/internal/notification"
	eventsrepo "github.com/safespace/safespace-server/internal/repository/events"
	schoolrepo "github.com/safespace/safespace-server/internal/repository/school"
	"github.com/safespace/safespace-server/internal/service/alert"
	"github.com/safespace/safespace-server/internal/service/auth"
	"github.com/safespace/safespace-server/internal/service/chat"
	"github.com/safespace/safespace-server/internal/service/ledger"
	"github.com/safespace/safespace-server/internal/service/registry"
)

// Options controls the safespace-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
	// DataDir provides an optional data directory override.
	DataDir string
}

// DataDirPermissions is applied when the data directory has to be created.
const DataDirPermissions = 0o700

// Run starts the HTTP server and blocks until the context is canceled or the
// server stops. State is loaded from the data directory first: the school
// catalog is read back and the live alert sets are rebuilt by replaying the
// event ledger, so a restart does not lose in-progress alerts.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "safespace-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.DataDir != "" {
		settings.DataDir = opts.DataDir
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if err = os.MkdirAll(settings.DataDir, DataDirPermissions); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ledgerRepo := eventsrepo.NewFileRepository(settings.LedgerPath())
	defer func() {
		_ = ledgerRepo.Close()
	}()

	registrySvc, err := registry.NewService(ctx, schoolrepo.NewFileRepository(settings.CatalogPath()))
	if err != nil {
		return fmt.Errorf("initialise registry: %w", err)
	}

	ledgerSvc, err := ledger.NewService(ctx, ledgerRepo, settings.AppendTimeout)
	if err != nil {
		return fmt.Errorf("initialise ledger: %w", err)
	}

	hub := notification.NewHub()

	alertSvc, err := alert.NewService(ctx, ledgerSvc, registrySvc, hub, registeredSchoolIDs(ctx, registrySvc))
	if err != nil {
		return fmt.Errorf("initialise alert coordinator: %w", err)
	}

	handler := api.NewServer(
		registrySvc,
		auth.NewService(registrySvc),
		alertSvc,
		ledgerSvc,
		chat.NewService(),
		hub,
	)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", settings.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.ListenAddress, err)
	}

	httpServer := &http.Server{
		Handler: handler.Router(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	logger.InfoKV(ctx, "Safespace server listening",
		"listen_address", settings.ListenAddress, "data_dir", settings.DataDir)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Forced shutdown: %v", err)
			_ = httpServer.Close()
		}

		close(done)
	}()

	if err = httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// registeredSchoolIDs lists the catalog so the coordinator knows which
// schools to replay.
func registeredSchoolIDs(ctx context.Context, registrySvc *registry.Service) []string {
	schools, err := registrySvc.Search(ctx, "")
	if err != nil {
		return nil
	}

	ids := make([]string, 0, len(schools))
	for _, school := range schools {
		ids = append(ids, school.ID)
	}

	return ids
}
