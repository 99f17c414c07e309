package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fisker/bcm-backend/internal/api/router"
	"github.com/fisker/bcm-backend/pkg/database"
	"github.com/fisker/bcm-backend/pkg/logger"
	pkgredis "github.com/fisker/bcm-backend/pkg/redis"
)

// StartServer 启动 HTTP 服务器，收到退出信号后优雅关闭
func StartServer(application *App) {
	cfg := application.Config

	r := router.Setup(
		application.Handlers.Auth,
		application.Handlers.Approval,
		application.Handlers.Organization,
		application.Services.Auth,
		application.Hierarchy.Top(),
		cfg.Server.Mode,
		cfg.Server.AllowedOrigins,
	)

	addr := fmt.Sprintf(":%d", cfg.Server.APIPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupBanner(application)

	if application.Services.OrgSync != nil {
		application.Services.OrgSync.Start()
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infof("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// 1. Shutdown HTTP server
	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("  HTTP server shutdown error: %v", err)
	} else {
		logger.Infof("  ✓ HTTP server stopped")
	}

	// 2. Stop organization sync
	if application.Services.OrgSync != nil {
		logger.Infof("  → Stopping organization sync...")
		application.Services.OrgSync.Stop()
	}

	// 3. Flush pending notifications
	logger.Infof("  → Waiting for pending notifications...")
	application.NotificationManager.Wait()
	logger.Infof("  ✓ Notifications flushed")

	// 4. Close database
	logger.Infof("  → Closing database...")
	if err := database.Close(); err != nil {
		logger.Warnf("  Database close error: %v", err)
	} else {
		logger.Infof("  ✓ Database closed")
	}

	// 5. Close Redis if enabled
	if cfg.Redis.Enabled {
		logger.Infof("  → Closing Redis...")
		pkgredis.Close()
		logger.Infof("  ✓ Redis closed")
	}

	logger.Infof("Shutdown complete")
	logger.Sync()
}

// printStartupBanner 打印启动横幅
func printStartupBanner(application *App) {
	cfg := application.Config
	logger.Infof("")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("BCM Approval Server")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("   • Listening on :%d (mode=%s)", cfg.Server.APIPort, cfg.Server.Mode)
	logger.Infof("   • Approval chain: %v", application.Hierarchy.Roles())
	if cfg.LDAP.Enabled {
		logger.Infof("   • Active Directory login and organization sync enabled (%s)", cfg.LDAP.Host)
	}
	if cfg.Redis.Enabled {
		logger.Infof("   • Redis decision lock and Casbin policy sync enabled")
	}
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("")
}
