// Command appserver is the thin HTTP façade over the core engine: a health
// endpoint, a manual close trigger, and an optional recurring schedule. It
// deliberately does not expose the rest of the domain over HTTP — that is
// an external collaborator's job.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flightledger/core/internal/dag"
	"github.com/flightledger/core/internal/runtime"
	ifruntime "github.com/flightledger/core/infrastructure/runtime"
	"github.com/flightledger/core/pkg/config"
	"github.com/flightledger/core/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides PORT env)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Logging).Named("appserver")

	engine, err := runtime.New(cfg, log)
	if err != nil {
		log.Fatalw("initialise engine", "error", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.EnsureSeeded(ctx); err != nil {
		log.Fatalw("seed engine", "error", err)
	}

	scheduler := buildScheduler(engine, log)
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := buildRouter(engine, log)
	listenAddr := resolveAddr(*addr)
	server := &http.Server{Addr: listenAddr, Handler: router}

	go func() {
		log.Infow("appserver listening", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("serve", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown", "error", err)
	}
}

func buildRouter(engine *runtime.Engine, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, ifruntime.ReportHealth())
	})

	router.POST("/month-end-close", func(c *gin.Context) {
		result, err := engine.RunMonthEndClose(c.Request.Context())
		if err != nil {
			log.Errorw("manual month-end close failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	return router
}

// buildScheduler wires an optional recurring close trigger. It is disabled
// when FLIGHTLEDGER_CLOSE_CRON_SCHEDULE is unset or blank; an expression
// that does not parse stops the process.
func buildScheduler(engine *runtime.Engine, log *logger.Logger) *dag.Scheduler {
	schedule := strings.TrimSpace(os.Getenv("FLIGHTLEDGER_CLOSE_CRON_SCHEDULE"))
	if schedule == "" {
		return nil
	}
	scheduler, err := dag.NewScheduler(schedule, engine.DAGRunner(), log)
	if err != nil {
		log.Fatalw("invalid FLIGHTLEDGER_CLOSE_CRON_SCHEDULE", "error", err, "schedule", schedule)
	}
	return scheduler
}

func resolveAddr(flagAddr string) string {
	if trimmed := strings.TrimSpace(flagAddr); trimmed != "" {
		return trimmed
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":8080"
}
