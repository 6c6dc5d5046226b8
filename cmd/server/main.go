package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ticketflow-io/ticketflow/internal/config"
	"github.com/ticketflow-io/ticketflow/internal/database"
	"github.com/ticketflow-io/ticketflow/internal/notifications"
	"github.com/ticketflow-io/ticketflow/internal/repository"
	"github.com/ticketflow-io/ticketflow/internal/server"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
	"github.com/ticketflow-io/ticketflow/internal/services/scheduler"
	"github.com/ticketflow-io/ticketflow/internal/services/sla"
	"github.com/ticketflow-io/ticketflow/internal/template"
	"github.com/ticketflow-io/ticketflow/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Fatalf("database: %v", err)
	}

	renderer, err := template.NewRenderer(cfg.Templates.Dir)
	if err != nil {
		logger.Fatalf("templates: %v", err)
	}

	ticketRepo := repository.NewTicketRepository(db)
	ruleRepo := repository.NewRuleRepository(db, logger)
	slaRepo := repository.NewSLARepository(db)
	executionRepo := repository.NewExecutionRepository(db)

	if cfg.SeedFile != "" {
		if err := applySeed(ctx, logger, cfg.SeedFile, ticketRepo, ruleRepo, slaRepo); err != nil {
			logger.Fatalf("seed: %v", err)
		}
	}

	mailer := notifications.NewTemplateMailer(renderer, notifications.NewSMTPProvider(&cfg.Email))
	chat := notifications.NewSlackNotifier(renderer, nil)
	webhookClient := webhook.NewClient(cfg.Webhook.Secret)

	var queue scheduler.DeferredQueue
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer client.Close()
		queue = scheduler.NewRedisDeferredQueue(client)
	} else {
		logger.Printf("redis not configured, deferred actions stay in process memory")
		queue = scheduler.NewMemoryDeferredQueue()
	}

	conditions := automation.NewConditionEvaluator(automation.WithConditionLogger(logger))
	executor := automation.NewExecutor(ticketRepo, mailer, webhookClient, chat, queue,
		automation.WithExecutorLogger(logger))
	engine := automation.NewEngine(ruleRepo, ticketRepo, conditions, executor,
		automation.WithEngineLogger(logger),
		automation.WithRecorder(executionRepo))

	calendars := sla.NewCalendarService(slaRepo, sla.WithCalendarLogger(logger))
	resolver := sla.NewPolicyResolver(slaRepo, conditions, sla.WithResolverLogger(logger))
	deadlines := sla.NewDeadlineCalculator(calendars)
	detector := sla.NewBreachDetector(resolver, deadlines, sla.WithDetectorLogger(logger))

	jobs := scheduler.NewJobs(ticketRepo, detector, engine, executor, queue,
		scheduler.WithJobsLogger(logger),
		scheduler.WithDeferredBatchSize(cfg.Scheduler.DeferredBatchSize))
	sched := scheduler.NewService(jobs, cfg.Scheduler,
		scheduler.WithServiceLogger(logger),
		scheduler.WithRootContext(ctx))
	if err := sched.Start(); err != nil {
		logger.Fatalf("scheduler: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := server.NewAPI(ticketRepo, ruleRepo, slaRepo, engine, detector, sched, logger)
	api.Register(router.Group("/api/v1"))

	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		logger.Printf("server: listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("server: shutdown: %v", err)
	}
}
