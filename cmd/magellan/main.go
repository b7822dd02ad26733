package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	casefileapp "github.com/wyfcoding/magellan/internal/casefile/application"
	casefiledomain "github.com/wyfcoding/magellan/internal/casefile/domain"
	casefilecatalog "github.com/wyfcoding/magellan/internal/casefile/infrastructure/catalogclient"
	casefiledocs "github.com/wyfcoding/magellan/internal/casefile/infrastructure/documentclient"
	casefilemysql "github.com/wyfcoding/magellan/internal/casefile/infrastructure/persistence/mysql"
	casefilehttp "github.com/wyfcoding/magellan/internal/casefile/interfaces/http"
	catalogapp "github.com/wyfcoding/magellan/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/magellan/internal/catalog/domain"
	catalogmysql "github.com/wyfcoding/magellan/internal/catalog/infrastructure/persistence/mysql"
	cataloghttp "github.com/wyfcoding/magellan/internal/catalog/interfaces/http"
	documentapp "github.com/wyfcoding/magellan/internal/document/application"
	documentdomain "github.com/wyfcoding/magellan/internal/document/domain"
	documentcatalog "github.com/wyfcoding/magellan/internal/document/infrastructure/catalogclient"
	documentmysql "github.com/wyfcoding/magellan/internal/document/infrastructure/persistence/mysql"
	documenthttp "github.com/wyfcoding/magellan/internal/document/interfaces/http"
	logisticsapp "github.com/wyfcoding/magellan/internal/logistics/application"
	logisticsdomain "github.com/wyfcoding/magellan/internal/logistics/domain"
	logisticsdocs "github.com/wyfcoding/magellan/internal/logistics/infrastructure/documentclient"
	logisticsmysql "github.com/wyfcoding/magellan/internal/logistics/infrastructure/persistence/mysql"
	logisticshttp "github.com/wyfcoding/magellan/internal/logistics/interfaces/http"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/magellan/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&catalogdomain.ProgramTemplate{},
			&catalogdomain.Stage{},
			&catalogdomain.DocumentRequirement{},
			&documentdomain.ApplicationDocument{},
			&logisticsdomain.OriginalDocument{},
			&casefiledomain.Application{},
			&casefiledomain.StageProgress{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)
	publisher := outbox.NewPublisher(outboxMgr)

	// 6. Redis
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
	}

	// 7. 仓储
	templateRepo := catalogmysql.NewTemplateRepository(db.RawDB())
	requirementRepo := catalogmysql.NewRequirementRepository(db.RawDB())
	docRepo := documentmysql.NewDocumentRepository(db.RawDB())
	originalRepo := logisticsmysql.NewOriginalRepository(db.RawDB())
	appRepo := casefilemysql.NewApplicationRepository(db.RawDB())
	progressRepo := casefilemysql.NewStageProgressRepository(db.RawDB())

	// 8. 应用服务
	// 组装顺序无环：目录 → 案件 → 物流 → 材料。
	// 物流回写材料认证日期走仓储适配，不经过材料服务。
	catalogSvc := catalogapp.NewCatalogService(templateRepo, requirementRepo, logger.Logger)

	logisticsQry := logisticsapp.NewQueryService(originalRepo, logger.Logger)

	stageCatalog := casefilecatalog.NewAdapter(catalogSvc)
	docStats := casefiledocs.NewAdapter(appRepo, docRepo, catalogSvc)
	tracker := casefileapp.NewProgressTracker(appRepo, progressRepo, stageCatalog, docStats, publisher, logger.Logger)
	casefileCmd := casefileapp.NewCommandService(appRepo, progressRepo, stageCatalog, logisticsQry, tracker, publisher, logger.Logger)
	casefileQry := casefileapp.NewQueryService(appRepo, progressRepo, stageCatalog, redisCache.GetClient(), logger.Logger)

	docAuthenticator := logisticsdocs.NewAdapter(docRepo)
	logisticsCmd := logisticsapp.NewCommandService(originalRepo, docAuthenticator, casefileCmd, publisher, logger.Logger)

	reqCatalog := documentcatalog.NewAdapter(catalogSvc)
	docCmd := documentapp.NewCommandService(docRepo, reqCatalog, tracker, logisticsCmd, publisher, logger.Logger)
	docQry := documentapp.NewQueryService(docRepo)

	expirationSweeper := documentapp.NewExpirationSweeper(docCmd, time.Hour, 200, logger.Logger)
	urgencySweeper := logisticsapp.NewUrgencySweeper(originalRepo, publisher, 6*time.Hour, 48*time.Hour, 200, logger.Logger)

	// 9. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api/v1")
	cataloghttp.NewHandler(catalogSvc).RegisterRoutes(api)
	documenthttp.NewHandler(docCmd, docQry).RegisterRoutes(api)
	logisticshttp.NewHandler(logisticsCmd, logisticsQry).RegisterRoutes(api)
	casefilehttp.NewHandler(casefileCmd, casefileQry).RegisterRoutes(api)

	// 10. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	g.Go(func() error {
		expirationSweeper.Start(ctx)
		urgencySweeper.Start(ctx)
		<-ctx.Done()
		expirationSweeper.Stop()
		urgencySweeper.Stop()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
		server := &http.Server{Addr: addr, Handler: r}
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
