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

	"github.com/gin-gonic/gin"
	casefiledomain "github.com/wyfcoding/magellan/internal/casefile/domain"
	casefilemysql "github.com/wyfcoding/magellan/internal/casefile/infrastructure/persistence/mysql"
	documentdomain "github.com/wyfcoding/magellan/internal/document/domain"
	logisticsapp "github.com/wyfcoding/magellan/internal/logistics/application"
	logisticsdomain "github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/internal/notification/application"
	notificationdomain "github.com/wyfcoding/magellan/internal/notification/domain"
	"github.com/wyfcoding/magellan/internal/notification/infrastructure/casefileclient"
	notificationmysql "github.com/wyfcoding/magellan/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/magellan/internal/notification/infrastructure/sender"
	"github.com/wyfcoding/magellan/internal/notification/interfaces/consumer"
	notificationhttp "github.com/wyfcoding/magellan/internal/notification/interfaces/http"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/notification/config.toml", "config file path")

// subscribedTopics 通知端订阅的案件引擎事件
var subscribedTopics = []string{
	documentdomain.DocumentRejectedEventType,
	documentdomain.DocumentClarificationEventType,
	documentdomain.DocumentExpiredEventType,
	logisticsdomain.OriginalRequestedEventType,
	logisticsdomain.OriginalReceivedEventType,
	logisticsdomain.OriginalRejectedEventType,
	logisticsdomain.GovernmentReadyEventType,
	logisticsapp.OriginalReminderEventType,
	casefiledomain.ApplicationStatusChangedEventType,
	casefiledomain.StageCompletedEventType,
}

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
		if err := db.RawDB().AutoMigrate(&notificationdomain.Notification{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. 发件通道
	var emailSender notificationdomain.Sender
	if cfg.Server.Environment == "dev" {
		emailSender = sender.NewMockEmailSender()
	} else {
		emailSender = sender.NewSMTPSender(
			os.Getenv("SMTP_ADDR"),
			os.Getenv("SMTP_HOST"),
			os.Getenv("SMTP_USERNAME"),
			os.Getenv("SMTP_PASSWORD"),
			os.Getenv("SMTP_FROM"),
		)
	}

	// 6. 仓储与服务
	notificationRepo := notificationmysql.NewNotificationRepository(db.RawDB())
	appRepo := casefilemysql.NewApplicationRepository(db.RawDB())
	directory := casefileclient.NewAdapter(appRepo, "advisors.magellan.internal")
	notificationSvc := application.NewNotificationService(notificationRepo, emailSender, logger.Logger)
	eventHandler := consumer.NewEventHandler(notificationSvc, directory, logger.Logger)

	// 7. 消费者
	consumers := make([]*kafka.Consumer, 0, len(subscribedTopics))
	for _, topic := range subscribedTopics {
		consumerCfg := cfg.MessageQueue.Kafka
		consumerCfg.Topic = topic
		if consumerCfg.GroupID == "" {
			consumerCfg.GroupID = "notification-group"
		}
		c := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
		c.Start(context.Background(), 3, eventHandler.Handle)
		consumers = append(consumers, c)
	}

	// 8. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	notificationhttp.NewHandler(notificationSvc).RegisterRoutes(r.Group("/api/v1"))

	// 9. 启动
	g, ctx := errgroup.WithContext(context.Background())

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
		for _, c := range consumers {
			if c != nil {
				_ = c.Close()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
