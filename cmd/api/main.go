package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go-distributor-ledger/internal/config"
	"go-distributor-ledger/internal/handler"
	"go-distributor-ledger/internal/middleware"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/service"
	"go-distributor-ledger/internal/ws"
	"go-distributor-ledger/pkg/database"
	"go-distributor-ledger/pkg/jwt"
	"go-distributor-ledger/pkg/logger"

	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

func main() {
	log := logger.Get()

	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.JWTSecret != "" {
		jwt.SetSecret(cfg.JWTSecret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.ConnectDB(database.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		MaxAttempts:  cfg.DBConnectTries,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	repos := repository.NewRepositories(db)

	// 3. WebSocket hub
	wsHub := ws.NewHub(log)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wsHub.Run(ctx)
	}()

	// 4. Notification gateway
	senders := []notify.Sender{notify.NewHubSender(wsHub)}
	var bot *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		if bot, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken); err != nil {
			log.WithError(err).Warn("telegram bot disabled")
			bot = nil
		} else {
			senders = append(senders, notify.NewTelegramSender(bot))
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaNotifyTopic)
		defer writer.Close()
		senders = append(senders, notify.NewKafkaSender(writer))
	}
	if cfg.PubSubProjectID != "" {
		var opts []option.ClientOption
		if cfg.PubSubCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.PubSubCredentialsJSON)))
		}
		client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID, opts...)
		if err != nil {
			log.WithError(err).Warn("pubsub publisher disabled")
		} else {
			defer client.Close()
			topic := client.Topic(cfg.PubSubNotifyTopic)
			defer topic.Stop()
			senders = append(senders, notify.NewPubSubSender(topic))
		}
	}

	gateway := notify.NewGateway(repos.Outbox, log, cfg.NotifyQueueSize, senders...)
	gateway.RetryInterval = cfg.NotifyRetryInterval
	gateway.MaxAttempts = cfg.NotifyMaxAttempts
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
		defer rdb.Close()
		gateway.Locker = redislock.New(rdb)
	}
	// The gateway outlives the HTTP server so in-flight requests can still notify.
	gatewayCtx, stopGateway := context.WithCancel(context.Background())
	defer stopGateway()
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.Run(gatewayCtx)
	}()

	if bot != nil {
		linker := &notify.TelegramLinker{Shops: repos.Shops, Log: log}
		wg.Add(1)
		go func() {
			defer wg.Done()
			linker.Listen(ctx, bot)
		}()
	}

	// 5. Services
	orderService := service.NewOrderService(db, repos, gateway, log)
	ledgerService := service.NewLedgerService(db, repos, gateway, log)
	dashService := service.NewDashboardService(repos,
		service.BucketScheme{Name: "distributor", Boundaries: cfg.AgingBucketsDistributor},
		service.BucketScheme{Name: "platform", Boundaries: cfg.AgingBucketsPlatform},
	)
	catalogService := service.NewCatalogService(db, repos, wsHub, cfg.TelegramBotUsername, log)
	authService := service.NewAuthService(repos.Users, wsHub, log)
	userService := service.NewUserService(repos.Users, log)

	if err := userService.SeedAdmin(ctx, cfg.SeedAdminPhone, cfg.SeedAdminSecret); err != nil {
		log.WithError(err).Warn("failed to seed admin user")
	}

	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(ledgerService)
	dashHandler := handler.NewDashboardHandler(dashService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	// 6. Fiber
	app := fiber.New(fiber.Config{
		AppName: "Distributor Ledger v1.0",
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/change-password", middleware.RequireAuth(authService), authHandler.ChangePassword)
	auth.Post("/heartbeat", middleware.RequireAuth(authService), authHandler.Heartbeat)

	protected := api.Group("", middleware.RequireAuth(authService))

	protected.Post("/orders", middleware.RequirePrivilege(model.PrivOrderCreate), orderHandler.CreateOrder)
	protected.Get("/orders", middleware.RequirePrivilege(model.PrivOrderView), orderHandler.GetOrders)
	protected.Get("/orders/:id", middleware.RequirePrivilege(model.PrivOrderView), orderHandler.GetOrder)
	protected.Patch("/orders/:id/deliver", middleware.RequirePrivilege(model.PrivOrderDeliver), orderHandler.MarkDelivered)
	protected.Post("/orders/:id/payments", middleware.RequirePrivilege(model.PrivOrderPay), orderHandler.PayOrder)
	protected.Get("/orders/:id/payments", middleware.RequirePrivilege(model.PrivOrderView), orderHandler.GetOrderPayments)

	protected.Post("/payments", middleware.RequirePrivilege(model.PrivPaymentCreate), paymentHandler.RecordPayment)
	protected.Post("/payments/manual-debt", middleware.RequirePrivilege(model.PrivDebtAdjust), paymentHandler.AddManualDebt)
	protected.Post("/payments/set-debt", middleware.RequirePrivilege(model.PrivDebtAdjust), paymentHandler.SetExactDebt)
	protected.Get("/payments", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetPayments)

	// /shops/with-debt must be registered before /shops/:id.
	protected.Get("/shops/with-debt", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetShopsWithDebt)
	protected.Get("/shops", catalogHandler.GetShops)
	protected.Post("/shops", middleware.RequirePrivilege(model.PrivCatalogManage), catalogHandler.CreateShop)
	protected.Get("/shops/:id", catalogHandler.GetShop)
	protected.Put("/shops/:id", middleware.RequirePrivilege(model.PrivCatalogManage), catalogHandler.UpdateShop)
	protected.Get("/shops/:id/debt", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetShopDebt)
	protected.Get("/shops/:id/debt-history", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetDebtHistory)
	protected.Get("/shops/:id/payments", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetShopPayments)
	protected.Get("/shops/:id/payment-stats", middleware.RequirePrivilege(model.PrivPaymentView), paymentHandler.GetPaymentStats)

	protected.Get("/products", catalogHandler.GetProducts)
	protected.Post("/products", middleware.RequirePrivilege(model.PrivCatalogManage), catalogHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege(model.PrivCatalogManage), catalogHandler.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege(model.PrivCatalogManage), catalogHandler.DeleteProduct)

	protected.Get("/employees", middleware.RequirePrivilege(model.PrivEmployeeAdmin), userHandler.GetEmployees)
	protected.Post("/employees", middleware.RequirePrivilege(model.PrivEmployeeAdmin), userHandler.CreateEmployee)

	protected.Get("/reports/debt-aging", middleware.RequirePrivilege(model.PrivReportView), dashHandler.GetDebtAging)
	protected.Get("/reports/debt-summary", middleware.RequirePrivilege(model.PrivReportView), dashHandler.GetDebtSummary)

	admin := protected.Group("/admin", middleware.RequireRole(string(model.RoleAdmin)))
	admin.Get("/debt-aging", dashHandler.GetPlatformDebtAging)
	admin.Get("/payments", paymentHandler.GetPayments)
	admin.Get("/distributors", userHandler.GetDistributors)
	admin.Post("/distributors", userHandler.CreateDistributor)

	// WebSocket: dashboards subscribe to their distributor's events.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}, middleware.RequireAuth(authService))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		key, _ := c.Locals(middleware.LocalDistributorID).(uuid.UUID)
		client := &ws.Client{Conn: c, Key: key.String()}
		if !wsHub.Join(client) {
			return
		}
		defer wsHub.Leave(client)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()
	log.WithField("port", cfg.Port).Info("server started")

	<-ctx.Done()
	log.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	stopGateway()
	wg.Wait()
	log.WithFields(logrus.Fields{"senders": len(senders)}).Info("server exited")
}
