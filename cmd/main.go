package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/config"
	"fulfill_dev_v1_202608/internal/controller"
	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/internal/router"
	"fulfill_dev_v1_202608/internal/service"
	"fulfill_dev_v1_202608/internal/task"
	"fulfill_dev_v1_202608/pkg/carrier"
	"fulfill_dev_v1_202608/pkg/database"
	"fulfill_dev_v1_202608/pkg/marketplace"
	"fulfill_dev_v1_202608/pkg/marketplace/etsy"
	"fulfill_dev_v1_202608/pkg/marketplace/shopify"
	"fulfill_dev_v1_202608/pkg/net"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	logger := initLogger(cfg)
	defer logger.Sync()

	// 3. 初始化数据库
	db := initDatabase(cfg)

	// 4. 初始化依赖
	deps := initDependencies(cfg, db, logger)

	// 5. 启动定时任务
	tasks := initTasks(deps)
	defer stopTasks(tasks)

	// 6. 初始化路由
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.InitRoutes(r, deps.OrderCtl, deps.SyncCtl)

	// 7. 启动服务
	startServer(r, cfg.Port)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Config *config.Config

	Repos    *Repositories
	Services *Services
	Probe    carrier.Probe

	OrderCtl *controller.OrderController
	SyncCtl  *controller.SyncController
}

// Repositories 仓库集合
type Repositories struct {
	Order         repository.OrderRepository
	Store         repository.StoreRepository
	ProductConfig repository.ProductConfigRepository
	SyncLog       repository.SyncLogRepository
}

// Services 服务集合
type Services struct {
	Resolver *service.StatusResolver
	Sync     *service.SyncService
	Workflow *service.WorkflowService
	Tracking *service.TrackingService
	Enrich   *service.EnrichmentService
}

// ==================== 初始化函数 ====================

// initLogger 初始化结构化日志
func initLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	return logger
}

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(cfg.Database.DSN(),
		&model.Store{},
		&model.Order{}, &model.OrderItem{},
		&model.ProductConfiguration{},
		&model.SyncLogEntry{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Order:         repository.NewOrderRepository(db),
		Store:         repository.NewStoreRepository(db),
		ProductConfig: repository.NewProductConfigRepository(db),
		SyncLog:       repository.NewSyncLogRepository(db),
	}

	// -------- 平台适配器 --------
	dispatcher := net.NewDispatcher(cfg.DispatchRatePerSec, cfg.DispatchBurst)

	etsyAdapter := etsy.NewAdapter(dispatcher, logger)
	if cfg.Etsy.BaseURL != "" {
		etsyAdapter.SetBaseURL(cfg.Etsy.BaseURL)
	}
	shopifyAdapter := shopify.NewAdapter(dispatcher, logger)
	shopifyAdapter.SetAPIVersion(cfg.Shopify.APIVersion)

	adapters := map[model.Platform]marketplace.Adapter{
		model.PlatformEtsy:    etsyAdapter,
		model.PlatformShopify: shopifyAdapter,
	}

	// -------- 业务服务 --------
	resolver := service.NewStatusResolver(repos.ProductConfig, logger)
	services := &Services{
		Resolver: resolver,
		Sync:     service.NewSyncService(repos.Order, repos.Store, repos.SyncLog, adapters, resolver, logger),
		Workflow: service.NewWorkflowService(repos.Order, resolver, logger),
		Tracking: service.NewTrackingService(repos.Order, repos.Store, adapters, logger),
		Enrich:   service.NewEnrichmentService(repos.Order, resolver, logger),
	}

	// -------- 轨迹探测（可选） --------
	var probe carrier.Probe
	if cfg.Carrier.BaseURL != "" {
		probe = carrier.NewHTTPProbe(cfg.Carrier.BaseURL, cfg.Carrier.ApiToken)
	}

	return &Dependencies{
		DB:       db,
		Logger:   logger,
		Config:   cfg,
		Repos:    repos,
		Services: services,
		Probe:    probe,
		OrderCtl: controller.NewOrderController(repos.Order, services.Workflow, services.Enrich),
		SyncCtl:  controller.NewSyncController(services.Sync, repos.Store, repos.SyncLog),
	}
}

// ==================== 定时任务 ====================

type stoppable interface {
	Stop()
}

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) []stoppable {
	syncTask := task.NewOrderSyncTask(deps.Services.Sync)
	syncTask.Start()

	trackingTask := task.NewTrackingTask(deps.Repos.Order, deps.Services.Tracking, deps.Services.Workflow, deps.Probe)
	trackingTask.Start()

	log.Println("定时任务已启动")
	return []stoppable{syncTask, trackingTask}
}

// stopTasks 停止定时任务
func stopTasks(tasks []stoppable) {
	for _, t := range tasks {
		t.Stop()
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务，阻塞到收到退出信号
func startServer(r *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("服务启动于 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("收到退出信号，正在关停...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("关停失败: %v", err)
	}
	log.Println("服务已退出")
}
