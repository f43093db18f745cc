// Package app 负责进程级初始化：配置、日志、追踪、指标、存储与业务运行时，并组装 HTTP 服务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hsk3232/DevelopProject/pkg/api"
	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/jobs"
	"github.com/hsk3232/DevelopProject/pkg/internal/mq"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	"github.com/hsk3232/DevelopProject/pkg/internal/storage"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// Core 命令行与 HTTP 服务共用的初始化结果.
type Core struct {
	Config  *configs.AppConfig
	Manager *storage.Manager
	Runtime *service.Runtime
	Hub     *notify.Hub
}

// Bootstrap 加载配置并初始化日志、追踪、指标与存储，迁移数据库后构建 Runtime.
// WebSocket 开启时进度同时推送到 Hub.
func Bootstrap(ctx context.Context, configPath string) (*Core, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	if err := configs.Validate(); err != nil {
		return nil, err
	}

	cfg := configs.GetConfig()

	nlog.Init()

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	core := &Core{Config: cfg, Manager: manager}

	notifiers := notify.Multi{notify.Logger{Log: nlog.Component("progress")}}

	if cfg.Events.Enabled && cfg.Events.WebSocket.Enabled {
		core.Hub = notify.NewHub(cfg.Events.WebSocket.SendBuffer)
		notifiers = append(notifiers, core.Hub)
	}

	if cfg.Events.Enabled && cfg.Events.Publish.Progress {
		if mqc := manager.GetMQClient(); mqc != nil {
			notifiers = append(notifiers, notify.NewPublisher(mqc.Publisher()))
		}
	}

	rt, err := service.NewRuntime(manager, notifiers, cfg)
	if err != nil {
		return nil, err
	}

	if err := rt.Repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	core.Runtime = rt

	return core, nil
}

// Close 释放存储连接并刷新追踪数据.
func (c *Core) Close(ctx context.Context) error {
	var errs []error

	if c.Hub != nil {
		c.Hub.Close()
	}

	if c.Manager != nil {
		errs = append(errs, c.Manager.Close())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}

// App HTTP 服务.
type App struct {
	Engine *gin.Engine

	core     *Core
	sched    *scheduler.Scheduler
	listener *mq.Listener
	cancel   context.CancelFunc
}

// NewApp 初始化全部组件并注册路由、定时任务与 MQ 监听.
func NewApp(configPath string) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	core, err := Bootstrap(ctx, configPath)
	if err != nil {
		cancel()

		return nil, err
	}

	cfg := core.Config
	a := &App{core: core, cancel: cancel}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	l := nlog.Logger()
	gin.DefaultWriter = nlog.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = nlog.NewGinWriter(l, zerolog.ErrorLevel)

	if cfg.Jobs.Enabled {
		if a.sched, err = scheduler.NewScheduler(); err != nil {
			cancel()

			return nil, fmt.Errorf("init scheduler: %w", err)
		}

		if err := jobs.RegisterCronJobs(a.sched, core.Runtime); err != nil {
			cancel()

			return nil, fmt.Errorf("register jobs: %w", err)
		}

		a.sched.Start()
	}

	if mqc := core.Manager.GetMQClient(); mqc != nil {
		a.listener = mq.NewListener(core.Runtime, mqc)
		if err := a.listener.Start(ctx); err != nil {
			cancel()

			return nil, fmt.Errorf("start listener: %w", err)
		}
	}

	a.Engine = api.NewEngine(api.Deps{
		Config:    cfg,
		Manager:   core.Manager,
		Runtime:   core.Runtime,
		Hub:       core.Hub,
		Scheduler: a.sched,
	})

	return a, nil
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭并释放资源.
func (a *App) Run(ctx context.Context) error {
	cfg := a.core.Config

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: cfg.Server.GetReadHeaderTimeout(),
	}

	errCh := make(chan error, 1)

	go func() {
		nlog.Logger().Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.shutdown()

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	err := srv.Shutdown(shutdownCtx)

	a.shutdown()

	return err
}

func (a *App) shutdown() {
	a.cancel()

	if a.listener != nil {
		a.listener.Wait()
	}

	if a.sched != nil {
		if err := a.sched.Stop(); err != nil {
			nlog.Logger().Warn().Err(err).Msg("stop scheduler")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.core.Close(ctx); err != nil {
		nlog.Logger().Warn().Err(err).Msg("close resources")
	}
}
