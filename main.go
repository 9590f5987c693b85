package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TIANLI0/MarkKit/config"
	"github.com/TIANLI0/MarkKit/handler"
	"github.com/TIANLI0/MarkKit/middleware"
	"github.com/TIANLI0/MarkKit/model"
	"github.com/TIANLI0/MarkKit/service"
	"github.com/TIANLI0/MarkKit/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "markkit",
		Short:         "Place sign marks around images and replace backgrounds",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				return serve(cmd.Context(), cfg)
			},
		},
		newOverlayCmd(&configPath),
		newBackgroundCmd(&configPath),
		newMarksCmd(&configPath),
	)
	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return err
	}
	defer utils.Sync()

	utils.Logger.Info("starting MarkKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 确保暂存目录存在
	if err := os.MkdirAll(cfg.Upload.StagingDir, 0755); err != nil {
		utils.Logger.Error("failed to create staging directory", zap.Error(err))
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	var cache service.ResultCache = redisService
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		cache = service.NullCache{}
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	markService, err := newMarkService(ctx, cfg, cache)
	if err != nil {
		utils.Logger.Error("failed to initialize mark service", zap.Error(err))
		return err
	}

	// 初始化Handler
	markHandler := handler.NewMarkHandler(cfg, markService)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	markHandler.Register(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			utils.Logger.Error("failed to start server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	utils.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newMarkService 组装图标库、抠图服务和缓存
func newMarkService(ctx context.Context, cfg *config.Config, cache service.ResultCache) (*service.MarkService, error) {
	library, err := service.NewAssetLibrary(cfg.Assets.MarksDir, cfg.Assets.Extensions)
	if err != nil {
		return nil, err
	}
	if cfg.Assets.Watch {
		if err := library.Watch(ctx); err != nil {
			utils.Logger.Warn("marks directory watch disabled", zap.Error(err))
		}
	}

	matting, err := service.NewMatterFromConfig(&cfg.Matting)
	if err != nil {
		return nil, err
	}

	return service.NewMarkService(service.MarkServiceOptions{
		Library:        library,
		Matter:         matting,
		Cache:          cache,
		BackgroundPath: cfg.Assets.BackgroundPath,
		JPEGQuality:    cfg.Output.JPEGQuality,
	}), nil
}

func newOverlayCmd(configPath *string) *cobra.Command {
	var (
		base   string
		axis   string
		marks  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Place marks along two opposite edges of an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			a, err := model.ParseAxis(axis)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(base)
			if err != nil {
				return fmt.Errorf("failed to read base image: %w", err)
			}

			svc, err := newCLIService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			data, err := svc.OverlayMarks(cmd.Context(), raw, a, splitNames(marks))
			if err != nil {
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base image")
	cmd.Flags().StringVar(&axis, "axis", string(model.AxisTop), "layout axis: top or side")
	cmd.Flags().StringVar(&marks, "marks", service.AllMarks, "comma separated mark names")
	cmd.Flags().StringVarP(&output, "output", "o", "marked.jpg", "output file")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func newBackgroundCmd(configPath *string) *cobra.Command {
	var (
		foreground string
		background string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "background",
		Short: "Replace the background behind the subject of an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if background != "" {
				cfg.Assets.BackgroundPath = background
			}

			svc, err := newCLIService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			data, err := svc.ReplaceBackground(cmd.Context(), foreground)
			if err != nil {
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}
	cmd.Flags().StringVar(&foreground, "foreground", "", "image with the subject")
	cmd.Flags().StringVar(&background, "background", "", "new background image (defaults to assets.background_path)")
	cmd.Flags().StringVarP(&output, "output", "o", "background_changed.jpg", "output file")
	_ = cmd.MarkFlagRequired("foreground")
	return cmd
}

func newMarksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "marks",
		Short: "List available marks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			library, err := service.NewAssetLibrary(cfg.Assets.MarksDir, cfg.Assets.Extensions)
			if err != nil {
				return err
			}
			for _, m := range library.Marks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Name, m.Path)
			}
			return nil
		},
	}
}

// newCLIService 命令行不使用缓存，也不监听目录
func newCLIService(ctx context.Context, cfg *config.Config) (*service.MarkService, error) {
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		return nil, err
	}
	cfg.Assets.Watch = false
	return newMarkService(ctx, cfg, service.NullCache{})
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
