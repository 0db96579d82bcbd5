package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"homerent/bootstrap"
	btsConfig "homerent/config"
	"homerent/pkg/app"
	"homerent/pkg/config"
	"homerent/pkg/database"
	"homerent/pkg/jwt"
	"homerent/routes"
)

// 加载应用程序的基础配置
func init() {
	// 加载 config 目录下的配置信息
	btsConfig.Initialize()
}

func main() {
	// 解析命令行参数
	var env string
	flag.StringVar(&env, "env", "", "加载 .env 文件，例如 --env=testing 将加载 .env.testing 文件")
	flag.Parse()

	application, err := bootstrap.Boot(env)
	if err != nil {
		log.Fatalf("初始化应用程序失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.StartBackground(ctx)

	server := &http.Server{
		Addr:              ":" + config.Get("app.port"),
		Handler:           setupServer(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("服务器正在启动，监听端口 %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("服务器启动失败: %v", err)
			stop()
		}
	}()

	// 等待中断信号
	<-ctx.Done()
	log.Println("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务器关闭异常: %v", err)
	}
	application.Shutdown()

	log.Println("服务器已成功关闭")
}

// setupServer 配置并返回 Gin 服务器实例
func setupServer(a *bootstrap.Application) *gin.Engine {
	if !app.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	bootstrap.SetupRoute(router, routes.Dependencies{
		DB:       database.DB,
		JWT:      jwt.NewJWT(),
		Payments: a.Payments,
		Notify:   a.Notify,
		Queue:    a.Queue,
		Hub:      a.Hub,
	})
	return router
}
