// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alienx-go/internal/config"
	"alienx-go/internal/handler"
	"alienx-go/internal/middleware"
	"alienx-go/internal/model"
	"alienx-go/internal/pipeline"
	"alienx-go/internal/repository"
	"alienx-go/internal/service"
	"alienx-go/pkg/asr"
	"alienx-go/pkg/database"
	"alienx-go/pkg/genai"
	"alienx-go/pkg/kafka"
	"alienx-go/pkg/log"
	"alienx-go/pkg/storage"
	"alienx-go/pkg/token"
	"alienx-go/pkg/translate"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与对象存储
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := database.DB.AutoMigrate(&model.TurnRecord{}); err != nil {
		log.Fatal("迁移数据表失败", err)
	}

	// 4. 加载知识语料（启动即失败，不留到运行时）
	articles, err := service.LoadCorpus(cfg.Assistant.KBPath)
	if err != nil {
		log.Fatal("加载知识库失败", err)
	}
	knowledgeService := service.NewKnowledgeService(articles)
	log.Infof("知识库加载成功，共 %d 条记录", knowledgeService.Size())

	// 5. 初始化 Repository
	turnRepo := repository.NewTurnRepository(database.DB)
	var contextRepo repository.ContextRepository
	if cfg.Assistant.ContextStore == "redis" {
		contextRepo = repository.NewRedisContextRepository(database.RDB, cfg.Assistant.MaxHistory)
	} else {
		contextRepo = repository.NewMemoryContextRepository(cfg.Assistant.MaxHistory)
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.Session.Secret, cfg.Session.ExpireHours)
	genClient := genai.NewClient(cfg.GenAI)
	translateClient := translate.NewClient(cfg.Translate)
	asrClient := asr.NewClient(cfg.ASR)
	producer := kafka.NewProducer(cfg.Kafka)

	languageService := service.NewLanguageService(translateClient)
	chatService := service.NewChatService(genClient)
	assistantService := service.NewAssistantService(knowledgeService, languageService, chatService, contextRepo, producer)
	speechService := service.NewSpeechService(asrClient, storage.NewAudioArchive(cfg.MinIO))
	conversationService := service.NewConversationService(turnRepo)

	// 7. 启动后台 Kafka 消费者，将交互事件归档到 MySQL
	processor := pipeline.NewProcessor(turnRepo)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件、会话解析中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), middleware.SessionResolver(jwtManager), gin.Recovery())

	// 9. 注册路由
	// 对话入口保持扁平路径，与语音前端的调用约定一致
	r.POST("/process_query", handler.NewQueryHandler(assistantService).ProcessQuery)
	r.POST("/upload_audio", handler.NewAudioHandler(speechService, assistantService).UploadAudio)
	r.POST("/clear_context", handler.NewContextHandler(assistantService).ClearContext)
	r.StaticFile("/", "./static/index.html")

	// WebSocket 聊天入口，路径参数携带会话令牌
	r.GET("/chat/:token", handler.NewChatHandler(assistantService, jwtManager).Handle)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/session", handler.NewSessionHandler(jwtManager).CreateSession)
		apiV1.GET("/conversation", handler.NewConversationHandler(conversationService).GetConversation)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
