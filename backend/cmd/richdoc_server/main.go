package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"richdocServer/backend/config"
	"richdocServer/backend/internal/authservice"
	"richdocServer/backend/internal/cache"
	"richdocServer/backend/internal/collab"
	"richdocServer/backend/internal/httpapi/handlers"
	"richdocServer/backend/internal/httpapi/middleware"
	"richdocServer/backend/internal/mysqldb"
	"richdocServer/backend/internal/store"
	"richdocServer/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	authservice.SetSecret(cfg.Auth.JWTSecret)

	// === Redis（在线状态 + 内容缓存）===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("connect redis failed: %v", err)
	}
	defer rdb.Close()

	// === MySQL：文档/用户/快照走 database/sql，统计走 gorm ===
	db, err := sql.Open("mysql", cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	defer db.Close()

	gormDB, err := store.InitGorm(cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("init gorm failed: %v", err)
	}

	// === Kafka Producer（操作事件流）===
	kafkaCfg := sarama.NewConfig()
	// SyncProducer 必须开启 Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("connect kafka failed: %v", err)
	}
	defer producer.Close()

	presenceCache := cache.NewRedisPresence(rdb)
	contentCache := cache.NewRedisContentCache(rdb)
	hub := ws.NewHub(presenceCache)
	snapshotStore := store.NewSnapshotStore(db)
	documentStore := store.NewDocumentStore(db)
	userStore := store.NewUserStore(db)
	statsRepo := mysqldb.NewMySQLDocStatsRepo(gormDB)

	kafkaSem := collab.NewSemaphoreControl(cfg.Collab.MaxInflight)
	wsSem := collab.NewSemaphoreControl(cfg.Collab.MaxInflight)

	// Kafka 事件先进本地有界队列，worker 带退避重试补发
	dispatcher := collab.NewKafkaDispatcher(
		producer,
		cfg.Kafka.Topic,
		kafkaSem,
		collab.KafkaDispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  1 * time.Second,
		},
	)
	defer dispatcher.Close()

	svc := collab.NewInMemoryService(snapshotStore, documentStore, userStore, dispatcher)
	manager := ws.NewManager(hub, svc, wsSem, contentCache, statsRepo)
	docHandler := handlers.NewDocumentHandler(svc, contentCache, statsRepo)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// 认证
	auth := r.Group("/v1/auth")
	auth.POST("/login", func(c *gin.Context) { authservice.Login(c, db) })
	auth.POST("/register", func(c *gin.Context) { authservice.Register(c, db) })
	auth.POST("/refresh", authservice.Refresh)
	auth.POST("/verify", authservice.Verify)

	// 文档 REST（创建 / 内容 / 统计）
	docs := r.Group("/v1/docs")
	docs.Use(middleware.AuthMiddleware())
	docs.POST("", docHandler.CreateDocument)
	docs.GET("/:docID/content", docHandler.GetDocumentContent)
	docs.POST("/:docID/format", docHandler.FormatDocument)
	docs.GET("/:docID/stats", docHandler.GetDocStats)
	docs.POST("/:docID/like", docHandler.LikeDocument)

	// 实时协作（WebSocket 升级走 ?token= 鉴权）
	collabGroup := r.Group("/collab")
	collabGroup.Use(middleware.AuthMiddleware())
	collabGroup.GET("/ws", manager.WebSocketConnect)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	log.Printf("richdoc server listening on :%d", cfg.Running.Port)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Running.Port)); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
