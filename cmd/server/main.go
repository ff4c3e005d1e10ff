package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dm_chat/internal/attach"
	"dm_chat/internal/auth"
	"dm_chat/internal/config"
	chatRepo "dm_chat/internal/repository/chat"
	"dm_chat/internal/service/delivery"
	"dm_chat/internal/service/presence"
	redisSvc "dm_chat/internal/service/redis"
	"dm_chat/internal/service/server"
	"dm_chat/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	mongoDBClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("connect to mongo failed", zap.Error(err))
	}
	db := mongoDBClient.Database(cfg.MongoDB)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	redisService := redisSvc.NewRedis(rdb)

	repo := chatRepo.NewChatRepo(db)
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("create indexes failed", zap.Error(err))
	}

	attachments, err := attach.NewLocalStore(cfg.AttachDir, cfg.AttachNameKey)
	if err != nil {
		log.Fatal("init attachment store failed", zap.Error(err))
	}

	registry := presence.NewRegistry()
	engine := delivery.NewEngine(repo, registry, delivery.NewRedisQueue(redisService))
	authManager := auth.NewManager(cfg.AccessTokenSecret, cfg.TokenTTL)

	srv := server.NewHttpServer(cfg, registry, engine, repo, authManager, attachments)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.Run(); err != nil {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done

	registry.CloseAll()
	_ = mongoDBClient.Disconnect(context.Background())
	log.Sync()
}

func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
