package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/seed_custody/config"
	"github.com/linlinbupt123-crypto/seed_custody/db"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Crit("Load config failed", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := db.NewMongoRepo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
	if err != nil {
		log.Crit("MongoDB connect error", "err", err)
	}
	defer func() {
		if err := repo.Close(ctx); err != nil {
			log.Error("MongoDB disconnect error", "err", err)
		}
	}()

	// 初始化所有 collection
	if err := initIndexes(ctx, repo); err != nil {
		log.Crit("Init indexes failed", "err", err)
	}

	log.Info("All indexes initialized successfully", "db", cfg.Store.MongoDB)
}

// 安全创建索引函数
func createIndexSafe(ctx context.Context, col *mongo.Collection, index mongo.IndexModel) error {
	_, err := col.Indexes().CreateOne(ctx, index)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil // 忽略已存在索引
		}
		return err
	}
	return nil
}

func createIndexes(ctx context.Context, col *mongo.Collection, indexes []mongo.IndexModel) error {
	for _, idx := range indexes {
		if err := createIndexSafe(ctx, col, idx); err != nil {
			return fmt.Errorf("%s index error: %w", col.Name(), err)
		}
	}
	return nil
}

// 初始化所有 collection 索引
func initIndexes(ctx context.Context, repo *db.MongoRepo) error {
	// addresses: 每个用户每个资产一行
	if err := createIndexes(ctx, repo.AddrColl, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "asset", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"wallet_id": 1}},
		{Keys: bson.M{"address": 1}},
	}); err != nil {
		return err
	}

	// wallets
	if err := createIndexes(ctx, repo.WalletColl, []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"seed_format": 1}},
	}); err != nil {
		return err
	}

	// default_addresses 以 asset 为 _id, 无需额外索引
	return nil
}
