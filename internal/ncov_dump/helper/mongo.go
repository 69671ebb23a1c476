package helper

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Cursor 文档游标，*mongo.Cursor 天然满足
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// DocumentStore 后端存储，只需要一个按 (updateTime desc, crawlTime desc) 导出集合的操作
type DocumentStore interface {
	Dump(ctx context.Context, collection string) (Cursor, error)
}

// dumpSort 导出排序键，时间序列文件的顺序依赖于它
var dumpSort = bson.D{
	{Key: "updateTime", Value: -1},
	{Key: "crawlTime", Value: -1},
}

type Stores struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func MustMongo(ctx context.Context, host, dbname, username, password, authSource string) *Stores {
	clientOpts := options.Client().ApplyURI("mongodb://" + host)
	if username != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   username,
			Password:   password,
			AuthSource: authSource,
		})
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		panic(err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		panic(err)
	}

	return &Stores{
		Client: cli,
		DB:     cli.Database(dbname),
	}
}

// EnsureIndexes 为每个集合建立导出排序用的复合索引
func (s *Stores) EnsureIndexes(ctx context.Context, collections []string) error {
	for _, name := range collections {
		_, err := s.DB.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: dumpSort})
		if err != nil {
			return err
		}
	}
	return nil
}

// MongoStore 基于 Mongo 聚合管道的 DocumentStore
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

// Dump 结果集可能很大，允许落盘排序
func (s *MongoStore) Dump(ctx context.Context, collection string) (Cursor, error) {
	pipeline := mongo.Pipeline{{{Key: "$sort", Value: dumpSort}}}
	cur, err := s.DB.Collection(collection).Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, err
	}
	return cur, nil
}
