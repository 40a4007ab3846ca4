package database

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	MeetingsCollection  = "meetings"
	TeamsCollection     = "teams"
	ProposalsCollection = "proposals"

	// 單次資料庫操作的逾時
	opTimeout = 5 * time.Second
)

var (
	// ErrVersionConflict 文件在讀取後已被其他請求修改
	ErrVersionConflict = errors.New("document was modified concurrently")
	// ErrDuplicate 違反唯一索引 (例如同一 meetingId 已有進行中的會議)
	ErrDuplicate = errors.New("duplicate document")
)

var MongoClient *mongo.Client

// ConnectMongoDB 建立並初始化 MongoDB 連線
func ConnectMongoDB(uri, name string) *mongo.Database {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully!")
	MongoClient = client

	db := client.Database(name)
	if err := EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Println("MongoDB indexes are in place.")
	return db
}

// Connect 連線並 ping primary
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// EnsureIndexes 建立所有集合需要的索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// 每個 meetingId 最多只有一筆進行中的會議
	_, err := db.Collection(MeetingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "meetingId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_active_meeting").
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys:    bson.D{{Key: "meetingId", Value: 1}, {Key: "startTime", Value: -1}},
			Options: options.Index().SetName("meeting_start"),
		},
		{
			Keys:    bson.D{{Key: "participants.userId", Value: 1}, {Key: "startTime", Value: -1}},
			Options: options.Index().SetName("participant_history"),
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(TeamsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "membership.members.userId", Value: 1}},
			Options: options.Index().SetName("team_members"),
		},
		{
			Keys:    bson.D{{Key: "membership.invitations.userId", Value: 1}},
			Options: options.Index().SetName("team_invitations"),
		},
	})
	if err != nil {
		return err
	}

	// 同一團隊對同一職缺只能有一筆待審核的投標
	_, err = db.Collection(ProposalsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "teamId", Value: 1}, {Key: "jobId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_pending_team_proposal").
				SetPartialFilterExpression(bson.M{"kind": "team", "status": "pending"}),
		},
		{
			Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("team_proposals"),
		},
	})
	return err
}

// DisconnectMongoDB 關閉 MongoDB 連線
func DisconnectMongoDB() {
	if MongoClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := MongoClient.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	} else {
		log.Println("Disconnected from MongoDB.")
	}
}

// Ping 健康檢查用
func Ping(ctx context.Context) error {
	if MongoClient == nil {
		return errors.New("mongo client is not initialized")
	}
	return MongoClient.Ping(ctx, readpref.Primary())
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func translateWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
