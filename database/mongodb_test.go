package database

import (
	"context"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

var testClient *mongo.Client

// TestMain 啟動一個 MongoDB 容器；沒有 Docker 或使用 -short 時，整合測試會被略過
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Printf("MongoDB container unavailable, integration tests will be skipped: %v", err)
		os.Exit(m.Run())
	}

	uri, err := container.ConnectionString(ctx)
	if err == nil {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		testClient, err = Connect(connectCtx, uri)
		cancel()
	}
	if err != nil {
		log.Printf("Failed to connect to MongoDB container: %v", err)
	}

	code := m.Run()

	if testClient != nil {
		_ = testClient.Disconnect(ctx)
	}
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("Failed to terminate MongoDB container: %v", err)
	}
	os.Exit(code)
}

// newTestDB 每個測試使用獨立的資料庫
func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testClient == nil {
		t.Skip("MongoDB is not available")
	}
	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := testClient.Database(name)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})
	return db
}
