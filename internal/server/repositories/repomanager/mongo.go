package repomanager

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrijs2005/authservice/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/users"
)

// MongoRepositoryManager serves the document backend. Transactions need a
// replica set or sharded cluster.
type MongoRepositoryManager struct {
	client        *mongo.Client
	users         *users.MongoRepository
	refreshTokens *refreshtokens.MongoRepository
}

func NewMongoRepositoryManager(client *mongo.Client, database string) *MongoRepositoryManager {
	db := client.Database(database)
	return &MongoRepositoryManager{
		client:        client,
		users:         users.NewMongoRepository(db),
		refreshTokens: refreshtokens.NewMongoRepository(db),
	}
}

func (m *MongoRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MongoRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

// RunMigrations creates the unique and lookup indexes.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return m.refreshTokens.EnsureIndexes(ctx)
}

// WithTx runs fn in a session transaction. The repositories are the same
// as outside; the session travels in ctx.
func (m *MongoRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, m)
	})
	return err
}

func (m *MongoRepositoryManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func connectMongo(uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	return mongo.Connect(options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
}
