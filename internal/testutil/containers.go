// Package testutil starts throwaway backing services for integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AyushGupta011/Velyra/internal/db"
	"github.com/AyushGupta011/Velyra/internal/logging"
)

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	return container, host
}

// StartPostgres launches Postgres, applies the embedded migrations and returns
// a pool together with its DSN.
func StartPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, host := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "velyra"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	})
	mapped, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	port := mapped.Port()

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/velyra?sslmode=disable", host, port)
	require.NoError(t, db.RunMigrations(dsn, logging.Discard()))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, dsn
}

// StartRabbitMQ launches RabbitMQ and returns a ready AMQP connection.
func StartRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, host := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
	})
	mapped, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	port := mapped.Port()

	var conn *amqp.Connection
	require.Eventually(t, func() bool {
		c, err := amqp.DialConfig("amqp://guest:guest@"+host+":"+port+"/", amqp.Config{
			Dial: amqp.DefaultDial(10 * time.Second),
		})
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 60*time.Second, 500*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// StartRedis launches Redis and returns a connected client.
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, host := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	})
	mapped, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	port := mapped.Port()

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}
