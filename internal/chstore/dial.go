package chstore

import (
	"context"
	"log"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cenkalti/backoff/v4"
)

// Options addresses a ClickHouse server.
type Options struct {
	Addr     string
	Database string
	User     string
	Password string

	// MaxElapsed bounds connection retries; zero means one minute.
	MaxElapsed time.Duration
}

func (o Options) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = o.MaxElapsed
	if bo.MaxElapsedTime == 0 {
		bo.MaxElapsedTime = time.Minute
	}
	return backoff.WithContext(bo, ctx)
}

func logRetry(err error, wait time.Duration) {
	log.Printf("ClickHouse not ready (%v), retrying in %v", err, wait.Round(time.Millisecond))
}

// Dial opens a native ch-go connection, retrying with exponential backoff.
func Dial(ctx context.Context, o Options) (*ch.Client, error) {
	return backoff.RetryNotifyWithData(func() (*ch.Client, error) {
		return ch.Dial(ctx, ch.Options{
			Address:     o.Addr,
			Database:    o.Database,
			User:        o.User,
			Password:    o.Password,
			Compression: ch.CompressionLZ4,
		})
	}, o.backOff(ctx), logRetry)
}

// Open opens a clickhouse-go connection and pings it, retrying with
// exponential backoff.
func Open(ctx context.Context, o Options) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{o.Addr},
		Auth: clickhouse.Auth{
			Database: o.Database,
			Username: o.User,
			Password: o.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}

	if err := backoff.RetryNotify(func() error {
		return conn.Ping(ctx)
	}, o.backOff(ctx), logRetry); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
