package ledger

import (
	"context"
	"fmt"

	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
)

// Open builds the store selected by cfg.Driver, wrapped with an AMQP
// publisher when cfg.AMQPURL is set.
func Open(ctx context.Context, cfg types.LedgerConfig, log logger.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case "", "memory":
		store = NewMemory()
	case "file":
		store, err = NewFileStore(cfg.Path)
	case "mysql":
		store, err = NewMySQLStore(ctx, cfg.DSN)
	case "postgres":
		store, err = NewPostgresStore(ctx, cfg.DSN)
	case "redis":
		store, err = NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisKey)
	default:
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("unknown ledger driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, err
	}

	if cfg.AMQPURL == "" {
		return store, nil
	}
	pub, err := NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return NewAMQPPublisher(store, pub, log), nil
}
