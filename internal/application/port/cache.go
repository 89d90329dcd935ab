package port

import (
	"context"
	"time"
)

// Cache общий кэш между процессами агента на одном хосте
type Cache interface {
	// Get читает значение в dest; found = false при промахе
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// Set сохраняет значение с временем жизни ttl
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete удаляет ключ
	Delete(ctx context.Context, key string) error

	// Close закрывает соединение
	Close() error
}
