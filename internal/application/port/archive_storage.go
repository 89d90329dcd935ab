package port

import "context"

// ArchiveStorage объектное хранилище для архива журналов
type ArchiveStorage interface {
	// PutObject загружает объект
	PutObject(ctx context.Context, key, contentType string, body []byte) error

	// Exists проверяет наличие объекта
	Exists(ctx context.Context, key string) (bool, error)
}
