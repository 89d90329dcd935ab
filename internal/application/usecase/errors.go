package usecase

import "errors"

var (
	// ErrNotFound запрошенных данных нет
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery некорректные параметры запроса
	ErrInvalidQuery = errors.New("invalid query")
)
