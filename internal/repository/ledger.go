package repository

import (
	"context"
	"database/sql"
)

// Querier абстрагирует *sql.DB и *sql.Tx: позволяет методам репозиториев
// работать и вне, и внутри транзакции settlement'а одним и тем же кодом.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Проверки соответствия интерфейсу на этапе компиляции
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
