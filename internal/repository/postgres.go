package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx pool. Outside InTx every query
// runs in its own implicit transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
	*pgQueries
}

type pgQueries struct {
	*UserRepository
	*TransactionRepository
	*PlotRepository
	*TaskRepository
	*WithdrawalRepository
	*PromoRepository
	*SettingsRepository
	*LoginRepository
	*BanRepository
	*AuditRepository
}

func newQueries(db DBTX) *pgQueries {
	return &pgQueries{
		UserRepository:        NewUserRepository(db),
		TransactionRepository: NewTransactionRepository(db),
		PlotRepository:        NewPlotRepository(db),
		TaskRepository:        NewTaskRepository(db),
		WithdrawalRepository:  NewWithdrawalRepository(db),
		PromoRepository:       NewPromoRepository(db),
		SettingsRepository:    NewSettingsRepository(db),
		LoginRepository:       NewLoginRepository(db),
		BanRepository:         NewBanRepository(db),
		AuditRepository:       NewAuditRepository(db),
	}
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgQueries: newQueries(pool)}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(newQueries(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
