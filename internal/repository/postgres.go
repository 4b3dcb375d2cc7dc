// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mkarpenko/attendance-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMemberExists возвращается при попытке создать участника с уже существующим логином.
var (
	ErrMemberExists = errors.New("member already exists")
	// ErrMemberNotFound возвращается, если участник не найден.
	ErrMemberNotFound = errors.New("member not found")
	// ErrNoOutstandingDebt возвращается при попытке оплаты без непогашенного долга.
	ErrNoOutstandingDebt = errors.New("no outstanding debt")
	// ErrPaymentExceedsDebt возвращается, если сумма платежа превышает остаток долга.
	ErrPaymentExceedsDebt = errors.New("payment exceeds outstanding debt")
)

// Settlement описывает запись о закрытой неделе участника.
type Settlement struct {
	WeekStart string
	Missed    bool
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраим только конфликты сериализации, дедлоки и обрывы соединения.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateMember создаёт нового участника.
func (r *PostgresRepository) CreateMember(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrMemberExists, login)
		}
		return 0, fmt.Errorf("create member: %w", err)
	}
	return id, nil
}

// GetMemberByLogin возвращает участника по логину.
func (r *PostgresRepository) GetMemberByLogin(ctx context.Context, login string) (*model.Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM members WHERE login = $1`,
		login,
	)

	var m model.Member
	err := row.Scan(&m.ID, &m.Login, &m.PasswordHash, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &m, nil
}

// ListMembers возвращает всех участников в порядке создания.
func (r *PostgresRepository) ListMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, login, password_hash, created_at FROM members ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Login, &m.PasswordHash, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return members, nil
}

// AddCheckin сохраняет отметку за день и возвращает признак того, что запись создана.
// Повторная отметка за тот же день не изменяет состояние (inserted = false).
func (r *PostgresRepository) AddCheckin(ctx context.Context, userID int64, day, proofURL string, checkedAt time.Time) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO checkins (user_id, day, proof_url, checked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, day) DO NOTHING`,
		userID, day, proofURL, checkedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert checkin: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// GetCheckinDays возвращает подмножество дней из days, в которые участник отмечался.
func (r *PostgresRepository) GetCheckinDays(ctx context.Context, userID int64, days []string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(day, 'YYYY-MM-DD')
		 FROM checkins
		 WHERE user_id = $1 AND day = ANY($2::date[])
		 ORDER BY day`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("select checkin days: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan checkin day: %w", err)
		}
		res = append(res, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCheckins возвращает все отметки участника в хронологическом порядке.
func (r *PostgresRepository) GetCheckins(ctx context.Context, userID int64) ([]model.Checkin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(day, 'YYYY-MM-DD'), proof_url, checked_at
		 FROM checkins
		 WHERE user_id = $1
		 ORDER BY day`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select checkins: %w", err)
	}
	defer rows.Close()

	var res []model.Checkin
	for rows.Next() {
		var c model.Checkin
		if err := rows.Scan(&c.Day, &c.ProofURL, &c.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetSettlement возвращает запись о закрытии недели или nil, если неделя ещё не закрыта.
func (r *PostgresRepository) GetSettlement(ctx context.Context, userID int64, weekStart string) (*Settlement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT to_char(week_start, 'YYYY-MM-DD'), missed
		 FROM settlements
		 WHERE user_id = $1 AND week_start = $2`,
		userID, weekStart,
	)

	var s Settlement
	err := row.Scan(&s.WeekStart, &s.Missed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	return &s, nil
}

// CreateSettlement фиксирует итог недели. Возвращает false, если неделя уже была закрыта ранее.
// Строка участника блокируется, чтобы закрытие недели сериализовалось с платежами.
func (r *PostgresRepository) CreateSettlement(ctx context.Context, userID int64, weekStart string, missed bool) (bool, error) {
	var inserted bool

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM members WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("lock member for update: %w", err)
		}

		cmdTag, err := tx.Exec(ctx,
			`INSERT INTO settlements (user_id, week_start, missed)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, week_start) DO NOTHING`,
			userID, weekStart, missed,
		)
		if err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}

		inserted = cmdTag.RowsAffected() == 1

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// GetLedgerTotals возвращает число проваленных недель и сумму всех платежей участника.
// Сумма штрафа выводится из числа проваленных недель на уровне сервиса.
func (r *PostgresRepository) GetLedgerTotals(ctx context.Context, userID int64) (int, int64, error) {
	var missedWeeks int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM settlements WHERE user_id = $1 AND missed`,
		userID,
	).Scan(&missedWeeks)
	if err != nil {
		return 0, 0, fmt.Errorf("count missed weeks: %w", err)
	}

	var paidTotal int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE user_id = $1`,
		userID,
	).Scan(&paidTotal)
	if err != nil {
		return 0, 0, fmt.Errorf("sum payments: %w", err)
	}

	return missedWeeks, paidTotal, nil
}

// CreatePayment создаёт запись о платеже. Использует блокировку строки участника,
// чтобы параллельные платежи не потеряли обновления и не превысили остаток долга.
func (r *PostgresRepository) CreatePayment(ctx context.Context, userID int64, amount int64) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM members WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("lock member for update: %w", err)
		}

		var missedWeeks int64
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM settlements WHERE user_id = $1 AND missed`,
			userID,
		).Scan(&missedWeeks)
		if err != nil {
			return fmt.Errorf("count missed weeks: %w", err)
		}

		var paidTotal int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE user_id = $1`,
			userID,
		).Scan(&paidTotal)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}

		outstanding := missedWeeks*model.FineUnit - paidTotal
		if outstanding <= 0 {
			return ErrNoOutstandingDebt
		}
		if amount > outstanding {
			return ErrPaymentExceedsDebt
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payments (user_id, amount) VALUES ($1, $2)`,
			userID, amount,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
