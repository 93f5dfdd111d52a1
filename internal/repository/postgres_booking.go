package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is the read/write surface shared by the pool and an open
// transaction, so session and lock queries can run in either scope.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresBookingStore struct {
	db *pgxpool.Pool
}

func NewPostgresBookingStore(db *pgxpool.Pool) *PostgresBookingStore {
	return &PostgresBookingStore{
		db: db,
	}
}

func (p *PostgresBookingStore) CreateSession(ctx context.Context, session *domain.BookingSession) error {
	query := `
		INSERT INTO booking_sessions (id, user_id, showtime_id, state, total_price, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.ShowtimeID,
		session.State,
		session.TotalPrice.String(),
		session.ExpiresAt,
		session.Version).Scan(&session.CreatedAt, &session.UpdatedAt)

	return err
}

func (p *PostgresBookingStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error) {
	return getSession(ctx, p.db, sessionID, false)
}

func (p *PostgresBookingStore) SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	return seatLocksByShowtime(ctx, p.db, showtimeID)
}

// WithTx runs fn inside a serializable transaction. Store-level conflicts on
// commit (serialization failures, deadlocks, unique-constraint violations on
// the lock key) surface as a domain Conflict so the caller can retry; the
// engine never retries internally.
func (p *PostgresBookingStore) WithTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}

	err = fn(&bookingTx{tx: tx})
	if err == nil {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return translateError(commitErr)
		}

		return nil
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
		return errors.Join(translateError(err), rollbackErr)
	}

	return translateError(err)
}

func (p *PostgresBookingStore) DeleteExpiredSeatLocks(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM seat_locks WHERE locked_until < $1`, before)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresBookingStore) CancelExpiredDraftSessions(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE booking_sessions
		SET state = $1, version = version + 1, updated_at = now()
		WHERE state = $2 AND expires_at < $3
	`

	tag, err := p.db.Exec(ctx, query, domain.SessionStateCanceled, domain.SessionStateDraft, before)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresBookingStore) PurgeCanceledSessions(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM booking_sessions WHERE state = $1 AND updated_at < $2`

	tag, err := p.db.Exec(ctx, query, domain.SessionStateCanceled, before)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

type bookingTx struct {
	tx pgx.Tx
}

func (t *bookingTx) GetSessionForUpdate(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error) {
	return getSession(ctx, t.tx, sessionID, true)
}

func (t *bookingTx) SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	return seatLocksByShowtime(ctx, t.tx, showtimeID)
}

func (t *bookingTx) SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	return soldSeatIDs(ctx, t.tx, showtimeID, seatIDs)
}

func (t *bookingTx) UpsertSeatLocks(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	sessionID uuid.UUID,
	until time.Time) error {

	// Extends rows already owned by the session and reclaims expired rows;
	// rows actively held by another session are left untouched, which shows
	// up as a short row count below.
	query := `
		INSERT INTO seat_locks (showtime_id, seat_id, session_id, locked_until)
		SELECT $1, t.seat_id, $3, $4
		FROM unnest($2::int[]) AS t(seat_id)
		ON CONFLICT (showtime_id, seat_id) DO UPDATE
		SET session_id = EXCLUDED.session_id, locked_until = EXCLUDED.locked_until
		WHERE seat_locks.session_id = EXCLUDED.session_id OR seat_locks.locked_until <= now()
	`

	tag, err := t.tx.Exec(ctx, query, showtimeID, seatIDs, sessionID, until)
	if err != nil {
		return translateError(err)
	}

	if int(tag.RowsAffected()) != len(seatIDs) {
		return domain.ErrSeatConflict
	}

	return nil
}

func (t *bookingTx) DeleteSeatLocks(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	sessionID uuid.UUID) ([]int, error) {

	query := `
		DELETE FROM seat_locks
		WHERE showtime_id = $1 AND session_id = $2 AND seat_id = ANY($3)
		RETURNING seat_id
	`

	rows, err := t.tx.Query(ctx, query, showtimeID, sessionID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deleted := make([]int, 0, len(seatIDs))

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		deleted = append(deleted, seatID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deleted, nil
}

func (t *bookingTx) AddSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error {
	query := `
		INSERT INTO booking_session_seats (session_id, seat_id)
		SELECT $1, t.seat_id
		FROM unnest($2::int[]) AS t(seat_id)
		ON CONFLICT DO NOTHING
	`

	_, err := t.tx.Exec(ctx, query, sessionID, seatIDs)

	return translateError(err)
}

func (t *bookingTx) RemoveSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error {
	query := `DELETE FROM booking_session_seats WHERE session_id = $1 AND seat_id = ANY($2)`

	_, err := t.tx.Exec(ctx, query, sessionID, seatIDs)

	return err
}

func (t *bookingTx) ReplaceSessionCombos(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM booking_session_combos WHERE session_id = $1`, sessionID); err != nil {
		return err
	}

	if len(combos) == 0 {
		return nil
	}

	comboIDs := make([]int, len(combos))
	quantities := make([]int, len(combos))

	for i, combo := range combos {
		comboIDs[i] = combo.ComboID
		quantities[i] = combo.Quantity
	}

	query := `
		INSERT INTO booking_session_combos (session_id, combo_id, quantity)
		SELECT $1, c.combo_id, c.quantity
		FROM unnest($2::int[], $3::int[]) AS c(combo_id, quantity)
	`

	_, err := t.tx.Exec(ctx, query, sessionID, comboIDs, quantities)

	return translateError(err)
}

func (t *bookingTx) UpdateSession(ctx context.Context, session *domain.BookingSession) error {
	query := `
		UPDATE booking_sessions
		SET state = $2, total_price = $3, expires_at = $4, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version, updated_at
	`

	err := t.tx.QueryRow(
		ctx,
		query,
		session.ID,
		session.State,
		session.TotalPrice.String(),
		session.ExpiresAt).Scan(&session.Version, &session.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSessionNotFound
		}

		return err
	}

	return nil
}

func getSession(ctx context.Context, q querier, sessionID uuid.UUID, forUpdate bool) (*domain.BookingSession, error) {
	query := `
		SELECT id, user_id, showtime_id, state, total_price, expires_at, version, created_at, updated_at
		FROM booking_sessions
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		session domain.BookingSession
		price   pgtype.Numeric
	)

	err := q.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ShowtimeID,
		&session.State,
		&price,
		&session.ExpiresAt,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}

		return nil, err
	}

	session.TotalPrice = numericToDecimal(price)

	if session.SeatIDs, err = sessionSeatIDs(ctx, q, sessionID); err != nil {
		return nil, err
	}

	if session.Combos, err = sessionCombos(ctx, q, sessionID); err != nil {
		return nil, err
	}

	return &session, nil
}

func sessionSeatIDs(ctx context.Context, q querier, sessionID uuid.UUID) ([]int, error) {
	query := `SELECT seat_id FROM booking_session_seats WHERE session_id = $1 ORDER BY seat_id`

	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func sessionCombos(ctx context.Context, q querier, sessionID uuid.UUID) ([]domain.ComboItem, error) {
	query := `SELECT combo_id, quantity FROM booking_session_combos WHERE session_id = $1 ORDER BY combo_id`

	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	combos := make([]domain.ComboItem, 0)

	for rows.Next() {
		var combo domain.ComboItem

		if err := rows.Scan(&combo.ComboID, &combo.Quantity); err != nil {
			return nil, err
		}

		combos = append(combos, combo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return combos, nil
}

func seatLocksByShowtime(ctx context.Context, q querier, showtimeID int) ([]domain.SeatLock, error) {
	query := `
		SELECT showtime_id, seat_id, session_id, locked_until, created_at
		FROM seat_locks
		WHERE showtime_id = $1
		ORDER BY seat_id
	`

	rows, err := q.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locks := make([]domain.SeatLock, 0)

	for rows.Next() {
		var lock domain.SeatLock

		err := rows.Scan(
			&lock.ShowtimeID,
			&lock.SeatID,
			&lock.SessionID,
			&lock.LockedUntil,
			&lock.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		locks = append(locks, lock)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locks, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%w: %v", domain.ErrSeatConflict, err)
		}
	}

	return err
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	value, err := n.Float64Value()
	if err != nil {
		return decimal.Zero
	}

	return decimal.NewFromFloat(value.Float64)
}
