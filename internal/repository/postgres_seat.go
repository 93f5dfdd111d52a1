package repository

import (
	"context"
	"errors"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMetadataRepository reads seat geometry and showtime timing. The
// tables it touches are owned by the cinema administration side; nothing
// here writes.
type PostgresMetadataRepository struct {
	db *pgxpool.Pool
}

func NewPostgresMetadataRepository(db *pgxpool.Pool) *PostgresMetadataRepository {
	return &PostgresMetadataRepository{
		db: db,
	}
}

func (p *PostgresMetadataRepository) GetShowtime(ctx context.Context, showtimeID int) (*domain.Showtime, error) {
	query := `SELECT id, screen_id, start_time, base_price FROM showtimes WHERE id = $1`

	var (
		showtime domain.Showtime
		price    pgtype.Numeric
	)

	err := p.db.QueryRow(ctx, query, showtimeID).Scan(
		&showtime.ID,
		&showtime.ScreenID,
		&showtime.StartTime,
		&price,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShowtimeNotFound
		}

		return nil, err
	}

	showtime.BasePrice = numericToDecimal(price)

	return &showtime, nil
}

func (p *PostgresMetadataRepository) GetSeatsByIDs(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
	query := `
		SELECT id, screen_id, seat_row, seat_number, seat_type, status, extra_price
		FROM seats
		WHERE id = ANY($1)
		ORDER BY seat_row, seat_number
	`

	return p.querySeats(ctx, query, seatIDs)
}

func (p *PostgresMetadataRepository) GetSeatsByScreenAndRows(
	ctx context.Context,
	screenID int,
	rows []string) ([]domain.Seat, error) {

	query := `
		SELECT id, screen_id, seat_row, seat_number, seat_type, status, extra_price
		FROM seats
		WHERE screen_id = $1 AND seat_row = ANY($2)
		ORDER BY seat_row, seat_number
	`

	return p.querySeats(ctx, query, screenID, rows)
}

func (p *PostgresMetadataRepository) GetSeatsByScreen(ctx context.Context, screenID int) ([]domain.Seat, error) {
	query := `
		SELECT id, screen_id, seat_row, seat_number, seat_type, status, extra_price
		FROM seats
		WHERE screen_id = $1
		ORDER BY seat_row, seat_number
	`

	return p.querySeats(ctx, query, screenID)
}

func (p *PostgresMetadataRepository) querySeats(ctx context.Context, query string, args ...any) ([]domain.Seat, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var (
			seat  domain.Seat
			price pgtype.Numeric
		)

		err := rows.Scan(
			&seat.ID,
			&seat.ScreenID,
			&seat.Row,
			&seat.Number,
			&seat.Type,
			&seat.Status,
			&price,
		)
		if err != nil {
			return nil, err
		}

		seat.ExtraPrice = numericToDecimal(price)

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
