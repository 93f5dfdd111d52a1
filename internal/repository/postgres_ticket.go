package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTicketRepository reports sold seats. Tickets are written by the
// payment-confirmation flow downstream of this core; a VALID or USED ticket
// permanently blocks a seat from being locked again.
type PostgresTicketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTicketRepository(db *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		db: db,
	}
}

func (p *PostgresTicketRepository) SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	return soldSeatIDs(ctx, p.db, showtimeID, seatIDs)
}

func soldSeatIDs(ctx context.Context, q querier, showtimeID int, seatIDs []int) ([]int, error) {
	query := `SELECT seat_id FROM tickets WHERE showtime_id = $1 AND status IN ('VALID', 'USED')`
	args := []any{showtimeID}

	if len(seatIDs) > 0 {
		query += ` AND seat_id = ANY($2)`
		args = append(args, seatIDs)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sold := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		sold = append(sold, seatID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sold, nil
}
