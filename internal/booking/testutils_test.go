package booking

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/burakelik/cinema-ticketing/internal/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testShowtimeID = 1
	testScreenID   = 1
	testBasePrice  = 50.0
)

var testStartTime = time.Now().Add(24 * time.Hour)

// Two rows of five seats each: row A holds ids 1-5, row B ids 6-10. Seat 10
// is permanently blocked.
func testSeats() []domain.Seat {
	seats := make([]domain.Seat, 0, 10)

	for i := 1; i <= 5; i++ {
		seats = append(seats, domain.Seat{
			ID: i, ScreenID: testScreenID, Row: "A", Number: i, Type: "Standard",
			Status: domain.SeatStatusAvailable, ExtraPrice: decimal.Zero,
		})
	}
	for i := 6; i <= 10; i++ {
		seats = append(seats, domain.Seat{
			ID: i, ScreenID: testScreenID, Row: "B", Number: i - 5, Type: "VIP",
			Status: domain.SeatStatusAvailable, ExtraPrice: decimal.NewFromInt(15),
		})
	}

	seats[9].Status = domain.SeatStatusBlocked

	return seats
}

func testMetadata(seats []domain.Seat) *mocks.MockMetadataReader {
	byID := make(map[int]domain.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}

	return &mocks.MockMetadataReader{
		GetShowtimeFunc: func(ctx context.Context, showtimeID int) (*domain.Showtime, error) {
			if showtimeID != testShowtimeID {
				return nil, domain.ErrShowtimeNotFound
			}
			return &domain.Showtime{
				ID:        testShowtimeID,
				ScreenID:  testScreenID,
				StartTime: testStartTime,
				BasePrice: decimal.NewFromFloat(testBasePrice),
			}, nil
		},
		GetSeatsByIDsFunc: func(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
			var out []domain.Seat
			for _, id := range seatIDs {
				if seat, ok := byID[id]; ok {
					out = append(out, seat)
				}
			}
			return out, nil
		},
		GetSeatsByScreenAndRowsFunc: func(ctx context.Context, screenID int, rows []string) ([]domain.Seat, error) {
			wanted := make(map[string]bool, len(rows))
			for _, row := range rows {
				wanted[row] = true
			}

			var out []domain.Seat
			for _, seat := range seats {
				if seat.ScreenID == screenID && wanted[seat.Row] {
					out = append(out, seat)
				}
			}
			return out, nil
		},
		GetSeatsByScreenFunc: func(ctx context.Context, screenID int) ([]domain.Seat, error) {
			var out []domain.Seat
			for _, seat := range seats {
				if seat.ScreenID == screenID {
					out = append(out, seat)
				}
			}
			return out, nil
		},
	}
}

// memStore is an in-memory BookingStore. WithTx holds the store mutex for the
// whole callback and rolls back to a snapshot on error, which mirrors the
// atomicity the engine gets from serializable transactions.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[uuid.UUID]*domain.BookingSession
	locks    map[int]map[int]domain.SeatLock
	sold     map[int][]int
}

func newMemStore() *memStore {
	return &memStore{
		now:      time.Now,
		sessions: make(map[uuid.UUID]*domain.BookingSession),
		locks:    make(map[int]map[int]domain.SeatLock),
		sold:     make(map[int][]int),
	}
}

func (s *memStore) markSold(showtimeID int, seatIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sold[showtimeID] = append(s.sold[showtimeID], seatIDs...)
}

func (s *memStore) CreateSession(ctx context.Context, session *domain.BookingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	s.sessions[session.ID] = copySession(session)

	return nil
}

func (s *memStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getSessionLocked(sessionID)
}

func (s *memStore) getSessionLocked(sessionID uuid.UUID) (*domain.BookingSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return copySession(session), nil
}

func (s *memStore) SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seatLocksLocked(showtimeID), nil
}

func (s *memStore) seatLocksLocked(showtimeID int) []domain.SeatLock {
	var locks []domain.SeatLock
	for _, lock := range s.locks[showtimeID] {
		locks = append(locks, lock)
	}

	sort.Slice(locks, func(i, j int) bool { return locks[i].SeatID < locks[j].SeatID })

	return locks
}

// SoldSeatIDs makes memStore usable as the engine's TicketReader too.
func (s *memStore) SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.soldSeatIDsLocked(showtimeID, seatIDs), nil
}

func (s *memStore) soldSeatIDsLocked(showtimeID int, seatIDs []int) []int {
	sold := s.sold[showtimeID]
	if len(seatIDs) == 0 {
		return append([]int{}, sold...)
	}

	wanted := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		wanted[id] = true
	}

	var out []int
	for _, id := range sold {
		if wanted[id] {
			out = append(out, id)
		}
	}

	return out
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapSessions := make(map[uuid.UUID]*domain.BookingSession, len(s.sessions))
	for id, session := range s.sessions {
		snapSessions[id] = copySession(session)
	}

	snapLocks := make(map[int]map[int]domain.SeatLock, len(s.locks))
	for showtimeID, locks := range s.locks {
		inner := make(map[int]domain.SeatLock, len(locks))
		for seatID, lock := range locks {
			inner[seatID] = lock
		}
		snapLocks[showtimeID] = inner
	}

	err := fn(&memTx{store: s})
	if err != nil {
		s.sessions = snapSessions
		s.locks = snapLocks
	}

	return err
}

type memTx struct {
	store *memStore
}

func (t *memTx) GetSessionForUpdate(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error) {
	return t.store.getSessionLocked(sessionID)
}

func (t *memTx) SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	return t.store.seatLocksLocked(showtimeID), nil
}

func (t *memTx) SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	return t.store.soldSeatIDsLocked(showtimeID, seatIDs), nil
}

func (t *memTx) UpsertSeatLocks(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	sessionID uuid.UUID,
	until time.Time) error {

	locks := t.store.locks[showtimeID]
	if locks == nil {
		locks = make(map[int]domain.SeatLock)
		t.store.locks[showtimeID] = locks
	}

	now := t.store.now()
	for _, seatID := range seatIDs {
		existing, ok := locks[seatID]
		if ok && existing.SessionID != sessionID && !existing.ExpiredAt(now) {
			return domain.ErrSeatConflict
		}

		locks[seatID] = domain.SeatLock{
			ShowtimeID:  showtimeID,
			SeatID:      seatID,
			SessionID:   sessionID,
			LockedUntil: until,
			CreatedAt:   now,
		}
	}

	return nil
}

func (t *memTx) DeleteSeatLocks(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	sessionID uuid.UUID) ([]int, error) {

	var deleted []int
	for _, seatID := range seatIDs {
		lock, ok := t.store.locks[showtimeID][seatID]
		if ok && lock.SessionID == sessionID {
			delete(t.store.locks[showtimeID], seatID)
			deleted = append(deleted, seatID)
		}
	}

	sort.Ints(deleted)

	return deleted, nil
}

func (t *memTx) AddSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error {
	session, ok := t.store.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	session.SeatIDs = append(session.SeatIDs, seatIDs...)
	sort.Ints(session.SeatIDs)

	return nil
}

func (t *memTx) RemoveSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error {
	session, ok := t.store.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	drop := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		drop[id] = true
	}

	var kept []int
	for _, id := range session.SeatIDs {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	session.SeatIDs = kept

	return nil
}

func (t *memTx) ReplaceSessionCombos(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) error {
	session, ok := t.store.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	session.Combos = append([]domain.ComboItem{}, combos...)

	return nil
}

func (t *memTx) UpdateSession(ctx context.Context, session *domain.BookingSession) error {
	stored, ok := t.store.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	stored.State = session.State
	stored.TotalPrice = session.TotalPrice
	stored.ExpiresAt = session.ExpiresAt
	stored.Version++
	stored.UpdatedAt = time.Now()

	session.Version = stored.Version
	session.UpdatedAt = stored.UpdatedAt

	return nil
}

func copySession(session *domain.BookingSession) *domain.BookingSession {
	clone := *session
	clone.SeatIDs = append([]int{}, session.SeatIDs...)
	clone.Combos = append([]domain.ComboItem{}, session.Combos...)

	return &clone
}

func newTestEngine(store *memStore, opts ...func(*Engine)) (*Engine, *mocks.MockSeatEventPublisher) {
	publisher := &mocks.MockSeatEventPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(store, testMetadata(testSeats()), store, publisher, logger, DefaultConfig())

	for _, opt := range opts {
		opt(engine)
	}

	return engine, publisher
}

// interceptStore lets a test run a hook between the engine's pre-transaction
// reads and the transaction itself, standing in for a concurrent commit that
// lands in that window.
type interceptStore struct {
	*memStore
	beforeTx func()
}

func (s *interceptStore) WithTx(ctx context.Context, fn func(tx domain.BookingTx) error) error {
	if hook := s.beforeTx; hook != nil {
		s.beforeTx = nil
		hook()
	}

	return s.memStore.WithTx(ctx, fn)
}

func newInterceptEngine(store *memStore) (*Engine, *interceptStore) {
	wrapped := &interceptStore{memStore: store}
	publisher := &mocks.MockSeatEventPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(wrapped, testMetadata(testSeats()), store, publisher, logger, DefaultConfig())

	return engine, wrapped
}

func createDraftSession(t *testing.T, engine *Engine) *domain.BookingSession {
	t.Helper()

	session, err := engine.CreateSession(context.Background(), testShowtimeID, nil)
	require.NoError(t, err)

	return session
}

// requireLocksMatchSession asserts the core invariant: the set of active lock
// rows owned by the session equals the session's recorded seat ids.
func requireLocksMatchSession(t *testing.T, store *memStore, sessionID uuid.UUID) {
	t.Helper()

	session, err := store.GetSession(context.Background(), sessionID)
	require.NoError(t, err)

	locks, err := store.SeatLocksByShowtime(context.Background(), session.ShowtimeID)
	require.NoError(t, err)

	var owned []int
	for _, lock := range locks {
		if lock.SessionID == sessionID {
			owned = append(owned, lock.SeatID)
		}
	}
	sort.Ints(owned)

	want := append([]int{}, session.SeatIDs...)
	sort.Ints(want)

	if len(owned) == 0 && len(want) == 0 {
		return
	}

	require.Equal(t, want, owned)
}
