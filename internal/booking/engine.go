package booking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Config struct {
	SeatLockTTL        time.Duration
	SessionTTL         time.Duration
	CheckoutHold       time.Duration
	MaxSeatsPerSession int
	PublishRetries     int
	PublishBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		SeatLockTTL:        3 * time.Minute,
		SessionTTL:         10 * time.Minute,
		CheckoutHold:       15 * time.Minute,
		MaxSeatsPerSession: 8,
		PublishRetries:     3,
		PublishBackoff:     100 * time.Millisecond,
	}
}

// Engine implements the seat lock protocol: Lock, Release and Replace mutate
// the seat-lock table and the owning session's item list inside one
// serializable transaction, so the two can never diverge. Every
// read-then-decide-then-write step is re-executed inside the transaction
// because the pre-transaction reads can be stale by the time it starts.
type Engine struct {
	store    domain.BookingStore
	metadata domain.MetadataReader
	tickets  domain.TicketReader
	events   domain.SeatEventPublisher
	logger   *slog.Logger
	cfg      Config

	now func() time.Time
}

func NewEngine(
	store domain.BookingStore,
	metadata domain.MetadataReader,
	tickets domain.TicketReader,
	events domain.SeatEventPublisher,
	logger *slog.Logger,
	cfg Config) *Engine {

	return &Engine{
		store:    store,
		metadata: metadata,
		tickets:  tickets,
		events:   events,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Result is returned by every mutating operation so clients can reconcile
// their local state. Version is a staleness signal only; correctness rests
// on the store's transaction isolation.
type Result struct {
	SessionID       uuid.UUID
	ShowtimeID      int
	State           domain.SessionState
	AffectedSeatIDs []int
	LockedUntil     *time.Time
	SeatIDs         []int
	Version         int
}

func (e *Engine) CreateSession(ctx context.Context, showtimeID int, userID *int) (*domain.BookingSession, error) {
	showtime, err := e.metadata.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !showtime.Bookable(now) {
		return nil, domain.ErrShowtimeNotBookable
	}

	session := &domain.BookingSession{
		ID:         uuid.New(),
		UserID:     userID,
		ShowtimeID: showtimeID,
		State:      domain.SessionStateDraft,
		TotalPrice: decimal.Zero,
		ExpiresAt:  now.Add(e.cfg.SessionTTL),
		Version:    1,
	}

	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Lock acquires the requested seats for the session: it extends locks the
// session already owns, reclaims expired locks and inserts new rows, then
// merges the seat ids into the session's item list and resets the session
// TTL. The whole request succeeds or nothing changes.
func (e *Engine) Lock(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*Result, error) {
	seatIDs = dedupeInts(seatIDs)
	if len(seatIDs) == 0 {
		return nil, domain.ErrNoSeatsRequested
	}

	_, showtime, err := e.sessionForMutation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	requested, err := e.seatsOnScreen(ctx, showtime.ScreenID, seatIDs)
	if err != nil {
		return nil, err
	}

	rowSeats, err := e.metadata.GetSeatsByScreenAndRows(ctx, showtime.ScreenID, rowsOf(requested))
	if err != nil {
		return nil, err
	}

	var (
		res     *Result
		pending []domain.SeatEvent
	)

	err = e.store.WithTx(ctx, func(tx domain.BookingTx) error {
		fresh, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := draftCheck(fresh, now); err != nil {
			return err
		}

		endState := unionInts(fresh.SeatIDs, seatIDs)
		if len(endState) > e.cfg.MaxSeatsPerSession {
			return domain.ErrSeatCapExceeded
		}

		if err := e.checkContention(ctx, tx, fresh, seatIDs, rowSeats, endState, now); err != nil {
			return err
		}

		until := now.Add(e.cfg.SeatLockTTL)
		if err := tx.UpsertSeatLocks(ctx, fresh.ShowtimeID, seatIDs, fresh.ID, until); err != nil {
			return err
		}

		if added := subtractInts(seatIDs, fresh.SeatIDs); len(added) > 0 {
			if err := tx.AddSessionSeats(ctx, fresh.ID, added); err != nil {
				return err
			}
		}

		fresh.SeatIDs = endState
		fresh.ExpiresAt = now.Add(e.cfg.SessionTTL)

		if fresh.TotalPrice, err = e.totalPrice(ctx, showtime, endState); err != nil {
			return err
		}

		if err := tx.UpdateSession(ctx, fresh); err != nil {
			return err
		}

		pending = seatEvents(domain.SeatEventLocked, fresh.ShowtimeID, seatIDs, &until)
		res = &Result{
			SessionID:       fresh.ID,
			ShowtimeID:      fresh.ShowtimeID,
			State:           fresh.State,
			AffectedSeatIDs: seatIDs,
			LockedUntil:     &until,
			SeatIDs:         endState,
			Version:         fresh.Version,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)

	return res, nil
}

// Release deletes the lock rows in seatIDs owned by the session, silently
// ignoring ids it does not hold, and removes them from the item list. It
// does not reset the session TTL.
func (e *Engine) Release(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*Result, error) {
	seatIDs = dedupeInts(seatIDs)
	if len(seatIDs) == 0 {
		return nil, domain.ErrNoSeatsRequested
	}

	_, showtime, err := e.sessionForMutation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		res     *Result
		pending []domain.SeatEvent
	)

	err = e.store.WithTx(ctx, func(tx domain.BookingTx) error {
		fresh, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := draftCheck(fresh, now); err != nil {
			return err
		}

		released := intersectInts(seatIDs, fresh.SeatIDs)

		if _, err := tx.DeleteSeatLocks(ctx, fresh.ShowtimeID, seatIDs, fresh.ID); err != nil {
			return err
		}

		if len(released) > 0 {
			if err := tx.RemoveSessionSeats(ctx, fresh.ID, released); err != nil {
				return err
			}
		}

		fresh.SeatIDs = subtractInts(fresh.SeatIDs, released)

		if fresh.TotalPrice, err = e.totalPrice(ctx, showtime, fresh.SeatIDs); err != nil {
			return err
		}

		if err := tx.UpdateSession(ctx, fresh); err != nil {
			return err
		}

		pending = seatEvents(domain.SeatEventReleased, fresh.ShowtimeID, released, nil)
		res = &Result{
			SessionID:       fresh.ID,
			ShowtimeID:      fresh.ShowtimeID,
			State:           fresh.State,
			AffectedSeatIDs: released,
			SeatIDs:         fresh.SeatIDs,
			Version:         fresh.Version,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)

	return res, nil
}

// Replace swaps the session's seat set for newSeatIDs in one transaction:
// Lock for the added seats plus Release for the removed ones, with a single
// gap-rule evaluation against the end state. Either the full replacement
// commits or nothing changes. The cap applies to newSeatIDs directly.
func (e *Engine) Replace(ctx context.Context, sessionID uuid.UUID, newSeatIDs []int) (*Result, error) {
	newSeatIDs = dedupeInts(newSeatIDs)
	if len(newSeatIDs) > e.cfg.MaxSeatsPerSession {
		return nil, domain.ErrSeatCapExceeded
	}

	_, showtime, err := e.sessionForMutation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var newSeats []domain.Seat

	if len(newSeatIDs) > 0 {
		if newSeats, err = e.seatsOnScreen(ctx, showtime.ScreenID, newSeatIDs); err != nil {
			return nil, err
		}
	}

	var (
		res     *Result
		pending []domain.SeatEvent
	)

	err = e.store.WithTx(ctx, func(tx domain.BookingTx) error {
		fresh, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := draftCheck(fresh, now); err != nil {
			return err
		}

		added := subtractInts(newSeatIDs, fresh.SeatIDs)
		removed := subtractInts(fresh.SeatIDs, newSeatIDs)

		// Removed seats change row occupancy too, so their rows join the gap
		// evaluation. The current seat set is read inside the transaction so a
		// concurrent mutation on the same session cannot hide a row from it.
		affectedSeats := append([]domain.Seat{}, newSeats...)
		if len(fresh.SeatIDs) > 0 {
			current, err := e.metadata.GetSeatsByIDs(ctx, fresh.SeatIDs)
			if err != nil {
				return err
			}
			affectedSeats = append(affectedSeats, current...)
		}

		rowSeats, err := e.metadata.GetSeatsByScreenAndRows(ctx, showtime.ScreenID, rowsOf(affectedSeats))
		if err != nil {
			return err
		}

		if err := e.checkContention(ctx, tx, fresh, added, rowSeats, newSeatIDs, now); err != nil {
			return err
		}

		until := now.Add(e.cfg.SeatLockTTL)

		if len(added) > 0 {
			if err := tx.UpsertSeatLocks(ctx, fresh.ShowtimeID, added, fresh.ID, until); err != nil {
				return err
			}
			if err := tx.AddSessionSeats(ctx, fresh.ID, added); err != nil {
				return err
			}
		}

		if len(removed) > 0 {
			if _, err := tx.DeleteSeatLocks(ctx, fresh.ShowtimeID, removed, fresh.ID); err != nil {
				return err
			}
			if err := tx.RemoveSessionSeats(ctx, fresh.ID, removed); err != nil {
				return err
			}
		}

		fresh.SeatIDs = newSeatIDs
		fresh.ExpiresAt = now.Add(e.cfg.SessionTTL)

		if fresh.TotalPrice, err = e.totalPrice(ctx, showtime, newSeatIDs); err != nil {
			return err
		}

		if err := tx.UpdateSession(ctx, fresh); err != nil {
			return err
		}

		pending = seatEvents(domain.SeatEventLocked, fresh.ShowtimeID, added, &until)
		pending = append(pending, seatEvents(domain.SeatEventReleased, fresh.ShowtimeID, removed, nil)...)

		affected := append(append([]int{}, added...), removed...)
		sort.Ints(affected)

		res = &Result{
			SessionID:       fresh.ID,
			ShowtimeID:      fresh.ShowtimeID,
			State:           fresh.State,
			AffectedSeatIDs: affected,
			SeatIDs:         newSeatIDs,
			Version:         fresh.Version,
		}
		if len(added) > 0 {
			res.LockedUntil = &until
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)

	return res, nil
}

// Validate is the read-only pre-checkout check: the session must be an
// unexpired draft, the showtime still bookable, and every recorded seat id
// still actively locked by this session.
func (e *Engine) Validate(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	session, _, err := e.sessionForMutation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	locks, err := e.store.SeatLocksByShowtime(ctx, session.ShowtimeID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	held := make(map[int]bool)

	for _, lock := range locks {
		if lock.HeldBy(session.ID, now) {
			held[lock.SeatID] = true
		}
	}

	for _, seatID := range session.SeatIDs {
		if !held[seatID] {
			return nil, domain.ErrSeatLockExpired
		}
	}

	if len(session.SeatIDs) > 0 {
		sold, err := e.tickets.SoldSeatIDs(ctx, session.ShowtimeID, session.SeatIDs)
		if err != nil {
			return nil, err
		}
		if len(sold) > 0 {
			return nil, &domain.SeatConflictError{SeatIDs: sold}
		}
	}

	return &Result{
		SessionID:  session.ID,
		ShowtimeID: session.ShowtimeID,
		State:      session.State,
		SeatIDs:    session.SeatIDs,
		Version:    session.Version,
	}, nil
}

// Checkout transitions a validated draft session to PENDING_PAYMENT and
// supersedes the 3-minute locks with the longer checkout hold, giving the
// payment flow room to complete.
func (e *Engine) Checkout(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	if _, _, err := e.sessionForMutation(ctx, sessionID); err != nil {
		return nil, err
	}

	var res *Result

	err := e.store.WithTx(ctx, func(tx domain.BookingTx) error {
		fresh, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := draftCheck(fresh, now); err != nil {
			return err
		}

		if len(fresh.SeatIDs) == 0 {
			return domain.ErrNoSeatsRequested
		}

		locks, err := tx.SeatLocksByShowtime(ctx, fresh.ShowtimeID)
		if err != nil {
			return err
		}

		held := make(map[int]bool)
		for _, lock := range locks {
			if lock.HeldBy(fresh.ID, now) {
				held[lock.SeatID] = true
			}
		}

		for _, seatID := range fresh.SeatIDs {
			if !held[seatID] {
				return domain.ErrSeatLockExpired
			}
		}

		hold := now.Add(e.cfg.CheckoutHold)
		if err := tx.UpsertSeatLocks(ctx, fresh.ShowtimeID, fresh.SeatIDs, fresh.ID, hold); err != nil {
			return err
		}

		fresh.State = domain.SessionStatePendingPayment
		fresh.ExpiresAt = hold

		if err := tx.UpdateSession(ctx, fresh); err != nil {
			return err
		}

		res = &Result{
			SessionID:       fresh.ID,
			ShowtimeID:      fresh.ShowtimeID,
			State:           fresh.State,
			AffectedSeatIDs: fresh.SeatIDs,
			LockedUntil:     &hold,
			SeatIDs:         fresh.SeatIDs,
			Version:         fresh.Version,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// SetCombos replaces the combo part of the session's item list. Combo
// pricing is computed downstream at payment time, so only the selection and
// the version bump are recorded here.
func (e *Engine) SetCombos(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) (*Result, error) {
	if _, _, err := e.sessionForMutation(ctx, sessionID); err != nil {
		return nil, err
	}

	var res *Result

	err := e.store.WithTx(ctx, func(tx domain.BookingTx) error {
		fresh, err := tx.GetSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		if err := draftCheck(fresh, e.now()); err != nil {
			return err
		}

		if err := tx.ReplaceSessionCombos(ctx, fresh.ID, combos); err != nil {
			return err
		}

		fresh.Combos = combos

		if err := tx.UpdateSession(ctx, fresh); err != nil {
			return err
		}

		res = &Result{
			SessionID:  fresh.ID,
			ShowtimeID: fresh.ShowtimeID,
			State:      fresh.State,
			SeatIDs:    fresh.SeatIDs,
			Version:    fresh.Version,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// sessionForMutation runs the pre-transaction checks shared by every
// operation. The same checks run again inside the transaction; this pass
// exists to fail cheap and to resolve the showtime for later validation.
func (e *Engine) sessionForMutation(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, *domain.Showtime, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	if err := draftCheck(session, now); err != nil {
		return nil, nil, err
	}

	showtime, err := e.metadata.GetShowtime(ctx, session.ShowtimeID)
	if err != nil {
		return nil, nil, err
	}

	if !showtime.Bookable(now) {
		return nil, nil, domain.ErrShowtimeNotBookable
	}

	return session, showtime, nil
}

// checkContention re-runs the sold, foreign-lock and gap checks against
// fresh in-transaction data. endState is the seat set the session would hold
// after the operation; requested are the seats being newly acquired.
func (e *Engine) checkContention(
	ctx context.Context,
	tx domain.BookingTx,
	session *domain.BookingSession,
	requested []int,
	rowSeats []domain.Seat,
	endState []int,
	now time.Time) error {

	locks, err := tx.SeatLocksByShowtime(ctx, session.ShowtimeID)
	if err != nil {
		return err
	}

	foreign := make(map[int]bool)
	for _, lock := range locks {
		if lock.SessionID != session.ID && !lock.ExpiredAt(now) {
			foreign[lock.SeatID] = true
		}
	}

	if len(requested) > 0 {
		sold, err := tx.SoldSeatIDs(ctx, session.ShowtimeID, requested)
		if err != nil {
			return err
		}

		conflicts := append([]int{}, sold...)
		for _, seatID := range requested {
			if foreign[seatID] {
				conflicts = append(conflicts, seatID)
			}
		}

		if len(conflicts) > 0 {
			conflicts = dedupeInts(conflicts)
			sort.Ints(conflicts)
			return &domain.SeatConflictError{SeatIDs: conflicts}
		}
	}

	rowSold, err := tx.SoldSeatIDs(ctx, session.ShowtimeID, seatIDsOf(rowSeats))
	if err != nil {
		return err
	}

	occupied := toSet(rowSold)
	for seatID := range foreign {
		occupied[seatID] = true
	}

	if gaps := singleSeatGaps(rowSeats, occupied, toSet(endState)); len(gaps) > 0 {
		return fmt.Errorf("%w: seat(s) %v", domain.ErrSeatGap, gaps)
	}

	return nil
}

// seatsOnScreen resolves the requested seat ids and rejects ids that do not
// exist, sit on another screen, or are permanently blocked.
func (e *Engine) seatsOnScreen(ctx context.Context, screenID int, seatIDs []int) ([]domain.Seat, error) {
	seats, err := e.metadata.GetSeatsByIDs(ctx, seatIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]domain.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}

	for _, seatID := range seatIDs {
		seat, ok := byID[seatID]
		if !ok {
			return nil, domain.ErrSeatNotFound
		}
		if seat.ScreenID != screenID {
			return nil, domain.ErrSeatNotOnScreen
		}
		if seat.Blocked() {
			return nil, domain.ErrSeatBlocked
		}
	}

	return seats, nil
}

func (e *Engine) totalPrice(ctx context.Context, showtime *domain.Showtime, seatIDs []int) (decimal.Decimal, error) {
	if len(seatIDs) == 0 {
		return decimal.Zero, nil
	}

	seats, err := e.metadata.GetSeatsByIDs(ctx, seatIDs)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, seat := range seats {
		total = total.Add(showtime.BasePrice).Add(seat.ExtraPrice)
	}

	return total, nil
}

// publish delivers seat events with bounded retry. The transaction already
// committed, so failures are logged and swallowed; the parent context may
// be canceled by the time we get here, hence WithoutCancel.
func (e *Engine) publish(ctx context.Context, events []domain.SeatEvent) {
	if len(events) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	for _, event := range events {
		var err error

		for attempt := 1; attempt <= e.cfg.PublishRetries; attempt++ {
			if err = e.events.Publish(ctx, event); err == nil {
				break
			}
			if attempt < e.cfg.PublishRetries {
				time.Sleep(e.cfg.PublishBackoff)
			}
		}

		if err != nil {
			e.logger.Error("giving up on seat event publish",
				"showtime_id", event.ShowtimeID,
				"seat_id", event.SeatID,
				"type", event.Type,
				"error", err,
			)
		}
	}
}

func draftCheck(session *domain.BookingSession, now time.Time) error {
	if session.State != domain.SessionStateDraft {
		return domain.ErrSessionNotDraft
	}
	if session.Expired(now) {
		return domain.ErrSessionExpired
	}

	return nil
}

func seatEvents(kind domain.SeatEventType, showtimeID int, seatIDs []int, until *time.Time) []domain.SeatEvent {
	events := make([]domain.SeatEvent, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		events = append(events, domain.SeatEvent{
			ShowtimeID:  showtimeID,
			SeatID:      seatID,
			Type:        kind,
			LockedUntil: until,
		})
	}

	return events
}

func rowsOf(seats []domain.Seat) []string {
	seen := make(map[string]bool)
	var rows []string

	for _, seat := range seats {
		if !seen[seat.Row] {
			seen[seat.Row] = true
			rows = append(rows, seat.Row)
		}
	}

	return rows
}

func seatIDsOf(seats []domain.Seat) []int {
	ids := make([]int, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}

	return ids
}

func dedupeInts(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}

func unionInts(a, b []int) []int {
	return dedupeInts(append(append([]int{}, a...), b...))
}

func subtractInts(a, b []int) []int {
	drop := toSet(b)
	out := make([]int, 0, len(a))

	for _, id := range a {
		if !drop[id] {
			out = append(out, id)
		}
	}

	return out
}

func intersectInts(a, b []int) []int {
	keep := toSet(b)
	out := make([]int, 0, len(a))

	for _, id := range a {
		if keep[id] {
			out = append(out, id)
		}
	}

	return out
}

func toSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	return set
}
