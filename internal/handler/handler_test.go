package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

var (
	userCols = []string{"id", "username", "email", "password_hash", "role", "created_at"}
	busCols  = []string{"id", "bus_number", "source", "destination", "departure_time", "arrival_time",
		"total_rows", "has_sleeper", "seater_fare", "lower_berth_fare", "upper_berth_fare",
		"layout_finalized", "created_at"}
)

type fakeReserver struct {
	booking *model.Booking
	err     error
	calls   int
}

func (f *fakeReserver) Reserve(_ context.Context, userID, busID uint64, seatIDs []uint64) (*model.Booking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b := *f.booking
	b.UserID, b.BusID = userID, busID
	return &b, nil
}

func (f *fakeReserver) Cancel(_ context.Context, userID, bookingID uint64) (*model.Booking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.Booking{ID: bookingID, UserID: userID, Status: model.BookingCancelled}, nil
}

type nopNotifier struct{ notified []uint64 }

func (n *nopNotifier) Notify(busID uint64) { n.notified = append(n.notified, busID) }

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newCtx builds a request context.  params alternates names and values;
// uid 0 leaves the request unauthenticated.
func newCtx(method, body string, uid uint64, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if uid != 0 {
		c.Set(middleware.ContextUserID, uid)
		c.Set(middleware.ContextRole, model.RoleCustomer)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func newBookingHandler(t *testing.T, svc Reserver) (*BookingHandler, sqlmock.Sqlmock) {
	db, mock := newDB(t)
	return NewBookingHandler(svc, repository.NewBookingRepo(db), repository.NewUserRepo(db), nil), mock
}

func TestBookRejectsBadInput(t *testing.T) {
	svc := &fakeReserver{}
	h, _ := newBookingHandler(t, svc)

	cases := []struct {
		body   string
		uid    uint64
		status int
	}{
		{`{"bus":1,"seat_ids":[1]}`, 0, http.StatusUnauthorized},
		{`{"seat_ids":[1]}`, 7, http.StatusBadRequest},
		{`{"bus":1,"seat_ids":[]}`, 7, http.StatusBadRequest},
		{`{"bus":1,"seat_ids":"x"}`, 7, http.StatusBadRequest},
	}
	for _, tc := range cases {
		c, rec := newCtx(http.MethodPost, tc.body, tc.uid)
		if err := h.Book(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.status, rec.Code)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called for rejected input")
	}
}

func TestBookMapsReservationErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&reservation.SeatBookedError{SeatID: 12, SeatNumber: 3}, http.StatusBadRequest, "Seat 3 is already booked"},
		{&reservation.SeatNotFoundError{SeatID: 99}, http.StatusBadRequest, "Seat ID 99 not found"},
		{reservation.ErrBusNotFound, http.StatusBadRequest, "Bus not found"},
		{reservation.ErrConflict, http.StatusConflict, reservation.ErrConflict.Error()},
		{errors.New("connection reset"), http.StatusBadRequest, "connection reset"},
	}
	for _, tc := range cases {
		h, _ := newBookingHandler(t, &fakeReserver{err: tc.err})
		c, rec := newCtx(http.MethodPost, `{"bus":1,"seat_ids":[12]}`, 7)
		if err := h.Book(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, got)
		}
	}
}

func TestBookConflictNamesSeat(t *testing.T) {
	h, _ := newBookingHandler(t, &fakeReserver{err: &reservation.SeatBookedError{SeatID: 12, SeatNumber: 3}})
	c, rec := newCtx(http.MethodPost, `{"bus":1,"seat_ids":[12]}`, 7)
	_ = h.Book(c)
	body := decode(t, rec)
	if body["seat_id"] != float64(12) || body["seat_number"] != float64(3) {
		t.Fatalf("conflicting seat missing from body: %v", body)
	}
}

func TestBookCreated(t *testing.T) {
	svc := &fakeReserver{booking: &model.Booking{
		ID:          41,
		BookingDate: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:      model.BookingConfirmed,
		TotalFare:   decimal.RequireFromString("800"),
		Seats: []model.BookedSeat{
			{ID: 90, SeatID: 11, SeatNumber: 1, SeatType: model.SeatLower},
			{ID: 91, SeatID: 12, SeatNumber: 2, SeatType: model.SeatUpper},
		},
	}}
	h, mock := newBookingHandler(t, svc)
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "alice", "alice@example.com", "x", "CUSTOMER", time.Now()))

	c, rec := newCtx(http.MethodPost, `{"bus":3,"seat_ids":[11,12]}`, 7)
	if err := h.Book(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["total_fare"] != "800.00" || body["status"] != "CONFIRMED" || body["bus"] != float64(3) {
		t.Fatalf("unexpected booking: %v", body)
	}
	user := body["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Fatalf("unexpected owner: %v", user)
	}
	if seats := body["booked_seats"].([]any); len(seats) != 2 {
		t.Fatalf("expected 2 booked seats, got %v", seats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelResponses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		key    string
		msg    string
	}{
		{nil, http.StatusOK, "message", "Booking cancelled successfully"},
		{reservation.ErrBookingNotFound, http.StatusNotFound, "error", "Booking not found"},
		{reservation.ErrAlreadyCancelled, http.StatusBadRequest, "error", "Booking is already cancelled"},
		{reservation.ErrConflict, http.StatusConflict, "error", reservation.ErrConflict.Error()},
		{errors.New("driver: bad connection"), http.StatusInternalServerError, "error", "cancel failed"},
	}
	for _, tc := range cases {
		h, _ := newBookingHandler(t, &fakeReserver{err: tc.err})
		c, rec := newCtx(http.MethodPost, "", 7, "booking_id", "5")
		if err := h.Cancel(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if got := decode(t, rec)[tc.key]; got != tc.msg {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.msg, got)
		}
	}
}

func TestCancelInvalidID(t *testing.T) {
	svc := &fakeReserver{}
	h, _ := newBookingHandler(t, svc)
	c, rec := newCtx(http.MethodPost, "", 7, "booking_id", "abc")
	_ = h.Cancel(c)
	if rec.Code != http.StatusNotFound || svc.calls != 0 {
		t.Fatalf("expected 404 without service call, got %d (calls=%d)", rec.Code, svc.calls)
	}
}

func newBusHandler(t *testing.T) (*BusHandler, sqlmock.Sqlmock) {
	db, mock := newDB(t)
	return NewBusHandler(repository.NewBusRepo(db), reservation.NewAvailability(repository.NewSeatRepo(db)), nil), mock
}

func TestGetBusNotFound(t *testing.T) {
	h, mock := newBusHandler(t)
	mock.ExpectQuery(`FROM buses WHERE id = \?`).WithArgs(42).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newCtx(http.MethodGet, "", 0, "bus_id", "42")
	if err := h.GetBus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound || decode(t, rec)["error"] != "Bus not found" {
		t.Fatalf("expected 404 Bus not found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetSeatsUnknownBus(t *testing.T) {
	h, mock := newBusHandler(t)
	mock.ExpectQuery(`FROM buses WHERE id = \?`).WithArgs(42).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newCtx(http.MethodGet, "", 0, "bus_id", "42")
	_ = h.GetSeats(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListBusesIncludesAvailability(t *testing.T) {
	h, mock := newBusHandler(t)
	dep := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM buses ORDER BY departure_time").
		WillReturnRows(sqlmock.NewRows(busCols).
			AddRow(1, "KA-01", "Bengaluru", "Chennai", dep, dep.Add(6*time.Hour), 10, true, "0.00", "800.00", "700.00", false, dep))
	mock.ExpectQuery(`s.bus_id IN \(\?\)`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "count"}).AddRow(1, 3))

	c, rec := newCtx(http.MethodGet, "", 0)
	if err := h.ListBuses(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var buses []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &buses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buses) != 1 || buses[0]["available_seats_count"] != float64(17) || buses[0]["lower_berth_fare"] != "800.00" {
		t.Fatalf("unexpected buses: %v", buses)
	}
}

func newAdminHandler(t *testing.T) (*AdminHandler, sqlmock.Sqlmock, *nopNotifier) {
	db, mock := newDB(t)
	n := &nopNotifier{}
	h := NewAdminHandler(repository.NewBusRepo(db), repository.NewBookingRepo(db), repository.NewUserRepo(db), n, nil)
	return h, mock, n
}

func TestCreateBusValidates(t *testing.T) {
	h, mock, _ := newAdminHandler(t)
	body := `{"bus_number":"KA-01","source":"A","destination":"B",
		"departure_time":"2026-05-01T10:00:00Z","arrival_time":"2026-05-01T09:00:00Z",
		"total_rows":2,"seater_fare":"100"}`
	c, rec := newCtx(http.MethodPost, body, 1)
	if err := h.CreateBus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != "arrival_time must be after departure_time" {
		t.Fatalf("expected validation error, got %d %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestRegenerateLayoutConflictWhenFinalized(t *testing.T) {
	h, mock, n := newAdminHandler(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM buses WHERE id = \? FOR UPDATE`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"layout_finalized", "total_rows", "has_sleeper"}).AddRow(true, 2, false))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "", 1, "bus_id", "4")
	_ = h.RegenerateLayout(c)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if len(n.notified) != 0 {
		t.Fatalf("refused regeneration must not notify")
	}
}

func TestLoginResponses(t *testing.T) {
	db, mock := newDB(t)
	h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1}, repository.NewUserRepo(db), repository.NewTokenRepo(db))

	c, rec := newCtx(http.MethodPost, `{"username":"alice"}`, 0)
	_ = h.Login(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", rec.Code)
	}

	hash, err := utils.HashPassword("right", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mock.ExpectQuery("FROM users WHERE username=").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "alice", "a@example.com", hash, "CUSTOMER", time.Now()))
	c, rec = newCtx(http.MethodPost, `{"username":"alice","password":"wrong"}`, 0)
	_ = h.Login(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}

	mock.ExpectQuery("FROM users WHERE username=").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "alice", "a@example.com", hash, "CUSTOMER", time.Now()))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(7, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	c, rec = newCtx(http.MethodPost, `{"username":"alice","password":"right"}`, 0)
	_ = h.Login(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	claims, err := utils.ParseAccessToken("s", body["access"].(string))
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if uid, _ := claims.UserID(); uid != 7 || claims.Role != "CUSTOMER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if body["refresh"] == "" || body["user"].(map[string]any)["username"] != "alice" {
		t.Fatalf("unexpected login body: %v", body)
	}
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	db, mock := newDB(t)
	h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1}, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash=").WithArgs(utils.HashRefreshRaw("nope")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, `{"refresh":"nope"}`, 0)
	_ = h.Refresh(c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSeatUpdatesUnknownBusBeforeUpgrade(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery(`FROM buses WHERE id = \?`).WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	h := &WSHandler{Buses: repository.NewBusRepo(db)}
	c, rec := newCtx(http.MethodGet, "", 0, "bus_id", "8")
	_ = h.SeatUpdates(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
