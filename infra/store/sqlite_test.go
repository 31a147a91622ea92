package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/paybridge/provider"
)

func mockStore(t *testing.T) (*SQLiteOrderStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteOrderStoreFromDB(db), mock
}

func TestPut(t *testing.T) {
	store, mock := mockStore(t)

	amount, _ := provider.ParseAmount("49.99", "EUR")
	order := &provider.Order{
		ID:         "order-1",
		CartNumber: "CART-1001",
		Amount:     amount,
		State:      provider.StateInitialized,
	}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("order-1", "CART-1001", "49.99", "EUR", "initialized", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Put(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	store, mock := mockStore(t)

	occurred := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, cart_number, amount, currency, state, transaction_id FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_number", "amount", "currency", "state", "transaction_id"}).
			AddRow("order-1", "CART-1001", "49.99", "EUR", "captured", "tx-1"))

	mock.ExpectQuery("SELECT from_state, to_state, status_code, transaction_id, flagged, note, occurred_at").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"from_state", "to_state", "status_code", "transaction_id", "flagged", "note", "occurred_at"}).
			AddRow("initialized", "captured", "190", "tx-1", 1, "amount mismatch: off by a cent", occurred))

	order, err := store.Get(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "CART-1001", order.CartNumber)
	assert.Equal(t, "49.99", order.Amount.Format(2))
	assert.Equal(t, "EUR", order.Amount.Currency)
	assert.Equal(t, provider.StateCaptured, order.State)
	assert.Equal(t, "tx-1", order.TransactionID)

	require.Len(t, order.History, 1)
	tr := order.History[0]
	assert.Equal(t, provider.StateInitialized, tr.From)
	assert.Equal(t, provider.StateCaptured, tr.To)
	assert.Equal(t, "190", tr.StatusCode)
	assert.True(t, tr.Flagged)
	assert.Equal(t, occurred, tr.At)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectQuery("SELECT id, cart_number, amount, currency, state, transaction_id FROM orders").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_number", "amount", "currency", "state", "transaction_id"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, provider.ErrOrderNotFound)
}

func TestGetCorruptAmount(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectQuery("SELECT id, cart_number, amount, currency, state, transaction_id FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_number", "amount", "currency", "state", "transaction_id"}).
			AddRow("order-1", "CART-1001", "not-a-number", "EUR", "captured", ""))

	_, err := store.Get(context.Background(), "order-1")
	assert.ErrorContains(t, err, "corrupt amount")
}

func TestSave(t *testing.T) {
	store, mock := mockStore(t)

	amount, _ := provider.ParseAmount("49.99", "EUR")
	order := &provider.Order{
		ID:            "order-1",
		Amount:        amount,
		State:         provider.StateCaptured,
		TransactionID: "tx-1",
	}
	tr := &provider.Transition{
		From:          provider.StateInitialized,
		To:            provider.StateCaptured,
		StatusCode:    "190",
		TransactionID: "tx-1",
		At:            time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET state").
		WithArgs("captured", "tx-1", "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payment_transitions").
		WithArgs("order-1", "initialized", "captured", "190", "tx-1", 0, "", tr.At).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), order, tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUnknownOrder(t *testing.T) {
	store, mock := mockStore(t)

	amount, _ := provider.ParseAmount("49.99", "EUR")
	order := &provider.Order{ID: "missing", Amount: amount, State: provider.StateCaptured}
	tr := &provider.Transition{From: provider.StateInitialized, To: provider.StateCaptured, At: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET state").
		WithArgs("captured", "", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Save(context.Background(), order, tr)
	assert.ErrorIs(t, err, provider.ErrOrderNotFound)
}

func TestSQLiteRoundTrip(t *testing.T) {
	store, err := NewSQLiteOrderStore(t.TempDir() + "/orders.db")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	amount, _ := provider.ParseAmount("49.99", "EUR")
	order := &provider.Order{
		ID:         "order-1",
		CartNumber: "CART-1001",
		Amount:     amount,
		State:      provider.StateInitialized,
	}
	require.NoError(t, store.Put(ctx, order))

	// Duplicate registration fails on the primary key.
	assert.Error(t, store.Put(ctx, order))

	order.State = provider.StateCaptured
	order.TransactionID = "tx-1"
	tr := &provider.Transition{
		From:          provider.StateInitialized,
		To:            provider.StateCaptured,
		StatusCode:    "190",
		TransactionID: "tx-1",
		Flagged:       true,
		Note:          "amount mismatch: off by a cent",
		At:            time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, order, tr))

	loaded, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, provider.StateCaptured, loaded.State)
	assert.Equal(t, "tx-1", loaded.TransactionID)
	assert.Equal(t, "49.99", loaded.Amount.Format(2))
	require.Len(t, loaded.History, 1)
	assert.True(t, loaded.History[0].Flagged)
	assert.Equal(t, "amount mismatch: off by a cent", loaded.History[0].Note)
}
