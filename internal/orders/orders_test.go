package orders

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/CristhianMazon/ecommerce-api-main/internal/products"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "5f8a7f9c-2f3a-4f57-8f0e-0a1b2c3d4e5f"

func sampleTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestConf(t *testing.T) (*Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ledger, err := products.NewConf(db)
	require.NoError(t, err)
	conf, err := NewConf(db, ledger)
	require.NoError(t, err)
	return conf, mock
}

func expectReserve(mock sqlmock.Sqlmock, productID int64, name string, price float64, stock, quantity int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, stock")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
			AddRow(productID, name, price, stock))
	mock.ExpectExec(regexp.QuoteMeta("SET stock = stock - $1")).
		WithArgs(quantity, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestPlaceOrder(t *testing.T) {
	t.Run("reserves stock and commits", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
			WithArgs(testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		expectReserve(mock, 1, "Keyboard", 59.90, 5, 3)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
			WithArgs(int64(42), int64(1), 3).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		orderID, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{{ProductID: 1, Quantity: 3}})
		require.NoError(t, err)
		assert.Equal(t, int64(42), orderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaults absent quantity to one", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
			WithArgs(testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		expectReserve(mock, 1, "Keyboard", 59.90, 5, 1)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
			WithArgs(int64(7), int64(1), 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{{ProductID: 1}})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty line requests", func(t *testing.T) {
		conf, mock := newTestConf(t)

		_, err := conf.PlaceOrder(context.Background(), testUser, nil)
		require.ErrorIs(t, err, ErrInvalidRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		conf, mock := newTestConf(t)

		_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{{ProductID: 1, Quantity: -2}})
		require.ErrorIs(t, err, ErrInvalidRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when stock is insufficient", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
			WithArgs(testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, stock")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
				AddRow(1, "Keyboard", 59.90, 5))
		mock.ExpectRollback()

		_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{{ProductID: 1, Quantity: 10}})
		require.ErrorIs(t, err, products.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Keyboard")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back earlier lines when a later product is missing", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
			WithArgs(testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		expectReserve(mock, 1, "Keyboard", 59.90, 5, 2)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
			WithArgs(int64(42), int64(1), 2).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, stock")).
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 999, Quantity: 1},
		})
		require.ErrorIs(t, err, products.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate product lines accumulate against the decremented stock", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
			WithArgs(testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		expectReserve(mock, 1, "Keyboard", 59.90, 5, 3)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
			WithArgs(int64(42), int64(1), 3).
			WillReturnResult(sqlmock.NewResult(1, 1))
		// second line reads the stock the first line already decremented
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, stock")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
				AddRow(1, "Keyboard", 59.90, 2))
		mock.ExpectRollback()

		_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{
			{ProductID: 1, Quantity: 3},
			{ProductID: 1, Quantity: 3},
		})
		require.ErrorIs(t, err, products.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("restores stock and removes the aggregate", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
			WithArgs(int64(42), testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
				AddRow(1, 3).
				AddRow(2, 2))
		mock.ExpectExec(regexp.QuoteMeta("SET stock = stock + $1")).
			WithArgs(3, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("SET stock = stock + $1")).
			WithArgs(2, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items")).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders")).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := conf.CancelOrder(context.Background(), testUser, 42)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips release for a deleted product", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
			WithArgs(int64(42), testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
				AddRow(1, 3))
		// product 1 was deleted after the order was placed; no row updates
		mock.ExpectExec(regexp.QuoteMeta("SET stock = stock + $1")).
			WithArgs(3, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items")).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders")).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := conf.CancelOrder(context.Background(), testUser, 42)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("another user's order is indistinguishable from a missing one", func(t *testing.T) {
		conf, mock := newTestConf(t)

		for _, user := range []string{testUser, "some-other-user"} {
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
				WithArgs(int64(9999), user).
				WillReturnError(sql.ErrNoRows)
			mock.ExpectRollback()
		}

		missingErr := conf.CancelOrder(context.Background(), testUser, 9999)
		foreignErr := conf.CancelOrder(context.Background(), "some-other-user", 9999)

		require.ErrorIs(t, missingErr, ErrNotFound)
		require.ErrorIs(t, foreignErr, ErrNotFound)
		assert.Equal(t, missingErr.Error(), foreignErr.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("returns the order with product snapshots", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, created_at")).
			WithArgs(int64(42), testUser).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at"}).
				AddRow(42, testUser, sampleTime()))
		mock.ExpectQuery(regexp.QuoteMeta("FROM order_items oi")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "quantity"}).
				AddRow(1, "Keyboard", 59.90, 3))

		order, err := conf.GetOrder(context.Background(), testUser, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), order.ID)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Keyboard", order.Items[0].ProductName)
		assert.Equal(t, 59.90, order.Items[0].Price)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hides orders owned by other users", func(t *testing.T) {
		conf, mock := newTestConf(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, created_at")).
			WithArgs(int64(42), "intruder").
			WillReturnError(sql.ErrNoRows)

		_, err := conf.GetOrder(context.Background(), "intruder", 42)
		require.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOrders(t *testing.T) {
	conf, mock := newTestConf(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders o")).
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "product_id", "name", "price", "quantity"}).
			AddRow(43, testUser, sampleTime(), 2, "Mouse", 25.00, 1).
			AddRow(42, testUser, sampleTime(), 1, "Keyboard", 59.90, 3).
			AddRow(42, testUser, sampleTime(), 2, "Mouse", 25.00, 2))

	list, err := conf.ListOrders(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(43), list[0].ID)
	assert.Len(t, list[0].Items, 1)
	assert.Equal(t, int64(42), list[1].ID)
	assert.Len(t, list[1].Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommitFailure(t *testing.T) {
	conf, mock := newTestConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	expectReserve(mock, 1, "Keyboard", 59.90, 5, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(42), int64(1), 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))

	_, err := conf.PlaceOrder(context.Background(), testUser, []LineRequest{{ProductID: 1, Quantity: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}
