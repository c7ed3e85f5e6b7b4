package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkulima/sokoni/internal/apperr"
)

// --- pgx mocks -------------------------------------------------------------

type mockRow struct {
	scan func(dest ...any) error
}

func (r mockRow) Scan(dest ...any) error { return r.scan(dest...) }

type lineRow struct {
	productID uuid.UUID
	quantity  int
	name      string
	price     decimal.Decimal
	stock     int
}

type mockRows struct {
	pgx.Rows // unused methods panic
	lines    []lineRow
	idx      int
}

func (m *mockRows) Next() bool {
	m.idx++
	return m.idx <= len(m.lines)
}

func (m *mockRows) Scan(dest ...any) error {
	l := m.lines[m.idx-1]
	*(dest[0].(*uuid.UUID)) = l.productID
	*(dest[1].(*int)) = l.quantity
	*(dest[2].(*string)) = l.name
	*(dest[3].(*decimal.Decimal)) = l.price
	*(dest[4].(*int)) = l.stock
	return nil
}

func (m *mockRows) Close()     {}
func (m *mockRows) Err() error { return nil }

type mockTx struct {
	pgx.Tx // unused methods panic

	cartID     uuid.UUID
	noCart     bool
	lines      []lineRow
	execSQL    []string
	committed  bool
	rolledBack bool
}

func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return mockRow{scan: func(dest ...any) error {
		if t.noCart {
			return pgx.ErrNoRows
		}
		*(dest[0].(*uuid.UUID)) = t.cartID
		return nil
	}}
}

func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &mockRows{lines: t.lines}, nil
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *mockTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type mockDB struct {
	tx *mockTx
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) { return m.tx, nil }

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not scripted")
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not scripted")
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("not scripted")
}

// --- tests -----------------------------------------------------------------

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func countSQL(sqls []string, fragment string) int {
	n := 0
	for _, s := range sqls {
		if strings.Contains(s, fragment) {
			n++
		}
	}
	return n
}

func TestCreateFromCartCommitsEverythingTogether(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	tx := &mockTx{
		cartID: uuid.New(),
		lines: []lineRow{
			{productID: p1, quantity: 2, name: "Maize Flour 2kg", price: dec("150.00"), stock: 10},
			{productID: p2, quantity: 1, name: "Avocado Crate", price: dec("1200.00"), stock: 3},
		},
	}
	repo := &Repo{DB: &mockDB{tx: tx}}

	ord := &Order{
		ID:          NewOrderID(),
		UserID:      uuid.New(),
		DeliveryFee: dec("200"),
		Status:      StatusPending,
	}
	require.NoError(t, repo.CreateFromCart(context.Background(), ord))

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	require.Len(t, ord.Items, 2)
	assert.Equal(t, "Maize Flour 2kg", ord.Items[0].ProductName)
	assert.True(t, ord.Items[0].TotalPrice.Equal(dec("300.00")))
	assert.True(t, ord.Subtotal.Equal(dec("1500.00")))
	assert.True(t, ord.Total.Equal(dec("1700.00")))

	assert.Equal(t, 1, countSQL(tx.execSQL, "INSERT INTO orders"))
	assert.Equal(t, 2, countSQL(tx.execSQL, "INSERT INTO order_items"))
	assert.Equal(t, 2, countSQL(tx.execSQL, "stock = stock -"))
	assert.Equal(t, 1, countSQL(tx.execSQL, "DELETE FROM cart_items"))
}

func TestCreateFromCartShortageRollsBackUntouched(t *testing.T) {
	tx := &mockTx{
		cartID: uuid.New(),
		lines: []lineRow{
			{productID: uuid.New(), quantity: 2, name: "Maize Flour 2kg", price: dec("150.00"), stock: 10},
			{productID: uuid.New(), quantity: 5, name: "Avocado Crate", price: dec("1200.00"), stock: 3},
		},
	}
	repo := &Repo{DB: &mockDB{tx: tx}}

	err := repo.CreateFromCart(context.Background(), &Order{ID: NewOrderID(), UserID: uuid.New()})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Contains(t, err.Error(), "Avocado Crate")

	// nothing written, first line's stock included
	assert.Empty(t, tx.execSQL)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestCreateFromCartNoCartRow(t *testing.T) {
	tx := &mockTx{noCart: true}
	repo := &Repo{DB: &mockDB{tx: tx}}

	err := repo.CreateFromCart(context.Background(), &Order{ID: NewOrderID(), UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.False(t, tx.committed)
}

func TestCreateFromCartEmptyCart(t *testing.T) {
	tx := &mockTx{cartID: uuid.New(), lines: nil}
	repo := &Repo{DB: &mockDB{tx: tx}}

	err := repo.CreateFromCart(context.Background(), &Order{ID: NewOrderID(), UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, tx.execSQL)
}
