//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-orders/internal/domain/customer"
	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
	"github.com/xenking/kart-orders/internal/storage/postgres"
)

type storageSuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool

	customers *postgres.CustomerRepository
	products  *postgres.ProductRepository
	orders    *postgres.OrderRepository
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(storageSuite))
}

func startPostgres(ctx context.Context) (*tcpostgres.PostgresContainer, string, error) {
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("orders"),
		tcpostgres.WithUsername("orders"),
		tcpostgres.WithPassword("orders"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", err
	}
	return container, connStr, nil
}

func (s *storageSuite) SetupSuite() {
	ctx := s.T().Context()

	var (
		connStr string
		err     error
	)
	s.container, connStr, err = startPostgres(ctx)
	s.Require().NoError(err)

	s.pool, err = postgres.NewPool(ctx, connStr)
	s.Require().NoError(err)
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))
	// Applying the schema twice must be harmless.
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))

	s.customers = postgres.NewCustomerRepository(s.pool)
	s.products = postgres.NewProductRepository(s.pool)
	s.orders = postgres.NewOrderRepository(s.pool)
}

func (s *storageSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *storageSuite) TearDownTest() {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE order_items, orders, products, customers CASCADE`)
	s.Require().NoError(err)
}

func fakeCustomer() customer.Customer {
	return customer.Customer{
		ID:    gofakeit.UUID(),
		Name:  gofakeit.Name(),
		Email: gofakeit.Email(),
	}
}

func fakeProduct(stock int) product.Product {
	return product.Product{
		ID:       gofakeit.UUID(),
		Name:     gofakeit.ProductName(),
		Price:    decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2),
		Quantity: stock,
	}
}

func (s *storageSuite) seed(c customer.Customer, products ...product.Product) {
	ctx := s.T().Context()
	s.Require().NoError(s.customers.Upsert(ctx, []customer.Customer{c}))
	s.Require().NoError(s.products.Upsert(ctx, products))
}

func (s *storageSuite) stock(id string) int {
	p, err := s.products.GetByID(s.T().Context(), id)
	s.Require().NoError(err)
	return p.Quantity
}

func (s *storageSuite) countOrders() int {
	var n int
	s.Require().NoError(s.pool.QueryRow(s.T().Context(), `SELECT count(*) FROM orders`).Scan(&n))
	return n
}

var orderOpts = cmp.Options{
	cmpopts.IgnoreFields(order.Order{}, "CreatedAt", "UpdatedAt"),
	cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
}

func (s *storageSuite) TestCustomerFindByID() {
	t := s.T()
	ctx := t.Context()
	c := fakeCustomer()
	s.seed(c)

	got, err := s.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Email, got.Email)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.customers.FindByID(ctx, "missing")
	require.ErrorIs(t, err, customer.ErrNotFound)
}

func (s *storageSuite) TestProductQueries() {
	t := s.T()
	ctx := t.Context()
	p1, p2 := fakeProduct(5), fakeProduct(2)
	s.seed(fakeCustomer(), p1, p2)

	all, err := s.products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := s.products.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.True(t, p1.Price.Equal(got.Price))
	assert.Equal(t, 5, got.Quantity)

	_, err = s.products.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)

	found, err := s.products.FindAllByID(ctx, []string{p1.ID, "missing", p2.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, []string{found[0].ID, found[1].ID})
}

func (s *storageSuite) TestUpdateQuantitiesIsAtomic() {
	t := s.T()
	ctx := t.Context()
	p1 := fakeProduct(5)
	s.seed(fakeCustomer(), p1)

	err := s.products.UpdateQuantities(ctx, []product.QuantityUpdate{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	})
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, 5, s.stock(p1.ID))

	err = s.products.UpdateQuantities(ctx, []product.QuantityUpdate{{ProductID: p1.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.stock(p1.ID))

	err = s.products.UpdateQuantities(ctx, []product.QuantityUpdate{{ProductID: p1.ID, Quantity: -1}})
	require.Error(t, err, "stock must never go negative")
	assert.Equal(t, 3, s.stock(p1.ID))
}

func (s *storageSuite) TestOrderCreateAndGet() {
	t := s.T()
	ctx := t.Context()
	c := fakeCustomer()
	p1, p2 := fakeProduct(5), fakeProduct(2)
	s.seed(c, p1, p2)

	items := []order.OrderItem{
		{ProductID: p2.ID, Price: p2.Price, Quantity: 2},
		{ProductID: p1.ID, Price: p1.Price, Quantity: 3},
	}
	created, err := s.orders.Create(ctx, c, items)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.orders.GetByID(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, got, orderOpts); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	_, err = s.orders.Create(ctx, c, nil)
	require.EqualError(t, err, "no items in order")

	_, err = s.orders.GetByID(ctx, gofakeit.UUID())
	require.ErrorIs(t, err, order.ErrNotFound)

	_, err = s.orders.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func (s *storageSuite) TestUnitOfWorkRollsBack() {
	t := s.T()
	ctx := t.Context()
	c := fakeCustomer()
	p1 := fakeProduct(5)
	s.seed(c, p1)

	boom := errors.New("boom")
	err := postgres.NewUnitOfWork(s.pool).Do(ctx, func(ctx context.Context, st order.Stores) error {
		if _, err := st.Orders.Create(ctx, c, []order.OrderItem{{ProductID: p1.ID, Price: p1.Price, Quantity: 1}}); err != nil {
			return err
		}
		if err := st.Products.UpdateQuantities(ctx, []product.QuantityUpdate{{ProductID: p1.ID, Quantity: 4}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, s.countOrders())
	assert.Equal(t, 5, s.stock(p1.ID))
}

func (s *storageSuite) TestPlaceOrder() {
	t := s.T()
	ctx := t.Context()
	c := fakeCustomer()
	p1, p2 := fakeProduct(5), fakeProduct(2)
	s.seed(c, p1, p2)

	svc, err := order.NewService(postgres.NewUnitOfWork(s.pool))
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		CustomerID: c.ID,
		Items: []order.RequestedItem{
			{ProductID: p1.ID, Quantity: 3},
			{ProductID: p2.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.stock(p1.ID))
	assert.Equal(t, 0, s.stock(p2.ID))

	got, err := s.orders.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(placed, got, orderOpts); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		CustomerID: c.ID,
		Items:      []order.RequestedItem{{ProductID: p1.ID, Quantity: 3}},
	})
	require.ErrorIs(t, err, order.ErrInsufficientStock)
	assert.Equal(t, 2, s.stock(p1.ID))
	assert.Equal(t, 1, s.countOrders())
}

func (s *storageSuite) TestConcurrentPlacementsNeverOversell() {
	t := s.T()
	ctx := t.Context()
	c := fakeCustomer()
	p1 := fakeProduct(5)
	s.seed(c, p1)

	svc, err := order.NewService(postgres.NewUnitOfWork(s.pool))
	require.NoError(t, err)

	const workers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
				CustomerID: c.ID,
				Items:      []order.RequestedItem{{ProductID: p1.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, order.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, workers-5, rejected)
	assert.Equal(t, 0, s.stock(p1.ID))
	assert.Equal(t, 5, s.countOrders())
}
