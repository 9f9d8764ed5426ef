package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/envirogo/envirogo-api/internal/model"
)

type PostgresRepositoryTestSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	repo      *PostgresRepository
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	suite.Run(t, new(PostgresRepositoryTestSuite))
}

func (s *PostgresRepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:16-alpine"),
		tcpostgres.WithDatabase("envirogo"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("example"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	repo, err := NewPostgresRepository(dsn)
	s.Require().NoError(err)
	repo.retryDelays = []time.Duration{10 * time.Millisecond}
	s.repo = repo
}

func (s *PostgresRepositoryTestSuite) TearDownSuite() {
	if s.repo != nil {
		_ = s.repo.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresRepositoryTestSuite) SetupTest() {
	_, err := s.repo.pool.Exec(s.ctx,
		`TRUNCATE transactions, order_items, orders, cart_items, products, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresRepositoryTestSuite) createUser(email string) int64 {
	id, err := s.repo.CreateUser(s.ctx, &model.User{
		Email:        email,
		Name:         "Test",
		PasswordHash: []byte("hash"),
		PhoneNumber:  "91234567",
		AccountType:  model.AccountTypeUser,
		IsActive:     true,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresRepositoryTestSuite) createProduct(price string) int64 {
	id, err := s.repo.CreateProduct(s.ctx, &model.Product{
		Name:       "Bike pass",
		Category:   "Passes",
		Stock:      10,
		Price:      decimal.RequireFromString(price),
		PointPrice: 100,
		Active:     true,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresRepositoryTestSuite) TestCreateUser_Duplicate() {
	s.createUser("a@example.com")

	_, err := s.repo.CreateUser(s.ctx, &model.User{Email: "a@example.com", Name: "B", PasswordHash: []byte("x")})
	s.Require().ErrorIs(err, ErrUserExists)
}

func (s *PostgresRepositoryTestSuite) TestUpdateUserProfile() {
	id := s.createUser("a@example.com")
	addr := "1 Orchard Road"

	s.Require().NoError(s.repo.UpdateUserProfile(s.ctx, id, model.ProfileUpdate{DeliveryAddress: &addr}))

	u, err := s.repo.GetUserByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().True(u.HasDeliveryAddress())
	s.Equal(addr, *u.DeliveryAddress)
	s.Equal("Test", u.Name)
	s.True(u.Cash.IsZero())
}

func (s *PostgresRepositoryTestSuite) TestUpdateUser_AdminFields() {
	id := s.createUser("a@example.com")
	s.createUser("b@example.com")

	cash := decimal.RequireFromString("19.99")
	points := int64(250)
	inactive := false
	admin := model.AccountTypeAdmin
	s.Require().NoError(s.repo.UpdateUser(s.ctx, id, model.UserUpdate{
		Cash: &cash, Points: &points, IsActive: &inactive, AccountType: &admin,
	}))

	u, err := s.repo.GetUserByID(s.ctx, id)
	s.Require().NoError(err)
	s.True(u.Cash.Equal(cash), "cash = %s", u.Cash)
	s.Equal(int64(250), u.Points)
	s.False(u.IsActive)
	s.Equal(model.AccountTypeAdmin, u.AccountType)
	s.Equal("Test", u.Name)

	negative := decimal.NewFromInt(-1)
	err = s.repo.UpdateUser(s.ctx, id, model.UserUpdate{Cash: &negative})
	var nerr *NegativeBalanceError
	s.Require().ErrorAs(err, &nerr)
	s.Equal("cash", nerr.Field)

	negativePoints := int64(-1)
	err = s.repo.UpdateUser(s.ctx, id, model.UserUpdate{Points: &negativePoints})
	s.Require().ErrorAs(err, &nerr)
	s.Equal("points", nerr.Field)

	taken := "b@example.com"
	err = s.repo.UpdateUser(s.ctx, id, model.UserUpdate{Email: &taken})
	s.ErrorIs(err, ErrUserExists)

	err = s.repo.UpdateUser(s.ctx, id+100, model.UserUpdate{Points: &points})
	s.ErrorIs(err, ErrUserNotFound)

	users, err := s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal(id, users[0].ID)
}

func (s *PostgresRepositoryTestSuite) TestCart_AddMergesQuantity() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("12.50")

	_, err := s.repo.AddCartItem(s.ctx, userID, productID, 1)
	s.Require().NoError(err)
	item, err := s.repo.AddCartItem(s.ctx, userID, productID, 2)
	s.Require().NoError(err)
	s.Equal(3, item.Quantity)

	items, err := s.repo.GetCartItems(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.True(items[0].Product.Price.Equal(decimal.RequireFromString("12.50")))

	_, err = s.repo.AddCartItem(s.ctx, userID, 9999, 1)
	s.ErrorIs(err, ErrProductNotFound)
}

func (s *PostgresRepositoryTestSuite) newOrder(userID, productID int64, cartItemIDs []int64, intentID string) (int64, int64) {
	o := &model.Order{
		UserID:          userID,
		ItemCount:       2,
		Subtotal:        decimal.RequireFromString("100.00"),
		Tax:             decimal.RequireFromString("8.00"),
		Total:           decimal.RequireFromString("108.00"),
		DeliveryAddress: "1 Orchard Road",
		Items: []model.OrderItem{{
			ProductID:       productID,
			Quantity:        2,
			Total:           decimal.RequireFromString("100.00"),
			DiscountedTotal: decimal.RequireFromString("100.00"),
			Points:          200,
		}},
	}
	txn := &model.Transaction{
		Amount:          o.Total,
		Kind:            model.TransactionKindPurchase,
		PaymentIntentID: intentID,
		ClientSecret:    intentID + "_secret",
		UserID:          userID,
		Operator:        model.OperatorCredit,
	}

	orderID, txnID, err := s.repo.CreateOrder(s.ctx, o, txn, cartItemIDs)
	s.Require().NoError(err)
	return orderID, txnID
}

func (s *PostgresRepositoryTestSuite) TestCreateOrder_PersistsOrderAndTransaction() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("50.00")
	item, err := s.repo.AddCartItem(s.ctx, userID, productID, 2)
	s.Require().NoError(err)

	orderID, txnID := s.newOrder(userID, productID, []int64{item.ID}, "pi_order")

	o, err := s.repo.GetOrder(s.ctx, userID, orderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCreated, o.Status)
	s.True(o.Total.Equal(decimal.RequireFromString("108.00")))
	s.Require().Len(o.Items, 1)
	s.Equal(int64(200), o.Items[0].Points)

	txn, err := s.repo.GetTransaction(s.ctx, userID, txnID)
	s.Require().NoError(err)
	s.Equal(model.TransactionStatusPending, txn.Status)
	s.Require().NotNil(txn.OrderID)
	s.Equal(orderID, *txn.OrderID)

	cart, err := s.repo.GetCartItems(s.ctx, userID)
	s.Require().NoError(err)
	s.Empty(cart)

	_, err = s.repo.GetOrder(s.ctx, userID+1, orderID)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *PostgresRepositoryTestSuite) TestCreateOrder_DuplicateIntentRollsBack() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("50.00")
	s.newOrder(userID, productID, nil, "pi_dup")

	o := &model.Order{UserID: userID, Total: decimal.NewFromInt(1), DeliveryAddress: "x"}
	txn := &model.Transaction{Amount: decimal.NewFromInt(1), PaymentIntentID: "pi_dup", Operator: "+"}
	_, _, err := s.repo.CreateOrder(s.ctx, o, txn, nil)
	s.Require().Error(err)

	orders, err := s.repo.ListOrders(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(orders, 1)
}

func (s *PostgresRepositoryTestSuite) TestSettleTransaction_TopUpAppliedOnce() {
	userID := s.createUser("a@example.com")
	_, err := s.repo.CreateTransaction(s.ctx, &model.Transaction{
		Amount:          decimal.RequireFromString("50.00"),
		Kind:            model.TransactionKindTopUp,
		PaymentIntentID: "pi_topup",
		ClientSecret:    "pi_topup_secret",
		UserID:          userID,
		Operator:        model.OperatorCredit,
	})
	s.Require().NoError(err)

	const deliveries = 8
	outcomes := make([]model.SettleOutcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := s.repo.SettleTransaction(s.ctx, "pi_topup")
			require.NoError(s.T(), err)
			outcomes[i] = st.Outcome
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, o := range outcomes {
		if o == model.SettleApplied {
			applied++
		} else {
			s.Equal(model.SettleAlreadyApplied, o)
		}
	}
	s.Equal(1, applied)

	u, err := s.repo.GetUserByID(s.ctx, userID)
	s.Require().NoError(err)
	s.True(u.Cash.Equal(decimal.RequireFromString("50.00")), "cash = %s", u.Cash)
}

func (s *PostgresRepositoryTestSuite) TestSettleTransaction_PurchaseMarksOrderPaid() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("50.00")
	orderID, _ := s.newOrder(userID, productID, nil, "pi_purchase")

	st, err := s.repo.SettleTransaction(s.ctx, "pi_purchase")
	s.Require().NoError(err)
	s.Equal(model.SettleApplied, st.Outcome)
	s.Equal(model.TransactionKindPurchase, st.Transaction.Kind)
	s.False(st.OrderAlreadyPaid)

	o, err := s.repo.GetOrder(s.ctx, userID, orderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusPaid, o.Status)

	err = s.repo.UpdateOrderPaymentMethod(s.ctx, userID, orderID, model.PaymentMethodWallet)
	s.ErrorIs(err, ErrOrderPaid)
	err = s.repo.UpdateOrderPaymentMethod(s.ctx, userID, orderID+100, model.PaymentMethodWallet)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *PostgresRepositoryTestSuite) TestSettleTransaction_Unknown() {
	st, err := s.repo.SettleTransaction(s.ctx, "pi_unknown")
	s.Require().NoError(err)
	s.Equal(model.SettleNotFound, st.Outcome)
	s.Nil(st.Transaction)
}

func (s *PostgresRepositoryTestSuite) TestSettleTransaction_SecondPurchaseFlagsPaidOrder() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("50.00")
	orderID, _ := s.newOrder(userID, productID, nil, "pi_first")
	_, err := s.repo.CreateTransaction(s.ctx, &model.Transaction{
		Amount: decimal.RequireFromString("108.00"), Kind: model.TransactionKindPurchase,
		PaymentIntentID: "pi_second", ClientSecret: "s", UserID: userID, OrderID: &orderID,
		Operator: model.OperatorCredit,
	})
	s.Require().NoError(err)

	first, err := s.repo.SettleTransaction(s.ctx, "pi_first")
	s.Require().NoError(err)
	s.False(first.OrderAlreadyPaid)

	second, err := s.repo.SettleTransaction(s.ctx, "pi_second")
	s.Require().NoError(err)
	s.Equal(model.SettleApplied, second.Outcome)
	s.True(second.OrderAlreadyPaid)
	s.Equal(model.TransactionStatusSucceeded, second.Transaction.Status)

	o, err := s.repo.GetOrder(s.ctx, userID, orderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusPaid, o.Status)
}

func (s *PostgresRepositoryTestSuite) TestListTransactions_FilterByKind() {
	userID := s.createUser("a@example.com")
	productID := s.createProduct("50.00")
	s.newOrder(userID, productID, nil, "pi_p")
	_, err := s.repo.CreateTransaction(s.ctx, &model.Transaction{
		Amount: decimal.NewFromInt(10), Kind: model.TransactionKindTopUp, PaymentIntentID: "pi_t",
		ClientSecret: "s", UserID: userID, Operator: model.OperatorCredit,
	})
	s.Require().NoError(err)

	all, err := s.repo.ListTransactions(s.ctx, userID, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	kind := model.TransactionKindTopUp
	topups, err := s.repo.ListTransactions(s.ctx, userID, &kind)
	s.Require().NoError(err)
	s.Require().Len(topups, 1)
	s.Equal("pi_t", topups[0].PaymentIntentID)
}
