package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/envirogo/envirogo-api/internal/model"
	"github.com/envirogo/envirogo-api/internal/repository"
)

// memRepo is an in-memory Repository. SettleTransaction flips Pending to Succeeded and
// applies the effect under one lock, mirroring the conditional update of the SQL store.
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*model.User
	products map[int64]*model.Product
	cart     map[int64]*model.CartItem
	orders   map[int64]*model.Order
	txns     map[int64]*model.Transaction

	createOrderErr error
	settleErr      error
	updateUserErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    make(map[int64]*model.User),
		products: make(map[int64]*model.Product),
		cart:     make(map[int64]*model.CartItem),
		orders:   make(map[int64]*model.Order),
		txns:     make(map[int64]*model.Transaction),
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) Close() error { return nil }

func (r *memRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return 0, repository.ErrUserExists
		}
	}
	cp := *u
	cp.ID = r.id()
	cp.CreatedAt = time.Now()
	r.users[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) UpdateUserProfile(_ context.Context, id int64, upd model.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	if upd.DeliveryAddress != nil {
		addr := *upd.DeliveryAddress
		u.DeliveryAddress = &addr
	}
	return nil
}

func (r *memRepo) ListUsers(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) UpdateUser(_ context.Context, id int64, upd model.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateUserErr != nil {
		return r.updateUserErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if upd.Email != nil {
		for _, other := range r.users {
			if other.ID != id && other.Email == *upd.Email {
				return repository.ErrUserExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	if upd.DeliveryAddress != nil {
		addr := *upd.DeliveryAddress
		u.DeliveryAddress = &addr
	}
	if upd.AccountType != nil {
		u.AccountType = *upd.AccountType
	}
	if upd.Cash != nil {
		u.Cash = *upd.Cash
	}
	if upd.Points != nil {
		u.Points = *upd.Points
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	return nil
}

func (r *memRepo) ListProducts(_ context.Context, activeOnly bool) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Product
	for _, p := range r.products {
		if activeOnly && !p.Active {
			continue
		}
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) CreateProduct(_ context.Context, p *model.Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	cp.ID = r.id()
	r.products[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memRepo) UpdateProduct(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memRepo) GetCartItems(_ context.Context, userID int64) ([]model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.CartItem
	for _, item := range r.cart {
		if item.UserID != userID {
			continue
		}
		cp := *item
		cp.Product = *r.products[item.ProductID]
		res = append(res, cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *memRepo) AddCartItem(_ context.Context, userID, productID int64, quantity int) (*model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	for _, item := range r.cart {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity += quantity
			cp := *item
			return &cp, nil
		}
	}
	item := &model.CartItem{ID: r.id(), UserID: userID, ProductID: productID, Quantity: quantity}
	r.cart[item.ID] = item
	cp := *item
	return &cp, nil
}

func (r *memRepo) UpdateCartItem(_ context.Context, userID, itemID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.cart[itemID]
	if !ok || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (r *memRepo) RemoveCartItem(_ context.Context, userID, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.cart[itemID]
	if !ok || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	delete(r.cart, itemID)
	return nil
}

func (r *memRepo) CreateOrder(_ context.Context, o *model.Order, txn *model.Transaction, cartItemIDs []int64) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createOrderErr != nil {
		return 0, 0, r.createOrderErr
	}

	o.ID = r.id()
	o.Status = model.OrderStatusCreated
	o.CreatedAt = time.Now()
	oc := *o
	r.orders[o.ID] = &oc

	txn.ID = r.id()
	txn.OrderID = &o.ID
	txn.Status = model.TransactionStatusPending
	tc := *txn
	r.txns[txn.ID] = &tc

	for _, id := range cartItemIDs {
		if item, ok := r.cart[id]; ok && item.UserID == o.UserID {
			delete(r.cart, id)
		}
	}
	return o.ID, txn.ID, nil
}

func (r *memRepo) GetOrder(_ context.Context, userID, orderID int64) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) ListOrders(_ context.Context, userID int64) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			res = append(res, *o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *memRepo) UpdateOrderPaymentMethod(_ context.Context, userID, orderID int64, method model.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return repository.ErrOrderNotFound
	}
	if o.Status == model.OrderStatusPaid {
		return repository.ErrOrderPaid
	}
	m := method
	o.PaymentMethod = &m
	return nil
}

func (r *memRepo) CreateTransaction(_ context.Context, t *model.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = r.id()
	t.Status = model.TransactionStatusPending
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.txns[t.ID] = &cp
	return t.ID, nil
}

func (r *memRepo) ListTransactions(_ context.Context, userID int64, kind *model.TransactionKind) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Transaction
	for _, t := range r.txns {
		if t.UserID != userID || (kind != nil && t.Kind != *kind) {
			continue
		}
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *memRepo) GetTransaction(_ context.Context, userID, id int64) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.txns[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) SettleTransaction(_ context.Context, intentID string) (model.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settleErr != nil {
		return model.Settlement{Outcome: model.SettleNotFound}, r.settleErr
	}

	for _, t := range r.txns {
		if t.PaymentIntentID != intentID {
			continue
		}
		if t.Status != model.TransactionStatusPending {
			return model.Settlement{Outcome: model.SettleAlreadyApplied}, nil
		}

		t.Status = model.TransactionStatusSucceeded
		var alreadyPaid bool
		switch t.Kind {
		case model.TransactionKindTopUp:
			u := r.users[t.UserID]
			u.Cash = u.Cash.Add(t.Amount)
		case model.TransactionKindPurchase:
			o := r.orders[*t.OrderID]
			alreadyPaid = o.Status == model.OrderStatusPaid
			o.Status = model.OrderStatusPaid
		}
		cp := *t
		return model.Settlement{Outcome: model.SettleApplied, Transaction: &cp, OrderAlreadyPaid: alreadyPaid}, nil
	}
	return model.Settlement{Outcome: model.SettleNotFound}, nil
}

func (r *memRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memRepo) txnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txns)
}
