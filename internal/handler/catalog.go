package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/envirogo/envirogo-api/internal/service"
)

type productRequest struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	SubCategory     string          `json:"sub_category"`
	Description     string          `json:"description"`
	Stock           int             `json:"stock"`
	Price           decimal.Decimal `json:"price"`
	PointPrice      int64           `json:"point_price"`
	OnSale          bool            `json:"on_sale"`
	DiscountPercent int             `json:"discount_percent"`
	Active          *bool           `json:"active"`
}

func (req productRequest) input() service.ProductInput {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return service.ProductInput{
		Name:            req.Name,
		Category:        req.Category,
		SubCategory:     req.SubCategory,
		Description:     req.Description,
		Stock:           req.Stock,
		Price:           req.Price,
		PointPrice:      req.PointPrice,
		OnSale:          req.OnSale,
		DiscountPercent: req.DiscountPercent,
		Active:          active,
	}
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	products, err := h.service.ListProducts(r.Context(), includeInactive)
	if err != nil {
		h.respondError(w, r, err, "list products error")
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i]))
	}
	h.writeJSON(w, r, resp, http.StatusOK)
}

// ListProducts возвращает активный каталог.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

// AdminListProducts возвращает весь каталог, включая снятые с продажи товары.
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

// GetProduct возвращает активный товар.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id, false)
	if err != nil {
		h.respondError(w, r, err, "get product error", zap.Int64("productID", id))
		return
	}
	h.writeJSON(w, r, newProductResponse(p), http.StatusOK)
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.respondError(w, r, err, "create product error")
		return
	}
	h.writeJSON(w, r, newProductResponse(p), http.StatusCreated)
}

// UpdateProduct заменяет поля товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		h.respondError(w, r, err, "update product error", zap.Int64("productID", id))
		return
	}
	h.writeJSON(w, r, newProductResponse(p), http.StatusOK)
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "get cart error", zap.Int64("userID", userID))
		return
	}

	resp := make([]cartItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newCartItemResponse(&items[i]))
	}
	h.writeJSON(w, r, resp, http.StatusOK)
}

// AddCartItem кладёт товар в корзину.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	item, err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(w, r, err, "add cart item error",
			zap.Int64("userID", userID), zap.Int64("productID", req.ProductID))
		return
	}
	h.writeJSON(w, r, newCartItemResponse(item), http.StatusCreated)
}

// UpdateCartItem меняет количество в позиции корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdateCartItem(r.Context(), userID, itemID, req.Quantity); err != nil {
		h.respondError(w, r, err, "update cart item error", zap.Int64("userID", userID), zap.Int64("itemID", itemID))
		return
	}
	h.writeJSON(w, r, messageResponse{Message: "cart item updated"}, http.StatusOK)
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveCartItem(r.Context(), userID, itemID); err != nil {
		h.respondError(w, r, err, "remove cart item error", zap.Int64("userID", userID), zap.Int64("itemID", itemID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
