// Package pricing рассчитывает суммы заказа при оформлении корзины.
package pricing

import (
	"github.com/shopspring/decimal"
)

// TaxRate задаёт ставку налога с покупок (GST).
var TaxRate = decimal.RequireFromString("0.08")

// Line описывает позицию корзины с ценой товара на момент расчёта.
type Line struct {
	ProductID       int64
	Quantity        int
	UnitPrice       decimal.Decimal
	PointPrice      int64
	OnSale          bool
	DiscountPercent int
}

// Item описывает рассчитанную строку заказа.
type Item struct {
	ProductID        int64
	Quantity         int
	Total            decimal.Decimal
	DiscountedTotal  decimal.Decimal
	Discounted       bool
	Points           int64
	PointsDiscounted int64
}

// Quote содержит итог расчёта заказа.
type Quote struct {
	Items     []Item
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// Compute считает строки заказа, подытог, налог и итог.
// Подытог складывается из цен со скидкой; налог и итог округляются до центов.
func Compute(lines []Line) Quote {
	q := Quote{
		Items:    make([]Item, 0, len(lines)),
		Subtotal: decimal.Zero,
	}

	for _, l := range lines {
		item := computeLine(l)
		q.Items = append(q.Items, item)
		q.ItemCount += l.Quantity
		q.Subtotal = q.Subtotal.Add(item.DiscountedTotal)
	}

	q.Tax = Tax(q.Subtotal)
	q.Total = q.Subtotal.Add(q.Tax).Round(2)

	return q
}

// Tax возвращает налог с суммы, округлённый до центов.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

func computeLine(l Line) Item {
	qty := decimal.NewFromInt(int64(l.Quantity))
	total := l.UnitPrice.Mul(qty)

	discounted := total
	if l.OnSale {
		discounted = applyDiscount(l.UnitPrice, l.DiscountPercent).Mul(qty).Round(2)
	}

	points := l.PointPrice * int64(l.Quantity)
	pointsDiscounted := applyDiscount(decimal.NewFromInt(l.PointPrice), l.DiscountPercent).
		Mul(qty).
		Round(0).
		IntPart()

	return Item{
		ProductID:        l.ProductID,
		Quantity:         l.Quantity,
		Total:            total,
		DiscountedTotal:  discounted,
		Discounted:       l.OnSale,
		Points:           points,
		PointsDiscounted: pointsDiscounted,
	}
}

// applyDiscount возвращает value × (1 − percent/100) без промежуточного округления.
func applyDiscount(value decimal.Decimal, percent int) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(int64(100 - percent))).Shift(-2)
}
