package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinimumWeightGrams — граммовый эквивалент одного фунта.
// Заказы легче этого порога получают корректировку веса до него же.
const MinimumWeightGrams = 453.6

var minimumWeight = decimal.NewFromFloat(MinimumWeightGrams)

// TotalWeightGrams считает Σ grams×quantity по всем позициям заказа.
// Сумма ведётся в decimal, чтобы сравнение с порогом не зависело от ошибок округления float.
func TotalWeightGrams(items []LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, item := range items {
		if item.Quantity < 0 {
			return decimal.Zero, fmt.Errorf("line item %d (id=%d): %w", i, item.ID, ErrNegativeQuantity)
		}
		if item.Grams < 0 {
			return decimal.Zero, fmt.Errorf("line item %d (id=%d): %w", i, item.ID, ErrNegativeGrams)
		}
		total = total.Add(decimal.NewFromFloat(item.Grams).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

// BelowThreshold сообщает, нужна ли заказу корректировка веса.
func BelowThreshold(total decimal.Decimal) bool {
	return total.LessThan(minimumWeight)
}
