package domain

import "errors"

var (
	// ErrMalformedOrder — тело webhook не удалось разобрать как заказ.
	ErrMalformedOrder = errors.New("malformed order payload")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// Ошибка отсутствия shipping_lines в заказе.
	ErrShippingLinesRequired = errors.New("order shipping_lines are required")
	// Ошибка отсутствия line_items в заказе с подходящей доставкой.
	ErrLineItemsRequired = errors.New("order line_items are required")
	// Ошибка отрицательного количества товара в позиции.
	ErrNegativeQuantity = errors.New("line item quantity must be non-negative")
	// Ошибка отрицательного веса единицы товара.
	ErrNegativeGrams = errors.New("line item grams must be non-negative")
	// ErrFulfillmentRejected — Shopify ответил не-2xx статусом на создание fulfillment.
	ErrFulfillmentRejected = errors.New("fulfillment rejected by platform")
	// ErrFulfillmentTransport — сетевая ошибка при обращении к Shopify.
	ErrFulfillmentTransport = errors.New("fulfillment transport error")
)

// IsDataError сообщает, относится ли ошибка к качеству входных данных заказа.
func IsDataError(err error) bool {
	return errors.Is(err, ErrMalformedOrder) ||
		errors.Is(err, ErrOrderIDRequired) ||
		errors.Is(err, ErrShippingLinesRequired) ||
		errors.Is(err, ErrLineItemsRequired) ||
		errors.Is(err, ErrNegativeQuantity) ||
		errors.Is(err, ErrNegativeGrams)
}
