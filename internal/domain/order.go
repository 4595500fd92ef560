package domain

// ShippingLine описывает способ доставки из webhook-заказа.
type ShippingLine struct {
	// Title — человекочитаемое название тарифа, например "Fedex Ground Economy".
	Title string `json:"title"`
	// Source — код перевозчика/провайдера тарифа.
	Source string `json:"source"`
}

// LineItem представляет одну позицию заказа.
type LineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
	// Grams — вес одной единицы товара в граммах.
	Grams float64 `json:"grams"`
}

// Order — подмножество заказа Shopify, которое нужно для корректировки веса.
// Заказ живёт только в рамках одного запроса и нигде не сохраняется.
type Order struct {
	ID            int64          `json:"id"`
	LocationID    *int64         `json:"location_id"`
	ShippingLines []ShippingLine `json:"shipping_lines"`
	LineItems     []LineItem     `json:"line_items"`
}

// Validate проверяет поля, без которых нельзя адресовать корректировку.
func (o Order) Validate() error {
	if o.ID == 0 {
		return ErrOrderIDRequired
	}
	if o.LineItems == nil {
		return ErrLineItemsRequired
	}
	return nil
}
