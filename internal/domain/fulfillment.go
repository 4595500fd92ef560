package domain

// FulfillmentLineItem — позиция в корректирующем fulfillment: только id и количество.
type FulfillmentLineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// FulfillmentCorrection — запись, которая отправляется в Shopify для исправления веса отправления.
type FulfillmentCorrection struct {
	LocationID      *int64                `json:"location_id,omitempty"`
	TrackingNumbers []string              `json:"tracking_numbers"`
	NotifyCustomer  bool                  `json:"notify_customer"`
	LineItems       []FulfillmentLineItem `json:"line_items"`
	Weight          float64               `json:"weight"`
}

// FulfillmentRequest — тело запроса создания fulfillment в Admin API.
type FulfillmentRequest struct {
	Fulfillment FulfillmentCorrection `json:"fulfillment"`
}

// NewFulfillmentCorrection строит корректировку из заказа.
// Позиции переносятся в исходном порядке, вес всегда равен MinimumWeightGrams.
func NewFulfillmentCorrection(order Order) FulfillmentCorrection {
	items := make([]FulfillmentLineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, FulfillmentLineItem{ID: item.ID, Quantity: item.Quantity})
	}

	return FulfillmentCorrection{
		LocationID:      order.LocationID,
		TrackingNumbers: []string{},
		NotifyCustomer:  false,
		LineItems:       items,
		Weight:          MinimumWeightGrams,
	}
}
