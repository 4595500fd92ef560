package adjuster

import "context"

type deliveryIDKey struct{}

// ContextWithDeliveryID сохраняет идентификатор доставки webhook для логов.
func ContextWithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, deliveryIDKey{}, deliveryID)
}

// DeliveryIDFromContext возвращает идентификатор доставки или пустую строку.
func DeliveryIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(deliveryIDKey{}).(string)
	return id
}
