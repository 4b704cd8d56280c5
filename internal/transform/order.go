package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/model"
)

// OrderTransformer maps OrderEvent (source) to FactOrder (target).
type OrderTransformer struct{}

func (OrderTransformer) SourceType() string { return "order_event" }
func (OrderTransformer) TargetType() string { return "fact_order" }

func (OrderTransformer) Transform(ctx context.Context, records []model.SourceRecord) ([]model.TargetRecord, error) {
	out := make([]model.TargetRecord, 0, len(records))
	now := time.Now()
	for _, r := range records {
		evt, ok := r.(model.OrderEvent)
		if !ok {
			return nil, fmt.Errorf("order transformer: unexpected record type %T", r)
		}
		out = append(out, model.FactOrder{
			OrderID:     evt.OrderID,
			UserID:      evt.UserID,
			AmountCents: evt.AmountCents,
			Currency:    evt.Currency,
			PlacedAt:    evt.PlacedAt,
			ReceiveTime: now,
		})
	}
	return out, nil
}

var _ contracts.Transformer = OrderTransformer{}
