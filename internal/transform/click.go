package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/model"
)

// ClickTransformer maps ClickEvent (source) to FactClick (target),
// grounded in the teacher's UserETL.Transform: one struct field copied to
// another, with a receive-time stamp added for the loader's default sort
// field.
type ClickTransformer struct{}

func (ClickTransformer) SourceType() string { return "click_event" }
func (ClickTransformer) TargetType() string { return "fact_click" }

func (ClickTransformer) Transform(ctx context.Context, records []model.SourceRecord) ([]model.TargetRecord, error) {
	out := make([]model.TargetRecord, 0, len(records))
	now := time.Now()
	for _, r := range records {
		evt, ok := r.(model.ClickEvent)
		if !ok {
			return nil, fmt.Errorf("click transformer: unexpected record type %T", r)
		}
		out = append(out, model.FactClick{
			EventID:     evt.EventID,
			UserID:      evt.UserID,
			Page:        evt.Page,
			ReferrerURL: evt.ReferrerURL,
			OccurredAt:  evt.OccurredAt,
			ReceiveTime: now,
		})
	}
	return out, nil
}

var _ contracts.Transformer = ClickTransformer{}
