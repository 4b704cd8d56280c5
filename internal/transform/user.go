package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/model"
)

// UserTransformer maps UserDoc (source) to FactUser (target).
type UserTransformer struct{}

func (UserTransformer) SourceType() string { return "user_doc" }
func (UserTransformer) TargetType() string { return "fact_user" }

func (UserTransformer) Transform(ctx context.Context, records []model.SourceRecord) ([]model.TargetRecord, error) {
	out := make([]model.TargetRecord, 0, len(records))
	now := time.Now()
	for _, r := range records {
		doc, ok := r.(model.UserDoc)
		if !ok {
			return nil, fmt.Errorf("user transformer: unexpected record type %T", r)
		}
		out = append(out, model.FactUser{
			UserID:      doc.ID,
			Username:    doc.Username,
			Email:       doc.Email,
			Country:     doc.Country,
			CreatedAt:   doc.CreatedAt,
			ReceiveTime: now,
		})
	}
	return out, nil
}

var _ contracts.Transformer = UserTransformer{}
