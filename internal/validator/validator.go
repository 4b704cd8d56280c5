// Package validator implements §4.6: decide validationPassed by comparing
// a scalar row-count query against the counts the day's run already
// produced.
package validator

import (
	"context"
	"fmt"

	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/loader"
)

// Validator queries the store Load connected to and compares the result
// against the counts already recorded on the context.
type Validator struct {
	store       contracts.Store
	routing     *loader.RoutingTable
	businessCol string
}

// New returns a Validator backed by the given store and routing table.
// businessCol names the column Validate's scalar query filters on (the
// business-date column §4.6 refers to).
func New(store contracts.Store, routing *loader.RoutingTable, businessCol string) *Validator {
	if businessCol == "" {
		businessCol = "receive_time"
	}
	return &Validator{store: store, routing: routing, businessCol: businessCol}
}

// Run implements the §4.6 algorithm. It requires ec.StoreHandle to be
// populated by a prior successful Load.
func (v *Validator) Run(ctx context.Context, ec *etlcontext.ETLContext) error {
	handle, ok := ec.StoreHandle.(contracts.Handle)
	if !ok || handle == nil {
		return etlerrors.New(etlerrors.KindUnexpected, etlerrors.StageValidate, "no store handle on context; Load must run before Validate")
	}

	businessDate := ec.CurrentDate.Format("2006.01.02")

	// §4.6 describes a single scalar select against "the loaded table";
	// this driver can route one day's batch across several tables, so the
	// generalization is to sum each table's count and compare the total,
	// rather than repeating the whole-day comparison once per table.
	var total int64
	var errs []string
	for _, table := range v.distinctTables(ec) {
		query := fmt.Sprintf("SELECT count(*) FROM %s WHERE toDate(%s) = toDate('%s')", table, v.businessCol, businessDate)
		count, err := v.store.RunScalarQuery(ctx, handle, query)
		if err != nil {
			return etlerrors.Wrap(etlerrors.KindValidation, etlerrors.StageValidate, fmt.Sprintf("row-count query against %s", table), err)
		}
		total += count
	}

	if total != int64(ec.TransformedCount) {
		errs = append(errs, fmt.Sprintf("loaded row count %d does not match transformedCount=%d", total, ec.TransformedCount))
	}
	if total != int64(ec.ExtractedCount) {
		errs = append(errs, fmt.Sprintf("loaded row count %d does not match extractedCount=%d", total, ec.ExtractedCount))
	}

	if len(errs) > 0 {
		ec.ValidationPassed = etlcontext.False
		ec.ValidationErrors = errs
		return etlerrors.New(etlerrors.KindValidation, etlerrors.StageValidate, fmt.Sprintf("%d validation rule(s) failed", len(errs)))
	}

	ec.ValidationPassed = etlcontext.True
	ec.ValidationErrors = nil
	return nil
}

// distinctTables returns the unique set of tables the day's transformed
// records routed to, in first-seen order.
func (v *Validator) distinctTables(ec *etlcontext.ETLContext) []string {
	seen := map[string]bool{}
	var tables []string
	for _, rec := range ec.TransformedData {
		table, ok := v.routing.Lookup(rec.DataType())
		if !ok || seen[table] {
			continue
		}
		seen[table] = true
		tables = append(tables, table)
	}
	return tables
}
