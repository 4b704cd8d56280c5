// columnar.go implements §4.5 step 3: converting sorted target records
// into column-vector form ready for a multi-row INSERT, plus the decode
// side of the external-merge spill format (sort.go writes the JSON,
// this is where the dataType tag maps back to a concrete Go type).
package loader

import (
	"encoding/json"
	"fmt"

	"github.com/cuong/dayetl/internal/model"
)

// columnBatch is one table's worth of records, transposed into one slice
// per column (columnVectors[j] holds every row's value for columns[j]),
// the shape contracts.Store.InsertBatch expects.
type columnBatch struct {
	table         string
	columns       []string
	columnVectors [][]any
}

// toColumnBatch converts records of a single dataType, in the order
// given, into a columnBatch for the given table name.
func toColumnBatch(table string, records []model.TargetRecord) (columnBatch, error) {
	if len(records) == 0 {
		return columnBatch{table: table}, nil
	}
	columns := records[0].ColumnOrder()
	vectors := make([][]any, len(columns))
	for j := range vectors {
		vectors[j] = make([]any, len(records))
	}
	for i, rec := range records {
		for j, col := range columns {
			v, ok := rec.Column(col)
			if !ok {
				return columnBatch{}, fmt.Errorf("loader: record of type %s missing declared column %q", rec.DataType(), col)
			}
			vectors[j][i] = v
		}
	}
	return columnBatch{table: table, columns: columns, columnVectors: vectors}, nil
}

// decodeTargetRecord reconstructs a concrete model.TargetRecord from its
// dataType tag and raw JSON body, used when reading spilled merge runs
// back off disk. Every target type this driver ships with gets a case;
// an unknown tag means a scratch file was corrupted or from a build that
// shipped a model this one doesn't know about.
func decodeTargetRecord(dataType string, raw json.RawMessage) (model.TargetRecord, error) {
	switch dataType {
	case "fact_click":
		var r model.FactClick
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("loader: decode fact_click: %w", err)
		}
		return r, nil
	case "fact_order":
		var r model.FactOrder
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("loader: decode fact_order: %w", err)
		}
		return r, nil
	case "fact_user":
		var r model.FactUser
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("loader: decode fact_user: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("loader: unknown dataType %q in spilled run", dataType)
	}
}
