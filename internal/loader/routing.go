package loader

// RoutingTable maps a target record's dataType tag to the fixed table
// name the columnar loader writes it to (§4.5 step 2). Built at startup
// from static declarations, like the extractor/transformer registries.
type RoutingTable struct {
	tables map[string]string
}

// NewRoutingTable returns an empty routing table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{tables: make(map[string]string)}
}

// Register declares the table a dataType routes to.
func (r *RoutingTable) Register(dataType, table string) {
	r.tables[dataType] = table
}

// Lookup resolves dataType to its table name.
func (r *RoutingTable) Lookup(dataType string) (string, bool) {
	t, ok := r.tables[dataType]
	return t, ok
}

// DefaultRoutingTable wires the three target models this driver ships
// with to their ClickHouse table names.
func DefaultRoutingTable() *RoutingTable {
	rt := NewRoutingTable()
	rt.Register("fact_click", "fact_click")
	rt.Register("fact_order", "fact_order")
	rt.Register("fact_user", "fact_user")
	return rt
}
