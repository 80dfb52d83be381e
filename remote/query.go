package remote

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// MaxPageSize is the largest page the store will return for one query.
const MaxPageSize = 100

// Sort orders query results by a property.
type Sort struct {
	Property  string
	Direction Direction
}

// Filter is a node of the query filter tree.
type Filter interface {
	isFilter()
}

// And matches records matching every clause.
type And []Filter

// Or matches records matching at least one clause.
type Or []Filter

// TextContains matches a title or rich text property containing Value,
// case-insensitively.
type TextContains struct {
	Property string
	Kind     PropertyType
	Value    string
}

// SelectEquals matches a select property whose option name equals Value.
type SelectEquals struct {
	Property string
	Value    string
}

// DateRange matches a date property inside an inclusive range. Empty bounds
// are open.
type DateRange struct {
	Property   string
	OnOrAfter  string
	OnOrBefore string
}

func (And) isFilter()          {}
func (Or) isFilter()           {}
func (TextContains) isFilter() {}
func (SelectEquals) isFilter() {}
func (DateRange) isFilter()    {}

// Query is one page request against a data source. An empty Cursor requests
// the first page.
type Query struct {
	DataSourceID string
	PageSize     int
	Cursor       string
	Sorts        []Sort
	Filter       Filter
}

// QueryResult is one page of records. NextCursor is empty when HasMore is
// false.
type QueryResult struct {
	Results    []Record
	NextCursor string
	HasMore    bool
}
