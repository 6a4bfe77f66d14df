package tablestore

// ReturnType selects what a write response echoes back.
type ReturnType uint8

const (
	ReturnNone ReturnType = iota
	ReturnPrimaryKey
)

// RowChangeKind tags the three write-change variants.
type RowChangeKind uint8

const (
	RowChangePut RowChangeKind = iota
	RowChangeUpdate
	RowChangeDelete
)

// RowChange is implemented by RowPutChange, RowUpdateChange and
// RowDeleteChange (spec §3).
type RowChange interface {
	Kind() RowChangeKind
	TableName() string
	Key() PrimaryKey
	GetCondition() Condition
	GetReturnType() ReturnType
}

// RowPutChange unconditionally (subject to Condition) replaces a row's
// attributes.
type RowPutChange struct {
	Table       string
	PrimaryKey  PrimaryKey
	Attributes  []Attribute
	Condition   Condition
	ReturnType  ReturnType
}

func (c *RowPutChange) Kind() RowChangeKind         { return RowChangePut }
func (c *RowPutChange) TableName() string           { return c.Table }
func (c *RowPutChange) Key() PrimaryKey              { return c.PrimaryKey }
func (c *RowPutChange) GetCondition() Condition      { return c.Condition }
func (c *RowPutChange) GetReturnType() ReturnType    { return c.ReturnType }

// ColumnUpdateKind tags one mutation within a RowUpdateChange.
type ColumnUpdateKind uint8

const (
	UpdatePut ColumnUpdateKind = iota
	UpdateDeleteOneVersion
	UpdateDeleteAllVersions
)

// ColumnUpdate is one mutation entry of a RowUpdateChange: either a Put of
// an attribute, a DeleteOneVersion(attr, ts), or a DeleteAllVersions(attr).
type ColumnUpdate struct {
	Kind      ColumnUpdateKind
	Name      string
	Value     AttributeValue // only meaningful for UpdatePut
	Timestamp *int64         // ms since epoch; meaningful for Put and DeleteOneVersion
}

// RowUpdateChange carries a sequence of per-column updates.
type RowUpdateChange struct {
	Table      string
	PrimaryKey PrimaryKey
	Updates    []ColumnUpdate
	Condition  Condition
	ReturnType ReturnType
}

func (c *RowUpdateChange) Kind() RowChangeKind      { return RowChangeUpdate }
func (c *RowUpdateChange) TableName() string        { return c.Table }
func (c *RowUpdateChange) Key() PrimaryKey            { return c.PrimaryKey }
func (c *RowUpdateChange) GetCondition() Condition    { return c.Condition }
func (c *RowUpdateChange) GetReturnType() ReturnType  { return c.ReturnType }

// RowDeleteChange removes an entire row.
type RowDeleteChange struct {
	Table      string
	PrimaryKey PrimaryKey
	Condition  Condition
	ReturnType ReturnType
}

func (c *RowDeleteChange) Kind() RowChangeKind      { return RowChangeDelete }
func (c *RowDeleteChange) TableName() string        { return c.Table }
func (c *RowDeleteChange) Key() PrimaryKey            { return c.PrimaryKey }
func (c *RowDeleteChange) GetCondition() Condition    { return c.Condition }
func (c *RowDeleteChange) GetReturnType() ReturnType  { return c.ReturnType }

func validateRowChange(rc RowChange) error {
	if rc.TableName() == "" {
		return newValidationError("row change must name a table")
	}
	if len(rc.Key()) == 0 {
		return newValidationError("row change must carry a non-empty primary key")
	}
	for _, col := range rc.Key() {
		if col.Value.kind == pkNone {
			return newValidationError("primary key column %q must not be none", col.Name)
		}
	}
	if err := validateColumnCondition(rc.GetCondition().ColumnCondition); err != nil {
		return err
	}
	if u, ok := rc.(*RowUpdateChange); ok {
		if len(u.Updates) == 0 {
			return newValidationError("update row change must carry at least one column update")
		}
		for _, up := range u.Updates {
			if up.Name == "" {
				return newValidationError("column update must name a column")
			}
		}
	}
	return nil
}
