package tablestore

// RowExistenceExpectation is the coarse row-level precondition of a write.
type RowExistenceExpectation uint8

const (
	RowExistenceIgnore RowExistenceExpectation = iota
	RowExistenceExpectExist
	RowExistenceExpectNotExist
)

// ComparisonRelation is the operator of a SingleColumnCondition leaf.
type ComparisonRelation uint8

const (
	RelationEqual ComparisonRelation = iota
	RelationNotEqual
	RelationGreaterThan
	RelationGreaterEqual
	RelationLessThan
	RelationLessEqual
)

// LogicalOperator is the operator of a CompositeCondition internal node.
type LogicalOperator uint8

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
	LogicalNot
)

// ColumnCondition is a node in the column-filter tree: either a
// SingleColumnCondition leaf or a CompositeCondition internal node.
type ColumnCondition interface {
	isColumnCondition()
}

// SingleColumnCondition is a leaf predicate over one attribute column.
type SingleColumnCondition struct {
	ColumnName        string
	Relation          ComparisonRelation
	Value             AttributeValue
	PassIfMissing     bool
	LatestVersionOnly bool
}

func (*SingleColumnCondition) isColumnCondition() {}

// CompositeCondition combines child conditions with AND/OR/NOT.
type CompositeCondition struct {
	Operator LogicalOperator
	Children []ColumnCondition
}

func (*CompositeCondition) isColumnCondition() {}

func (c *CompositeCondition) validate() error {
	if c.Operator == LogicalNot && len(c.Children) != 1 {
		return newValidationError("NOT composite condition must have exactly one child")
	}
	if c.Operator != LogicalNot && len(c.Children) == 0 {
		return newValidationError("composite condition must have at least one child")
	}
	return nil
}

// Condition is the top-level write precondition: a row-existence
// expectation plus an optional column-filter tree.
type Condition struct {
	RowCondition    RowExistenceExpectation
	ColumnCondition ColumnCondition
}

func validateColumnCondition(c ColumnCondition) error {
	switch v := c.(type) {
	case nil:
		return nil
	case *SingleColumnCondition:
		if v.ColumnName == "" {
			return newValidationError("single column condition must name a column")
		}
		return nil
	case *CompositeCondition:
		if err := v.validate(); err != nil {
			return err
		}
		for _, child := range v.Children {
			if err := validateColumnCondition(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return newValidationError("unknown column condition type %T", c)
	}
}
