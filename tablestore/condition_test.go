package tablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateColumnCondition_Nil(t *testing.T) {
	assert.NoError(t, validateColumnCondition(nil))
}

func TestValidateColumnCondition_SingleColumnRequiresName(t *testing.T) {
	err := validateColumnCondition(&SingleColumnCondition{Relation: RelationEqual, Value: NewAVInt(1)})
	assert.Error(t, err)

	err = validateColumnCondition(&SingleColumnCondition{ColumnName: "col", Relation: RelationEqual, Value: NewAVInt(1)})
	assert.NoError(t, err)
}

func TestValidateColumnCondition_NotRequiresExactlyOneChild(t *testing.T) {
	leaf := &SingleColumnCondition{ColumnName: "col", Value: NewAVInt(1)}
	err := validateColumnCondition(&CompositeCondition{Operator: LogicalNot, Children: []ColumnCondition{leaf, leaf}})
	assert.Error(t, err)

	err = validateColumnCondition(&CompositeCondition{Operator: LogicalNot, Children: []ColumnCondition{leaf}})
	assert.NoError(t, err)
}

func TestValidateColumnCondition_AndOrRequireAtLeastOneChild(t *testing.T) {
	err := validateColumnCondition(&CompositeCondition{Operator: LogicalAnd})
	assert.Error(t, err)

	leaf := &SingleColumnCondition{ColumnName: "col", Value: NewAVInt(1)}
	err = validateColumnCondition(&CompositeCondition{Operator: LogicalOr, Children: []ColumnCondition{leaf}})
	assert.NoError(t, err)
}

func TestValidateColumnCondition_RecursesIntoChildren(t *testing.T) {
	badLeaf := &SingleColumnCondition{Value: NewAVInt(1)}
	err := validateColumnCondition(&CompositeCondition{Operator: LogicalAnd, Children: []ColumnCondition{badLeaf}})
	assert.Error(t, err)
}
