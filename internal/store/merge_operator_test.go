package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullMergeConcatenatesExistingAndOperands(t *testing.T) {
	op := &AppendMergeOperator{}
	out, ok := op.FullMerge([]byte("key"), []byte("a"), [][]byte{[]byte("b"), []byte("c")})

	assert.True(t, ok)
	assert.Equal(t, []byte("abc"), out)
}

func TestFullMergeWithNoExistingValue(t *testing.T) {
	op := &AppendMergeOperator{}
	out, ok := op.FullMerge([]byte("key"), nil, [][]byte{[]byte("x")})

	assert.True(t, ok)
	assert.Equal(t, []byte("x"), out)
}

func TestPartialMergeConcatenatesOperands(t *testing.T) {
	op := &AppendMergeOperator{}
	out, ok := op.PartialMerge([]byte("key"), []byte("a"), []byte("b"))

	assert.True(t, ok)
	assert.Equal(t, []byte("ab"), out)
}

func TestNameIdentifiesTheOperator(t *testing.T) {
	op := &AppendMergeOperator{}
	assert.Equal(t, "AppendMergeOperator", op.Name())
}
