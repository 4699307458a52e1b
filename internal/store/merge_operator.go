package store

import "github.com/stumble/gorocksdb"

// AppendMergeOperator is the RocksDB associative merge operator used on
// append-only record-stream columns (user history, user sponsors,
// prefix transaction history): merge = concatenation of the prior value
// (if any) with the incoming value, producing a per-page ordered log.
type AppendMergeOperator struct{}

func NewAppendMergeOperator() gorocksdb.MergeOperator {
	return &AppendMergeOperator{}
}

func (*AppendMergeOperator) FullMerge(key, existingValue []byte, operands [][]byte) ([]byte, bool) {
	out := make([]byte, 0, len(existingValue)+sumLen(operands))
	out = append(out, existingValue...)
	for _, op := range operands {
		out = append(out, op...)
	}
	return out, true
}

func (*AppendMergeOperator) PartialMerge(key, leftOperand, rightOperand []byte) ([]byte, bool) {
	out := make([]byte, 0, len(leftOperand)+len(rightOperand))
	out = append(out, leftOperand...)
	out = append(out, rightOperand...)
	return out, true
}

func (*AppendMergeOperator) Name() string { return "AppendMergeOperator" }

func sumLen(bs [][]byte) int {
	n := 0
	for _, b := range bs {
		n += len(b)
	}
	return n
}
