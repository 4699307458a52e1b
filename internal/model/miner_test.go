package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logpass/node/internal/crypto"
)

func newTestMiner(t *testing.T, stakingDuration uint32) *Miner {
	t.Helper()
	var id crypto.MinerId
	id[0] = 1
	var owner crypto.UserId
	owner[0] = 1
	return NewMiner(id, owner, 1, stakingDuration)
}

func TestAddStakeFromFeeGoesToNewestBucket(t *testing.T) {
	m := newTestMiner(t, 4)
	m.AddStake(100, true)

	assert.Equal(t, uint64(100), m.Buckets()[0])
	assert.Equal(t, uint64(100), m.Stake)
	assert.Equal(t, uint64(100), m.LockedStake)
}

func TestAddStakeFromTransactionSkipsNewestAndOldestBucket(t *testing.T) {
	m := newTestMiner(t, 4)
	m.AddStake(50, false)

	assert.Equal(t, uint64(50), m.Buckets()[2]) // len-2
	assert.Equal(t, uint64(0), m.Buckets()[0])
	assert.Equal(t, uint64(50), m.Stake)
}

func TestWithdrawStakeDrainsLowIndexBucketsFirst(t *testing.T) {
	m := newTestMiner(t, 4)
	m.Buckets()[3] = 10
	m.Buckets()[2] = 20
	m.Stake = 30
	m.LockedStake = 30

	m.WithdrawStake(0, 25)

	assert.Equal(t, uint64(0), m.Buckets()[2])
	assert.Equal(t, uint64(5), m.Buckets()[3])
	assert.Equal(t, uint64(5), m.LockedStake)
	assert.Equal(t, uint64(5), m.Stake)
}

func TestWithdrawStakeRemovesUnlockedFromStakeOnly(t *testing.T) {
	m := newTestMiner(t, 4)
	m.Stake = 100
	m.LockedStake = 0

	m.WithdrawStake(40, 0)

	assert.Equal(t, uint64(60), m.Stake)
	assert.Equal(t, uint64(0), m.LockedStake)
}

func TestUnlockStakeReleasesOldestBucketAndRotates(t *testing.T) {
	m := newTestMiner(t, 3)
	m.Buckets()[0] = 10
	m.Buckets()[1] = 20
	m.Buckets()[2] = 30 // oldest
	m.LockedStake = 60

	m.UnlockStake(60, 60) // one day elapsed relative to LastStakeUpdate=0

	assert.Equal(t, uint64(30), m.LockedStake)
	assert.Equal(t, []uint64{0, 10, 20}, m.Buckets())
}

func TestUnlockStakeIsANoOpWithinTheSameDay(t *testing.T) {
	m := newTestMiner(t, 3)
	m.Buckets()[2] = 30
	m.LockedStake = 30
	m.LastStakeUpdate = 10

	m.UnlockStake(20, 60) // still day 0

	assert.Equal(t, uint64(30), m.LockedStake)
	assert.Equal(t, uint64(30), m.Buckets()[2])
}

func TestCloneDeepCopiesBuckets(t *testing.T) {
	m := newTestMiner(t, 2)
	m.AddStake(5, true)

	clone := m.Clone(2)
	clone.Buckets()[0] = 999

	assert.Equal(t, uint64(5), m.Buckets()[0])
	assert.Equal(t, m.Iteration+1, clone.Iteration)
}
