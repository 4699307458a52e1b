package model

import (
	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
)

// MinerSettings describes a miner's public advertisement.
type MinerSettings struct {
	Version     uint8
	Endpoint    string
	Api         string
	Name        string
	Website     string
	Description string
}

// Miner is a staking node identity. Mutation goes through Clone, mirroring User.
type Miner struct {
	Version     uint8
	Id          crypto.MinerId
	Owner       crypto.UserId
	Iteration   uint64
	CommittedIn uint32

	Stake       uint64
	LockedStake uint64

	lockedStakeBuckets []uint64 // length config.StakingDuration, oldest-first ring

	LastStakeUpdate uint32
	Settings        MinerSettings
	Banned          uint8
}

// NewMiner creates a fresh miner record owned by owner.
func NewMiner(id crypto.MinerId, owner crypto.UserId, blockId uint32, stakingDuration uint32) *Miner {
	return &Miner{
		Version:            1,
		Id:                 id,
		Owner:              owner,
		CommittedIn:        blockId,
		lockedStakeBuckets: make([]uint64, stakingDuration),
	}
}

func (m *Miner) Buckets() []uint64 { return m.lockedStakeBuckets }

func (m *Miner) SetBuckets(b []uint64) { m.lockedStakeBuckets = b }

func (m *Miner) GetId() crypto.MinerId { return m.Id }

// Clone copies the record for a new mutation.
func (m *Miner) Clone(blockId uint32) *Miner {
	n := *m
	n.lockedStakeBuckets = append([]uint64(nil), m.lockedStakeBuckets...)
	n.Iteration = m.Iteration + 1
	n.CommittedIn = blockId
	return &n
}

// AddStake deposits stake into the locked pool. Fee-sourced stake (block
// rewards) goes into bucket 0 (the newest, about to start aging), so it
// stays locked for the full ring; staked from a transaction it goes into
// bucket len-2, which UnlockStake releases after two daily rotations.
func (m *Miner) AddStake(stake uint64, fromFee bool) {
	buckets := m.lockedStakeBuckets
	if fromFee {
		buckets[0] += stake
	} else {
		buckets[len(buckets)-2] += stake
	}
	m.Stake += stake
	m.LockedStake += stake
}

// WithdrawStake removes unlockedStake (from the free pool) and
// lockedStake (drained oldest-bucket-first) from the miner.
func (m *Miner) WithdrawStake(unlockedStake, lockedStake uint64) {
	m.Stake -= unlockedStake + lockedStake
	m.LockedStake -= lockedStake

	remaining := lockedStake
	for i := range m.lockedStakeBuckets {
		if remaining == 0 {
			break
		}
		if m.lockedStakeBuckets[i] >= remaining {
			m.lockedStakeBuckets[i] -= remaining
			remaining = 0
		} else {
			remaining -= m.lockedStakeBuckets[i]
			m.lockedStakeBuckets[i] = 0
		}
	}
}

// UnlockStake ages the bucket ring forward by one calendar day (measured
// as blockId/BlocksPerDay) at most once per call: it releases the oldest
// bucket from the locked pool, zeroes it, then rotates the ring right by
// one so a fresh bucket becomes index 0.
func (m *Miner) UnlockStake(blockId uint32, blocksPerDay uint32) {
	if blockId/blocksPerDay <= m.LastStakeUpdate/blocksPerDay {
		return
	}
	m.LastStakeUpdate = blockId

	n := len(m.lockedStakeBuckets)
	if n == 0 {
		return
	}
	m.LockedStake -= m.lockedStakeBuckets[n-1]
	m.lockedStakeBuckets[n-1] = 0

	copy(m.lockedStakeBuckets[1:], m.lockedStakeBuckets[:n-1])
	m.lockedStakeBuckets[0] = 0
}

// GetActiveStake returns the stake counted toward mining-queue selection.
func (m *Miner) GetActiveStake(currentBlockId uint32) uint64 { return m.Stake }
