package model

import (
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
)

// PendingUpdate is a UserSettings change scheduled for a future block;
// applied transparently the first time the record is loaded at or past
// BlockId.
type PendingUpdate struct {
	BlockId       uint32
	Settings      UserSettings
	TransactionId crypto.TransactionId
	PowerLevel    uint8
}

// User is the account record. All mutation goes through Clone: records
// are immutable once published to the confirmed view.
type User struct {
	Version uint8
	Id      crypto.UserId
	Creator crypto.UserId

	Iteration   uint64
	CommittedIn uint32

	Tokens           uint64
	FreeTransactions uint32
	Miner            crypto.MinerId

	LockedKeys        map[crypto.PublicKey]struct{}
	LockedSupervisors map[crypto.UserId]struct{}

	Logout uint32

	Spendings [config.PowerLevels]uint64

	PendingUpdate *PendingUpdate
	Settings      UserSettings

	SettingsTransaction crypto.TransactionId
	Operations          uint64
	Sponsors            uint64
}

// NewUser creates a brand-new user record (committed at blockId).
func NewUser(id, creator crypto.UserId, settings UserSettings, blockId uint32) *User {
	return &User{
		Version:           1,
		Id:                id,
		Creator:           creator,
		CommittedIn:       blockId,
		LockedKeys:        map[crypto.PublicKey]struct{}{},
		LockedSupervisors: map[crypto.UserId]struct{}{},
		Settings:          settings,
	}
}

// Clone copies the record for a new mutation: increments Iteration and
// sets CommittedIn to blockId. The original is left untouched.
func (u *User) Clone(blockId uint32) *User {
	n := *u
	n.LockedKeys = copyKeySet(u.LockedKeys)
	n.LockedSupervisors = copyUserIdSet(u.LockedSupervisors)
	n.Iteration = u.Iteration + 1
	n.CommittedIn = blockId
	if u.PendingUpdate != nil {
		pu := *u.PendingUpdate
		n.PendingUpdate = &pu
	}
	return &n
}

func copyKeySet(m map[crypto.PublicKey]struct{}) map[crypto.PublicKey]struct{} {
	out := make(map[crypto.PublicKey]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func copyUserIdSet(m map[crypto.UserId]struct{}) map[crypto.UserId]struct{} {
	out := make(map[crypto.UserId]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// Load applies any due pending update in place before returning the
// record, matching the original's transparent-activation semantics
// (spec.md §3, testable property 3).
func Load(u *User, blockId uint32) *User {
	if u.PendingUpdate == nil || blockId < u.PendingUpdate.BlockId {
		return u
	}
	n := *u
	n.Settings = u.PendingUpdate.Settings
	n.SettingsTransaction = u.PendingUpdate.TransactionId
	n.PendingUpdate = nil
	n.Spendings = [config.PowerLevels]uint64{}
	return &n
}

func (u *User) HasKey(pk crypto.PublicKey) bool {
	_, ok := u.Settings.Keys[pk]
	return ok
}

func (u *User) HasSupervisor(id crypto.UserId) bool {
	_, ok := u.Settings.Supervisors[id]
	return ok
}

func (u *User) IsKeyLocked(pk crypto.PublicKey) bool {
	_, ok := u.LockedKeys[pk]
	return ok
}

func (u *User) IsSupervisorLocked(id crypto.UserId) bool {
	_, ok := u.LockedSupervisors[id]
	return ok
}

// SupervisorResolver looks up a supervisor user id's own power level
// within the same envelope's signature set (ignoring the supervisor's own
// supervisors), used to decide whether the supervisor contributes to the
// supervised user's power. It also reports which of the envelope's keys
// were used to reach that level, so the caller can fold them into its own
// used-keys set.
type SupervisorResolver func(id crypto.UserId) (level PowerLevel, usedKeys map[crypto.PublicKey]struct{}, ok bool)

// GetPowerLevel computes the power level reached by env against u's
// security rules, along with every envelope key that contributed to it
// (directly or through a qualifying supervisor) — the caller needs the
// latter to confirm every signature was actually used. Each co-signing
// key and each supervisor contributes its configured power, but a
// supervisor only counts if IT independently reaches rules.
// SupervisingPowerLevel. If ignoresLock is false and any used key or
// supervisor is locked, and the resulting level would be below Medium,
// the level is forced to Invalid.
func (u *User) GetPowerLevel(env *envelope.Envelope, resolveSupervisor SupervisorResolver, ignoresLock bool) (PowerLevel, map[crypto.PublicKey]struct{}) {
	var rawPower uint32
	var participants uint32
	var anyLocked bool
	usedKeys := map[crypto.PublicKey]struct{}{}

	for _, pk := range env.UsedKeys() {
		ks, ok := u.Settings.Keys[pk]
		if !ok {
			continue
		}
		rawPower += uint32(ks.Power)
		participants++
		usedKeys[pk] = struct{}{}
		if u.IsKeyLocked(pk) {
			anyLocked = true
		}
	}

	for supId, ss := range u.Settings.Supervisors {
		// resolveSupervisor reports whether the supervisor's OWN power
		// level (evaluated against the same signature set, ignoring its
		// own supervisors) reaches the threshold its own security rules
		// require of a supervising signer.
		_, supUsedKeys, ok := resolveSupervisor(supId)
		if !ok {
			continue
		}
		rawPower += uint32(ss.Power)
		participants++
		for pk := range supUsedKeys {
			usedKeys[pk] = struct{}{}
		}
		if u.IsSupervisorLocked(supId) {
			anyLocked = true
		}
	}

	if rawPower > config.MaxPower {
		rawPower = config.MaxPower
	}
	level := LevelForPower(rawPower, u.Settings.Rules.PowerLevels)
	pl := NewPowerLevel(level, rawPower, participants)

	if !ignoresLock && anyLocked && pl.Level < config.PowerLevelMedium {
		return Invalid(), usedKeys
	}
	return pl, usedKeys
}

// CanSpendTokens reports whether cost fits within the remaining spending
// limit for level, given limits strictly below level have already been
// used this period. A spendingLimits entry of 0 at the highest index
// means "no limit".
func (u *User) CanSpendTokens(cost uint64, level PowerLevel) bool {
	limit := u.Settings.Rules.SpendingLimits[level.Level]
	if level.Level == config.PowerLevels-1 && limit == 0 {
		return true
	}
	return u.Spendings[level.Level]+cost <= limit
}

// SpendTokens records a spend at level, clearing the spending counters of
// every strictly lower level (a higher-power spend subsumes them).
func (u *User) SpendTokens(cost uint64, level PowerLevel) {
	u.Spendings[level.Level] += cost
	for i := uint8(0); i < level.Level; i++ {
		u.Spendings[i] = 0
	}
}

// ValidateNewSettings rejects a settings update that fails structural
// validation, that makes the acting user its own supervisor, or whose
// power level is lower than that of an already scheduled pending update
// (which it would otherwise overwrite).
func (u *User) ValidateNewSettings(settings UserSettings, level PowerLevel) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if _, ok := settings.Supervisors[u.Id]; ok {
		return errors.New("user: can not be its own supervisor")
	}
	if u.PendingUpdate != nil && level.Level < u.PendingUpdate.PowerLevel {
		return errors.New("user: pending update can not be overwritten by a lower power level")
	}
	return nil
}

// SetPendingUpdate schedules settings to activate at blockId +
// rules.KeysUpdateTimes[level].
func (u *User) SetPendingUpdate(level PowerLevel, settings UserSettings, blockId uint32, txId crypto.TransactionId) {
	delay := u.Settings.Rules.KeysUpdateTimes[level.Level]
	u.PendingUpdate = &PendingUpdate{
		BlockId:       blockId + delay,
		Settings:      settings,
		TransactionId: txId,
		PowerLevel:    level.Level,
	}
}
