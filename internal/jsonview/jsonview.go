// Package jsonview is the one-way JSON projection boundary (spec.md
// §6.4): it renders model records for external consumers (RPC responses,
// debug dumps) and is never re-ingested into commit state. Byte-array
// identifiers are rendered as base64url strings, matching
// crypto.Hash/UserId/MinerId/TransactionId's own String() encoding.
package jsonview

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// User is the JSON-facing projection of model.User.
type User struct {
	Id               string `json:"id"`
	Creator          string `json:"creator"`
	Iteration        uint64 `json:"iteration"`
	CommittedIn      uint32 `json:"committedIn"`
	Tokens           uint64 `json:"tokens"`
	FreeTransactions uint32 `json:"freeTransactions"`
	Miner            string `json:"miner,omitempty"`
	Logout           uint32 `json:"logout,omitempty"`
}

func NewUser(u *model.User) User {
	view := User{
		Id:               u.Id.String(),
		Creator:          u.Creator.String(),
		Iteration:        u.Iteration,
		CommittedIn:      u.CommittedIn,
		Tokens:           u.Tokens,
		FreeTransactions: u.FreeTransactions,
		Logout:           u.Logout,
	}
	if u.Miner.IsValid() {
		view.Miner = u.Miner.String()
	}
	return view
}

// Miner is the JSON-facing projection of model.Miner.
type Miner struct {
	Id          string `json:"id"`
	Owner       string `json:"owner"`
	Iteration   uint64 `json:"iteration"`
	CommittedIn uint32 `json:"committedIn"`
	Stake       uint64 `json:"stake"`
	LockedStake uint64 `json:"lockedStake"`
	Endpoint    string `json:"endpoint,omitempty"`
	Banned      uint8  `json:"banned,omitempty"`
}

func NewMiner(m *model.Miner) Miner {
	return Miner{
		Id:          m.Id.String(),
		Owner:       m.Owner.String(),
		Iteration:   m.Iteration,
		CommittedIn: m.CommittedIn,
		Stake:       m.Stake,
		LockedStake: m.LockedStake,
		Endpoint:    m.Settings.Endpoint,
		Banned:      m.Banned,
	}
}

// TransactionId renders a crypto.TransactionId the same way every other
// identifier is rendered, for handlers that only have the raw id.
func TransactionId(id crypto.TransactionId) string { return id.String() }

// Marshal renders v using jsoniter's stdlib-compatible configuration.
func Marshal(v any) ([]byte, error) { return jsonAPI.Marshal(v) }
