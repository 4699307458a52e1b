package model

import "github.com/logpass/node/internal/crypto"

type UserHistoryType uint8

const (
	UserHistoryIncomingTransaction  UserHistoryType = 1
	UserHistoryOutgoingTransaction  UserHistoryType = 2
	UserHistorySponsoredTransaction UserHistoryType = 3
)

// UserHistory is one fixed-width entry in a user's append-only activity
// log (the user_history column, merge-operator backed).
type UserHistory struct {
	BlockId       uint32
	Type          UserHistoryType
	TransactionId crypto.TransactionId
}

// UserSponsor records one sponsorship event (create_user / sponsor_user).
type UserSponsor struct {
	BlockId       uint32
	TransactionId crypto.TransactionId
	SponsoredUser crypto.UserId
}
