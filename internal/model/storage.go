package model

import (
	"regexp"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
)

var prefixIdPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// PrefixIsIdValid reports whether id is an acceptable storage prefix name:
// 1..64 bytes, each an ASCII letter, digit, '.', '_' or '-'.
func PrefixIsIdValid(id string) bool {
	return prefixIdPattern.MatchString(id)
}

// PrefixSettings controls who besides the owner may add entries.
type PrefixSettings struct {
	AllowedUsers map[crypto.UserId]struct{}
}

func (s PrefixSettings) Validate(owner crypto.UserId) error {
	if len(s.AllowedUsers) > config.Default().StoragePrefixMaxAllowedUsers {
		return errTooManyAllowedUsers
	}
	if _, ok := s.AllowedUsers[owner]; ok {
		return errOwnerInAllowedUsers
	}
	return nil
}

// Prefix is a namespace within the storage column, owned by a user.
type Prefix struct {
	Id             string
	Owner          crypto.UserId
	CreatedBlock   uint32
	LastEntryBlock uint32
	Entries        uint64
	Iteration      uint64
	CommittedIn    uint32
	Settings       PrefixSettings
}

func NewPrefix(id string, owner crypto.UserId, blockId uint32) *Prefix {
	return &Prefix{
		Id:           id,
		Owner:        owner,
		CreatedBlock: blockId,
		CommittedIn:  blockId,
		Settings:     PrefixSettings{AllowedUsers: map[crypto.UserId]struct{}{}},
	}
}

func (p *Prefix) Clone(blockId uint32) *Prefix {
	n := *p
	allowed := make(map[crypto.UserId]struct{}, len(p.Settings.AllowedUsers))
	for k := range p.Settings.AllowedUsers {
		allowed[k] = struct{}{}
	}
	n.Settings.AllowedUsers = allowed
	n.Iteration = p.Iteration + 1
	n.CommittedIn = blockId
	return &n
}

func (p *Prefix) CanWrite(user crypto.UserId) bool {
	if user == p.Owner {
		return true
	}
	_, ok := p.Settings.AllowedUsers[user]
	return ok
}

// StorageEntry is a single value stored under a prefix+key pair.
type StorageEntry struct {
	Id            string
	TransactionId crypto.TransactionId
}
