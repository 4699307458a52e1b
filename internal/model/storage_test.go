package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
)

func TestPrefixIsIdValid(t *testing.T) {
	assert.True(t, PrefixIsIdValid("my-prefix.v1"))
	assert.False(t, PrefixIsIdValid(""))
	assert.False(t, PrefixIsIdValid(strings.Repeat("a", 65)))
	assert.False(t, PrefixIsIdValid("has spaces"))
	assert.False(t, PrefixIsIdValid("has/slash"))
}

func TestCanWriteAllowsOwnerAlways(t *testing.T) {
	var owner crypto.UserId
	owner[0] = 1
	p := NewPrefix("prefix", owner, 1)
	assert.True(t, p.CanWrite(owner))
}

func TestCanWriteAllowsListedUserOnly(t *testing.T) {
	var owner, allowed, other crypto.UserId
	owner[0], allowed[0], other[0] = 1, 2, 3
	p := NewPrefix("prefix", owner, 1)
	p.Settings.AllowedUsers[allowed] = struct{}{}

	assert.True(t, p.CanWrite(allowed))
	assert.False(t, p.CanWrite(other))
}

func TestPrefixSettingsValidateRejectsOwnerInAllowedUsers(t *testing.T) {
	var owner crypto.UserId
	owner[0] = 1
	s := PrefixSettings{AllowedUsers: map[crypto.UserId]struct{}{owner: {}}}
	assert.Error(t, s.Validate(owner))
}

func TestPrefixSettingsValidateRejectsTooManyAllowedUsers(t *testing.T) {
	allowed := map[crypto.UserId]struct{}{}
	for i := 0; i < config.Default().StoragePrefixMaxAllowedUsers+1; i++ {
		var id crypto.UserId
		id[0] = byte(i + 1)
		id[1] = byte((i + 1) >> 8)
		allowed[id] = struct{}{}
	}
	var owner crypto.UserId
	s := PrefixSettings{AllowedUsers: allowed}
	assert.Error(t, s.Validate(owner))
}

func TestCloneDeepCopiesAllowedUsers(t *testing.T) {
	var owner, allowed crypto.UserId
	owner[0], allowed[0] = 1, 2
	p := NewPrefix("prefix", owner, 1)
	p.Settings.AllowedUsers[allowed] = struct{}{}

	clone := p.Clone(2)
	delete(clone.Settings.AllowedUsers, allowed)

	assert.Contains(t, p.Settings.AllowedUsers, allowed)
	assert.NotContains(t, clone.Settings.AllowedUsers, allowed)
}
