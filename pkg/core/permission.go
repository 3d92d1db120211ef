package core

import (
	"sort"
	"strings"
)

// Permission is an API key scope.
type Permission string

const (
	PermissionAccount     Permission = "account"
	PermissionCharacters  Permission = "characters"
	PermissionInventories Permission = "inventories"
	PermissionTradingPost Permission = "tradingpost"
	PermissionWallet      Permission = "wallet"
	PermissionUnlocks     Permission = "unlocks"
	PermissionProgression Permission = "progression"
	PermissionBuilds      Permission = "builds"
	PermissionGuilds      Permission = "guilds"
	PermissionPvP         Permission = "pvp"
)

// Permissions is the set of scopes granted to the current key.
type Permissions map[Permission]struct{}

// NewPermissions builds a set from the given scopes. Names are matched
// case-insensitively.
func NewPermissions(perms ...Permission) Permissions {
	set := make(Permissions, len(perms))
	for _, p := range perms {
		set[Permission(strings.ToLower(string(p)))] = struct{}{}
	}
	return set
}

// ParsePermissions builds a set from raw scope names, as found in config files
// and tokeninfo responses.
func ParsePermissions(names []string) Permissions {
	perms := make([]Permission, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			perms = append(perms, Permission(n))
		}
	}
	return NewPermissions(perms...)
}

func (p Permissions) Has(perm Permission) bool {
	_, ok := p[perm]
	return ok
}

// Sorted returns the scopes in lexical order.
func (p Permissions) Sorted() []string {
	names := make([]string, 0, len(p))
	for perm := range p {
		names = append(names, string(perm))
	}
	sort.Strings(names)
	return names
}

func (p Permissions) String() string {
	return strings.Join(p.Sorted(), ", ")
}
