package models

import "strings"

// Realm partitions roles and permissions into two authorization universes that never mix.
type Realm string

const (
	// RealmAdmin holds global, tenant-independent roles. Assignments carry no tenant.
	RealmAdmin Realm = "admin"
	// RealmApp holds tenant-scoped roles. Assignments always carry a tenant.
	RealmApp Realm = "app"
)

// Valid reports whether r is one of the known realms.
func (r Realm) Valid() bool {
	return r == RealmAdmin || r == RealmApp
}

// ParseRealm normalises user input into a Realm.
func ParseRealm(value string) (Realm, bool) {
	r := Realm(strings.ToLower(strings.TrimSpace(value)))
	return r, r.Valid()
}

// RealmForTenant returns the realm targeted by a lookup: admin without a tenant, app with one.
func RealmForTenant(tenantID *string) Realm {
	if tenantID == nil {
		return RealmAdmin
	}
	return RealmApp
}
