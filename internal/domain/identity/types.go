// Package identity contains domain-level types for the client identity
// lifecycle. It is pure and free of transport/adapter concerns.
package identity

// Role represents the application authorization role carried on a profile.
// Keep string form for easy persistence.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// Record is the opaque user profile the backend (or the guest provider)
// associates with an identity. The client never interprets it beyond the
// role attribute and the temporary marker.
type Record struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role,omitempty"`
	IsTemporary bool   `json:"is_temporary,omitempty"`
}

// Kind discriminates the identity variant. Exactly one is active at a time.
type Kind string

const (
	KindAnonymous     Kind = "anonymous"
	KindAuthenticated Kind = "authenticated"
	KindGuest         Kind = "guest"
)

// Identity is the tagged identity variant held by the credential store.
// Record is meaningful for authenticated and guest identities; Credential
// only for authenticated ones.
type Identity struct {
	Kind       Kind
	Record     Record
	Credential Credential
}

// Anonymous returns the identity with no record and no credential.
func Anonymous() Identity {
	return Identity{Kind: KindAnonymous}
}

// Authenticated returns an identity for a signed-in user with a bearer
// credential.
func Authenticated(rec Record, cred Credential) Identity {
	return Identity{Kind: KindAuthenticated, Record: rec, Credential: cred}
}

// Guest returns a guest identity. Guest records are always temporary and
// never carry a credential.
func Guest(rec Record) Identity {
	rec.IsTemporary = true
	if rec.Role == "" {
		rec.Role = RoleGuest
	}
	return Identity{Kind: KindGuest, Record: rec}
}

// IsAuthenticated reports whether the identity is a signed-in user.
func (i Identity) IsAuthenticated() bool { return i.Kind == KindAuthenticated }

// IsGuest reports whether the identity is a client-side guest.
func (i Identity) IsGuest() bool { return i.Kind == KindGuest }

// IsAnonymous reports whether no identity is active.
func (i Identity) IsAnonymous() bool { return i.Kind == KindAnonymous || i.Kind == "" }
