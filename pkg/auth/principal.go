package auth

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleOwner, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Capability is a single permission bit. A principal's capability set is
// resolved from its role exactly once, when the request is authenticated.
type Capability uint16

const (
	CapReserve Capability = 1 << iota
	CapViewOwnBookings
	CapCancelOwnBookings
	CapManageOwnTurfs
	CapManageAnyTurf
	CapViewAnyBookings
	CapActForAnyUser
	CapConfirmPayments
)

var roleCapabilities = map[Role]Capability{
	RoleUser:  CapReserve | CapViewOwnBookings | CapCancelOwnBookings,
	RoleOwner: CapReserve | CapViewOwnBookings | CapCancelOwnBookings | CapManageOwnTurfs,
	RoleAdmin: CapReserve | CapViewOwnBookings | CapCancelOwnBookings | CapManageOwnTurfs |
		CapManageAnyTurf | CapViewAnyBookings | CapActForAnyUser | CapConfirmPayments,
}

// Principal is the verified caller of a request.
type Principal struct {
	UserID string
	Role   Role
	caps   Capability
}

func NewPrincipal(userID string, role Role) Principal {
	return Principal{
		UserID: userID,
		Role:   role,
		caps:   roleCapabilities[role],
	}
}

// Anonymous is the principal of an unauthenticated request. It holds no
// capabilities.
func Anonymous() Principal {
	return Principal{}
}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

func (p Principal) Can(c Capability) bool {
	return p.caps&c == c
}

// CanActFor reports whether the principal may reserve or view bookings on
// behalf of userID.
func (p Principal) CanActFor(userID string) bool {
	if !p.Authenticated() {
		return false
	}
	return p.UserID == userID || p.Can(CapActForAnyUser)
}

// CanManageTurf reports whether the principal may edit a turf owned by ownerID
// and see its bookings.
func (p Principal) CanManageTurf(ownerID string) bool {
	if p.Can(CapManageAnyTurf) {
		return true
	}
	return p.Can(CapManageOwnTurfs) && p.UserID != "" && p.UserID == ownerID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the request principal, or Anonymous when none was set.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}
