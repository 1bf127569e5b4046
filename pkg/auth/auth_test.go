package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPrincipal_Capabilities(t *testing.T) {
	tests := []struct {
		name string
		role Role
		cap  Capability
		want bool
	}{
		{"user reserves", RoleUser, CapReserve, true},
		{"user cannot manage turfs", RoleUser, CapManageOwnTurfs, false},
		{"owner manages own turfs", RoleOwner, CapManageOwnTurfs, true},
		{"owner cannot manage any turf", RoleOwner, CapManageAnyTurf, false},
		{"admin views all bookings", RoleAdmin, CapViewAnyBookings, true},
		{"admin confirms payments", RoleAdmin, CapConfirmPayments, true},
		{"owner cannot confirm payments", RoleOwner, CapConfirmPayments, false},
		{"unknown role has nothing", Role("guest"), CapReserve, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPrincipal("u1", tt.role)
			if got := p.Can(tt.cap); got != tt.want {
				t.Errorf("Can() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrincipal_CanManageTurf(t *testing.T) {
	owner := NewPrincipal("owner-1", RoleOwner)
	if !owner.CanManageTurf("owner-1") {
		t.Errorf("owner should manage own turf")
	}
	if owner.CanManageTurf("owner-2") {
		t.Errorf("owner should not manage someone else's turf")
	}
	if !NewPrincipal("root", RoleAdmin).CanManageTurf("owner-2") {
		t.Errorf("admin should manage any turf")
	}
	if NewPrincipal("u1", RoleUser).CanManageTurf("u1") {
		t.Errorf("plain user should not manage turfs")
	}
	if Anonymous().CanManageTurf("") {
		t.Errorf("anonymous should not manage turfs")
	}
}

func TestPrincipal_CanActFor(t *testing.T) {
	if !NewPrincipal("u1", RoleUser).CanActFor("u1") {
		t.Errorf("user should act for self")
	}
	if NewPrincipal("u1", RoleUser).CanActFor("u2") {
		t.Errorf("user should not act for others")
	}
	if !NewPrincipal("a1", RoleAdmin).CanActFor("u2") {
		t.Errorf("admin should act for others")
	}
	if Anonymous().CanActFor("") {
		t.Errorf("anonymous should not act for anyone")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx).Authenticated() {
		t.Errorf("empty context should yield anonymous principal")
	}

	p := NewPrincipal("u1", RoleOwner)
	got := FromContext(WithPrincipal(ctx, p))
	if got.UserID != "u1" || got.Role != RoleOwner || !got.Can(CapManageOwnTurfs) {
		t.Errorf("unexpected principal %+v", got)
	}
}

const testSecret = "0123456789abcdef0123456789abcdef"

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)

	token, err := v.Sign(NewPrincipal("u1", RoleOwner), time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.UserID != "u1" || p.Role != RoleOwner {
		t.Errorf("unexpected principal %+v", p)
	}
	if !p.Can(CapManageOwnTurfs) {
		t.Errorf("expected capabilities to be resolved on verify")
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret)

	expired, _ := v.Sign(NewPrincipal("u1", RoleUser), -time.Minute)
	if _, err := v.Verify(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}

	foreign, _ := NewVerifier(strings.Repeat("o", MinSecretLength)).Sign(NewPrincipal("u1", RoleUser), time.Minute)
	if _, err := v.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected foreign signature to be rejected, got %v", err)
	}

	badRole, _ := v.Sign(NewPrincipal("u1", Role("superuser")), time.Minute)
	if _, err := v.Verify(badRole); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected unknown role to be rejected, got %v", err)
	}
}

func TestVerifier_WeakSecret(t *testing.T) {
	// A token minted with an empty key must not pass a verifier that
	// was also configured with an empty key.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(""))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	for _, secret := range []string{"", "short-secret"} {
		v := NewVerifier(secret)
		if _, err := v.Verify(forged); !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrWeakSecret) {
			t.Errorf("secret %q: expected weak secret rejection, got %v", secret, err)
		}
		if _, err := v.Sign(NewPrincipal("u1", RoleUser), time.Minute); !errors.Is(err, ErrWeakSecret) {
			t.Errorf("secret %q: expected Sign to refuse, got %v", secret, err)
		}
	}

	if err := CheckSecret(testSecret); err != nil {
		t.Errorf("CheckSecret(%d bytes) error = %v", len(testSecret), err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"  Bearer   abc  ", "abc", false},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, err=%v)", tt.header, got, err, tt.want, tt.wantErr)
		}
	}
}
