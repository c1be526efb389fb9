package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer("test-secret", time.Hour, "workshops")
	require.NoError(t, err)
	return iss
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t)
	id := Identity{UserID: "u-1", Role: model.RoleStudent, ProfileID: "p-1"}

	token, err := iss.Issue(id)
	require.NoError(t, err)

	got, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	iss := newTestIssuer(t)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := iss.Issue(Identity{UserID: "u-1", Role: model.RoleAdmin})
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsOtherSecretAndIssuer(t *testing.T) {
	iss := newTestIssuer(t)
	token, err := iss.Issue(Identity{UserID: "u-1", Role: model.RoleAdmin})
	require.NoError(t, err)

	other, err := NewIssuer("another-secret", time.Hour, "workshops")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewIssuer("test-secret", time.Hour, "someone-else")
	require.NoError(t, err)
	_, err = foreign.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsNoneAlgorithm(t *testing.T) {
	iss := newTestIssuer(t)
	claims := &Claims{
		UserID: "u-1",
		Role:   model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "workshops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour, "")
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	student := Identity{UserID: "u-1", Role: model.RoleStudent, ProfileID: "p-1"}

	assert.ErrorIs(t, Require(Identity{}, model.RoleStudent), ErrUnauthenticated)
	assert.NoError(t, Require(student))
	assert.NoError(t, Require(student, model.RoleStudent))
	assert.ErrorIs(t, Require(student, model.RoleAdmin), ErrForbidden)
}

func TestRequireOwnerOr(t *testing.T) {
	owner := Identity{UserID: "u-1", Role: model.RoleStudent, ProfileID: "p-1"}
	other := Identity{UserID: "u-2", Role: model.RoleStudent, ProfileID: "p-2"}
	admin := Identity{UserID: "u-3", Role: model.RoleAdmin}

	assert.NoError(t, RequireOwnerOr(owner, "p-1", model.RoleAdmin))
	assert.NoError(t, RequireOwnerOr(admin, "p-1", model.RoleAdmin))
	assert.ErrorIs(t, RequireOwnerOr(other, "p-1", model.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, RequireOwnerOr(Identity{}, "p-1", model.RoleAdmin), ErrUnauthenticated)
	// An admin without a profile must not match an empty owner id by accident.
	assert.ErrorIs(t, RequireOwnerOr(Identity{UserID: "u-4", Role: model.RoleInstructor}, ""), ErrForbidden)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}
