package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
    for in, want := range map[string]Role{
        "STUDENT":     RoleStudent,
        " instructor": RoleInstructor,
        "Admin":       RoleAdmin,
    } {
        got, err := ParseRole(in)
        require.NoError(t, err, in)
        assert.Equal(t, want, got)
    }

    for _, in := range []string{"", "ADMINS", "owner", "tutor"} {
        _, err := ParseRole(in)
        assert.Error(t, err, in)
    }
}

func TestUserHasRole(t *testing.T) {
    u := User{ID: "u1", Role: RoleInstructor}

    assert.True(t, u.HasRole())
    assert.True(t, u.HasRole(RoleStudent, RoleInstructor))
    assert.False(t, u.HasRole(RoleAdmin))
    assert.False(t, User{Role: Role("admin")}.HasRole(RoleAdmin))
}

func TestPaymentStatusTransitions(t *testing.T) {
    assert.True(t, PaymentPending.CanTransitionTo(PaymentApproved))
    assert.True(t, PaymentPending.CanTransitionTo(PaymentRejected))
    assert.False(t, PaymentPending.CanTransitionTo(PaymentPending))

    for _, s := range []PaymentStatus{PaymentApproved, PaymentRejected} {
        assert.True(t, s.Terminal(), s)
        for _, to := range []PaymentStatus{PaymentPending, PaymentApproved, PaymentRejected} {
            assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
        }
    }

    assert.False(t, PaymentPending.Terminal())
    assert.False(t, PaymentStatus("REFUNDED").Valid())
    assert.False(t, PaymentStatus("REFUNDED").Terminal())
}
