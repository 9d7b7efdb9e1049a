package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentUser(t *testing.T) {
	assert.Nil(t, CurrentUser(context.Background()))

	ctx := WithPrincipal(context.Background(), &Principal{ID: "u1", Role: RoleEmployer})
	p := CurrentUser(ctx)
	if assert.NotNil(t, p) {
		assert.Equal(t, "u1", p.ID)
		assert.False(t, p.IsAdmin())
	}

	assert.True(t, System().IsAdmin())
	assert.False(t, Role("owner").Valid())
	assert.True(t, RoleJobseeker.Valid())
}
