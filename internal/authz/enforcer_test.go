package authz

import (
	"testing"

	"dreamio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_Can(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	tests := []struct {
		role    models.Role
		obj     string
		act     string
		allowed bool
	}{
		{models.RoleUser, ObjEvents, ActCreate, true},
		{models.RoleUser, ObjEditor, ActUse, true},
		{models.RoleUser, ObjUsers, ActRead, false},
		{models.RoleUser, ObjEvents, ActModerate, false},
		{models.RoleDesigner, ObjLiveStreams, ActCreate, true},
		{models.RoleDesigner, ObjUsers, ActDelete, false},
		{models.RoleAdmin, ObjUsers, ActRead, true},
		{models.RoleAdmin, ObjUsers, ActDelete, true},
		{models.RoleAdmin, ObjEvents, ActModerate, true},
		{models.RoleAdmin, ObjStats, ActRead, true},
		{models.RoleAdmin, ObjEditor, ActUse, true},
		{"", ObjEditor, ActUse, false},
		{"Guest", ObjEditor, ActUse, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.obj+"/"+tt.act, func(t *testing.T) {
			assert.Equal(t, tt.allowed, e.Can(tt.role, tt.obj, tt.act))
		})
	}
}

func TestNilEnforcerDenies(t *testing.T) {
	var e *Enforcer
	assert.False(t, e.Can(models.RoleAdmin, ObjUsers, ActRead))
}
