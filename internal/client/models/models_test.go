package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, ""},
		{"full", &User{Username: "kim", FirstName: "Minji", LastName: "Kim"}, "Minji Kim"},
		{"first only", &User{Username: "kim", FirstName: "Minji"}, "Minji"},
		{"username", &User{Username: "kim"}, "kim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestOwnershipAliasesDecode(t *testing.T) {
	var r Recipe
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"title":"V60","userId":7,"createdBy":{"id":9}}`), &r))

	o := r.Owner()
	require.NotNil(t, o.CreatedBy)
	assert.Equal(t, int64(9), o.CreatedBy.ID)
	require.NotNil(t, o.UserID)
	assert.Equal(t, int64(7), *o.UserID)
	assert.Nil(t, o.AuthorID)
}

func TestBeanUsesBeanIDKey(t *testing.T) {
	var b Bean
	require.NoError(t, json.Unmarshal([]byte(`{"beanId":12,"name":"Yirgacheffe","origin":{"country":"Ethiopia"}}`), &b))
	assert.Equal(t, int64(12), b.ID)
	assert.Equal(t, "Ethiopia", b.Origin.Country)
}
