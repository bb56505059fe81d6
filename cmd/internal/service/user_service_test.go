package service

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/policy"
	"agenthelper/cmd/internal/utils/apierror"
	"agenthelper/cmd/internal/utils/uid"
	"agenthelper/cmd/internal/utils/validators"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := uid.Init(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestCreateUser(t *testing.T) {
	repo := newUserRepo(t)
	svc := NewUserService(repo, validators.New(), policy.NewUserPolicy(false))

	resp, apierr := svc.CreateUser(nil, &contract.CreateUserRequest{
		Username: "  marina ",
		Email:    "Marina@Corp.IO",
	})
	require.Nil(t, apierr)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "marina", resp.Username)
	assert.False(t, resp.IsOnline, "new accounts start offline")
	assert.Nil(t, resp.LastSeen)

	stored, err := repo.FindByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "marina@corp.io", stored.Email)
	assert.NotEmpty(t, stored.SubUUID)

	_, apierr = svc.CreateUser(nil, &contract.CreateUserRequest{Username: "other", Email: "marina@corp.io"})
	assert.Equal(t, apierror.UserAlreadyExistsError, apierr)
}

func TestCreateUser_Invalid(t *testing.T) {
	svc := NewUserService(newUserRepo(t), validators.New(), policy.NewUserPolicy(false))

	_, apierr := svc.CreateUser(nil, &contract.CreateUserRequest{Username: "two words", Email: "nope"})
	require.NotNil(t, apierr)
	structured, ok := apierr.(*apierror.StructuredError)
	require.True(t, ok)
	assert.Contains(t, structured.Errors, "username")
	assert.Contains(t, structured.Errors, "email")
}

func TestCreateUser_NeedsPermission(t *testing.T) {
	svc := NewUserService(newUserRepo(t), validators.New(), policy.NewUserPolicy(false))
	req := &contract.CreateUserRequest{Username: "rui", Email: "rui@corp.io"}

	_, apierr := svc.CreateUser(&entity.User{ID: 5}, req)
	require.NotNil(t, apierr)
	assert.Equal(t, http.StatusForbidden, apierr.Code())

	_, apierr = svc.CreateUser(&entity.User{ID: 5, Permissions: entity.PermissionAdministrator}, req)
	assert.Nil(t, apierr)
}

func TestGetUser(t *testing.T) {
	repo := newUserRepo(t)
	seedAgent(t, repo, 1, 0)
	svc := NewUserService(repo, validators.New(), policy.NewUserPolicy(false))

	user, apierr := svc.GetUser(nil, "1")
	require.Nil(t, apierr)
	assert.Equal(t, int64(1), user.ID)

	me, apierr := svc.GetUser(&entity.User{ID: 1, Username: "me"}, "@me")
	require.Nil(t, apierr)
	assert.Equal(t, "me", me.Username)

	_, apierr = svc.GetUser(nil, "@me")
	assert.Equal(t, apierror.UnauthorizedError, apierr)

	_, apierr = svc.GetUser(nil, "2")
	assert.Equal(t, apierror.UserNotFoundError, apierr)

	_, apierr = svc.GetUser(nil, "-3")
	require.NotNil(t, apierr)
	assert.Equal(t, http.StatusBadRequest, apierr.Code())

	users, apierr := svc.GetUsers()
	require.Nil(t, apierr)
	assert.Len(t, users, 1)
}
