package service

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/policy"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/apierror"
	"agenthelper/cmd/internal/utils/uid"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type UserRepository interface {
	FindAllActive() ([]*entity.User, error)
	FindByID(id int64) (*entity.User, error)
	ExistsByEmail(email string) (bool, error)
	Create(user *entity.User) error
}

type UserService struct {
	UserRepo   UserRepository
	Validate   *validator.Validate
	UserPolicy *policy.UserPolicy
}

func NewUserService(userRepo UserRepository, validate *validator.Validate, userPolicy *policy.UserPolicy) *UserService {
	return &UserService{
		UserRepo:   userRepo,
		Validate:   validate,
		UserPolicy: userPolicy,
	}
}

func (u *UserService) GetUsers() ([]*contract.UserResponse, apierror.ErrorResponse) {
	users, err := u.UserRepo.FindAllActive()
	if err != nil {
		log.Errorf("failed to list users: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.UserResponse, len(users))
	for i, user := range users {
		resp[i] = toUserResponse(user)
	}
	return resp, nil
}

func (u *UserService) GetUser(actor *entity.User, rawId string) (*contract.UserResponse, apierror.ErrorResponse) {
	if rawId == "@me" {
		if actor == nil {
			return nil, apierror.UnauthorizedError
		}
		return toUserResponse(actor), nil
	}

	userId, err := strconv.ParseInt(rawId, 10, 64)
	if err != nil || userId <= 0 {
		return nil, apierror.NewInvalidParamTypeError("id", "int64")
	}

	user, err := u.UserRepo.FindByID(userId)
	if err != nil {
		log.Errorf("failed to find user (%s) by id: %v", rawId, err)
		return nil, apierror.InternalServerError
	}

	if user == nil || !user.Active {
		return nil, apierror.UserNotFoundError
	}
	return toUserResponse(user), nil
}

// CreateUser provisions an agent account. New accounts start offline and
// only the presence reconciler ever changes that.
func (u *UserService) CreateUser(actor *entity.User, req *contract.CreateUserRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	if perr := u.UserPolicy.CanCreateUser(actor); perr != nil {
		return nil, perr
	}

	utils.Sanitize(req)
	req.Email = strings.ToLower(req.Email)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	found, err := u.UserRepo.ExistsByEmail(req.Email)
	if err != nil {
		log.Errorf("failed to check if user already exists: %v", err)
		return nil, apierror.InternalServerError
	}

	if found {
		return nil, apierror.UserAlreadyExistsError
	}

	sub := req.Sub
	if sub == "" {
		sub = uuid.NewString()
	}

	now := utils.NowUTC()
	user := &entity.User{
		ID:        uid.Generate(),
		SubUUID:   sub,
		Username:  req.Username,
		Email:     req.Email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = u.UserRepo.Create(user); err != nil {
		log.Errorf("failed to create user: %v", err)
		return nil, apierror.InternalServerError
	}
	return toUserResponse(user), nil
}

func toUserResponse(user *entity.User) *contract.UserResponse {
	return &contract.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Perms:     int64(user.Permissions),
		IsOnline:  user.IsOnline,
		LastSeen:  utils.FormatEpochPtr(user.LastSeen),
		CreatedAt: utils.FormatEpoch(user.CreatedAt),
		UpdatedAt: utils.FormatEpoch(user.UpdatedAt),
	}
}
