package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

const usersPath = "/admin/users"

// AdminService manages regular accounts. The API only lets super admins
// through; other principals get ErrUnauthorized from the session layer.
type AdminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type adminService struct {
	api APIClient
}

func NewAdminService(api APIClient) AdminService {
	return &adminService{api: api}
}

func userPath(id int64) string {
	return usersPath + "/" + strconv.FormatInt(id, 10)
}

func (s *adminService) ListUsers(ctx context.Context) ([]models.User, error) {
	var resp models.UserListResponse
	if err := s.api.Get(ctx, usersPath, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (s *adminService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var resp models.UserResponse
	if err := s.api.Get(ctx, userPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *adminService) CreateUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp models.UserResponse
	if err := s.api.Post(ctx, usersPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *adminService) UpdateUser(ctx context.Context, id int64, req models.UpdateUserRequest) (*models.User, error) {
	if req.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrValidation)
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		return nil, fmt.Errorf("%w: malformed email %q", common.ErrValidation, *req.Email)
	}

	var resp models.UserResponse
	if err := s.api.Put(ctx, userPath(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *adminService) DeleteUser(ctx context.Context, id int64) error {
	return s.api.Delete(ctx, userPath(id), nil)
}
