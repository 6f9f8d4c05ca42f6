package service

import (
	"context"
	"fmt"
	"strings"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/domain"
)

// Me returns the caller's profile and current role. Users without a role may
// call it.
func (s *Service) Me(ctx context.Context) (domain.StaffMember, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.StaffMember{}, fmt.Errorf("%w: authentication required", domain.ErrPermissionDenied)
	}
	profile, err := s.repo.GetProfile(ctx, actor.UserID)
	if err != nil {
		return domain.StaffMember{}, err
	}
	return domain.StaffMember{Profile: *profile, Role: actor.Role}, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	if _, err := requireCapability(ctx, access.CanManageUsers, "manage users"); err != nil {
		return nil, err
	}
	return s.repo.ListStaff(ctx)
}

// AssignRole replaces the role of userID. Users cannot change their own role.
func (s *Service) AssignRole(ctx context.Context, userID string, req domain.RoleAssignRequest) (domain.StaffMember, error) {
	actor, err := requireCapability(ctx, access.CanManageUsers, "manage users")
	if err != nil {
		return domain.StaffMember{}, err
	}
	if userID == actor.UserID {
		return domain.StaffMember{}, fmt.Errorf("%w: cannot change your own role", domain.ErrPermissionDenied)
	}
	role, err := access.ParseRole(string(req.Role))
	if err != nil {
		return domain.StaffMember{}, err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return domain.StaffMember{}, err
	}
	previous, err := s.repo.GetUserRole(ctx, userID)
	if err != nil {
		return domain.StaffMember{}, err
	}
	if err := s.repo.SetUserRole(ctx, userID, role); err != nil {
		return domain.StaffMember{}, err
	}

	from := string(previous)
	if from == "" {
		from = "none"
	}
	s.logAudit(ctx, "role.assign", "user", userID, fmt.Sprintf("%s -> %s", from, role))
	return domain.StaffMember{Profile: *profile, Role: role}, nil
}

func (s *Service) RevokeRole(ctx context.Context, userID string) error {
	actor, err := requireCapability(ctx, access.CanManageUsers, "manage users")
	if err != nil {
		return err
	}
	if userID == actor.UserID {
		return fmt.Errorf("%w: cannot change your own role", domain.ErrPermissionDenied)
	}
	if err := s.repo.DeleteUserRole(ctx, userID); err != nil {
		return err
	}
	s.logAudit(ctx, "role.revoke", "user", userID, "")
	return nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.StoreSettings, error) {
	if _, err := requireCapability(ctx, access.CanAccessSettings, "store settings"); err != nil {
		return domain.StoreSettings{}, err
	}
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.StoreSettingsUpdateRequest) (domain.StoreSettings, error) {
	if _, err := requireCapability(ctx, access.CanAccessSettings, "store settings"); err != nil {
		return domain.StoreSettings{}, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	if req.StoreName != nil {
		settings.StoreName = strings.TrimSpace(*req.StoreName)
		if settings.StoreName == "" {
			return domain.StoreSettings{}, fmt.Errorf("%w: store name is required", domain.ErrValidation)
		}
	}
	if req.Address != nil {
		settings.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		settings.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ReceiptFooter != nil {
		settings.ReceiptFooter = strings.TrimSpace(*req.ReceiptFooter)
	}
	if req.LowStockDefault != nil {
		if *req.LowStockDefault < 0 {
			return domain.StoreSettings{}, fmt.Errorf("%w: low stock default cannot be negative", domain.ErrValidation)
		}
		settings.LowStockDefault = *req.LowStockDefault
	}

	updated, err := s.repo.UpdateSettings(ctx, settings)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	s.logAudit(ctx, "settings.update", "settings", "store", updated.StoreName)
	return updated, nil
}
