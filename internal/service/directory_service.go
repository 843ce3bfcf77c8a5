package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/policy"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

// DirectoryService resolves users and their chat identities.
type DirectoryService struct {
	uow    unitOfWork
	logger *zap.Logger
}

func NewDirectoryService(pool base.Pool, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		uow:    unitOfWork{pool: pool},
		logger: logger,
	}
}

// GetByTelegramID is used by the presentation tier to identify the caller.
func (s *DirectoryService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user *model.User
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		user, err = st.Users.GetByTelegramID(ctx, telegramID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("no user linked to telegram id %d", telegramID)
	}
	return user, nil
}

func (s *DirectoryService) GetUser(ctx context.Context, actor model.Actor, userID int64) (*model.User, error) {
	var user *model.User
	err := s.uow.read(ctx, func(st *repository.Store) error {
		var err error
		user, err = requireUser(ctx, st, userID)
		if err != nil {
			return err
		}
		return policy.Authorize(actor, policy.ActionRead, userTarget(user))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// LinkTelegram attaches a chat account to a user. Users may link themselves;
// admins may link anyone in their institution except other admins.
func (s *DirectoryService) LinkTelegram(ctx context.Context, actor model.Actor, userID, telegramID int64) error {
	err := s.uow.write(ctx, func(st *repository.Store) error {
		user, err := requireUser(ctx, st, userID)
		if err != nil {
			return err
		}
		if actor.UserID != userID || actor.Role == model.RoleSystem {
			if err := policy.Authorize(actor, policy.ActionWrite, userTarget(user)); err != nil {
				return err
			}
		}
		if err := st.Users.SetTelegramID(ctx, userID, &telegramID); err != nil {
			if base.IsUniqueViolation(err) {
				return apperr.Conflict(apperr.ReasonDuplicate, "telegram account already linked to another user")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Telegram linked", zap.Int64("user_id", userID), zap.Int64("telegram_id", telegramID))
	return nil
}
