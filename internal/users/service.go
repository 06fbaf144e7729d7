package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskkeeper/taskkeeper/internal/observability"
	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// Notifier queues outbound account emails.
type Notifier interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// AuditPort records account events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// EventRecorder counts account state transitions.
type EventRecorder interface {
	RecordAccountEvent(event string)
}

// Service implements the account lifecycle: registration, login state and credential changes.
type Service struct {
	repo     Repository
	hasher   PasswordHasher
	logger   *slog.Logger
	notifier Notifier
	audit    AuditPort
	events   EventRecorder
	now      func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, logger: logger, now: time.Now}
}

// SetNotifier enables account emails.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetAudit enables audit records.
func (s *Service) SetAudit(a AuditPort) {
	s.audit = a
}

// SetEvents enables event counting.
func (s *Service) SetEvents(e EventRecorder) {
	s.events = e
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterUser creates a logged-out account with a unique email.
func (s *Service) RegisterUser(ctx context.Context, req RegisterUserRequest) (*RegisterUserResponse, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.recordEvent(observability.EventRegister)
	s.recordAudit(ctx, user.ID, "user.register", nil)
	s.notify(ctx, user.Email, "Welcome to taskkeeper",
		fmt.Sprintf("Hi %s, your account is ready.", user.FirstName))

	return &RegisterUserResponse{UserID: user.ID, Message: MsgRegistered}, nil
}

// Login marks the account as logged in. Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		s.recordEvent(observability.EventLoginFailed)
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.recordEvent(observability.EventLoginFailed)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordEvent(observability.EventLoginFailed)
		return nil, ErrInvalidCredentials
	}

	user.LoggedIn = true
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.recordEvent(observability.EventLogin)
	s.recordAudit(ctx, user.ID, "user.login", nil)
	return &LoginResponse{UserID: user.ID, Message: welcomeBackPrefix + user.FullName()}, nil
}

// Logout clears the login flag.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) (*LogoutResponse, error) {
	user, err := s.loggedInUser(ctx, s.repo, req.UserID)
	if err != nil {
		return nil, err
	}
	user.LoggedIn = false
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.recordEvent(observability.EventLogout)
	s.recordAudit(ctx, user.ID, "user.logout", nil)
	return &LogoutResponse{Message: MsgLoggedOut}, nil
}

// ChangePassword replaces the stored password of a logged-in user.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*ChangePasswordResponse, error) {
	user, err := s.loggedInUser(ctx, s.repo, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.NewPassword != "" && req.NewPassword == req.OldPassword {
		return nil, ErrSamePassword
	}
	if err := shared.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.OldPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrIncorrectOldPassword
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.recordEvent(observability.EventPasswordChanged)
	s.recordAudit(ctx, user.ID, "user.password_changed", nil)
	s.notify(ctx, user.Email, "Your password was changed",
		"The password on your taskkeeper account was just changed. If this was not you, contact support.")
	return &ChangePasswordResponse{Message: MsgPasswordChanged}, nil
}

// ChangeEmail moves a logged-in user to a new, unused email address.
func (s *Service) ChangeEmail(ctx context.Context, req ChangeEmailRequest) (*ChangeEmailResponse, error) {
	var previous string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		user, err := s.loggedInUser(ctx, repo, req.UserID)
		if err != nil {
			return err
		}
		if req.NewEmail != "" && req.NewEmail == req.OldEmail {
			return ErrSameEmail
		}
		if err := shared.ValidateStruct(req); err != nil {
			return err
		}
		if req.OldEmail != user.Email {
			return ErrIncorrectOldEmail
		}
		if other, err := repo.FindByEmail(ctx, req.NewEmail); err == nil && other.ID != user.ID {
			return ErrDuplicateEmail
		} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("find user by email: %w", err)
		}

		previous = user.Email
		user.Email = req.NewEmail
		user.UpdatedAt = s.now().UTC()
		if err := repo.Save(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("save user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(observability.EventEmailChanged)
	s.recordAudit(ctx, req.UserID, "user.email_changed", map[string]any{"from": previous, "to": req.NewEmail})
	s.notify(ctx, previous, "Your email was changed",
		fmt.Sprintf("The email on your taskkeeper account was changed to %s. If this was not you, contact support.", req.NewEmail))
	return &ChangeEmailResponse{Message: MsgEmailChanged}, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, s.repo, id)
}

func (s *Service) findUser(ctx context.Context, repo Repository, id string) (*User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Service) loggedInUser(ctx context.Context, repo Repository, id string) (*User, error) {
	user, err := s.findUser(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if !user.LoggedIn {
		return nil, ErrUserNotLoggedIn
	}
	return user, nil
}

func (s *Service) recordEvent(event string) {
	if s.events != nil {
		s.events.RecordAccountEvent(event)
	}
}

func (s *Service) recordAudit(ctx context.Context, userID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "user",
		EntityID: userID,
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, to, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueSendEmail(ctx, to, subject, body); err != nil {
		s.logger.Warn("enqueue email failed", slog.String("subject", subject), slog.Any("error", err))
	}
}
