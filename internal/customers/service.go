package customers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/shop_orders/internal/hash"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/tokens"
)

const minPasswordLen = 8

type RegisterInput struct {
	Kind          models.CustomerKind `json:"kind"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Password      string              `json:"password"`
	Address       string              `json:"address"`
	Phone         string              `json:"phone"`
	Birthdate     *time.Time          `json:"birthdate,omitempty"`
	CompanyNumber *string             `json:"company_number,omitempty"`
}

type LoginResult struct {
	Customer    *models.Customer
	AccessToken string
	AccessExp   time.Time
	IsAdmin     bool
}

type Service struct {
	Repo      *GormRepo
	JWTSecret []byte
	AccessTTL time.Duration
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Customer, error) {
	l := logging.FromContext(ctx).With("svc", "customers.register")

	if in.Kind == "" {
		in.Kind = models.KindPrivate
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateRegister(in); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	c := &models.Customer{
		Kind:          in.Kind,
		Name:          in.Name,
		Email:         in.Email,
		Address:       in.Address,
		Phone:         in.Phone,
		PasswordHash:  pwHash,
		Role:          models.RoleUser,
		Birthdate:     in.Birthdate,
		CompanyNumber: in.CompanyNumber,
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			l.Warn("register_error", "status", 409, "reason", "email taken")
		} else {
			l.Error("register_error", "status", 500, "error", err)
		}
		return nil, err
	}

	l.Info("customer_registered", "customer_id", c.ID, "kind", c.Kind)
	return c, nil
}

func validateContact(name, email string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return nil
}

func validateRegister(in RegisterInput) error {
	if err := validateContact(in.Name, in.Email); err != nil {
		return err
	}
	if len(in.Password) < minPasswordLen {
		return fmt.Errorf("%w: password must have at least %d characters", ErrValidation, minPasswordLen)
	}

	switch in.Kind {
	case models.KindPrivate:
		if in.CompanyNumber != nil {
			return fmt.Errorf("%w: company_number is only for company customers", ErrValidation)
		}
		if in.Birthdate != nil && in.Birthdate.After(time.Now()) {
			return fmt.Errorf("%w: birthdate in the future", ErrValidation)
		}
	case models.KindCompany:
		if in.CompanyNumber == nil || strings.TrimSpace(*in.CompanyNumber) == "" {
			return fmt.Errorf("%w: company_number is required for company customers", ErrValidation)
		}
		if in.Birthdate != nil {
			return fmt.Errorf("%w: birthdate is only for private customers", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown customer kind %q", ErrValidation, in.Kind)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "customers.login")

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	c, err := s.Repo.ByEmail(ctx, email)
	if errors.Is(err, ErrCustomerNotFound) {
		l.Warn("login_failed", "status", 401, "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(c.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "customer_id", c.ID)
		return nil, ErrInvalidCredentials
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	exp := time.Now().Add(ttl)
	tok, err := tokens.CreateAccessToken(s.JWTSecret, c.Role, strconv.FormatUint(uint64(c.ID), 10), exp)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("login_successful", "customer_id", c.ID)
	return &LoginResult{Customer: c, AccessToken: tok, AccessExp: exp, IsAdmin: c.Role == models.RoleAdmin}, nil
}

// ProfileInput holds the contact fields a customer may change. Nil fields
// are left as they are; kind and company data are fixed after registration.
type ProfileInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.Customer, error) {
	l := logging.FromContext(ctx).With("svc", "customers.update_profile", "customer_id", id)

	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = normalizeEmail(*in.Email)
	}
	if in.Address != nil {
		c.Address = strings.TrimSpace(*in.Address)
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if err := validateContact(c.Name, c.Email); err != nil {
		l.Warn("update_profile_error", "status", 400, "error", err)
		return nil, err
	}

	if err := s.Repo.UpdateContact(ctx, c); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			l.Warn("update_profile_error", "status", 409, "reason", "email taken")
		} else {
			l.Error("update_profile_error", "status", 500, "error", err)
		}
		return nil, err
	}

	l.Info("profile_updated")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Customer, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) IsCompany(ctx context.Context, id uint) (bool, error) {
	c, err := s.Repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return c.IsCompany(), nil
}
