// Package users manages customer identities: registration with a default
// account, password login and profile maintenance.
package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"bankinghub/auth"
	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/notify"
	"bankinghub/store"
)

const minPasswordLength = 8

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Address   string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
	Address   string
}

// Registration is the outcome of a successful sign-up.
type Registration struct {
	User    models.User    `json:"user"`
	Account models.Account `json:"account"`
	Message string         `json:"message"`
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// validatePhone accepts an empty phone or ten digits, ignoring dashes and
// spaces.
func validatePhone(phone string) bool {
	if phone == "" {
		return true
	}
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, " ", "")
	return phonePattern.MatchString(phone)
}

func validateName(field, v string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(v)); n < 1 || n > 50 {
		return models.Invalid("%s must be between 1 and 50 characters", field)
	}
	return nil
}

func (in ProfileInput) validate() error {
	if err := validateName("first name", in.FirstName); err != nil {
		return err
	}
	if err := validateName("last name", in.LastName); err != nil {
		return err
	}
	if !validatePhone(in.Phone) {
		return models.Invalid("invalid phone number")
	}
	if utf8.RuneCountInString(in.Address) > 255 {
		return models.Invalid("address must not exceed 255 characters")
	}
	return nil
}

func (in RegisterInput) validate() error {
	if !emailPattern.MatchString(in.Email) {
		return models.Invalid("invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return models.Invalid("password must be at least %d characters", minPasswordLength)
	}
	return ProfileInput{FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, Address: in.Address}.validate()
}

// Service registers, authenticates and manages users.
type Service struct {
	store    store.Store
	ledger   *ledger.Service
	tokens   *auth.Tokens
	mailer   notify.Mailer
	bankName string
	cost     int
	now      func() time.Time
}

// New creates a user service. New users get a default account from led
// and a welcome mail through mailer.
func New(st store.Store, led *ledger.Service, tokens *auth.Tokens, mailer notify.Mailer, bankName string) *Service {
	return &Service{
		store:    st,
		ledger:   led,
		tokens:   tokens,
		mailer:   mailer,
		bankName: bankName,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the user and the default savings account in one unit of
// work, then mails the welcome letter in the background.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Address:      in.Address,
		Enabled:      true,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var account *models.Account
	err = s.store.InTx(ctx, func(r store.Repository) error {
		_, err := r.GetUserByEmail(ctx, u.Email)
		switch {
		case err == nil:
			return models.Violation("user with email %s already exists", u.Email)
		case !errors.Is(err, models.ErrNotFound):
			return err
		}
		if err := r.CreateUser(ctx, u); err != nil {
			return err
		}
		account, err = s.ledger.OpenDefaultAccount(ctx, r, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("user %d registered with account %s", u.ID, account.AccountNumber)

	if s.mailer != nil {
		notify.Deliver(s.mailer, notify.Welcome(s.bankName, *u, *account))
	}
	return &Registration{
		User:    *u,
		Account: *account,
		Message: "Registration successful! Welcome email sent to " + u.Email,
	}, nil
}

// Login checks the password and issues a token. Unknown, disabled and
// wrong-password logins all fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	var u *models.User
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		u, err = r.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrUnauthenticated)
	}
	if !u.Enabled {
		return nil, fmt.Errorf("%w: account is disabled", models.ErrUnauthenticated)
	}
	token, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: s.now().Add(s.tokens.TTL()), User: *u}, nil
}

// Me returns the stored user record.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	var u *models.User
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		u, err = r.GetUser(ctx, userID)
		return err
	})
	return u, err
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var u *models.User
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if u, err = r.GetUser(ctx, userID); err != nil {
			return err
		}
		u.FirstName = strings.TrimSpace(in.FirstName)
		u.LastName = strings.TrimSpace(in.LastName)
		u.Phone = in.Phone
		u.Address = in.Address
		u.UpdatedAt = s.now()
		return r.UpdateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Disable blocks logins and, through auth.RequireActive, every later request
// made with an already issued token. Users are never deleted.
func (s *Service) Disable(ctx context.Context, userID int64) error {
	return s.store.InTx(ctx, func(r store.Repository) error {
		u, err := r.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !u.Enabled {
			return nil
		}
		u.Enabled = false
		u.UpdatedAt = s.now()
		if err := r.UpdateUser(ctx, u); err != nil {
			return err
		}
		log.Printf("user %d disabled", userID)
		return nil
	})
}

// ListUsers returns every user ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListUsers(ctx)
		return err
	})
	return out, err
}
