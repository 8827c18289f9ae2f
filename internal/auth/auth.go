// Package auth implements e-mail and password accounts over the storage port
// and issues signed bearer tokens whose subject is the account uid.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// DefaultProfileName is given to every new account.
const DefaultProfileName = "Novo Usuário"

const (
	CodeWrongPassword = "auth/wrong-password"
	CodeUserNotFound  = "auth/user-not-found"
	CodeEmailInUse    = "auth/email-already-in-use"
	CodeWeakPassword  = "auth/weak-password"
	CodeInvalidEmail  = "auth/invalid-email"
	CodeInvalidToken  = "auth/invalid-token"
	CodeLoginFailed   = "auth/login-failed"
	CodeSignUpFailed  = "auth/signup-failed"
)

var messages = map[string]string{
	CodeWrongPassword: "Senha incorreta.",
	CodeUserNotFound:  "Usuário não encontrado.",
	CodeEmailInUse:    "Este email já está em uso.",
	CodeWeakPassword:  "A senha deve ter pelo menos 6 caracteres.",
	CodeInvalidEmail:  "Email inválido.",
	CodeInvalidToken:  "Sessão inválida ou expirada. Faça login novamente.",
	CodeLoginFailed:   "Erro ao fazer login. Verifique seu email e senha.",
	CodeSignUpFailed:  "Erro ao criar conta.",
}

// Error carries a stable code and a message that can be shown to the user.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string, err error) *Error {
	return &Error{Code: code, Message: messages[code], Err: err}
}

type credential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is what a successful sign-up or login returns.
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *log.Logger

	// signUp serializes the check-then-create on the credentials path.
	signUp sync.Mutex
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st store.Store, secret []byte, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:  st,
		secret: secret,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentAuth),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SignUp creates the account and its default profile, then logs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < MinPasswordLength {
		return Session{}, newError(CodeWeakPassword, nil)
	}

	s.signUp.Lock()
	defer s.signUp.Unlock()

	existing, err := s.lookup(ctx, email)
	if err != nil {
		return Session{}, newError(CodeSignUpFailed, err)
	}
	if existing != nil {
		return Session{}, newError(CodeEmailInUse, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, newError(CodeSignUpFailed, err)
	}
	cred := credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	data, err := store.Encode(cred)
	if err != nil {
		return Session{}, newError(CodeSignUpFailed, err)
	}
	if _, err := s.store.Create(ctx, store.Credentials(email), data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store credentials", log.FieldOperation, log.OpSignUp, log.FieldError, err.Error())
		return Session{}, newError(CodeSignUpFailed, err)
	}

	profile, err := store.Encode(core.UserProfile{Name: DefaultProfileName, Email: email})
	if err != nil {
		return Session{}, newError(CodeSignUpFailed, err)
	}
	if _, err := s.store.Create(ctx, store.Namespace{User: cred.UID}.Profile(), profile); err != nil {
		// The account exists; a missing profile only affects the header.
		s.logger.WarnContext(ctx, "Failed to create profile", log.FieldUser, cred.UID, log.FieldError, err.Error())
	}

	s.logger.InfoContext(ctx, "Account created", log.FieldUser, cred.UID, log.FieldOperation, log.OpSignUp)
	return s.issue(cred)
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	cred, err := s.lookup(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read credentials", log.FieldOperation, log.OpLogin, log.FieldError, err.Error())
		return Session{}, newError(CodeLoginFailed, err)
	}
	if cred == nil {
		return Session{}, newError(CodeUserNotFound, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, newError(CodeWrongPassword, nil)
		}
		return Session{}, newError(CodeLoginFailed, err)
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUser, cred.UID, log.FieldOperation, log.OpLogin)
	return s.issue(*cred)
}

// Verify validates a token and returns its uid.
func (s *Service) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", newError(CodeInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", newError(CodeInvalidToken, errors.New("missing subject"))
	}
	return claims.Subject, nil
}

func (s *Service) issue(cred credential) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   cred.UID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, newError(CodeLoginFailed, fmt.Errorf("sign token: %w", err))
	}
	return Session{UID: cred.UID, Email: cred.Email, Token: signed, ExpiresAt: exp}, nil
}

// lookup returns nil when no account uses email.
func (s *Service) lookup(ctx context.Context, email string) (*credential, error) {
	recs, err := s.store.ReadAll(ctx, store.Credentials(email))
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		var c credential
		if err := json.Unmarshal(r.Data, &c); err != nil {
			continue
		}
		if c.UID != "" && c.PasswordHash != "" {
			return &c, nil
		}
	}
	return nil, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, "/ \t\r\n") {
		return "", newError(CodeInvalidEmail, nil)
	}
	return email, nil
}
