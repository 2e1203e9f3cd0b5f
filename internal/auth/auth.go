// Package auth handles accounts: bcrypt password hashes, a signed JWT session
// cookie and middleware that resolves the cookie to a user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/balllder/holiday-wheel/internal"
	"github.com/balllder/holiday-wheel/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

// ValidationError lists every problem found in a registration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Problems, "; ") }

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Options struct {
	Secret      string
	ExpiresDays int
	CookieName  string
	// Secure marks the cookie Secure and SameSite=None, for production.
	Secure bool
}

type Authenticator struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	now    func() time.Time
}

func New(users store.UserStore, opts Options) *Authenticator {
	if opts.ExpiresDays <= 0 {
		opts.ExpiresDays = 30
	}
	if opts.CookieName == "" {
		opts.CookieName = "hw_session"
	}
	return &Authenticator{
		users:  users,
		secret: []byte(opts.Secret),
		ttl:    time.Duration(opts.ExpiresDays) * 24 * time.Hour,
		cookie: opts.CookieName,
		secure: opts.Secure,
		now:    time.Now,
	}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func validateRegistration(email, password, displayName string) error {
	var problems []string
	if !emailPattern.MatchString(email) {
		problems = append(problems, "Valid email is required")
	}
	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters")
	}
	if n := len([]rune(displayName)); n < 2 {
		problems = append(problems, "Display name must be at least 2 characters")
	} else if n > 24 {
		problems = append(problems, "Display name must be 24 characters or less")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Register creates an account. It returns a *ValidationError for bad input
// and store.ErrEmailTaken for a duplicate email.
func (a *Authenticator) Register(ctx context.Context, email, password, displayName string) (internal.User, error) {
	email = store.NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if err := validateRegistration(email, password, displayName); err != nil {
		return internal.User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return internal.User{}, fmt.Errorf("hash password: %w", err)
	}
	return a.users.CreateUser(ctx, email, hash, displayName)
}

// Login checks the credentials and records the login time.
func (a *Authenticator) Login(ctx context.Context, email, password string) (internal.User, error) {
	u, err := a.users.UserByEmail(ctx, store.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return internal.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return internal.User{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return internal.User{}, ErrInvalidCredentials
	}
	if err := a.users.TouchLogin(ctx, u.ID); err != nil {
		return internal.User{}, err
	}
	return u, nil
}

// SignToken issues an HS256 token whose subject is the user id.
func (a *Authenticator) SignToken(u internal.User) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"name": u.DisplayName,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	})
	ss, err := token.SignedString(a.secret)
	return ss, exp, err
}

// ParseToken returns the user id carried by a valid token.
func (a *Authenticator) ParseToken(tokenStr string) (int64, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (a *Authenticator) setCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, a.newCookie(token, exp, 0))
}

func (a *Authenticator) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, a.newCookie("", time.Time{}, -1))
}

func (a *Authenticator) newCookie(value string, exp time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if a.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     a.cookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	}
}

func (a *Authenticator) tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(a.cookie); err == nil {
		return c.Value
	}
	return ""
}

// UserIDFromRequest returns the id in the request's session token, or 0.
func (a *Authenticator) UserIDFromRequest(r *http.Request) int64 {
	tok := a.tokenFromRequest(r)
	if tok == "" {
		return 0
	}
	id, err := a.ParseToken(tok)
	if err != nil {
		return 0
	}
	return id
}
