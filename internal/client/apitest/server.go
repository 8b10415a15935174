// Package apitest runs an in-process fake of the auth API for tests. It
// issues real HS256 tokens, counts refresh calls and can be switched into
// failure modes.
package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// OTPCode is the code every registration is issued.
const OTPCode = "123456"

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the claims of tokens issued by the fake.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Recorded is one request seen by the fake.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	RequestID     string
	Header        http.Header
}

type account struct {
	user     models.User
	password string
	otp      string
}

type Server struct {
	*httptest.Server

	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	mu       sync.Mutex
	accounts map[int64]*account
	nextID   int64
	requests []Recorded

	refreshCalls  atomic.Int64
	refreshFail   atomic.Bool
	refreshDelay  atomic.Int64
	rejectAccess  atomic.Bool
	refreshBroken atomic.Bool
}

// New starts the fake and stops it when tb finishes.
func New(tb testing.TB) *Server {
	tb.Helper()
	s := &Server{
		secret:     []byte("apitest-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		accounts:   make(map[int64]*account),
	}
	s.Server = httptest.NewServer(s.routes())
	tb.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/verify-otp", s.verifyOTP)
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)
	})

	r.Route("/admin/users", func(r chi.Router) {
		r.Use(s.requireAccess, s.requireSuperAdmin)
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Get("/{id}", s.getUser)
		r.Put("/{id}", s.updateUser)
		r.Delete("/{id}", s.deleteUser)
	})

	r.With(s.requireAccess).Get("/protected", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.With(s.requireAccess).Post("/echo", s.echo)

	return r
}

// AddUser stores a verified account and returns its snapshot.
func (s *Server) AddUser(u models.User, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u.ID = s.nextID
	u.IsVerified = true
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.CreatedAt == "" {
		u.CreatedAt = time.Now().UTC().Format("2006-01-02T15:04:05.000000")
	}
	s.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// MintAccess issues an access token for email that expires after ttl;
// a negative ttl yields an already expired token.
func (s *Server) MintAccess(email string, ttl time.Duration) string {
	return s.mint(email, tokenTypeAccess, ttl)
}

func (s *Server) MintRefresh(email string, ttl time.Duration) string {
	return s.mint(email, tokenTypeRefresh, ttl)
}

func (s *Server) mint(email, typ string, ttl time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Type: typ,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// RefreshCalls reports how many times /auth/refresh was hit.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// FailRefresh makes /auth/refresh answer 401 regardless of the token.
func (s *Server) FailRefresh(fail bool) {
	s.refreshFail.Store(fail)
}

// BreakRefresh makes /auth/refresh answer 200 with a body lacking a token.
func (s *Server) BreakRefresh(broken bool) {
	s.refreshBroken.Store(broken)
}

// SetRefreshDelay holds every refresh response for d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// RejectAccess makes every protected route answer 401, even to fresh tokens.
func (s *Server) RejectAccess(reject bool) {
	s.rejectAccess.Store(reject)
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallsTo counts logged requests for method and path.
func (s *Server) CallsTo(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// User returns the stored account for email, if any.
func (s *Server) User(email string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.byEmail(email); a != nil {
		return a.user, true
	}
	return models.User{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get(common.AuthorizationHeaderName),
			ContentType:   r.Header.Get(common.ContentTypeHeaderName),
			RequestID:     r.Header.Get(common.RequestIDHeaderName),
			Header:        r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// byEmail must be called with mu held.
func (s *Server) byEmail(email string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Email, email) {
			return a
		}
	}
	return nil
}

// parse validates the bearer token of r. On failure it returns the message
// the API puts in its "msg" field.
func (s *Server) parse(r *http.Request, typ string) (*Claims, string) {
	raw, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)
	if !ok || raw == "" {
		return nil, "Missing Authorization Header"
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, "Token has expired"
	}
	if err != nil {
		return nil, "Invalid token"
	}
	if claims.Type != typ {
		return nil, "Only " + typ + " tokens are allowed"
	}
	return claims, ""
}

type ctxKey struct{}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rejectAccess.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has been revoked"})
			return
		}
		claims, msg := s.parse(r, tokenTypeAccess)
		if claims == nil {
			// The auth layer of the real API answers with "msg", not "message".
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": msg})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, _ := r.Context().Value(ctxKey{}).(string)
		s.mu.Lock()
		a := s.byEmail(email)
		s.mu.Unlock()
		if a == nil || !a.user.IsSuperAdmin() {
			writeMessage(w, http.StatusForbidden, "Super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(req.Email) != nil {
		writeMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}

	s.nextID++
	s.accounts[s.nextID] = &account{
		user:     newUser(s.nextID, req),
		password: req.Password,
		otp:      OTPCode,
	}
	writeMessage(w, http.StatusCreated, "Registration successful. OTP sent to email.")
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byEmail(req.Email)
	switch {
	case a == nil:
		writeMessage(w, http.StatusNotFound, "User not found")
	case a.user.IsVerified:
		writeMessage(w, http.StatusBadRequest, "User already verified")
	case a.otp != req.OTPCode:
		writeMessage(w, http.StatusBadRequest, "Invalid OTP")
	default:
		a.user.IsVerified = true
		a.otp = ""
		writeMessage(w, http.StatusOK, "Email verified successfully")
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	a := s.byEmail(req.Email)
	var u models.User
	if a != nil {
		u = a.user
	}
	s.mu.Unlock()

	if a == nil || a.password != req.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !u.IsVerified {
		writeMessage(w, http.StatusUnauthorized, "Email not verified")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Login successful",
		"access_token":  s.MintAccess(u.Email, s.AccessTTL),
		"refresh_token": s.MintRefresh(u.Email, s.RefreshTTL),
		"user":          u,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	if s.refreshFail.Load() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token has expired"})
		return
	}

	claims, msg := s.parse(r, tokenTypeRefresh)
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": msg})
		return
	}

	if s.refreshBroken.Load() {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.MintAccess(claims.Subject, s.AccessTTL)})
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.ContentLength != 0 {
		if !decode(w, r, &body) {
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"body": body})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.accounts))
	for id := int64(1); id <= s.nextID; id++ {
		if a, ok := s.accounts[id]; ok && a.user.Role == models.RoleUser {
			users = append(users, a.user)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"users": users, "total": len(users)})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(req.Email) != nil {
		writeMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}

	s.nextID++
	u := newUser(s.nextID, req)
	u.IsVerified = true
	s.accounts[u.ID] = &account{user: u, password: req.Password}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "User created successfully", "user": u})
}

// regularUser resolves {id} to a non-admin account; mu must be held.
func (s *Server) regularUser(w http.ResponseWriter, r *http.Request) *account {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return nil
	}
	a, ok := s.accounts[id]
	if !ok || a.user.Role != models.RoleUser {
		writeMessage(w, http.StatusNotFound, "User not found")
		return nil
	}
	return a
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.regularUser(w, r); a != nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": a.user})
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.regularUser(w, r)
	if a == nil {
		return
	}
	if req.Email != nil && *req.Email != a.user.Email && s.byEmail(*req.Email) != nil {
		writeMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}

	u := &a.user
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.MobileNumber != nil {
		u.MobileNumber = *req.MobileNumber
	}
	if req.ProfilePicture != nil {
		u.ProfilePicture = req.ProfilePicture
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "User updated successfully", "user": a.user})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.regularUser(w, r)
	if a == nil {
		return
	}
	delete(s.accounts, a.user.ID)
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func newUser(id int64, req models.RegisterRequest) models.User {
	return models.User{
		ID:             id,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		MobileNumber:   req.MobileNumber,
		Role:           models.RoleUser,
		ProfilePicture: req.ProfilePicture,
		CreatedAt:      time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Input payload validation failed")
		return false
	}
	return true
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.MessageResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(common.ContentTypeHeaderName, common.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
