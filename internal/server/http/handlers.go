package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/service"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	All          bool   `json:"all"`
}

type createProductRequest struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Price *float64 `json:"price" validate:"required,gte=0"`
	Stock *int     `json:"stock" validate:"required,gte=0"`
}

type updateProductRequest struct {
	Name  *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Price *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock *int     `json:"stock" validate:"omitempty,gte=0"`
}

type seedResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

type pingResponse struct {
	OK   bool   `json:"ok"`
	Role string `json:"role"`
}

// --- Auth ---

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	u, err := s.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if errors.Is(err, errs.ErrAlreadyExists) {
		noteError(r.Context(), err)
		writeAPIError(w, apiConflict.withMessage("email already registered"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	sess, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	lr := service.LogoutRequest{RefreshToken: req.RefreshToken, All: req.All}
	if c, ok := ClaimsFromCtx(r.Context()); ok {
		lr.AccessUserID, _ = c.UserID()
	}
	if err := s.auth.Logout(r.Context(), lr); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	c, _ := ClaimsFromCtx(r.Context())
	u, err := s.auth.Me(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) adminPing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{OK: true, Role: model.RoleAdmin})
}

// --- Products ---

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	p, err := s.products.Create(r.Context(), model.NewProduct{Name: req.Name, Price: *req.Price, Stock: *req.Stock})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), service.DefaultPageLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.products.List(r.Context(), page, limit, q.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateProductRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	p, err := s.products.Update(r.Context(), id, model.ProductPatch{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) removeProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.products.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) seedProducts(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r.URL.Query().Get("count"), service.DefaultSeedCount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.products.Seed(r.Context(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seedResponse{OK: true, Inserted: n})
}

func (s *Server) resetProducts(w http.ResponseWriter, r *http.Request) {
	if err := s.products.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w)
}

// --- helpers ---

// decode reads a JSON body into dst, rejecting unknown fields, and validates it.
// On failure the response is already written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body: %v", errs.ErrValidation, err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: %s", errs.ErrValidation, describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errs.ErrValidation, raw)
	}
	return n, nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", errs.ErrValidation, raw)
	}
	return id, nil
}
