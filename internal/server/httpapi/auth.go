package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	clientmodels "github.com/dmitrijs2005/coffeedia/internal/client/models"
	"github.com/dmitrijs2005/coffeedia/internal/common"
	"github.com/dmitrijs2005/coffeedia/internal/server/services"
)

type authHandler struct {
	users *services.UserService
}

func (h *authHandler) register(public, protected *gin.RouterGroup) {
	public.POST("/auth/signup", h.signup)
	public.POST("/auth/login", h.login)
	public.POST("/auth/refresh", h.refresh)
	public.POST("/auth/validate", h.validate)

	protected.GET("/auth/me", h.me)
	protected.POST("/auth/logout", h.logout)
}

func (h *authHandler) signup(c *gin.Context) {
	var req clientmodels.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		fail(c, http.StatusConflict, "username already taken")
		return
	case errors.Is(err, common.ErrorValidation):
		badRequest(c, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	success(c, http.StatusCreated, user.Public())
}

func (h *authHandler) login(c *gin.Context) {
	var req clientmodels.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		badRequest(c, "username and password are required")
		return
	}

	pair, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, common.ErrorUnauthorized):
		fail(c, http.StatusUnauthorized, "invalid username or password")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	success(c, http.StatusOK, clientmodels.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		Username:     user.UserName,
		Roles:        user.Roles,
	})
}

func (h *authHandler) refresh(c *gin.Context) {
	var req clientmodels.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		badRequest(c, "refresh token is required")
		return
	}

	pair, err := h.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, common.ErrRefreshTokenExpired):
		fail(c, http.StatusUnauthorized, "refresh token expired")
		return
	case errors.Is(err, common.ErrorUnauthorized):
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	success(c, http.StatusOK, clientmodels.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}

// validate answers 200 with true or false; it never rejects the call.
func (h *authHandler) validate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		success(c, http.StatusOK, false)
		return
	}
	_, err := h.users.ParseAccessToken(token)
	success(c, http.StatusOK, err == nil)
}

func (h *authHandler) me(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.GetInt64(ctxUserID))
	if err != nil {
		fail(c, http.StatusUnauthorized, "unknown user")
		return
	}
	success(c, http.StatusOK, user.Public())
}

func (h *authHandler) logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), c.GetInt64(ctxUserID)); err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	success(c, http.StatusOK, nil)
}
