package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ageniuscoder/mmsocial/backend/internal/auth"
	"github.com/ageniuscoder/mmsocial/backend/internal/httpx"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

const searchLimit = 10

type Service struct {
	DB        *storage.DB
	JWTSecret string
	JWTTTLMin int
	Logger    *slog.Logger
}

type signupReq struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type searchReq struct {
	Query string `form:"q" binding:"required,max=32,alphanum"`
}

func NewService(db *storage.DB, jwtSecret string, jwtTTLMin int, logger *slog.Logger) Service {
	return Service{
		DB:        db,
		JWTSecret: jwtSecret,
		JWTTTLMin: jwtTTLMin,
		Logger:    logger.With("component", "users"),
	}
}

func (s Service) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/signup", s.signup)
	rg.POST("/login", s.login)
}

func (s Service) RegisterProtected(rg *gin.RouterGroup) {
	rg.GET("/me", s.getMe)
	rg.GET("/users/search", s.search)
}

func (s Service) signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	u, err := NewStore(s.DB.Conn()).Create(c.Request.Context(), req.Username, hash)
	if errors.Is(err, ErrUsernameTaken) {
		httpx.Err(c, http.StatusConflict, "Username Already Exists")
		return
	}
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}

	tok, err := auth.NewToken(s.JWTSecret, u.ID, s.JWTTTLMin)
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	s.Logger.Info("user signed up", "user_id", u.ID)
	httpx.Created(c, gin.H{"token": tok, "user_id": u.ID})
}

func (s Service) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	u, hash, err := NewStore(s.DB.Conn()).Credentials(c.Request.Context(), req.Username)
	if errors.Is(err, ErrNotFound) {
		httpx.Err(c, http.StatusUnauthorized, "Invalid Credentials")
		return
	}
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	tok, err := auth.NewToken(s.JWTSecret, u.ID, s.JWTTTLMin)
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	httpx.OK(c, gin.H{"token": tok, "user_id": u.ID})
}

func (s Service) getMe(c *gin.Context) {
	uid := auth.MustUserID(c)
	if uid == "" {
		httpx.Err(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := NewStore(s.DB.Conn()).ByID(c.Request.Context(), uid)
	if errors.Is(err, ErrNotFound) {
		httpx.Err(c, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	httpx.OK(c, u)
}

func (s Service) search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.BadRequest(c, err)
		return
	}

	list, err := NewStore(s.DB.Conn()).Search(c.Request.Context(), req.Query, searchLimit)
	if err != nil {
		httpx.Fail(c, s.Logger, err)
		return
	}
	httpx.OK(c, list)
}
