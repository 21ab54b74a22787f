package server

import (
	goerrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"chemviz/internal/dao"
	"chemviz/internal/model"
	"chemviz/internal/version"
	"chemviz/pkg/log"
)

const (
	userKey     = "user"
	tokenCookie = "token"
	tokenTTL    = 7 * 24 * time.Hour
)

var (
	errCredentialsRequired = goerrors.New("Username and password are required")
	errUsernameTaken       = goerrors.New("Username already exists")
	errInvalidCredentials  = goerrors.New("Invalid credentials")
	errNotAuthenticated    = goerrors.New("Not authenticated")
)

type TokenClaims struct {
	jwt.RegisteredClaims
	UserId int `json:"user_id"`
}

// TrySetUserToContext resolves the caller from the token cookie or a bearer
// header. Requests without a valid token pass through anonymously.
func TrySetUserToContext(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, _ := c.Cookie(tokenCookie)
		if tokenStr == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimSpace(auth[7:])
			}
		}
		if tokenStr == "" {
			c.Next()
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			// stale cookies must not block login or logout
			log.GetLogger(c).Debugf("ignore invalid token: %v", err)
			c.Next()
			return
		}

		claims, ok := token.Claims.(*TokenClaims)
		if !ok {
			c.Next()
			return
		}
		user, err := model.GetUserById(claims.UserId)
		if err != nil {
			if !goerrors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				return
			}
			c.Next()
			return
		}
		c.Set(userKey, user)
		c.Set(log.CtxUserId, user.Id)
		c.Next()
	}
}

func NeedAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(userKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: errNotAuthenticated.Error()})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	if u, ok := c.Get(userKey); ok {
		return u.(*model.User)
	}
	return nil
}

// @Summary 用户注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body dao.RegisterRequest true "请求参数"
// @Success 201 {object} dao.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/register [post]
func (s *Server) handleRegister(c *gin.Context) {
	var req dao.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			err = errCredentialsRequired
		}
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	exists, err := model.UsernameExists(req.Username)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	if exists {
		s.writeError(c, http.StatusBadRequest, errUsernameTaken)
		return
	}

	user, err := req.ToUserModel()
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	if err := model.CreateUser(user); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	s.respondWithToken(c, http.StatusCreated, user)
}

// @Summary 用户登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body dao.LoginRequest true "请求参数"
// @Success 200 {object} dao.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (s *Server) handleLogin(c *gin.Context) {
	var req dao.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, errCredentialsRequired)
		return
	}

	user, err := model.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(c, http.StatusUnauthorized, errInvalidCredentials)
			return
		}
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		s.writeError(c, http.StatusUnauthorized, errInvalidCredentials)
		return
	}

	s.respondWithToken(c, http.StatusOK, user)
}

func (s *Server) respondWithToken(c *gin.Context, code int, user *model.User) {
	token, err := genJwtToken(user, s.conf.JwtSecret)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(tokenTTL.Seconds()), "/", "", s.conf.SSLCert != "", true)
	c.JSON(code, dao.LoginResponse{
		UserSpec: *dao.ToUserSpec(user),
		Token:    token,
	})
}

func genJwtToken(user *model.User, jwtSecret string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserId: user.Id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    version.APP,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// @Summary 用户登出
// @Tags 用户
// @Produce json
// @Success 200 {object} dao.MessageResponse
// @Router /api/auth/logout [post]
func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie(tokenCookie, "", -1, "/", "", s.conf.SSLCert != "", true)
	c.JSON(http.StatusOK, dao.MessageResponse{Message: "Logged out successfully"})
}

// @Summary 当前用户
// @Tags 用户
// @Produce json
// @Success 200 {object} dao.UserSpec
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/user [get]
func (s *Server) handleGetUser(c *gin.Context) {
	c.JSON(http.StatusOK, dao.ToUserSpec(currentUser(c)))
}
