package dao

import (
	"chemviz/internal/model"
)

type UserSpec struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterRequest struct {
	// 用户名
	Username string `json:"username" binding:"required,max=150"`
	// 密码
	Password  string `json:"password" binding:"required,min=6,max=72,password"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type LoginRequest struct {
	// 用户名
	Username string `json:"username" binding:"required"`
	// 密码
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the user object with the issued token alongside, so
// clients reading the body as the user keep working.
type LoginResponse struct {
	UserSpec
	// 登录凭证，同时写入 token cookie
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToUserSpec(u *model.User) *UserSpec {
	return &UserSpec{
		Id:        u.Id,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (r RegisterRequest) ToUserModel() (*model.User, error) {
	u := &model.User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
	if err := u.SetPassword(r.Password); err != nil {
		return nil, err
	}
	return u, nil
}
