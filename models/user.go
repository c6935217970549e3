package models

import (
	"context"
	"crypto/subtle"
	"errors"
	"os"
	"time"

	"github.com/ferrodesk/workshop_backend/config"
	"github.com/ferrodesk/workshop_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex;not null" json:"username" binding:"required"`
	Name      string    `gorm:"size:100" json:"name"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Principal identifies a verified user.
type Principal struct {
	UserId   int    `json:"user_id"`
	UserName string `json:"user_name"`
}

// CredentialVerifier keeps the rest of the system agnostic to the auth
// mechanism. The DB verifier is the default; the static one covers dev setups
// that have no users table yet.
type CredentialVerifier interface {
	Verify(ctx context.Context, creds Credentials) (*Principal, error)
}

var ErrInvalidCredentials = errors.New("invalid username or password")

type DBCredentialVerifier struct{}

func (DBCredentialVerifier) Verify(ctx context.Context, creds Credentials) (*Principal, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("username = ?", creds.Username).Take(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := utils.ComparePassword(user.Password, creds.Password); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	name := user.Name
	if name == "" {
		name = user.Username
	}
	return &Principal{UserId: user.ID, UserName: name}, nil
}

type StaticCredentialVerifier struct {
	Username string
	Password string
	Name     string
}

func (v StaticCredentialVerifier) Verify(ctx context.Context, creds Credentials) (*Principal, error) {
	userOk := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(v.Username)) == 1
	passOk := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(v.Password)) == 1
	if !userOk || !passOk {
		return nil, ErrInvalidCredentials
	}
	return &Principal{UserId: 0, UserName: v.Name}, nil
}

// DefaultVerifier picks the static verifier when ADMIN_USERNAME/ADMIN_PASSWORD
// are set AND no users exist yet, otherwise the DB one.
func DefaultVerifier(ctx context.Context) CredentialVerifier {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username != "" && password != "" {
		count, err := utils.ResourceCountWhere[User](ctx, "1 = 1")
		if err == nil && count == 0 {
			return StaticCredentialVerifier{Username: username, Password: password, Name: username}
		}
	}
	return DBCredentialVerifier{}
}

type LoginInfo struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// Login verifies credentials and issues a JWT. Both outcomes land in the
// action log (best-effort).
func Login(ctx context.Context, verifier CredentialVerifier, creds Credentials) (*LoginInfo, error) {
	principal, err := verifier.Verify(ctx, creds)
	if err != nil {
		recordAction(ctx, "auth.login_failed", creds.Username, LogLevelWarning)
		return nil, err
	}

	token, err := utils.JwtGenerate(principal.UserId, principal.UserName)
	if err != nil {
		return nil, err
	}

	ctx = utils.SetUserNameInContext(ctx, principal.UserName)
	recordAction(ctx, "auth.login", principal.UserName, LogLevelInfo)
	return &LoginInfo{Token: token, Name: principal.UserName}, nil
}

type NewUser struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return nil, NewValidationError(err.Error())
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: input.Username,
		Name:     input.Name,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
