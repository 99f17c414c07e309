package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/auth"
	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已被禁用")
	ErrUsernameTaken      = errors.New("用户名已存在")
	ErrInvalidToken       = errors.New("无效的Token")
)

// JWT Claims
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	repo      *repository.UserRepository
	ldap      *auth.LDAPAuthenticator
	ldapCfg   *config.LDAPConfig
	hierarchy *workflow.Hierarchy
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService 创建认证服务，ldapCfg 未启用时仅支持本地账号
func NewAuthService(repo *repository.UserRepository, security *config.SecurityConfig, ldapCfg *config.LDAPConfig, hierarchy *workflow.Hierarchy) *AuthService {
	ttl := time.Duration(security.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s := &AuthService{
		repo:      repo,
		ldapCfg:   ldapCfg,
		hierarchy: hierarchy,
		jwtSecret: []byte(security.JWTSecret),
		tokenTTL:  ttl,
	}
	if ldapCfg != nil && ldapCfg.Enabled {
		s.ldap = auth.NewLDAPAuthenticator(ldapCfg)
	}
	return s
}

// Login 用户登录
// 优先尝试本地账号认证，失败后若启用了 LDAP 再尝试 AD 认证，保证本地管理员账号始终可用
func (s *AuthService) Login(req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.authenticateWithPassword(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserDisabled) || s.ldap == nil {
			return nil, err
		}
		user, err = s.authenticateWithLDAP(req.Username, req.Password)
		if err != nil {
			return nil, err
		}
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("生成Token失败: %w", err)
	}

	now := time.Now()
	if err := s.repo.UpdateUserLastLogin(user.ID, now); err != nil {
		logger.Warnf("更新最后登录时间失败: %v", err)
	}
	user.LastLoginTime = &now

	logger.Infof("User %s logged in (source=%s, role=%s)", user.Username, user.Source, user.Role)
	return &model.LoginResponse{Token: token, User: user}, nil
}

// authenticateWithPassword 本地账号认证
func (s *AuthService) authenticateWithPassword(username, password string) (*model.User, error) {
	user, err := s.repo.FindUserByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	// LDAP 用户没有本地密码
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// authenticateWithLDAP AD 认证，成功后创建或更新本地用户
func (s *AuthService) authenticateWithLDAP(username, password string) (*model.User, error) {
	ldapUser, err := s.ldap.Authenticate(username, password)
	if err != nil {
		logger.Warnf("LDAP认证失败 (%s): %v", username, err)
		return nil, ErrInvalidCredentials
	}
	return s.createOrUpdateUserFromLDAP(ldapUser)
}

// createOrUpdateUserFromLDAP 从 AD 用户信息创建或更新本地用户。
// 角色由组映射确定；未命中任何映射组时，已有用户保留原角色，新用户为最低角色。
func (s *AuthService) createOrUpdateUserFromLDAP(ldapUser *auth.LDAPUser) (*model.User, error) {
	role, mapped := auth.ResolveRole(ldapUser.Groups, s.ldapCfg.RoleGroups, s.hierarchy.Roles())

	user, err := s.repo.FindUserByUsername(ldapUser.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if user != nil {
		if !user.IsActive() {
			return nil, ErrUserDisabled
		}
		if ldapUser.Email != "" {
			user.Email = ldapUser.Email
		}
		if ldapUser.FullName != "" {
			user.FullName = ldapUser.FullName
		}
		if ldapUser.Department != "" {
			user.Department = ldapUser.Department
		}
		if mapped && user.Role != role {
			logger.Infof("LDAP: role of %s changed %s -> %s by group mapping", user.Username, user.Role, role)
			user.Role = role
		}
		user.Source = model.UserSourceLDAP
		if err := s.repo.UpdateUser(user); err != nil {
			return nil, fmt.Errorf("更新用户失败: %w", err)
		}
		return user, nil
	}

	if !mapped {
		role = s.hierarchy.Lowest()
	}
	user = &model.User{
		ID:         uuid.New().String(),
		Username:   ldapUser.Username,
		Email:      ldapUser.Email,
		FullName:   ldapUser.FullName,
		Department: ldapUser.Department,
		Role:       role,
		Status:     model.UserStatusActive,
		Source:     model.UserSourceLDAP,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	logger.Infof("LDAP: created user %s with role %s", user.Username, user.Role)
	return user, nil
}

// GenerateToken 生成 JWT
func (s *AuthService) GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bcm",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken 验证 JWT Token
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GetUserByID 获取用户
func (s *AuthService) GetUserByID(userID string) (*model.User, error) {
	return s.repo.FindUserByID(userID)
}

// GetUsersWithPagination 分页获取用户
func (s *AuthService) GetUsersWithPagination(page, pageSize int, keyword string) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return s.repo.FindAllUsersWithPagination(page, pageSize, keyword)
}

// CreateUser 管理员创建本地用户
func (s *AuthService) CreateUser(req *model.CreateUserRequest) (*model.User, error) {
	role, err := s.hierarchy.ParseRole(string(req.Role))
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	if _, err := s.repo.FindUserByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("检查用户名失败: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		ID:             uuid.New().String(),
		Username:       username,
		Password:       string(hashedPassword),
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           role,
		Department:     req.Department,
		OrganizationID: req.OrganizationID,
		Status:         model.UserStatusActive,
		Source:         model.UserSourceLocal,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	logger.Infof("User %s created with role %s", user.Username, user.Role)
	return user, nil
}

// UpdateUserRole 调整用户在审批层级中的角色
func (s *AuthService) UpdateUserRole(userID string, role model.Role) (model.Role, error) {
	parsed, err := s.hierarchy.ParseRole(string(role))
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateUserRole(userID, parsed); err != nil {
		return "", err
	}
	logger.Infof("User %s role set to %s", userID, parsed)
	return parsed, nil
}

// UpdateUserStatus 启用/禁用用户
func (s *AuthService) UpdateUserStatus(userID, status string) error {
	if status != model.UserStatusActive && status != model.UserStatusDisabled {
		return fmt.Errorf("invalid status: %s", status)
	}
	if err := s.repo.UpdateUserStatus(userID, status); err != nil {
		return err
	}
	logger.Infof("User %s status set to %s", userID, status)
	return nil
}
