package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// Identity 是 Google ID Token 中与账号相关的字段。
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// TokenVerifier 校验第三方身份令牌并返回身份信息。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// GoogleVerifier 使用 Google 公钥校验 ID Token，并要求 aud 与 ClientID 一致。
type GoogleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

// NewGoogleVerifier 构造 GoogleVerifier；clientID 为空时拒绝所有令牌。
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("init idtoken validator: %w", err)
	}
	return &GoogleVerifier{validator: validator, clientID: strings.TrimSpace(clientID)}, nil
}

// Verify 校验令牌签名、过期时间与受众。
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if v.clientID == "" {
		return Identity{}, errors.New("google client id is not configured")
	}
	payload, err := v.validator.Validate(ctx, token, v.clientID)
	if err != nil {
		return Identity{}, err
	}
	return identityFromClaims(payload.Claims)
}

func identityFromClaims(claims map[string]interface{}) (Identity, error) {
	str := func(key string) string {
		if v, ok := claims[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	identity := Identity{
		Email:   strings.ToLower(str("email")),
		Name:    str("name"),
		Picture: str("picture"),
	}
	if identity.Email == "" {
		return Identity{}, errors.New("token has no email claim")
	}
	// 用户按邮箱唯一标识，未验证的邮箱不能登录。
	if !emailVerified(claims["email_verified"]) {
		return Identity{}, errors.New("google account email is not verified")
	}
	return identity, nil
}

// emailVerified 兼容布尔值与早期令牌中的字符串 "true"。
func emailVerified(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	default:
		return false
	}
}
