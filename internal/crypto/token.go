package crypto

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role is a principal's access level, mirroring the teacher's
// ValidRoles set in internal/security/jwt_handler.go.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var validRoles = map[Role]bool{RoleViewer: true, RoleOperator: true, RoleAdmin: true}

// Claims is the principal identity carried by an issued token.
type Claims struct {
	UserID string
	Role   Role
	IAT    int64
	EXP    int64
}

// IssueToken mints an HS256 JWT for userID/role, expiring after
// expiryHours (defaulting to 24 when ≤ 0), matching the teacher's
// GenerateToken behavior.
func IssueToken(secretKey, userID string, role Role, expiryHours int) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue token: user id required")
	}
	if !validRoles[role] {
		return "", fmt.Errorf("issue token: invalid role %q", role)
	}
	if expiryHours <= 0 {
		expiryHours = 24
	}
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"iat":     now,
		"exp":     now + int64(expiryHours)*3600,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// AuthOutcome is the explicit tagged result of token verification,
// replacing the source's exception-for-control-flow pattern (§9:
// "rewrite as explicit tagged results").
type AuthOutcome int

const (
	AuthInvalid AuthOutcome = iota
	AuthOK
)

// VerifyToken validates tokenString's signature, algorithm, and expiry
// and returns the decoded claims plus an explicit outcome tag.
func VerifyToken(secretKey, tokenString string) (Claims, AuthOutcome) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unsupported signing method: %v", t.Method.Alg())
		}
		return []byte(secretKey), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, AuthInvalid
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, AuthInvalid
	}
	userID, _ := mc["user_id"].(string)
	roleStr, _ := mc["role"].(string)
	if userID == "" || !validRoles[Role(roleStr)] {
		return Claims{}, AuthInvalid
	}
	iat, _ := mc["iat"].(float64)
	exp, _ := mc["exp"].(float64)
	return Claims{UserID: userID, Role: Role(roleStr), IAT: int64(iat), EXP: int64(exp)}, AuthOK
}
