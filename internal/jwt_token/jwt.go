package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"firledger/internal/access"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// Claims is the actor token issued by the identity provider.
// Subject carries the user id.
type Claims struct {
	Role      string `json:"role"`
	StationID string `json:"station_id,omitempty"`
	OfficerID string `json:"officer_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService verifies actor tokens. GenerateActorToken exists for local
// development and tests; production tokens come from the identity provider.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

func (s *JWTService) GenerateActorToken(actor access.Actor, expiresIn time.Duration) (string, error) {
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if actor.StationID != nil {
		claims.StationID = actor.StationID.String()
	}
	if actor.OfficerID != nil {
		claims.OfficerID = actor.OfficerID.String()
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// VerifyActor validates the token and maps its claims onto an Actor.
func (s *JWTService) VerifyActor(tokenString string) (access.Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return access.Actor{}, err
	}
	return claims.Actor()
}

// Actor converts verified claims. A malformed subject, role or station is
// treated as an invalid token rather than a client input error.
func (c *Claims) Actor() (access.Actor, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")

	userID, err := id.ParseUserID(c.Subject)
	if err != nil {
		return access.Actor{}, invalid
	}
	role, err := access.ParseRole(c.Role)
	if err != nil {
		return access.Actor{}, invalid
	}
	actor := access.Actor{UserID: userID, Role: role}
	if c.StationID != "" {
		st, err := id.ParseStationID(c.StationID)
		if err != nil {
			return access.Actor{}, invalid
		}
		actor.StationID = &st
	}
	if c.OfficerID != "" {
		off, err := id.ParseOfficerID(c.OfficerID)
		if err != nil {
			return access.Actor{}, invalid
		}
		actor.OfficerID = &off
	}
	return actor, nil
}
