package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"firledger/internal/access"
	jwttoken "firledger/internal/jwt_token"
	"firledger/internal/platform/config"
	id "firledger/pkg/domain"
)

var tokenFlags struct {
	userID    string
	role      string
	stationID string
	officerID string
	ttl       time.Duration
}

// tokenCmd mints a bearer token with the configured signing key. Identity
// is owned by an upstream provider; this exists for local development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token for an actor",
	RunE:  runToken,
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.userID, "user", "", "User ID (required)")
	f.StringVar(&tokenFlags.role, "role", string(access.RoleOfficer), "Role: Officer, StationAdmin or Admin")
	f.StringVar(&tokenFlags.stationID, "station", "", "Station ID (required unless admin)")
	f.StringVar(&tokenFlags.officerID, "officer", "", "Officer ID")
	f.DurationVar(&tokenFlags.ttl, "ttl", 8*time.Hour, "Token lifetime")

	_ = tokenCmd.MarkFlagRequired("user")
}

func runToken(cmd *cobra.Command, _ []string) error {
	actor, err := actorFromFlags()
	if err != nil {
		return err
	}
	cfg := config.FromEnv()
	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	token, err := jwt.GenerateActorToken(actor, tokenFlags.ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func actorFromFlags() (access.Actor, error) {
	userID, err := id.ParseUserID(tokenFlags.userID)
	if err != nil {
		return access.Actor{}, err
	}
	role, err := access.ParseRole(tokenFlags.role)
	if err != nil {
		return access.Actor{}, err
	}
	actor := access.Actor{UserID: userID, Role: role}
	if tokenFlags.stationID != "" {
		station, err := id.ParseStationID(tokenFlags.stationID)
		if err != nil {
			return access.Actor{}, err
		}
		actor.StationID = &station
	} else if role != access.RoleAdmin {
		return access.Actor{}, fmt.Errorf("--station is required for role %s", role)
	}
	if tokenFlags.officerID != "" {
		officer, err := id.ParseOfficerID(tokenFlags.officerID)
		if err != nil {
			return access.Actor{}, err
		}
		actor.OfficerID = &officer
	}
	return actor, nil
}
