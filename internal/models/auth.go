package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleOfficer    UserRole = "OFFICER"
)

// IsAdmin reports whether the role may resolve requests and edit directly.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// JWTClaims represents the token payload issued by the station login service.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	Name        string   `json:"name"`
	Rank        string   `json:"rank,omitempty"`
	ForceNumber string   `json:"force_number,omitempty"`
	StationID   string   `json:"station_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the caller identity threaded through engine calls.
func (c *JWTClaims) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{
		ID:          c.UserID,
		Name:        c.Name,
		Rank:        c.Rank,
		ForceNumber: c.ForceNumber,
		StationID:   c.StationID,
		Role:        c.Role,
	}
}

// Identity describes who requested or resolved a correction, or who signed an entry.
type Identity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rank        string   `json:"rank,omitempty"`
	ForceNumber string   `json:"forceNumber,omitempty"`
	StationID   string   `json:"stationId,omitempty"`
	Role        UserRole `json:"role,omitempty"`
}

// Value stores the identity as JSON.
func (i Identity) Value() (driver.Value, error) {
	return json.Marshal(i)
}

// Scan decodes a JSON identity column.
func (i *Identity) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	case nil:
		*i = Identity{}
		return nil
	default:
		return fmt.Errorf("identity: unsupported scan type %T", src)
	}
}
