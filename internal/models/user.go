package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the logbook
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Actions checked by HasPermission.
const (
	ActionViewRoadLists  = "view_roadlists"
	ActionEditRoadLists  = "edit_roadlists"
	ActionRebuildChain   = "rebuild_chain"
	ActionViewVehicles   = "view_vehicles"
	ActionPlanSurvey     = "plan_survey"
	ActionManageVehicles = "manage_vehicles"
	ActionManageUsers    = "manage_users"
)

// User represents a logbook user
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	FullName     string             `bson:"full_name" json:"full_name"`
	// Vehicles restricts an operator to these vehicle ids; empty means all.
	Vehicles  []string   `bson:"vehicles,omitempty" json:"vehicles,omitempty"`
	IsActive  bool       `bson:"is_active" json:"is_active"`
	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     Role     `json:"role"`
	Vehicles []string `json:"vehicles,omitempty"`
	Exp      int64    `json:"exp"`
}

// CanAccessVehicle reports whether the claims allow work on vehicle id.
func (c *Claims) CanAccessVehicle(id string) bool {
	if c.Role == RoleAdmin || len(c.Vehicles) == 0 {
		return true
	}
	for _, v := range c.Vehicles {
		if v == id {
			return true
		}
	}
	return false
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role may perform action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleOperator:
		return action == ActionViewRoadLists || action == ActionEditRoadLists ||
			action == ActionViewVehicles || action == ActionPlanSurvey
	case RoleViewer:
		return action == ActionViewRoadLists || action == ActionViewVehicles
	default:
		return false
	}
}
