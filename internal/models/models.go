package models

import (
	"slices"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

var Roles = []string{RoleCustomer, RoleManager, RoleAdmin}

type Tenant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name      string    `gorm:"size:100;not null"         json:"name"`
	Address   string    `gorm:"size:255;not null"         json:"address"`
	CreatedAt time.Time `                                 json:"createdAt"`
	UpdatedAt time.Time `                                 json:"updatedAt"`
}

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	FirstName string    `gorm:"not null"                  json:"firstName"`
	LastName  string    `gorm:"not null"                  json:"lastName"`
	Email     string    `gorm:"uniqueIndex;not null"      json:"email"`
	Password  string    `gorm:"not null"                  json:"-"`
	Role      string    `gorm:"not null"                  json:"role"`
	TenantID  *uint     `gorm:"index"                     json:"tenantId,omitempty"`
	Tenant    *Tenant   `gorm:"foreignKey:TenantID"       json:"tenant,omitempty"`
	CreatedAt time.Time `                                 json:"createdAt"`
	UpdatedAt time.Time `                                 json:"updatedAt"`
}

// RefreshToken is a ledger row. Its ID is the jti of the signed refresh
// token; a token whose row is gone is revoked.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	UserID    uint      `gorm:"index;not null"                                json:"userId"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ExpiresAt time.Time `gorm:"not null"                                      json:"expiresAt"`
	CreatedAt time.Time `                                                     json:"createdAt"`
	UpdatedAt time.Time `                                                     json:"updatedAt"`
}

func IsValidRole(role string) bool {
	return slices.Contains(Roles, role)
}
