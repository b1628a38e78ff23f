package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an actor in the back office. CompanyID is nil only for SUPER_ADMIN
// accounts; every ADMIN and USER belongs to exactly one company.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         Role       `gorm:"type:varchar(16);not null;default:USER" json:"role"`
	Status       Status     `gorm:"type:varchar(16);not null;default:ACTIVE" json:"status"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Company      *Company   `json:"company,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Company is a tenant. All scoped data hangs off its ID.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	TaxID     string    `gorm:"uniqueIndex;not null" json:"tax_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a global catalog entry, seeded at startup and never mutated.
type Product struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// CompanyProduct records a tenant's subscription to a product. UserProduct and
// UserPermission rows reference it so that revoking a subscription cascades to
// every dependent grant inside one transaction.
type CompanyProduct struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_company_product" json:"company_id"`
	ProductID int       `gorm:"not null;uniqueIndex:idx_company_product" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProduct marks a user as enrolled in one of their company's subscriptions.
type UserProduct struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_company_product" json:"user_id"`
	CompanyProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_company_product" json:"company_product_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Permission is one {action, subject} pair from the fixed capability catalog.
type Permission struct {
	ID      int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Action  string `gorm:"not null;uniqueIndex:idx_action_subject" json:"action"`
	Subject string `gorm:"not null;uniqueIndex:idx_action_subject" json:"subject"`
}

// UserPermission grants one catalog permission to one user under one company
// subscription. The grant is void whenever the subscription row is gone.
type UserPermission struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_grant" json:"user_id"`
	CompanyProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_grant" json:"company_product_id"`
	PermissionID     int       `gorm:"not null;uniqueIndex:idx_user_grant" json:"permission_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// AuditLog is an append-only record of a privileged mutation. AuthorID is
// nullable so deleting a user never corrupts history, and there is no foreign
// key cascade from users into this table.
type AuditLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Action    string     `gorm:"not null;index" json:"action"`
	AuthorID  *uuid.UUID `gorm:"type:uuid" json:"author_id,omitempty"`
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Details   JSONB      `gorm:"type:jsonb;default:'{}'::jsonb" json:"details"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
