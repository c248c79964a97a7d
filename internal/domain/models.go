package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// User is an account that can log in and, depending on role, run parses.
type User struct {
	ID             int64
	Username       string
	HashedPassword string
	Role           Role
}

// TenderRecord is one structured entry parsed from a listing page of the
// procurement site. Never mutated after parsing; ownership passes to storage.
type TenderRecord struct {
	ID              int64     `json:"id,omitempty"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	Customer        string    `json:"customer"`
	Price           string    `json:"price"`
	ContractNumber  string    `json:"contractNumber"`
	PurchaseObjects string    `json:"purchaseObjects"`
	ContractDate    string    `json:"contractDate"`
	ExecutionDate   string    `json:"executionDate"`
	PublishDate     string    `json:"publishDate"`
	UpdateDate      string    `json:"updateDate"`
	ParsedAt        time.Time `json:"parsedAt,omitempty"`
	ParsedBy        string    `json:"parsedBy,omitempty"`
}

// ParseSession groups the records produced by one parse run.
type ParseSession struct {
	ID        uuid.UUID      `json:"id"`
	Owner     string         `json:"owner"`
	CreatedAt time.Time      `json:"createdAt"`
	Records   []TenderRecord `json:"records,omitempty"`
}

// TenderAnalysis is the stored result of a legal analysis of one tender's
// termination document.
type TenderAnalysis struct {
	ID         int64     `json:"id"`
	TenderID   int64     `json:"tenderId"`
	Result     string    `json:"result"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// AdminRequest is a pending request for elevated privileges.
type AdminRequest struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"` // pending / approved / rejected
	CreatedAt time.Time `json:"createdAt"`
}
