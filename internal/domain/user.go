package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	Avatar       *string   `json:"avatar"`

	// Subscription fields are written by the billing integration only.
	PlanType              string  `json:"planType" gorm:"not null;default:'free'"`
	BillingSubscriptionID *string `json:"-"`
	BillingCustomerID     *string `json:"-" gorm:"uniqueIndex"`
	SubscriptionStatus    *string `json:"subscriptionStatus"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sessions []ChatSession `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// ParseEmail returns the canonical lower-case form of a bare address.
// Display names, angle brackets and comments are rejected so that one
// mailbox maps to exactly one stored email.
func ParseEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
