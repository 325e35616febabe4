package models

import "time"

const (
	PurchaseTypeTrial       = "TRIAL"
	PurchaseTypeStarterPack = "STARTER_PACK"
)

const (
	EnrollmentStatusPending = "pending"
	EnrollmentStatusActive  = "active"
)

const PaymentStatusPaid = "PAID"

// Profile represents the purchaser's stored profile, keyed by the stable
// identity reference carried in the access token.
type Profile struct {
	ID          string    `json:"id"`
	IdentityRef string    `json:"identityRef"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Postcode    string    `json:"postcode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProfileDefaults holds the contact fields applied on profile upsert. Empty
// fields never overwrite stored values.
type ProfileDefaults struct {
	FullName string
	Email    string
	Phone    string
	Postcode string
}

// PurchaseIntent is the client-held purchase state handed to finalization
// after the payment redirect.
type PurchaseIntent struct {
	PurchaseType          string `json:"purchaseType"`
	CourseTitle           string `json:"courseTitle"`
	Subject               string `json:"subject"`
	StudentName           string `json:"studentName"`
	ClassBracket          string `json:"classBracket"`
	StartDate             string `json:"startDate,omitempty"`
	SessionCount          int    `json:"sessionCount,omitempty"`
	PreferredDate         string `json:"preferredDate,omitempty"`
	PreferredTime         string `json:"preferredTime,omitempty"`
	PreferredTimeMonFri   string `json:"preferredTimeMonFri,omitempty"`
	PreferredTimeSaturday string `json:"preferredTimeSaturday,omitempty"`
	Postcode              string `json:"postcode,omitempty"`
	PromoCode             string `json:"promoCode,omitempty"`
	DiscountCents         int64  `json:"discountCents,omitempty"`
	AmountCents           int64  `json:"amountCents"`
}

// SessionRequest is one scheduled class occurrence.
type SessionRequest struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profileId"`
	CourseTitle     string    `json:"courseTitle"`
	Subject         string    `json:"subject,omitempty"`
	StudentName     string    `json:"studentName"`
	TeacherID       *string   `json:"teacherId,omitempty"`
	PurchaseType    string    `json:"purchaseType"`
	SessionDate     string    `json:"sessionDate"`
	TimeSlot        string    `json:"timeSlot"`
	PaymentStatus   string    `json:"paymentStatus"`
	TransactionID   string    `json:"transactionId"`
	AmountPaidCents int64     `json:"amountPaidCents"`
	PromoCode       string    `json:"promoCode,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CourseEnrollment is the aggregate record of one course purchase. At most
// one exists per (profile, course title).
type CourseEnrollment struct {
	ID                string    `json:"id"`
	ProfileID         string    `json:"profileId"`
	CourseTitle       string    `json:"courseTitle"`
	Status            string    `json:"status"`
	SessionsTotal     int       `json:"sessionsTotal"`
	SessionsRemaining int       `json:"sessionsRemaining"`
	AmountPaidCents   int64     `json:"amountPaidCents"`
	TransactionID     string    `json:"transactionId"`
	PromoCode         string    `json:"promoCode,omitempty"`
	DiscountCents     int64     `json:"discountCents"`
	FirstSessionDate  string    `json:"firstSessionDate"`
	FirstSessionTime  string    `json:"firstSessionTime"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PromoCode represents promo code.
type PromoCode struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent int64      `json:"discountPercent"`
	IsActive        bool       `json:"isActive"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
