package marketplace

import "strings"

// Notification is one entry of GET /notifications/user/{id}.
type Notification struct {
	ID        string `json:"_id,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	Type      string `json:"type,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

const InvoicePending = "pending"

// Invoice is one entry of GET /payment-invoices/user.
type Invoice struct {
	ID            string  `json:"_id,omitempty"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	DueDate       string  `json:"dueDate,omitempty"`
}

// ContactMessage is the body of POST /agent-contact/send.
type ContactMessage struct {
	AgentID     string `json:"agentId"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

// ReviewInput is the body of POST /reviews.
type ReviewInput struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

// User is the authenticated caller as returned by GET /users/{id}.
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// FullName joins first and last name, skipping blanks.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
