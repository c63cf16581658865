package models

// Account represents a customer identity keyed by email.
type Account struct {
	BaseModel
	Email      string  `gorm:"uniqueIndex:idx_accounts_email;not null" json:"email"`
	Name       string  `json:"name"`
	Phone      *string `gorm:"uniqueIndex:idx_accounts_phone" json:"phone"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Orders     []Order `json:"orders,omitempty"`
}

// PhoneValue returns the phone number or an empty string.
func (a *Account) PhoneValue() string {
	if a.Phone == nil {
		return ""
	}
	return *a.Phone
}
