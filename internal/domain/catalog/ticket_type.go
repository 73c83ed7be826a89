package catalog

import (
	"fmt"
	"time"
)

// TicketType identifies a fare product in the catalog.
type TicketType string

const (
	TypeSingle  TicketType = "single"
	TypeDayPass TicketType = "day_pass"
	TypeWeekly  TicketType = "weekly"
	TypeMonthly TicketType = "monthly"
)

// Types returns all ticket types in the catalog.
func Types() []TicketType {
	return []TicketType{TypeSingle, TypeDayPass, TypeWeekly, TypeMonthly}
}

// IsValid checks if the type is a catalog ticket type.
func (t TicketType) IsValid() bool {
	switch t {
	case TypeSingle, TypeDayPass, TypeWeekly, TypeMonthly:
		return true
	}
	return false
}

// Validity returns how long a ticket of this type stays valid after
// validation.
func (t TicketType) Validity() time.Duration {
	switch t {
	case TypeSingle:
		return 80 * time.Minute
	case TypeDayPass:
		return 24 * time.Hour
	case TypeWeekly:
		return 7 * 24 * time.Hour
	case TypeMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Price returns the fare in HUF.
func (t TicketType) Price() Money {
	switch t {
	case TypeSingle:
		return NewMoney(350, "huf")
	case TypeDayPass:
		return NewMoney(1650, "huf")
	case TypeWeekly:
		return NewMoney(4950, "huf")
	case TypeMonthly:
		return NewMoney(9500, "huf")
	default:
		return NewMoney(0, "huf")
	}
}

// DisplayName returns the human-readable ticket type name.
func (t TicketType) DisplayName() string {
	switch t {
	case TypeSingle:
		return "Single Ticket"
	case TypeDayPass:
		return "Day Pass"
	case TypeWeekly:
		return "Weekly Pass"
	case TypeMonthly:
		return "Monthly Pass"
	default:
		return string(t)
	}
}

// String returns a description including validity and price.
func (t TicketType) String() string {
	return fmt.Sprintf("%s (%s, %s)", t.DisplayName(), t.Validity(), t.Price())
}
