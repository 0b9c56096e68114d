package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	UserID                *uuid.UUID `db:"user_id" json:"user_id"`
	FullName              string     `db:"full_name" json:"full_name"`
	Email                 string     `db:"email" json:"email"`
	Phone                 *string    `db:"phone" json:"phone"`
	DateOfBirth           *string    `db:"date_of_birth" json:"date_of_birth"`
	Address               *string    `db:"address" json:"address"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	Timestamps
}

// Age returns completed years at now. ok is false without a parsable date of birth.
func (p *Patient) Age(now time.Time) (age int, ok bool) {
	if p.DateOfBirth == nil {
		return 0, false
	}
	dob, err := time.Parse(DateLayout, *p.DateOfBirth)
	if err != nil {
		return 0, false
	}
	age = now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}
