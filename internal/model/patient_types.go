package model

import "github.com/google/uuid"

type CreatePatientRequest struct {
	UserID                *uuid.UUID `json:"user_id"`
	FullName              string     `json:"full_name" validate:"required,max=200"`
	Email                 string     `json:"email" validate:"required,email"`
	Phone                 *string    `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth           *string    `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Address               *string    `json:"address"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone" validate:"omitempty,max=32"`
}

// PatientUpdate is a partial update; nil fields are left untouched.
type PatientUpdate struct {
	FullName              *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Email                 *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone                 *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	DateOfBirth           *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address               *string `json:"address,omitempty"`
	EmergencyContactName  *string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string `json:"emergency_contact_phone,omitempty" validate:"omitempty,max=32"`
}

func (u PatientUpdate) Empty() bool {
	return len(u.Fields()) == 0
}

// Apply returns a patched copy of p.
func (u PatientUpdate) Apply(p Patient) Patient {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Phone != nil {
		p.Phone = u.Phone
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = u.DateOfBirth
	}
	if u.Address != nil {
		p.Address = u.Address
	}
	if u.EmergencyContactName != nil {
		p.EmergencyContactName = u.EmergencyContactName
	}
	if u.EmergencyContactPhone != nil {
		p.EmergencyContactPhone = u.EmergencyContactPhone
	}
	return p
}

func (u PatientUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.FullName != nil {
		fields["full_name"] = *u.FullName
	}
	if u.Email != nil {
		fields["email"] = *u.Email
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.DateOfBirth != nil {
		fields["date_of_birth"] = *u.DateOfBirth
	}
	if u.Address != nil {
		fields["address"] = *u.Address
	}
	if u.EmergencyContactName != nil {
		fields["emergency_contact_name"] = *u.EmergencyContactName
	}
	if u.EmergencyContactPhone != nil {
		fields["emergency_contact_phone"] = *u.EmergencyContactPhone
	}
	return fields
}
