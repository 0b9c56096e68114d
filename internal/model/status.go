package model

import "fmt"

// Status is the telehealth workflow state of a booking.
type Status string

const (
	StatusPending           Status = "pending"
	StatusConfirmed         Status = "confirmed"
	StatusIntake            Status = "intake"
	StatusReadyForProvider  Status = "ready-for-provider"
	StatusProvider          Status = "provider"
	StatusReadyForDischarge Status = "ready-for-discharge"
	StatusDischarged        Status = "discharged"
	StatusCancelled         Status = "cancelled"
)

// BookingType distinguishes telehealth bookings from in-person ones.
type BookingType string

const (
	BookingTypePreBooked BookingType = "pre-booked"
	BookingTypeOnline    BookingType = "online"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusIntake,
	StatusReadyForProvider,
	StatusProvider,
	StatusReadyForDischarge,
	StatusDischarged,
	StatusCancelled,
}

// AllStatuses returns every status in workflow order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) Valid() bool {
	for _, st := range allStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no workflow action moves a booking out of s.
func (s Status) Terminal() bool {
	return s == StatusDischarged || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status: %s", s)
	}
	return st, nil
}

func (t BookingType) Valid() bool {
	return t == BookingTypePreBooked || t == BookingTypeOnline
}

func ParseBookingType(s string) (BookingType, error) {
	bt := BookingType(s)
	if !bt.Valid() {
		return "", fmt.Errorf("unknown booking type: %s", s)
	}
	return bt, nil
}

// StatusConfig describes how a status is presented.
type StatusConfig struct {
	Label    string `json:"label"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Gradient string `json:"gradient,omitempty"`
}

var statusConfigs = map[Status]StatusConfig{
	StatusPending: {
		Label:    "Pending Confirmation",
		Color:    "bg-amber-50 text-amber-700 border-amber-200",
		Icon:     "alert-circle",
		Gradient: "from-amber-50 to-amber-100",
	},
	StatusConfirmed: {
		Label:    "Confirmed",
		Color:    "bg-blue-50 text-blue-700 border-blue-200",
		Icon:     "check-circle",
		Gradient: "from-blue-50 to-blue-100",
	},
	StatusIntake: {
		Label:    "In Intake",
		Color:    "bg-purple-50 text-purple-700 border-purple-200",
		Icon:     "clipboard",
		Gradient: "from-purple-50 to-purple-100",
	},
	StatusReadyForProvider: {
		Label:    "Ready for Provider",
		Color:    "bg-green-50 text-green-700 border-green-200",
		Icon:     "check-circle",
		Gradient: "from-green-50 to-green-100",
	},
	StatusProvider: {
		Label:    "With Provider",
		Color:    "bg-orange-50 text-orange-700 border-orange-200",
		Icon:     "video",
		Gradient: "from-orange-50 to-orange-100",
	},
	StatusReadyForDischarge: {
		Label:    "Ready for Discharge",
		Color:    "bg-indigo-50 text-indigo-700 border-indigo-200",
		Icon:     "check-circle",
		Gradient: "from-indigo-50 to-indigo-100",
	},
	StatusDischarged: {
		Label:    "Discharged",
		Color:    "bg-gray-50 text-gray-700 border-gray-200",
		Icon:     "check-circle",
		Gradient: "from-gray-50 to-gray-100",
	},
	StatusCancelled: {
		Label:    "Cancelled",
		Color:    "bg-red-50 text-red-700 border-red-200",
		Icon:     "x-circle",
		Gradient: "from-red-50 to-red-100",
	},
}

// GetStatusConfig never fails: unrecognised statuses get the pending descriptor.
func GetStatusConfig(status string) StatusConfig {
	if cfg, ok := statusConfigs[Status(status)]; ok {
		return cfg
	}
	return statusConfigs[StatusPending]
}

func GetStatusLabel(status string) string {
	return GetStatusConfig(status).Label
}

// BookingTypeConfig describes how a booking type is presented.
type BookingTypeConfig struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var bookingTypeConfigs = map[BookingType]BookingTypeConfig{
	BookingTypeOnline: {
		Label: "Telehealth",
		Icon:  "smartphone",
		Color: "bg-emerald-50 text-emerald-700 border-emerald-200",
	},
	BookingTypePreBooked: {
		Label: "In-Person",
		Icon:  "hospital",
		Color: "bg-blue-50 text-blue-700 border-blue-200",
	},
}

// GetBookingTypeConfig falls back to the online descriptor.
func GetBookingTypeConfig(bookingType string) BookingTypeConfig {
	if cfg, ok := bookingTypeConfigs[BookingType(bookingType)]; ok {
		return cfg
	}
	return bookingTypeConfigs[BookingTypeOnline]
}
