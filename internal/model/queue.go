package model

// QueueStats counts online bookings per workflow status.
type QueueStats struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Confirmed         int `json:"confirmed"`
	Intake            int `json:"intake"`
	ReadyForProvider  int `json:"ready_for_provider"`
	Provider          int `json:"provider"`
	ReadyForDischarge int `json:"ready_for_discharge"`
	Discharged        int `json:"discharged"`
	Cancelled         int `json:"cancelled"`
}

// Add counts one booking in status s.
func (q *QueueStats) Add(s Status) {
	q.Total++
	switch s {
	case StatusPending:
		q.Pending++
	case StatusConfirmed:
		q.Confirmed++
	case StatusIntake:
		q.Intake++
	case StatusReadyForProvider:
		q.ReadyForProvider++
	case StatusProvider:
		q.Provider++
	case StatusReadyForDischarge:
		q.ReadyForDischarge++
	case StatusDischarged:
		q.Discharged++
	case StatusCancelled:
		q.Cancelled++
	}
}

// QueueGroups holds the active online queue by stage.
type QueueGroups struct {
	Confirmed        []*Booking `json:"confirmed"`
	Intake           []*Booking `json:"intake"`
	ReadyForProvider []*Booking `json:"ready_for_provider"`
	Provider         []*Booking `json:"provider"`
}

// BookingStats aggregates bookings of every type.
type BookingStats struct {
	Total    int                 `json:"total"`
	ByStatus map[Status]int      `json:"by_status"`
	ByType   map[BookingType]int `json:"by_type"`
}

func NewBookingStats() BookingStats {
	return BookingStats{
		ByStatus: make(map[Status]int),
		ByType:   make(map[BookingType]int),
	}
}

// QueueFilters narrows a tab's bookings. The zero value matches everything.
type QueueFilters struct {
	Statuses          []Status `json:"statuses" form:"status"`
	ProviderName      *string  `json:"provider_name" form:"provider"`
	PatientNameSearch string   `json:"patient_name_search" form:"q"`
}
