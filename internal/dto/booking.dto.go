package dto

import "time"

// BookingDetails is what a customer sees through their management link.
type BookingDetails struct {
	AppointmentID   uint      `json:"appointment_id"`
	TenantID        string    `json:"tenant_id"`
	ServiceName     string    `json:"service_name"`
	EmployeeName    string    `json:"employee_name"`
	CustomerName    string    `json:"customer_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	RescheduleCount int       `json:"reschedule_count"`
	CanCancel       bool      `json:"can_cancel"`
	CanReschedule   bool      `json:"can_reschedule"`
}

type BookingCreated struct {
	AppointmentID   uint   `json:"appointment_id"`
	ManagementToken string `json:"management_token"`
}

type BookingActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
