package models

import "time"

// CoworkingSpace is a bookable location with posted opening hours.
// OpenTime/CloseTime are local wall-clock "HH:mm" strings.
type CoworkingSpace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Telephone string    `json:"telephone_number"`
	OpenTime  string    `json:"openTime"`
	CloseTime string    `json:"closeTime"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reservation occupies the half-open interval [StartTime, EndTime) in the
// scope (coworkingspace, room_number). Times are stored in UTC.
type Reservation struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user"`
	SpaceID    int64     `json:"coworkingspace"`
	RoomNumber int       `json:"room_number"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int64     `json:"version"`
}

// AuditLogEntry records one successful mutating action on a reservation.
// Entries are append-only and survive cascade deletion of spaces.
type AuditLogEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user"`
	ReservationID int64     `json:"reservation"`
	Action        string    `json:"action"`
	CreatedAt     time.Time `json:"createdAt"`
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Telephone    string    `json:"telephone_number"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
