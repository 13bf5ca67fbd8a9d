package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const (
	// ReservationQuota is the number of reservations a non-admin user may
	// hold at once.
	ReservationQuota = 3

	// DefaultTimezone is the IANA zone used to evaluate opening hours.
	DefaultTimezone = "Asia/Bangkok"

	// ExportQueueSize bounds the snapshot worker queue.
	ExportQueueSize = 64

	// RevokedTokenPrefix namespaces denylisted token ids in redis.
	RevokedTokenPrefix = "revoked_token:"
)
