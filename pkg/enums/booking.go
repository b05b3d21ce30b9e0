package enums

// ReservationStatus is the booking lifecycle state. PENDING and CONFIRMED
// hold the vehicle; CANCELLED and COMPLETED are final.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

var reservationStatuses = newSet("reservation status",
	ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusCompleted)

func (r ReservationStatus) String() string { return string(r) }
func (r ReservationStatus) IsValid() bool  { return reservationStatuses.has(r) }

// IsTerminal reports whether no further transition is permitted.
func (r ReservationStatus) IsTerminal() bool {
	return r == ReservationStatusCancelled || r == ReservationStatusCompleted
}

func ParseReservationStatus(value string) (ReservationStatus, error) {
	return reservationStatuses.parse(value)
}

func ReservationStatuses() []ReservationStatus { return reservationStatuses.all() }

// Role is the system-wide role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

var roles = newSet("role", RoleCustomer, RoleEmployee, RoleAdmin)

func (r Role) String() string { return string(r) }
func (r Role) IsValid() bool  { return roles.has(r) }

// IsStaff reports whether the role may manage inventory and other people's
// reservations.
func (r Role) IsStaff() bool { return r == RoleAdmin || r == RoleEmployee }

func ParseRole(value string) (Role, error) { return roles.parse(value) }
func Roles() []Role                        { return roles.all() }

// DayOfWeek keys opening hours.
type DayOfWeek string

const (
	DayOfWeekMonday    DayOfWeek = "MONDAY"
	DayOfWeekTuesday   DayOfWeek = "TUESDAY"
	DayOfWeekWednesday DayOfWeek = "WEDNESDAY"
	DayOfWeekThursday  DayOfWeek = "THURSDAY"
	DayOfWeekFriday    DayOfWeek = "FRIDAY"
	DayOfWeekSaturday  DayOfWeek = "SATURDAY"
	DayOfWeekSunday    DayOfWeek = "SUNDAY"
)

var daysOfWeek = newSet("day of week",
	DayOfWeekMonday, DayOfWeekTuesday, DayOfWeekWednesday, DayOfWeekThursday,
	DayOfWeekFriday, DayOfWeekSaturday, DayOfWeekSunday)

func (d DayOfWeek) String() string { return string(d) }
func (d DayOfWeek) IsValid() bool  { return daysOfWeek.has(d) }

func ParseDayOfWeek(value string) (DayOfWeek, error) { return daysOfWeek.parse(value) }

// DaysOfWeek returns Monday through Sunday.
func DaysOfWeek() []DayOfWeek { return daysOfWeek.all() }
