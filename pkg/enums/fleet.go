package enums

// VehicleStatus describes where a vehicle sits in its fleet lifecycle. Only
// AVAILABLE vehicles accept new reservations.
type VehicleStatus string

const (
	VehicleStatusAvailable     VehicleStatus = "AVAILABLE"
	VehicleStatusRented        VehicleStatus = "RENTED"
	VehicleStatusInMaintenance VehicleStatus = "IN_MAINTENANCE"
	VehicleStatusOutOfService  VehicleStatus = "OUT_OF_SERVICE"
	VehicleStatusDamaged       VehicleStatus = "DAMAGED"
	VehicleStatusOther         VehicleStatus = "OTHER"
)

var vehicleStatuses = newSet("vehicle status",
	VehicleStatusAvailable, VehicleStatusRented, VehicleStatusInMaintenance,
	VehicleStatusOutOfService, VehicleStatusDamaged, VehicleStatusOther)

func (v VehicleStatus) String() string { return string(v) }
func (v VehicleStatus) IsValid() bool  { return vehicleStatuses.has(v) }

func ParseVehicleStatus(value string) (VehicleStatus, error) { return vehicleStatuses.parse(value) }
func VehicleStatuses() []VehicleStatus                      { return vehicleStatuses.all() }

type FuelType string

const (
	FuelTypeGasoline FuelType = "GASOLINE"
	FuelTypeDiesel   FuelType = "DIESEL"
	FuelTypeElectric FuelType = "ELECTRIC"
	FuelTypeHybrid   FuelType = "HYBRID"
	FuelTypeOther    FuelType = "OTHER"
)

var fuelTypes = newSet("fuel type", FuelTypeGasoline, FuelTypeDiesel, FuelTypeElectric, FuelTypeHybrid, FuelTypeOther)

func (f FuelType) String() string { return string(f) }
func (f FuelType) IsValid() bool  { return fuelTypes.has(f) }

func ParseFuelType(value string) (FuelType, error) { return fuelTypes.parse(value) }
func FuelTypes() []FuelType                       { return fuelTypes.all() }

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeReservationCreated   NotificationType = "RESERVATION_CREATED"
	NotificationTypeReservationConfirmed NotificationType = "RESERVATION_CONFIRMED"
	NotificationTypeReservationCancelled NotificationType = "RESERVATION_CANCELLED"
	NotificationTypeReservationCompleted NotificationType = "RESERVATION_COMPLETED"
	NotificationTypePaymentCompleted     NotificationType = "PAYMENT_COMPLETED"
	NotificationTypePaymentFailed        NotificationType = "PAYMENT_FAILED"
	NotificationTypeRefundProcessed      NotificationType = "REFUND_PROCESSED"
	NotificationTypeRefundFailed         NotificationType = "REFUND_FAILED"
	NotificationTypeSystem               NotificationType = "SYSTEM"
)

var notificationTypes = newSet("notification type",
	NotificationTypeReservationCreated, NotificationTypeReservationConfirmed,
	NotificationTypeReservationCancelled, NotificationTypeReservationCompleted,
	NotificationTypePaymentCompleted, NotificationTypePaymentFailed,
	NotificationTypeRefundProcessed, NotificationTypeRefundFailed, NotificationTypeSystem)

func (n NotificationType) String() string { return string(n) }
func (n NotificationType) IsValid() bool  { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
func NotificationTypes() []NotificationType { return notificationTypes.all() }
