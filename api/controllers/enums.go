package controllers

import (
	"net/http"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// EnumsList exposes the closed value sets clients render in forms and filters.
func EnumsList() http.HandlerFunc {
	payload := map[string]any{
		"vehicleStatuses":     enums.VehicleStatuses(),
		"fuelTypes":           enums.FuelTypes(),
		"reservationStatuses": enums.ReservationStatuses(),
		"paymentStatuses":     enums.PaymentStatuses(),
		"paymentProviders":    enums.PaymentProviders(),
		"refundStatuses":      enums.RefundStatuses(),
		"currencies":          enums.Currencies(),
		"roles":               enums.Roles(),
		"notificationTypes":   enums.NotificationTypes(),
		"daysOfWeek":          enums.DaysOfWeek(),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		responses.WriteSuccess(w, payload)
	}
}
