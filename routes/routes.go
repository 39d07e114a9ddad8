package routes

import (
	"net/http"

	"mindline/appointments"
	"mindline/auth"
	"mindline/consultants"
	"mindline/db"
	"mindline/events"
	"mindline/middleware"
	"mindline/models"
	"mindline/payments"
	"mindline/ratelim"
	"mindline/slots"

	"github.com/julienschmidt/httprouter"
)

// Deps holds the wired services shared between route groups and main.
type Deps struct {
	SlotStore   slots.Store
	ApptStore   appointments.Store
	CompStore   appointments.CompensationStore
	LedgerStore payments.LedgerStore
	Booking     *appointments.BookingService
	Reschedule  *appointments.RescheduleService
	Reconciler  *payments.Reconciler
}

// BuildDeps constructs the Mongo-backed stores and the services on top of
// them.
func BuildDeps() *Deps {
	slotStore := slots.NewMongoStore(db.SlotCollection)
	apptStore := appointments.NewMongoStore(db.AppointmentsCollection)
	compStore := appointments.NewMongoCompensationStore(db.CompensationsCollection)
	ledger := payments.NewMongoLedgerStore(db.PaymentsCollection)

	booking := appointments.NewBookingService(apptStore, slotStore, appointments.RedisLocker{})
	resched := appointments.NewRescheduleService(apptStore, slotStore, compStore)

	return &Deps{
		SlotStore:   slotStore,
		ApptStore:   apptStore,
		CompStore:   compStore,
		LedgerStore: ledger,
		Booking:     booking,
		Reschedule:  resched,
		Reconciler:  payments.NewReconciler(apptStore, ledger),
	}
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/consultantpic/*filepath", http.Dir("static/consultantpic"))
}

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rateLimiter.Limit(auth.Register))
	router.POST("/api/auth/login", rateLimiter.Limit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.Logout))
	router.POST("/api/auth/token/refresh", rateLimiter.Limit(auth.RefreshToken))
}

func AddSlotRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, deps *Deps) {
	h := slots.NewHandler(deps.SlotStore)

	router.GET("/api/slotTime", rateLimiter.Limit(h.ListSlots))
	router.POST("/api/slotTime",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(h.CreateSlot),
	)
	router.PUT("/api/slotTime/status/:id",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
		)(h.UpdateSlotStatus),
	)

	router.GET("/ws/slots/:consultantId", slots.HandleWS)
}

func AddAppointmentRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, deps *Deps) {
	h := appointments.NewHandler(deps.Booking, deps.Reschedule)

	authed := middleware.Chain(rateLimiter.Limit, middleware.Authenticate)

	router.POST("/api/appointments", authed(h.CreateAppointment))
	router.GET("/api/appointments", authed(h.ListMyAppointments))
	router.GET("/api/appointments/:id", authed(h.GetAppointment))
	router.DELETE("/api/appointments/:id", authed(h.DeleteAppointment))
	router.PUT("/api/appointments/reschedule/:id", authed(h.Reschedule))
	router.PUT("/api/appointments/status/:id",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(h.UpdateStatus),
	)
	router.GET("/api/appointments/:id/receipt", authed(h.Receipt))
}

func AddPaymentRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, deps *Deps) {
	momo := payments.NewMomoHandler(payments.MomoConfigFromEnv(), deps.Reconciler)
	vnpay := payments.NewVNPayHandler(payments.VNPayConfigFromEnv(), deps.Reconciler)

	authed := middleware.Chain(rateLimiter.Limit, middleware.Authenticate)

	// Gateway callbacks authenticate by signature, not by bearer token.
	router.POST("/api/payment/momo/callback", momo.Callback)
	router.GET("/api/payment/vnpay/ipn", vnpay.IPN)

	router.POST("/api/payment/momo/create",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			payments.Idempotent,
		)(momo.CreatePayment),
	)
	router.POST("/api/payment/vnpay/create",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			payments.Idempotent,
		)(vnpay.CreatePayment),
	)

	router.GET("/api/payment/history", authed(deps.Reconciler.ListMyPayments))
}

func AddConsultantRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, deps *Deps) {
	h := consultants.NewHandler(deps.SlotStore)

	router.GET("/api/consultants", rateLimiter.Limit(h.ListConsultants))
	router.GET("/api/consultants/:id", rateLimiter.Limit(h.GetConsultant))
	router.PUT("/api/consultants",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(h.UpsertProfile),
	)
	router.POST("/api/consultants/:id/availability",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(h.PublishAvailability),
	)
	router.POST("/api/consultants/:id/photo",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(h.UploadPhoto),
	)

	router.GET("/api/services", rateLimiter.Limit(h.ListServices))
	router.POST("/api/services",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleAdmin),
		)(h.CreateService),
	)
}

func AddEventRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	authed := middleware.Chain(rateLimiter.Limit, middleware.Authenticate)

	router.GET("/api/events", rateLimiter.Limit(events.ListEvents))
	router.POST("/api/events",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleAdmin),
		)(events.CreateEvent),
	)
	router.POST("/api/events/:id/register", authed(events.Register))
	router.GET("/api/events/:id/qr", authed(events.CheckinQR))
	router.POST("/api/events/:id/checkin",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin),
		)(events.Checkin),
	)
}
