package booking

import (
	"stayly/internal/app/commands"
	"stayly/internal/app/dto"
	"stayly/internal/app/queries"
)

// Handlers groups the booking handlers for bus registration.
type Handlers struct {
	Request   *RequestBookingHandler
	Quote     *QuoteStayHandler
	Lifecycle *LifecycleHandler
	List      *ListHandler
}

func (h Handlers) Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus) {
	commands.Register[RequestBookingCommand, *RequestBookingResult](cmdBus, h.Request)
	commands.Register[ConfirmBookingCommand, dto.Booking](cmdBus, commands.HandlerFunc[ConfirmBookingCommand, dto.Booking](h.Lifecycle.Confirm))
	commands.Register[RejectBookingCommand, dto.Booking](cmdBus, commands.HandlerFunc[RejectBookingCommand, dto.Booking](h.Lifecycle.Reject))
	commands.Register[CancelBookingCommand, dto.Refund](cmdBus, commands.HandlerFunc[CancelBookingCommand, dto.Refund](h.Lifecycle.Cancel))
	commands.Register[CompleteBookingCommand, dto.Booking](cmdBus, commands.HandlerFunc[CompleteBookingCommand, dto.Booking](h.Lifecycle.Complete))
	commands.Register[RecordPaymentCommand, dto.Booking](cmdBus, commands.HandlerFunc[RecordPaymentCommand, dto.Booking](h.Lifecycle.RecordPayment))

	queries.Register[QuoteStayQuery, dto.Quote](queryBus, h.Quote)
	queries.Register[ListGuestBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[ListGuestBookingsQuery, dto.BookingCollection](h.List.ForGuest))
	queries.Register[ListHostBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[ListHostBookingsQuery, dto.BookingCollection](h.List.ForHost))
	queries.Register[GetBookingQuery, dto.Booking](queryBus, queries.HandlerFunc[GetBookingQuery, dto.Booking](h.List.Get))
}
