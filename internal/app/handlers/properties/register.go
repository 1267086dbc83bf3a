package properties

import (
	"stayly/internal/app/commands"
	"stayly/internal/app/dto"
	"stayly/internal/app/queries"
)

func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, h *Handler, q *QueryHandler) {
	commands.Register[CreatePropertyCommand, dto.Property](cmdBus, commands.HandlerFunc[CreatePropertyCommand, dto.Property](h.Create))
	commands.Register[UpdatePropertyCommand, dto.Property](cmdBus, commands.HandlerFunc[UpdatePropertyCommand, dto.Property](h.Update))
	commands.Register[SetPricingCommand, dto.Property](cmdBus, commands.HandlerFunc[SetPricingCommand, dto.Property](h.SetPricing))
	commands.Register[AddWindowCommand, dto.Property](cmdBus, commands.HandlerFunc[AddWindowCommand, dto.Property](h.AddWindow))
	commands.Register[RemoveWindowCommand, dto.Property](cmdBus, commands.HandlerFunc[RemoveWindowCommand, dto.Property](h.RemoveWindow))
	commands.Register[BlockDatesCommand, dto.Property](cmdBus, commands.HandlerFunc[BlockDatesCommand, dto.Property](h.BlockDates))
	commands.Register[UnblockDatesCommand, dto.Property](cmdBus, commands.HandlerFunc[UnblockDatesCommand, dto.Property](h.UnblockDates))
	commands.Register[PublishPropertyCommand, dto.Property](cmdBus, commands.HandlerFunc[PublishPropertyCommand, dto.Property](h.Publish))
	commands.Register[UnlistPropertyCommand, dto.Property](cmdBus, commands.HandlerFunc[UnlistPropertyCommand, dto.Property](h.Unlist))
	commands.Register[UploadPhotoCommand, dto.Property](cmdBus, commands.HandlerFunc[UploadPhotoCommand, dto.Property](h.UploadPhoto))

	queries.Register[GetPropertyQuery, dto.Property](queryBus, queries.HandlerFunc[GetPropertyQuery, dto.Property](q.Get))
	queries.Register[ListHostPropertiesQuery, dto.PropertyCollection](queryBus, queries.HandlerFunc[ListHostPropertiesQuery, dto.PropertyCollection](q.ListForHost))
	queries.Register[SearchPropertiesQuery, dto.PropertyCollection](queryBus, queries.HandlerFunc[SearchPropertiesQuery, dto.PropertyCollection](q.Search))
}
