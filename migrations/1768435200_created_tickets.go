package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.TextField{
				Name:     "ticket_id",
				Required: true,
				Pattern:  `^TKT-[0-9A-F]{10}$`,
			},
			&core.TextField{
				Name:     "event_id",
				Required: true,
			},
			&core.SelectField{
				Name:      "ticket_type",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"weekend_pass", "day_pass", "workshop", "social"},
			},
			&core.TextField{
				Name: "attendee_first_name",
			},
			&core.TextField{
				Name: "attendee_last_name",
			},
			&core.EmailField{
				Name: "attendee_email",
			},
			&core.NumberField{
				Name:    "price_cents",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.TextField{
				Name: "currency",
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"valid", "cancelled", "refunded"},
			},
			&core.SelectField{
				Name:      "validation_status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"active", "invalidated"},
			},
			&core.NumberField{
				Name:    "scan_count",
				OnlyInt: true,
				Min:     types.Pointer(0.0),
			},
			&core.NumberField{
				Name:     "max_scan_count",
				Required: true,
				OnlyInt:  true,
				Min:      types.Pointer(1.0),
			},
			&core.DateField{
				Name: "first_scanned_at",
			},
			&core.DateField{
				Name: "last_scanned_at",
			},
			&core.TextField{
				Name:   "qr_token",
				Hidden: true,
			},
			&core.TextField{
				Name: "order_ref",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_tickets_ticket_id", true, "ticket_id", "")
		collection.AddIndex("idx_tickets_event_id", false, "event_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
