package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		tickets, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("scan_logs")

		collection.Fields.Add(
			// Kept even when the ticket row is gone, so no cascade delete
			// and the business id is denormalized alongside the relation.
			&core.RelationField{
				Name:         "ticket",
				CollectionId: tickets.Id,
				MaxSelect:    1,
			},
			&core.TextField{
				Name: "ticket_id",
			},
			&core.SelectField{
				Name:      "result",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"success", "failure"},
			},
			&core.TextField{
				Name: "reason",
			},
			&core.SelectField{
				Name:      "source",
				MaxSelect: 1,
				Values:    []string{"web", "apple_wallet", "google_wallet"},
			},
			&core.TextField{
				Name: "ip",
			},
			&core.TextField{
				Name: "user_agent",
			},
			&core.JSONField{
				Name: "metadata",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_scan_logs_ticket_id", false, "ticket_id", "")
		collection.AddIndex("idx_scan_logs_created", false, "created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("scan_logs")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
