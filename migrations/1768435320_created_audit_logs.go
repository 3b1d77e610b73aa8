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

		collection := core.NewBaseCollection("audit_logs")

		collection.Fields.Add(
			&core.TextField{
				Name:     "action",
				Required: true,
			},
			&core.RelationField{
				Name:         "ticket",
				CollectionId: tickets.Id,
				MaxSelect:    1,
			},
			&core.TextField{
				Name: "actor",
			},
			&core.JSONField{
				Name: "details",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_audit_logs_ticket", false, "ticket", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("audit_logs")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
