package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/internal/vendors"
	"github.com/uistaff/invento-backend/pkg/config"
	"github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/enums"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
	"github.com/uistaff/invento-backend/pkg/migrate"
	"github.com/uistaff/invento-backend/pkg/outbox"
)

// Seeds a development database with a small but realistic data set:
// an admin plus a couple of accounts, the usual supply-closet items,
// and two vendors linked to the items they restock. Safe to re-run;
// existing rows are skipped.
func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if !cfg.App.IsDev() {
		logg.Error(ctx, "seed refused", pkgerrors.New(pkgerrors.CodeForbidden, "seeding is dev-only, current env is "+cfg.App.Env))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	usersService, err := users.NewService(dbClient, users.NewRepository(dbClient.DB()), outboxService, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(dbClient, inventoryRepo, inventory.NewUsageRepository(dbClient.DB()), notificationsRepo, outboxService, logg, cfg.Alerts.Recipient)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}
	vendorsService, err := vendors.NewService(dbClient, vendors.NewRepository(dbClient.DB()), outboxService)
	if err != nil {
		logg.Error(ctx, "failed to create vendors service", err)
		os.Exit(1)
	}

	seedUsers(ctx, logg, usersService)
	created := seedItems(ctx, logg, inventoryService)
	seedVendors(ctx, logg, vendorsService, created)

	logg.Info(ctx, "seed complete")
}

func seedUsers(ctx context.Context, logg *logger.Logger, svc users.Service) {
	seeds := []users.CreateInput{
		{Name: "Admin", Email: "admin@invento.local", Password: "admin-dev-password", Role: enums.UserRoleAdmin},
		{Name: "Sam Ortiz", Email: "sam@invento.local", Password: "sam-dev-password", Role: enums.UserRoleUser, SlackID: "U0DEV00001"},
		{Name: "Priya Nair", Email: "priya@invento.local", Password: "priya-dev-password", Role: enums.UserRoleUser, SlackID: "U0DEV00002"},
	}
	for _, input := range seeds {
		if _, err := svc.Create(ctx, input); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
				logg.Debug(logg.WithField(ctx, "email", input.Email), "user exists, skipping")
				continue
			}
			logg.Error(ctx, "failed to seed user "+input.Email, err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "email", input.Email), "seeded user")
	}
}

// seedItems returns name -> id for every seed item, created or not, so
// vendor links can be established on re-runs too.
func seedItems(ctx context.Context, logg *logger.Logger, svc inventory.Service) map[string]uuid.UUID {
	seeds := []inventory.CreateItemInput{
		{Name: "Printer Paper", Category: "Office Supplies", Quantity: 40, MinQuantity: 10, Unit: "ream", Location: "Supply Closet A"},
		{Name: "Whiteboard Markers", Category: "Office Supplies", Quantity: 24, MinQuantity: 6, Unit: "pc", Location: "Supply Closet A"},
		{Name: "Coffee Beans", Category: "Kitchen", Quantity: 8, MinQuantity: 3, Unit: "bag", Location: "Kitchen"},
		{Name: "Standing Desk", Category: "Furniture", Quantity: 5, MinQuantity: 1, Unit: "pc", Location: "Storage B", Condition: "good"},
		{Name: "HDMI Cable", Category: "Office Equipment", Quantity: 12, MinQuantity: 4, Unit: "pc", Location: "IT Cabinet"},
	}

	ids := make(map[string]uuid.UUID, len(seeds))
	for _, input := range seeds {
		existing, err := svc.GetItemByName(ctx, input.Name)
		if err == nil {
			ids[input.Name] = existing.ID
			logg.Debug(logg.WithField(ctx, "item", input.Name), "item exists, skipping")
			continue
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			logg.Error(ctx, "failed to look up item "+input.Name, err)
			os.Exit(1)
		}
		item, err := svc.CreateItem(ctx, input)
		if err != nil {
			logg.Error(ctx, "failed to seed item "+input.Name, err)
			os.Exit(1)
		}
		ids[input.Name] = item.ID
		logg.Info(logg.WithField(ctx, "item", input.Name), "seeded item")
	}
	return ids
}

func seedVendors(ctx context.Context, logg *logger.Logger, svc vendors.Service, itemIDs map[string]uuid.UUID) {
	seeds := []struct {
		input vendors.CreateInput
		items []string
	}{
		{
			input: vendors.CreateInput{Name: "Office Depot", Contact: "orders@officedepot.example", Phone: "+1-555-0101"},
			items: []string{"Printer Paper", "Whiteboard Markers"},
		},
		{
			input: vendors.CreateInput{Name: "Bean Supply Co", Contact: "sales@beansupply.example", Phone: "+1-555-0102"},
			items: []string{"Coffee Beans"},
		},
	}

	// Vendor names are not unique in the schema, so dedupe here.
	existing, err := svc.List(ctx, 100, 0)
	if err != nil {
		logg.Error(ctx, "failed to list vendors", err)
		os.Exit(1)
	}
	byName := make(map[string]uuid.UUID, len(existing))
	for _, v := range existing {
		byName[v.Name] = v.ID
	}

	for _, seed := range seeds {
		vendorID, ok := byName[seed.input.Name]
		if ok {
			logg.Debug(logg.WithField(ctx, "vendor", seed.input.Name), "vendor exists, skipping")
		} else {
			vendor, err := svc.Create(ctx, seed.input)
			if err != nil {
				logg.Error(ctx, "failed to seed vendor "+seed.input.Name, err)
				os.Exit(1)
			}
			vendorID = vendor.ID
			logg.Info(logg.WithField(ctx, "vendor", seed.input.Name), "seeded vendor")
		}

		for _, name := range seed.items {
			itemID, ok := itemIDs[name]
			if !ok {
				continue
			}
			if _, err := svc.LinkItem(ctx, vendorID, itemID); err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
					continue
				}
				logg.Error(ctx, "failed to link "+name+" to "+seed.input.Name, err)
				os.Exit(1)
			}
		}
	}
}
