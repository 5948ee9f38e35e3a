// Package main provides a CLI tool for seeding the database with a demo
// pharmacy: catalog, stock, delivery addresses and access tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"rxpos/internal/config"
	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/address"
	"rxpos/internal/domain/auth"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/infrastructure/storage/postgres"
	"rxpos/internal/infrastructure/storage/postgres/catalog_repo"
	"rxpos/pkg/logger"
)

const (
	demoPharmacy = "PH-DEMO"
	demoBranch   = "BR-MAIN"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	txm := postgres.NewTxManager(pool)
	medicines := demoMedicines(time.Now().UTC())
	addresses := demoAddresses()

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := seedCatalog(ctx, txm, medicines); err != nil {
			return err
		}
		return seedAddresses(ctx, txm, addresses)
	})
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}
	log.Infow("demo data seeded", "medicines", len(medicines), "addresses", len(addresses))

	if cfg.JWTSecret != "" {
		if err := printTokens(cfg.JWTSecret); err != nil {
			log.Fatalw("failed to issue tokens", "error", err)
		}
	} else {
		log.Warn("JWT_SECRET not set, skipping demo tokens")
	}

	log.Info("seeding completed successfully")
}

// seedCatalog replaces the demo medicines. COPY cannot upsert, so the refs
// are cleared first in the same transaction.
func seedCatalog(ctx context.Context, txm *postgres.TxManager, medicines []catalog.Medicine) error {
	refs := make([]string, 0, len(medicines))
	for _, m := range medicines {
		refs = append(refs, m.Ref)
	}
	err := postgres.NewBatchExecutor(txm).ExecuteBatch(ctx, []postgres.BatchQuery{
		{SQL: `DELETE FROM medicines WHERE ref = ANY($1)`, Args: []any{refs}},
	})
	if err != nil {
		return fmt.Errorf("clear demo medicines: %w", err)
	}

	n, err := catalog_repo.NewMedicineRepo(txm).BulkLoad(ctx, postgres.NewBatchInserter(txm), medicines)
	if err != nil {
		return err
	}
	logger.Info(ctx, "medicines loaded", "count", n)
	return nil
}

func seedAddresses(ctx context.Context, txm *postgres.TxManager, addresses []address.Address) error {
	queries := make([]postgres.BatchQuery, 0, len(addresses))
	for _, a := range addresses {
		queries = append(queries, postgres.BatchQuery{
			SQL: `
				INSERT INTO addresses (ref, owner_ref, label, line1, line2, city, state, postal_code, country, phone)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (ref) DO UPDATE SET
					owner_ref = EXCLUDED.owner_ref, label = EXCLUDED.label,
					line1 = EXCLUDED.line1, line2 = EXCLUDED.line2, city = EXCLUDED.city,
					state = EXCLUDED.state, postal_code = EXCLUDED.postal_code,
					country = EXCLUDED.country, phone = EXCLUDED.phone
			`,
			Args: []any{a.Ref, a.OwnerRef, a.Label, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.Phone},
		})
	}
	if err := postgres.NewBatchExecutor(txm).ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("upsert demo addresses: %w", err)
	}
	return nil
}

func printTokens(secret string) error {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(secret))
	users := []appctx.UserContext{
		{UserID: "cashier-1", Email: "cashier@rxpos.local", Roles: []string{"cashier"}, PharmacyID: demoPharmacy, BranchID: demoBranch},
		{UserID: "manager-1", Email: "manager@rxpos.local", Roles: []string{"cashier", "manager"}, PharmacyID: demoPharmacy, BranchID: demoBranch},
	}
	for _, u := range users {
		token, expires, err := jwtService.GenerateAccessToken(u)
		if err != nil {
			return err
		}
		fmt.Printf("%s (expires %s):\n%s\n\n", u.Email, expires.Format(time.RFC3339), token)
	}
	return nil
}

func demoMedicines(now time.Time) []catalog.Medicine {
	expiry := func(months int) *time.Time {
		t := now.AddDate(0, months, 0).Truncate(24 * time.Hour)
		return &t
	}
	cost := func(s string) *types.Money {
		m := types.MustMoney(s)
		return &m
	}

	return []catalog.Medicine{
		{Ref: "MED-AMOX-500", PharmacyRef: demoPharmacy, Name: "Amoxicillin 500mg", GenericName: "amoxicillin",
			Form: "capsule", PackSize: "21", Category: "antibiotics", Price: types.MustMoney("12.50"),
			CostPrice: cost("7.80"), Quantity: 120, ExpiryDate: expiry(18), BatchNumber: "AMX2301", Manufacturer: "Sandoz"},
		{Ref: "MED-PARA-500", PharmacyRef: demoPharmacy, Name: "Paracetamol 500mg", GenericName: "paracetamol",
			Form: "tablet", PackSize: "24", Category: "analgesics", Price: types.MustMoney("3.20"),
			CostPrice: cost("1.10"), Quantity: 400, ExpiryDate: expiry(30), BatchNumber: "PCM8812", Manufacturer: "GSK"},
		{Ref: "MED-IBU-400", PharmacyRef: demoPharmacy, Name: "Ibuprofen 400mg", GenericName: "ibuprofen",
			Form: "tablet", PackSize: "20", Category: "analgesics", Price: types.MustMoney("4.75"),
			CostPrice: cost("2.05"), Quantity: 250, ExpiryDate: expiry(24), BatchNumber: "IBU4410", Manufacturer: "Reckitt"},
		{Ref: "MED-METF-850", PharmacyRef: demoPharmacy, Name: "Metformin 850mg", GenericName: "metformin",
			Form: "tablet", PackSize: "60", Category: "diabetes", Price: types.MustMoney("8.90"),
			CostPrice: cost("4.60"), Quantity: 80, ExpiryDate: expiry(20), BatchNumber: "MTF0907", Manufacturer: "Teva"},
		{Ref: "MED-ATOR-20", PharmacyRef: demoPharmacy, Name: "Atorvastatin 20mg", GenericName: "atorvastatin",
			Form: "tablet", PackSize: "30", Category: "cardiovascular", Price: types.MustMoney("15.40"),
			CostPrice: cost("9.25"), Quantity: 60, ExpiryDate: expiry(16), BatchNumber: "ATV1123", Manufacturer: "Pfizer"},
		{Ref: "MED-SALB-INH", PharmacyRef: demoPharmacy, Name: "Salbutamol inhaler 100mcg", GenericName: "salbutamol",
			Form: "inhaler", PackSize: "200 doses", Category: "respiratory", Price: types.MustMoney("9.99"),
			Quantity: 35, ExpiryDate: expiry(12), BatchNumber: "SLB5530", Manufacturer: "GSK"},
		{Ref: "MED-CETI-10", PharmacyRef: demoPharmacy, Name: "Cetirizine 10mg", GenericName: "cetirizine",
			Form: "tablet", PackSize: "30", Price: types.MustMoney("5.60"),
			CostPrice: cost("2.40"), Quantity: 150, ExpiryDate: expiry(26), BatchNumber: "CTZ7719", Manufacturer: "UCB"},
		{Ref: "MED-ORS-SACH", PharmacyRef: demoPharmacy, Name: "Oral rehydration salts", GenericName: "oral rehydration salts",
			Form: "sachet", PackSize: "10", Category: "gastro", Price: types.MustMoney("2.30"),
			CostPrice: cost("0.90"), Quantity: 3, ExpiryDate: expiry(9), BatchNumber: "ORS0204", Manufacturer: "Dioralyte"},
	}
}

func demoAddresses() []address.Address {
	return []address.Address{
		{Ref: "ADDR-DEMO-1", OwnerRef: demoPharmacy, Label: "Home", Line1: "14 Elm Street", City: "Springfield",
			State: "IL", PostalCode: "62704", Country: "US", Phone: "+1-217-555-0142"},
		{Ref: "ADDR-DEMO-2", OwnerRef: demoPharmacy, Label: "Clinic", Line1: "220 Main Avenue", Line2: "Suite 3",
			City: "Springfield", State: "IL", PostalCode: "62701", Country: "US", Phone: "+1-217-555-0199"},
	}
}
