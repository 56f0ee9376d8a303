package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	common_models "go-viz/internal/common/models"
	"go-viz/internal/config"
	"go-viz/internal/database"
	"go-viz/internal/features/dataset"
	"go-viz/internal/logger"
	"go-viz/pkg/utils"

	"go.uber.org/zap"
)

var (
	regions   = []string{"North", "South", "East", "West"}
	countries = map[string][]string{
		"North": {"Norway", "Sweden"},
		"South": {"Spain", "Italy"},
		"East":  {"Poland", "Romania"},
		"West":  {"France", "Portugal"},
	}
	products = []string{"Laptop", "Monitor", "Keyboard", "Mouse", "Headset"}
)

// seed creates a demo "Orders" dataset with generated sample rows so a chart
// session can be opened right away, and prints a bearer token for the user.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	userID := flag.String("user", "demo", "user id for the printed bearer token")
	tokenTTL := flag.Duration("token-ttl", 72*time.Hour, "lifetime of the printed bearer token")
	flag.Parse()

	l, err := logger.Build(cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		l.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer db.Client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		l.Warn("failed to ensure indexes", zap.Error(err))
	}

	service := dataset.NewDatasetService(dataset.NewDatasetRepository(db), dataset.NewSQLSchemaReader(), l)
	ds, err := service.Create(ctx, dataset.CreateDatasetRequest{
		Name: "Orders",
		Columns: []common_models.Column{
			{ID: "order_date", Name: "Order Date", Type: common_models.FieldTypeDate},
			{ID: "region", Name: "Region", Type: common_models.FieldTypeText},
			{ID: "country", Name: "Country", Type: common_models.FieldTypeText},
			{ID: "product", Name: "Product", Type: common_models.FieldTypeText},
			{ID: "quantity", Name: "Quantity", Type: common_models.FieldTypeNumber},
			{ID: "sales", Name: "Sales", Type: common_models.FieldTypeNumber},
		},
		Rows: demoRows(500),
	})
	if err != nil {
		l.Fatal("failed to seed dataset", zap.Error(err))
	}

	fmt.Printf("Seeded dataset %q (%s) with %d rows\n", ds.Name, ds.ID.Hex(), ds.RowCount)

	utils.SetSecret(cfg.JWTSecret)
	token, err := utils.GenerateToken(*userID, *tokenTTL)
	if err != nil {
		l.Fatal("failed to generate token", zap.Error(err))
	}
	fmt.Printf("Bearer token for %q:\n%s\n", *userID, token)
}

func demoRows(n int) []map[string]any {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]map[string]any, 0, n)
	for range n {
		region := regions[rng.Intn(len(regions))]
		quantity := 1 + rng.Intn(10)
		rows = append(rows, map[string]any{
			"order_date": start.AddDate(0, 0, rng.Intn(365)).Format("2006-01-02"),
			"region":     region,
			"country":    countries[region][rng.Intn(2)],
			"product":    products[rng.Intn(len(products))],
			"quantity":   quantity,
			"sales":      float64(quantity) * (20 + rng.Float64()*480),
		})
	}
	return rows
}
