package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const usage = `usage: cli <command> [flags]

commands:
  add-admin    -username NAME -password PASS
  add-service  -name NAME -price PRICE [-unit kg|item|load] [-description TEXT] [-unavailable]
  import-json  -dir DIR   load users, services, orders, notifications and forms from legacy JSON files
  export-json  -dir DIR   write the database out in the same JSON layout`

func main() {
	godotenv.Load()

	addAdminCmd := flag.NewFlagSet("add-admin", flag.ExitOnError)
	username := addAdminCmd.String("username", "", "Username for the new admin")
	password := addAdminCmd.String("password", "", "Password for the new admin")

	addServiceCmd := flag.NewFlagSet("add-service", flag.ExitOnError)
	svcName := addServiceCmd.String("name", "", "Service name")
	svcPrice := addServiceCmd.String("price", "", "Price per unit")
	svcUnit := addServiceCmd.String("unit", "kg", "Unit: kg, item or load")
	svcDesc := addServiceCmd.String("description", "", "Short description")
	svcUnavailable := addServiceCmd.Bool("unavailable", false, "Hide the service from customers")

	importCmd := flag.NewFlagSet("import-json", flag.ExitOnError)
	importDir := importCmd.String("dir", "./data", "Directory holding the legacy JSON files")

	exportCmd := flag.NewFlagSet("export-json", flag.ExitOnError)
	exportDir := exportCmd.String("dir", "./export", "Directory to write JSON files to")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "add-admin":
		addAdminCmd.Parse(os.Args[2:])
		if *username == "" || *password == "" {
			fmt.Println("username and password are required")
			addAdminCmd.PrintDefaults()
			os.Exit(1)
		}
		createAdmin(ctx, *username, *password)
	case "add-service":
		addServiceCmd.Parse(os.Args[2:])
		price, err := strconv.ParseFloat(*svcPrice, 64)
		if *svcName == "" || err != nil {
			fmt.Println("name and a numeric price are required")
			addServiceCmd.PrintDefaults()
			os.Exit(1)
		}
		createService(ctx, &models.Service{
			Name:        *svcName,
			Description: *svcDesc,
			Price:       price,
			Unit:        *svcUnit,
			Available:   !*svcUnavailable,
		})
	case "import-json":
		importCmd.Parse(os.Args[2:])
		importJSON(ctx, *importDir)
	case "export-json":
		exportCmd.Parse(os.Args[2:])
		exportJSON(ctx, *exportDir)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openStore() *store.Store {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./laundry.db"
	}
	// Open runs migrations, so the CLI works before the server ever started.
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func createAdmin(ctx context.Context, username, password string) {
	db := openStore()
	defer db.Close()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	if err := db.CreateAdmin(ctx, username, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	fmt.Printf("Admin '%s' created successfully.\n", username)
}

type serviceFlags struct {
	Name  string  `form:"name" validate:"required,max=100"`
	Price float64 `form:"price" validate:"gt=0"`
	Unit  string  `form:"unit" validate:"oneof=kg item load"`
}

func createService(ctx context.Context, svc *models.Service) {
	if errs := validation.Struct(serviceFlags{Name: svc.Name, Price: svc.Price, Unit: svc.Unit}); errs != nil {
		log.Fatalf("Invalid service: %s", validation.First(errs, "name", "price", "unit"))
	}
	db := openStore()
	defer db.Close()

	if err := db.CreateService(ctx, svc); err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	fmt.Printf("Service #%d '%s' created (%.2f per %s).\n", svc.ID, svc.Name, svc.Price, svc.Unit)
}

func importJSON(ctx context.Context, dir string) {
	db := openStore()
	defer db.Close()

	report, err := db.ImportLegacy(ctx, dir)
	if err != nil {
		log.Fatalf("Import failed, nothing was written: %v", err)
	}
	fmt.Printf("Imported %d users, %d admins, %d services, %d orders, %d notifications, %d forms (%d records skipped).\n",
		report.Users, report.Admins, report.Services, report.Orders, report.Notifications, report.Forms, report.Skipped)
}

func exportJSON(ctx context.Context, dir string) {
	db := openStore()
	defer db.Close()

	if err := db.ExportLegacy(ctx, dir); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("Exported database to %s\n", dir)
}
