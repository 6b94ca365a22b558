package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"case_track_go/config"
	"case_track_go/db"
	"case_track_go/models"
	"case_track_go/services"

	"golang.org/x/term"
)

func main() {
	cfg := config.Load()

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.OrganizationalUnit{}, &models.User{}, &models.Session{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("CI (login identifier): ")
	ci, _ := reader.ReadString('\n')
	ci = strings.TrimSpace(ci)

	fmt.Printf("Role (%s, %s, %s, %s) [%s]: ", models.RoleAdmin, models.RoleSupervisor, models.RoleOperator, models.RoleViewer, models.RoleViewer)
	role, _ := reader.ReadString('\n')
	role = strings.TrimSpace(role)
	if role == "" {
		role = models.RoleViewer
	}
	if !models.IsValidRole(role) {
		log.Fatalf("Invalid role %q", role)
	}

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println()

	if name == "" || email == "" || ci == "" || password == "" {
		log.Fatal("Name, email, CI and password are required")
	}
	if len(password) < 8 {
		log.Fatal("Password must be at least 8 characters long")
	}

	var existingUser models.User
	if err := db.DB.Where("email = ? OR ci = ?", email, ci).First(&existingUser).Error; err == nil {
		log.Fatalf("User with email %s or CI %s already exists", email, ci)
	}

	hashedPassword, err := services.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		CI:       ci,
		Password: hashedPassword,
		Role:     role,
		IsActive: true,
	}
	if err := db.DB.Create(user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("User created successfully!")
	fmt.Printf("  ID: %d\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  CI: %s\n", user.CI)
	fmt.Printf("  Role: %s\n", user.Role)
}
