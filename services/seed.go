package services

import (
	"log"
	"os"
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// SeedAdminFromEnv creates an admin user from environment variables.
// Only runs if ADMIN_CI and ADMIN_PASSWORD are set and no admin exists yet.
func SeedAdminFromEnv(db *gorm.DB) error {
	ci := os.Getenv("ADMIN_CI")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")
	name := os.Getenv("ADMIN_NAME")

	if ci == "" || password == "" {
		return nil
	}

	if name == "" {
		name = "Administrator"
	}
	if email == "" {
		email = "admin@localhost"
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("[SEED] Admin user already exists, skipping seed")
		return nil
	}

	var existingUser models.User
	if err := db.Where("ci = ?", ci).First(&existingUser).Error; err == nil {
		log.Printf("[SEED] User with CI %s already exists, skipping admin seed", ci)
		return nil
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		CI:       ci,
		Password: hashedPassword,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}

	log.Printf("[SEED] Created admin user: %s", ci)
	return nil
}

// SeedBaseUnits creates a starter set of organizational units when the units
// table is empty. Runs only when SEED_BASE_UNITS=true.
func SeedBaseUnits(db *gorm.DB) error {
	if os.Getenv("SEED_BASE_UNITS") != "true" {
		return nil
	}

	var count int64
	if err := db.Model(&models.OrganizationalUnit{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	units := []models.OrganizationalUnit{
		{Name: "Records Office", Kind: models.UnitKindInternal, InstitutionType: "agency"},
		{Name: "Legal Affairs", Kind: models.UnitKindInternal, InstitutionType: "agency"},
		{Name: "Operations", Kind: models.UnitKindInternal, InstitutionType: "agency"},
		{Name: "Regional Authority", Kind: models.UnitKindExternal, InstitutionType: "government"},
		{Name: "National Archive", Kind: models.UnitKindExternal, InstitutionType: "government"},
	}
	if err := db.Create(&units).Error; err != nil {
		return err
	}

	log.Printf("[SEED] Created %d base organizational units", len(units))
	return nil
}

// SeedDemoData creates one user per role and a handful of case files with
// movements, for local development. Runs only when SEED_DEMO_DATA=true and the
// case files table is empty. Demo passwords equal the CI.
func SeedDemoData(db *gorm.DB) error {
	if os.Getenv("SEED_DEMO_DATA") != "true" {
		return nil
	}

	var count int64
	if err := db.Model(&models.CaseFile{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var unit models.OrganizationalUnit
	if err := db.Order("id ASC").First(&unit).Error; err != nil {
		log.Println("[SEED] No organizational units present, skipping demo data")
		return nil
	}

	roles := []string{models.RoleSupervisor, models.RoleOperator, models.RoleViewer}
	users := make(map[string]models.User, len(roles))
	for _, role := range roles {
		ci := "demo-" + role
		var user models.User
		if err := db.Where("ci = ?", ci).First(&user).Error; err == nil {
			users[role] = user
			continue
		}
		hashedPassword, err := HashPassword(ci)
		if err != nil {
			return err
		}
		user = models.User{
			Name:     "Demo " + role,
			Email:    ci + "@localhost",
			CI:       ci,
			Password: hashedPassword,
			Role:     role,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		users[role] = user
	}

	operator := Actor{ID: users[models.RoleOperator].ID, Role: models.RoleOperator}
	samples := []CreateCaseFileInput{
		{
			DocumentType:   models.DocumentTypeOfficeMemo,
			DocumentNumber: "DEMO-001",
			IntakeChannel:  models.IntakeChannelMail,
			IntakeDate:     time.Now().AddDate(0, 0, -6),
			Reference:      "Annual records transfer",
			Urgency:        models.UrgencyCommon,
			FirstMovement: &AppendMovementInput{
				Kind:              models.MovementKindOutbound,
				MovementDate:      time.Now().AddDate(0, 0, -5),
				DestinationUnitID: unit.ID,
				Notes:             "Forwarded for review",
			},
		},
		{
			DocumentType:   models.DocumentTypeElectronic,
			DocumentNumber: "DEMO-002",
			IntakeChannel:  models.IntakeChannelElectronic,
			IntakeDate:     time.Now().AddDate(0, 0, -1),
			Reference:      "Urgent inspection request",
			Urgency:        models.UrgencyUrgent,
		},
		{
			DocumentType:   models.DocumentTypePhysical,
			DocumentNumber: "DEMO-003",
			IntakeChannel:  models.IntakeChannelPaper,
			IntakeDate:     time.Now().AddDate(0, 0, -12),
			Reference:      "Archived correspondence",
			Urgency:        models.UrgencyCommon,
		},
	}
	for _, input := range samples {
		if _, err := CreateCaseFile(db, operator, input); err != nil {
			return err
		}
	}

	log.Printf("[SEED] Created %d demo users and %d demo case files", len(roles), len(samples))
	return nil
}
