package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"jobmarket/internal/app"
	"jobmarket/internal/config"
	"jobmarket/internal/domain/listing"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	defer a.Close()

	ctx := session.WithPrincipal(context.Background(), session.System())

	log.Println("Cleaning old data...")
	a.DB.Exec("DELETE FROM document_fields")
	a.DB.Exec("DELETE FROM documents")

	// ================== USERS ==================
	log.Println("Creating users...")

	admin := createUser(ctx, a, "admin@jobmarket.local", "admin123", "Yönetici", "+90 212 555 00 00", session.RoleEmployer)
	if err := a.Profiles.SetRole(ctx, admin.ID, session.RoleAdmin); err != nil {
		log.Fatal(err)
	}
	log.Println("Admin created: admin@jobmarket.local / admin123")

	employers := []*profile.Profile{
		createUser(ctx, a, "ik@acme.local", "employer123", "Acme İnsan Kaynakları", "+90 212 555 01 01", session.RoleEmployer),
		createUser(ctx, a, "kariyer@defter.local", "employer123", "Defter A.Ş.", "+90 312 555 02 02", session.RoleEmployer),
	}
	log.Println("Employers created: ik@acme.local, kariyer@defter.local / employer123")

	seekers := []*profile.Profile{
		createUser(ctx, a, "ayse@mail.local", "seeker123", "Ayşe Yılmaz", "+90 532 555 10 10", session.RoleJobseeker),
		createUser(ctx, a, "mehmet@mail.local", "seeker123", "Mehmet Demir", "+90 533 555 11 11", session.RoleJobseeker),
		// no phone yet, so applying is refused until the profile is completed
		createUser(ctx, a, "zeynep@mail.local", "seeker123", "Zeynep Kaya", "", session.RoleJobseeker),
	}
	log.Println("Jobseekers created: ayse@, mehmet@, zeynep@mail.local / seeker123")

	// ================== LISTINGS ==================
	log.Println("Creating listings...")

	drafts := []struct {
		draft  listing.Draft
		status listing.Status
		active bool
	}{
		{listing.Draft{
			Title: "Backend Developer (Go)", Company: "Acme", Description: "Go ve PostgreSQL ile ölçeklenebilir servisler geliştirme.",
			Salary: "80.000 - 110.000 TL", CityID: "34", District: "Kadıköy", JobTypeID: "full-time", WorkPreferenceID: "hybrid",
			SectorID: "software", PositionID: "backend-developer", ExperienceLevelID: "mid",
		}, listing.StatusApproved, true},
		{listing.Draft{
			Title: "Kıdemli Muhasebe Uzmanı", Company: "Defter A.Ş.", Description: "Aylık kapanış, raporlama ve vergi beyannameleri.",
			CityID: "06", District: "Çankaya", JobTypeID: "full-time", WorkPreferenceID: "onsite",
			SectorID: "finance", PositionID: "accountant", ExperienceLevelID: "senior",
		}, listing.StatusApproved, true},
		{listing.Draft{
			Title: "Yarı Zamanlı Destek Uzmanı", Company: "Acme", Description: "Müşteri taleplerini e-posta ve telefonla yanıtlama.",
			CityID: "35", JobTypeID: "part-time", WorkPreferenceID: "remote",
			SectorID: "software", ExperienceLevelID: "junior",
		}, listing.StatusPending, true},
		{listing.Draft{
			Title: "Stajyer Analist", Company: "Defter A.Ş.", Description: "Finansal tabloların hazırlanmasına destek.",
			CityID: "16", JobTypeID: "internship",
			SectorID: "finance", ExperienceLevelID: "entry",
		}, listing.StatusRejected, true},
		{listing.Draft{
			Title: "Frontend Developer", Company: "Acme", Description: "React ile yönetim paneli geliştirme.",
			CityID: "34", District: "Beşiktaş", JobTypeID: "full-time", WorkPreferenceID: "remote",
			SectorID: "software", ExperienceLevelID: "mid",
		}, listing.StatusApproved, false},
	}

	var approved []*listing.Listing
	for i, d := range drafts {
		employer := employers[i%len(employers)]
		l, err := a.Listings.CreateListing(ctx, d.draft, employer.ID)
		if err != nil {
			log.Fatalf("listing %q: %v", d.draft.Title, err)
		}
		if d.status != listing.StatusPending {
			if err := a.Listings.SetModerationStatus(ctx, l.ID, d.status, admin.ID); err != nil {
				log.Fatal(err)
			}
		}
		if !d.active {
			if err := a.Listings.SetActive(ctx, l.ID, false, employer.ID); err != nil {
				log.Fatal(err)
			}
		}
		if d.status == listing.StatusApproved && d.active {
			approved = append(approved, l)
		}
		log.Printf("Listing %q: status=%s active=%t", l.Title, d.status, d.active)
	}

	// ================== APPLICATIONS & FAVORITES ==================
	log.Println("Creating applications and favorites...")

	for i, seeker := range seekers[:2] {
		l := approved[i%len(approved)]
		if _, err := a.Coordinator.Apply(ctx, l.ID, seeker.ID); err != nil {
			log.Fatalf("apply %s -> %s: %v", seeker.Email, l.ID, err)
		}
		if _, err := a.Favorites.Add(ctx, seeker.ID, l.ID); err != nil {
			log.Fatal(err)
		}
	}
	a.Coordinator.Wait()

	fmt.Println("\n🎉 Seed completed successfully!")
	fmt.Printf("Listings: %d (%d visible)\n", len(drafts), len(approved))
}

func createUser(ctx context.Context, a *app.App, email, password, name, phone string, role session.Role) *profile.Profile {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}
	p, err := a.Profiles.Create(ctx, profile.CreateInput{
		Email:        email,
		DisplayName:  name,
		Phone:        phone,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		log.Fatalf("user %s: %v", email, err)
	}
	return p
}
