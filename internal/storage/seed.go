package storage

import (
	"context"
	"fmt"

	"github.com/hitoshi/propman/internal/model"
)

// runSeed はデモ用の初期データ（管理者ユーザー、物件3件、部屋3室）を投入する。
// 投入先はStoreインターフェース経由なので、両バックエンドで同一の内容になる。
func runSeed(ctx context.Context, s Store) error {
	_, err := s.CreateUser(ctx, CreateUserInput{
		Username: "admin",
		Password: "admin123",
		Email:    "admin@shalomhomes.com",
		Name:     "Admin",
		Phone:    "+1234567890",
		Role:     model.RoleOwner,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	properties := []CreatePropertyInput{
		{
			Name: "Shalom Heights", Address: "123 Shalom St", City: "Jerusalem",
			District: "Central District", Status: "active", Type: "apartment",
			Price: 1200, Bedrooms: 2, Bathrooms: 1, Size: 75,
			Latitude: 31.768319, Longitude: 35.213710,
		},
		{
			Name: "Garden Villas", Address: "456 Garden Ave", City: "Tel Aviv",
			District: "Central District", Status: "active", Type: "apartment",
			Price: 1450, Bedrooms: 3, Bathrooms: 2, Size: 95,
			Latitude: 32.0853, Longitude: 34.7818,
		},
		{
			Name: "Shalom Towers", Address: "789 Tower Rd", City: "Haifa",
			District: "Northern District", Status: "active", Type: "apartment",
			Price: 980, Bedrooms: 1, Bathrooms: 1, Size: 55,
			Latitude: 32.7940, Longitude: 34.9896,
		},
	}

	apartmentNumbers := []string{"302", "105", "501"}
	apartmentStatuses := []string{"occupied", "maintenance", "vacant"}

	for i, in := range properties {
		property, err := s.CreateProperty(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed property %q: %w", in.Name, err)
		}
		if _, err := s.CreateApartment(ctx, CreateApartmentInput{
			PropertyID: property.ID,
			Number:     apartmentNumbers[i],
			Status:     apartmentStatuses[i],
			Price:      in.Price,
		}); err != nil {
			return fmt.Errorf("failed to seed apartment for %q: %w", in.Name, err)
		}
	}

	return nil
}
