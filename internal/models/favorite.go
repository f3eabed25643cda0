package models

import (
	"time"
)

// Favorite location categories
const (
	FavoriteHome     = "home"
	FavoriteWork     = "work"
	FavoriteHospital = "hospital"
	FavoriteOther    = "other"
)

type FavoriteLocation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateFavoriteRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=60"`
	Category string  `json:"category" validate:"required,oneof=home work hospital other"`
	Address  string  `json:"address" validate:"required"`
	Lat      float64 `json:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" validate:"longitude"`
}
