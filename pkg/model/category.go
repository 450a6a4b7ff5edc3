package model

import (
	"encoding/json"
	"strings"
)

// Category is the closed set of challenge types.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryPhoto     Category = "photo"
	CategoryCulture   Category = "culture"
	CategoryHiking    Category = "hiking"
	CategoryNightlife Category = "nightlife"
	CategoryActivity  Category = "activity"
	CategoryOther     Category = "other"
)

// Categories lists the known categories in prompt order. Other is excluded.
var Categories = []Category{
	CategoryFood,
	CategoryPhoto,
	CategoryCulture,
	CategoryHiking,
	CategoryNightlife,
	CategoryActivity,
}

var categoryAliases = map[string]Category{
	"food":        CategoryFood,
	"foodie":      CategoryFood,
	"eat":         CategoryFood,
	"eating":      CategoryFood,
	"photo":       CategoryPhoto,
	"photos":      CategoryPhoto,
	"photography": CategoryPhoto,
	"culture":     CategoryCulture,
	"cultural":    CategoryCulture,
	"history":     CategoryCulture,
	"hiking":      CategoryHiking,
	"hike":        CategoryHiking,
	"hikes":       CategoryHiking,
	"nightlife":   CategoryNightlife,
	"night life":  CategoryNightlife,
	"night":       CategoryNightlife,
	"activity":    CategoryActivity,
	"activities":  CategoryActivity,
	"shopping":    CategoryActivity,
}

// ParseCategory normalizes a free-form type tag. Unknown tags become CategoryOther.
func ParseCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.Join(strings.Fields(key), " ")
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// UnmarshalJSON accepts any string and normalizes it.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}

// Difficulty is the closed set of challenge difficulties.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyAny    Difficulty = "any"
	DifficultyOther  Difficulty = "other"
)

// ParseDifficulty normalizes a difficulty string. Empty means any.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium", "moderate":
		return DifficultyMedium
	case "hard", "difficult", "challenging":
		return DifficultyHard
	case "", "any", "all", "none":
		return DifficultyAny
	default:
		return DifficultyOther
	}
}

// UnmarshalJSON accepts any string and normalizes it.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDifficulty(s)
	return nil
}
