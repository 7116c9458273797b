package models

import (
	"strings"
	"unicode"
)

// Category is the single classification derived from a provider's raw place tags
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategoryHotel      Category = "hotel"
	CategoryAttraction Category = "attraction"
	CategoryMuseum     Category = "museum"
	CategoryPark       Category = "park"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryRestaurant,
	CategoryHotel,
	CategoryAttraction,
	CategoryMuseum,
	CategoryPark,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the title-cased display name
func (c Category) Label() string {
	if c == "" {
		return "Other"
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// tagCategories maps provider place types to categories.
// Generic tags such as "point_of_interest" and "establishment" are deliberately absent
// so they never shadow a more specific tag later in the list.
var tagCategories = map[string]Category{
	"restaurant":         CategoryRestaurant,
	"cafe":               CategoryRestaurant,
	"coffee_shop":        CategoryRestaurant,
	"bar":                CategoryRestaurant,
	"bakery":             CategoryRestaurant,
	"food":               CategoryRestaurant,
	"meal_takeaway":      CategoryRestaurant,
	"meal_delivery":      CategoryRestaurant,
	"lodging":            CategoryHotel,
	"hotel":              CategoryHotel,
	"motel":              CategoryHotel,
	"hostel":             CategoryHotel,
	"resort_hotel":       CategoryHotel,
	"bed_and_breakfast":  CategoryHotel,
	"museum":             CategoryMuseum,
	"art_gallery":        CategoryMuseum,
	"park":               CategoryPark,
	"national_park":      CategoryPark,
	"state_park":         CategoryPark,
	"campground":         CategoryPark,
	"garden":             CategoryPark,
	"botanical_garden":   CategoryPark,
	"tourist_attraction": CategoryAttraction,
	"landmark":           CategoryAttraction,
	"amusement_park":     CategoryAttraction,
	"aquarium":           CategoryAttraction,
	"zoo":                CategoryAttraction,
	"stadium":            CategoryAttraction,
}

// nameKeywords is consulted in order when no tag is recognized
var nameKeywords = []struct {
	keyword  string
	category Category
}{
	{"restaurant", CategoryRestaurant},
	{"cafe", CategoryRestaurant},
	{"café", CategoryRestaurant},
	{"diner", CategoryRestaurant},
	{"bistro", CategoryRestaurant},
	{"hotel", CategoryHotel},
	{"inn", CategoryHotel},
	{"motel", CategoryHotel},
	{"hostel", CategoryHotel},
	{"museum", CategoryMuseum},
	{"gallery", CategoryMuseum},
	{"park", CategoryPark},
	{"garden", CategoryPark},
	{"gardens", CategoryPark},
}

// ClassifyTypes scans raw tags in order and returns the category of the first recognized one
func ClassifyTypes(types []string) Category {
	for _, t := range types {
		if c, ok := tagCategories[strings.ToLower(strings.TrimSpace(t))]; ok {
			return c
		}
	}
	return CategoryOther
}

// ClassifyName looks for category keywords among the words of a place name
func ClassifyName(name string) Category {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, kw := range nameKeywords {
		for _, w := range words {
			if w == kw.keyword {
				return kw.category
			}
		}
	}
	return CategoryOther
}

// Classify prefers tags and falls back to the name heuristic
func Classify(name string, types []string) Category {
	if c := ClassifyTypes(types); c != CategoryOther {
		return c
	}
	return ClassifyName(name)
}
