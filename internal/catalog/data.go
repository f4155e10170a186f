package catalog

import "luxtravel/internal/models"

// DefaultItems is the built-in catalog of destinations and experiences.
func DefaultItems() []models.CatalogItem {
	return []models.CatalogItem{
		{
			ID:          "safari-lodge",
			Kind:        models.KindDestination,
			Title:       "Luxury Safari Lodge",
			Location:    "Serengeti, Tanzania",
			Description: "Witness the great migration from a private lodge with panoramic views of the plains.",
			Price:       8500,
			PriceUnit:   models.PerWeek,
			Rating:      4.9,
			Image:       "/images/safari-lodge.jpg",
			Amenities:   []string{"Private game drives", "Infinity pool", "Spa", "All-inclusive dining"},
			Category:    "adventure",
		},
		{
			ID:          "marrakech-riad",
			Kind:        models.KindDestination,
			Title:       "Traditional Riad Experience",
			Location:    "Marrakech, Morocco",
			Description: "A restored riad in the heart of the medina with rooftop terraces and a private hammam.",
			Price:       4800,
			PriceUnit:   models.PerWeek,
			Rating:      4.8,
			Image:       "/images/marrakech-riad.jpg",
			Amenities:   []string{"Private hammam", "Rooftop terrace", "Cooking classes", "Souk tours"},
			Category:    "cultural",
		},
		{
			ID:          "cape-town-villa",
			Kind:        models.KindDestination,
			Title:       "Oceanfront Villa",
			Location:    "Cape Town, South Africa",
			Description: "A cliffside villa between Table Mountain and the Atlantic with a private chef.",
			Price:       6200,
			PriceUnit:   models.PerWeek,
			Rating:      4.7,
			Image:       "/images/cape-town-villa.jpg",
			Amenities:   []string{"Ocean views", "Private chef", "Wine tours", "Heated pool"},
			Category:    "luxury",
		},
		{
			ID:          "patagonia-lodge",
			Kind:        models.KindDestination,
			Title:       "Patagonia Wilderness Lodge",
			Location:    "Patagonia, Argentina & Chile",
			Description: "Glaciers, granite peaks and guided treks from a remote eco-lodge.",
			Price:       6800,
			PriceUnit:   models.PerWeek,
			Rating:      4.8,
			Image:       "/images/patagonia-lodge.jpg",
			Amenities:   []string{"Guided treks", "Glacier excursions", "Gourmet meals", "Fireside lounge"},
			Category:    "adventure",
		},
		{
			ID:          "costa-rica-villa",
			Kind:        models.KindDestination,
			Title:       "Rainforest Eco Villa",
			Location:    "Costa Rica",
			Description: "An open-air villa in the canopy with wildlife tours and a private plunge pool.",
			Price:       5200,
			PriceUnit:   models.PerWeek,
			Rating:      4.9,
			Image:       "/images/costa-rica-villa.jpg",
			Amenities:   []string{"Plunge pool", "Wildlife tours", "Yoga deck", "Organic dining"},
			Category:    "luxury",
		},
		{
			ID:          "new-york-penthouse",
			Kind:        models.KindDestination,
			Title:       "Manhattan Luxury Penthouse",
			Location:    "New York, USA",
			Description: "A full-floor penthouse overlooking Central Park with butler service.",
			Price:       2800,
			PriceUnit:   models.PerNight,
			Rating:      4.7,
			Image:       "/images/new-york-penthouse.jpg",
			Amenities:   []string{"Butler service", "Skyline terrace", "Private gym", "Chauffeur"},
			Category:    "luxury",
		},
		{
			ID:          "mediterranean-flavors",
			Kind:        models.KindExperience,
			Title:       "Mediterranean Flavors",
			Location:    "Italy & Greece",
			Description: "Olive groves of Tuscany and the vineyards of Santorini with private cooking classes.",
			Price:       8500,
			PriceUnit:   models.PerPerson,
			Rating:      4.8,
			Image:       "/images/mediterranean-flavors.jpg",
			Amenities:   []string{"Cooking classes", "Winery visits", "12 days"},
			Featured:    true,
			Category:    "culinary",
		},
		{
			ID:          "japanese-gastronomy",
			Kind:        models.KindExperience,
			Title:       "Japanese Gastronomy",
			Location:    "Tokyo, Kyoto & Osaka",
			Description: "Sushi masterclasses, sake tastings and Michelin-starred dining.",
			Price:       9200,
			PriceUnit:   models.PerPerson,
			Rating:      4.9,
			Image:       "/images/japanese-gastronomy.jpg",
			Amenities:   []string{"Sushi masterclass", "Sake tasting", "10 days"},
			Featured:    true,
			Category:    "culinary",
		},
		{
			ID:          "french-culinary-heritage",
			Kind:        models.KindExperience,
			Title:       "French Culinary Heritage",
			Location:    "Paris, Lyon & Bordeaux",
			Description: "Private chef experiences, market tours and renowned French wineries.",
			Price:       10500,
			PriceUnit:   models.PerPerson,
			Rating:      4.8,
			Image:       "/images/french-culinary-heritage.jpg",
			Amenities:   []string{"Private chef", "Market tours", "14 days"},
			Category:    "culinary",
		},
		{
			ID:          "spice-trail",
			Kind:        models.KindExperience,
			Title:       "Southeast Asian Spice Trail",
			Location:    "Thailand, Vietnam & Singapore",
			Description: "Street food tours, cooking classes and dining at Asia's best restaurants.",
			Price:       7800,
			PriceUnit:   models.PerPerson,
			Rating:      4.7,
			Image:       "/images/spice-trail.jpg",
			Amenities:   []string{"Street food tours", "Cooking classes", "15 days"},
			Category:    "culinary",
		},
	}
}

// DefaultAddOns is the add-on registry offered on every booking.
func DefaultAddOns() []models.AddOn {
	return []models.AddOn{
		{ID: "airport-transfer", Name: "Private Airport Transfer", Description: "Luxury vehicle with professional driver for seamless airport transfers", Price: 150, Category: "transfer"},
		{ID: "welcome-package", Name: "Premium Welcome Package", Description: "Champagne, gourmet treats, and personalized welcome amenities", Price: 120, Category: "upgrade"},
		{ID: "private-guide", Name: "Private Guide (Full Day)", Description: "Experienced local guide for personalized exploration", Price: 350, Category: "experience"},
		{ID: "spa-package", Name: "Luxury Spa Package", Description: "Rejuvenating spa treatments for two", Price: 280, Category: "experience"},
		{ID: "premium-insurance", Name: "Premium Travel Insurance", Description: "Comprehensive coverage including cancellation, medical, and luxury item protection", Price: 180, Category: "insurance"},
		{ID: "gourmet-dining", Name: "Private Dining Experience", Description: "Exclusive dining experience with personal chef", Price: 450, Category: "experience"},
		{ID: "helicopter-tour", Name: "Scenic Helicopter Tour", Description: "Breathtaking aerial views of your destination", Price: 800, Category: "experience"},
		{ID: "concierge-service", Name: "24/7 Personal Concierge", Description: "Dedicated concierge for all your needs throughout your stay", Price: 200, Category: "upgrade"},
	}
}
