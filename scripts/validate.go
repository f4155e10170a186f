package main

import (
	"flag"
	"log"

	"luxtravel/internal/validation"
)

func main() {
	var baseURL string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.Parse()

	log.Printf("Starting API validation against: %s", baseURL)

	if err := validation.RunValidation(baseURL); err != nil {
		log.Fatalf("❌ Валидация не пройдена: %v", err)
	}

	log.Println("✅ Валидация успешно пройдена!")
}
