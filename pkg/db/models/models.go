package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Vehicle{},
		&Reservation{},
		&Payment{},
		&Refund{},
		&Notification{},
		&Favorite{},
		&Bookmark{},
		&Testimonial{},
		&OpeningHour{},
	}
}
