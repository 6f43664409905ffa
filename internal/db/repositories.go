package db

import "gorm.io/gorm"

type Repositories struct {
	Users     *UserRepository
	Templates *TemplateRepository
	Trackers  *TrackerRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:     NewUserRepository(database),
		Templates: NewTemplateRepository(database),
		Trackers:  NewTrackerRepository(database),
	}
}
