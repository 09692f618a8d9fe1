package database

import "hongdating/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserReaction{},
		&models.UserBlock{},
		&models.MessageRequest{},
		&models.DailyMessageRequest{},
		&models.ChatRoom{},
		&models.Message{},
		&models.Post{},
		&models.PostReaction{},
		&models.Comment{},
		&models.Report{},
		&models.Complaint{},
		&models.DailyActiveUser{},
		&models.IcebreakerAnswer{},
		&models.UserFlag{},
		&models.PushSubscription{},
	}
}
