package model

import "time"

type Post struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	CompletionID string    `gorm:"uniqueIndex;not null" json:"completion_id"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Author     *UserProfile     `gorm:"foreignKey:UserID" json:"-"`
	Completion *QuestCompletion `gorm:"foreignKey:CompletionID" json:"-"`
}

type Like struct {
	PostID    string    `gorm:"primaryKey" json:"post_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Follow struct {
	FollowerID  string    `gorm:"primaryKey" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// All lists every migrated model.
func All() []interface{} {
	return []interface{}{
		&UserProfile{},
		&Quest{},
		&QuestCompletion{},
		&Post{},
		&Like{},
		&Follow{},
	}
}
