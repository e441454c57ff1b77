package domain

import "time"

// User представляет пользователя в системе.
type User struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Post представляет пост в системе. Автор хранится только как внешний ключ;
// обратная связь (посты пользователя) вычисляется на чтении.
type Post struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Published bool      `json:"published" gorm:"not null;default:false"`
	AuthorID  string    `json:"author" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Text      string    `json:"text" gorm:"type:varchar(2000);not null"`
	PostID    string    `json:"post" gorm:"type:uuid;not null;index"`
	AuthorID  string    `json:"author" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}
