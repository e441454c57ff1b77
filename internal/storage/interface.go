package storage

import (
	"context"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// Storage определяет контракт для хранилищ.
//
// Списки всегда возвращаются в порядке вставки. Create-методы сами проводят
// валидацию (уникальность email, существование внешних ключей) и делают это
// атомарно с самой вставкой: между проверкой и записью не может вклиниться
// другая мутация.
type Storage interface {
	GetUsers(ctx context.Context) ([]*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	GetPosts(ctx context.Context) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPostsByAuthorID(ctx context.Context, authorID string) ([]*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)

	GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error)
	GetCommentsByAuthorID(ctx context.Context, authorID string) ([]*domain.Comment, error)
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)

	// Метод для Dataloader'а: пачка пользователей по списку ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
}
