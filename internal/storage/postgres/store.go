package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
//
// Семантика та же, что у in-memory реализации: валидация и вставка идут в
// одной транзакции, а уникальность email дополнительно страхует уникальный
// индекс в схеме. Порядок списков — порядок вставки (created_at ASC).
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &domain.DuplicateEmailError{Email: user.Email}
		}

		user.ID = uuid.NewString()
		user.CreatedAt = time.Now().UTC()
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUsers(ctx context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("id = ?", post.AuthorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &domain.UnknownAuthorError{AuthorID: post.AuthorID}
		}

		post.ID = uuid.NewString()
		post.CreatedAt = time.Now().UTC()
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0)
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&posts).Error
	return posts, err
}

func (s *Store) GetPostsByAuthorID(ctx context.Context, authorID string) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0)
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at ASC").
		Find(&posts).Error
	return posts, err
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Порядок проверок фиксированный: сначала автор, потом пост.
		var count int64
		if err := tx.Model(&domain.User{}).Where("id = ?", comment.AuthorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &domain.UnknownAuthorError{AuthorID: comment.AuthorID}
		}

		if err := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &domain.UnknownPostError{PostID: comment.PostID}
		}

		comment.ID = uuid.NewString()
		comment.CreatedAt = time.Now().UTC()
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) GetCommentsByAuthorID(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	users := make([]*domain.User, 0)
	// Загружаем всех пользователей одним запросом
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]*domain.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
