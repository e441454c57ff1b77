package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// Store реализует интерфейс Storage в памяти.
//
// Коллекции хранятся срезами, чтобы сохранить порядок вставки (он значим для
// списочных запросов); индексы по ID — отдельными map'ами. Обратные связи
// (посты пользователя, комментарии поста) нигде не материализуются —
// вычисляются проходом по срезу с фильтром по внешнему ключу.
type Store struct {
	mu       sync.RWMutex
	users    []*domain.User
	posts    []*domain.Post
	comments []*domain.Comment

	userByID    map[string]*domain.User
	postByID    map[string]*domain.Post
	userByEmail map[string]*domain.User
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		userByID:    make(map[string]*domain.User),
		postByID:    make(map[string]*domain.Post),
		userByEmail: make(map[string]*domain.User),
	}
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка уникальности email и вставка — одна критическая секция:
	// два одновременных createUser с одним email не пройдут оба.
	if _, taken := s.userByEmail[user.Email]; taken {
		return nil, &domain.DuplicateEmailError{Email: user.Email}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	s.users = append(s.users, user)
	s.userByID[user.ID] = user
	s.userByEmail[user.Email] = user
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.userByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userByID[post.AuthorID]; !ok {
		return nil, &domain.UnknownAuthorError{AuthorID: post.AuthorID}
	}

	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	s.posts = append(s.posts, post)
	s.postByID[post.ID] = post
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.postByID[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Post, len(s.posts))
	copy(out, s.posts)
	return out, nil
}

func (s *Store) GetPostsByAuthorID(ctx context.Context, authorID string) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Порядок проверок фиксированный: сначала автор, потом пост.
	// Если невалидны оба, клиент детерминированно получает ошибку автора.
	if _, ok := s.userByID[comment.AuthorID]; !ok {
		return nil, &domain.UnknownAuthorError{AuthorID: comment.AuthorID}
	}
	if _, ok := s.postByID[comment.PostID]; !ok {
		return nil, &domain.UnknownPostError{PostID: comment.PostID}
	}

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	s.comments = append(s.comments, comment)
	return comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCommentsByAuthorID(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if c.AuthorID == authorID {
			out = append(out, c)
		}
	}
	return out, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.userByID[id]; ok {
			results[id] = u
		}
	}
	return results, nil
}
