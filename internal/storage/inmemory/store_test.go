package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// newTestStore создает хранилище и одного пользователя для тестов
func newTestStore(t *testing.T) (*Store, *domain.User) {
	store := New()
	ctx := context.Background()
	user, err := store.CreateUser(ctx, &domain.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	return store, user
}

func TestStore_CreateAndGetUser(t *testing.T) {
	store, user := newTestStore(t)
	ctx := context.Background()

	assert.NotEmpty(t, user.ID)

	retrieved, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", retrieved.Email)

	_, err = store.GetUserByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &domain.User{Name: "Other Ann", Email: "ann@example.com"})
	require.Error(t, err)

	var dup *domain.DuplicateEmailError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "ann@example.com", dup.Email)

	// Отклоненная мутация не трогает коллекцию
	users, err := store.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_CreateUser_ConcurrentSameEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	// Проверка уникальности и вставка — одна критическая секция:
	// из N одновременных попыток с одним email проходит ровно одна.
	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateUser(ctx, &domain.User{Name: "Ann", Email: "race@example.com"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	users, err := store.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_CreatePost_UnknownAuthor(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, &domain.Post{Title: "t", Body: "b", AuthorID: "missing"})
	require.Error(t, err)

	var unknown *domain.UnknownAuthorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.AuthorID)

	posts, err := store.GetPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStore_CreateComment_ChecksAuthorBeforePost(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Невалидны оба внешних ключа — ошибка детерминированно про автора.
	_, err := store.CreateComment(ctx, &domain.Comment{Text: "hi", PostID: "missing-post", AuthorID: "missing-user"})
	require.Error(t, err)

	var unknownAuthor *domain.UnknownAuthorError
	assert.ErrorAs(t, err, &unknownAuthor)
}

func TestStore_CreateComment_UnknownPost(t *testing.T) {
	store, user := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateComment(ctx, &domain.Comment{Text: "hi", PostID: "missing-post", AuthorID: user.ID})
	require.Error(t, err)

	var unknownPost *domain.UnknownPostError
	require.ErrorAs(t, err, &unknownPost)
	assert.Equal(t, "missing-post", unknownPost.PostID)
}

func TestStore_ReverseRelations(t *testing.T) {
	store, ann := newTestStore(t)
	ctx := context.Background()

	bob, err := store.CreateUser(ctx, &domain.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	// Чередуем авторов, чтобы убедиться, что фильтр не зависит от порядка
	// вставки чужих постов.
	p1, err := store.CreatePost(ctx, &domain.Post{Title: "P1", Body: "b", AuthorID: ann.ID})
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, &domain.Post{Title: "Bob's", Body: "b", AuthorID: bob.ID})
	require.NoError(t, err)
	p2, err := store.CreatePost(ctx, &domain.Post{Title: "P2", Body: "b", AuthorID: ann.ID})
	require.NoError(t, err)

	annPosts, err := store.GetPostsByAuthorID(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, annPosts, 2)
	assert.Equal(t, p1.ID, annPosts[0].ID)
	assert.Equal(t, p2.ID, annPosts[1].ID)

	c1, err := store.CreateComment(ctx, &domain.Comment{Text: "c1", PostID: p1.ID, AuthorID: bob.ID})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{Text: "c2", PostID: p2.ID, AuthorID: bob.ID})
	require.NoError(t, err)

	p1Comments, err := store.GetCommentsByPostID(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, p1Comments, 1)
	assert.Equal(t, c1.ID, p1Comments[0].ID)

	bobComments, err := store.GetCommentsByAuthorID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, bobComments, 2)
}

func TestStore_ListsPreserveInsertionOrder(t *testing.T) {
	store, user := newTestStore(t)
	ctx := context.Background()

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		_, err := store.CreatePost(ctx, &domain.Post{Title: title, Body: "b", AuthorID: user.ID})
		require.NoError(t, err)
	}

	posts, err := store.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for i, title := range titles {
		assert.Equal(t, title, posts[i].Title)
	}
}

func TestStore_GetUsersByIDs(t *testing.T) {
	store, ann := newTestStore(t)
	ctx := context.Background()

	bob, err := store.CreateUser(ctx, &domain.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	users, err := store.GetUsersByIDs(ctx, []string{ann.ID, bob.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, ann.ID, users[ann.ID].ID)
	// Отсутствующий ID просто не попадает в карту
	_, ok := users["missing"]
	assert.False(t, ok)
}
