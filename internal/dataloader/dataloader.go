package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID *dataloader.Loader
}

// Attach создает свежие лоадеры и кладет их в контекст. Лоадеры живут не
// дольше одного запроса, поэтому межзапросного кеширования нет: каждый запрос
// читает актуальное состояние хранилища.
func Attach(ctx context.Context, store storage.Storage) context.Context {
	// Батч-функция: один вызов хранилища на пачку ID авторов.
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = k.String()
		}

		usersMap, err := store.GetUsersByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результаты в том же порядке, что и ключи. Отсутствующий
		// пользователь — это повисшая ссылка, ошибка уровня поля.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if u, ok := usersMap[id]; ok {
				results[i] = &dataloader.Result{Data: u}
			} else {
				results[i] = &dataloader.Result{Error: &domain.DanglingReferenceError{Field: "author", ID: id}}
			}
		}
		return results
	}

	loaders := &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
	return context.WithValue(ctx, key, loaders)
}

// Middleware для внедрения лоадеров в контекст HTTP-запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(Attach(r.Context(), store)))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

// LoadUser загружает пользователя по ID через батч-лоадер запроса.
func LoadUser(ctx context.Context, id string) (*domain.User, error) {
	thunk := For(ctx).UserByID.Load(ctx, dataloader.StringKey(id))
	result, err := thunk()
	if err != nil {
		return nil, err
	}
	return result.(*domain.User), nil
}
