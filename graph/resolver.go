package graph

import (
	"github.com/mkorobeinikov/graphql-blog-service/internal/pubsub"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage"
)

// Resolver - это корневая структура резолвера.
// Она содержит все зависимости, которые нужны для выполнения запросов:
// хранилище для чтения/записи и шину событий для подписок.
type Resolver struct {
	Storage storage.Storage
	Bus     *pubsub.Bus
}

// NewResolver - конструктор корневого резолвера.
func NewResolver(store storage.Storage, bus *pubsub.Bus) *Resolver {
	return &Resolver{
		Storage: store,
		Bus:     bus,
	}
}
