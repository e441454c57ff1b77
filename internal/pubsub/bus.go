package pubsub

import (
	"context"

	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// Bus — типизированный фасад над брокерами событий домена: один брокер для
// постов, один для комментариев. Топик комментария выводится из самой записи
// (из ее PostID), так что опубликовать комментарий не в тот топик нельзя.
type Bus struct {
	posts    *Broker[*domain.Post]
	comments *Broker[*domain.Comment]
}

// NewBus — конструктор шины событий.
func NewBus() *Bus {
	return &Bus{
		posts:    NewBroker[*domain.Post](),
		comments: NewBroker[*domain.Comment](),
	}
}

// PublishPost раздает созданный пост всем подписчикам на посты.
// Вызывается строго после коммита в хранилище.
func (b *Bus) PublishPost(post *domain.Post) {
	b.posts.Publish(PostCreated(), post)
}

// SubscribePosts — подписка на все новые посты.
func (b *Bus) SubscribePosts(ctx context.Context) <-chan *domain.Post {
	return b.posts.Subscribe(ctx, PostCreated())
}

// PublishComment раздает созданный комментарий подписчикам его поста.
func (b *Bus) PublishComment(comment *domain.Comment) {
	b.comments.Publish(CommentCreated(comment.PostID), comment)
}

// SubscribeComments — подписка на новые комментарии конкретного поста.
func (b *Bus) SubscribeComments(ctx context.Context, postID string) <-chan *domain.Comment {
	return b.comments.Subscribe(ctx, CommentCreated(postID))
}

// Subscribers возвращает число активных подписчиков топика (для тестов).
// Топики брокеров не пересекаются, поэтому сумма корректна для любого из них.
func (b *Bus) Subscribers(topic Topic) int {
	return b.posts.Subscribers(topic) + b.comments.Subscribers(topic)
}
