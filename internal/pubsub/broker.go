package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer — емкость канала подписчика. Publish никогда не блокирует
// публикующую мутацию: если подписчик не успевает читать и буфер полон,
// событие для этого подписчика молча пропускается.
const subscriberBuffer = 32

// Topic — именованный канал брокера. Значения создаются только
// конструкторами ниже, сырые строки наружу не выходят.
type Topic struct {
	name string
}

// PostCreated — единственный топик для новых постов.
func PostCreated() Topic {
	return Topic{name: "post"}
}

// CommentCreated — топик новых комментариев конкретного поста.
func CommentCreated(postID string) Topic {
	return Topic{name: "comment:" + postID}
}

// Broker — брокер publish/subscribe по топикам, без хранения пропущенных
// событий: подписчик видит только то, что опубликовано после его регистрации.
type Broker[T any] struct {
	mu sync.RWMutex
	//          topic        subscriberID
	subs map[Topic]map[string]chan T
}

// NewBroker создает пустой брокер.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[Topic]map[string]chan T),
	}
}

// Subscribe регистрирует подписчика на топик и возвращает канал событий.
// Регистрация не блокирует; при отмене ctx подписчик снимается с учета,
// а его канал закрывается (ни одной утечки слушателя).
func (b *Broker[T]) Subscribe(ctx context.Context, topic Topic) <-chan T {
	ch := make(chan T, subscriberBuffer)
	subID := uuid.NewString()

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]chan T)
	}
	b.subs[topic][subID] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if topicSubs, ok := b.subs[topic]; ok {
			delete(topicSubs, subID)
			if len(topicSubs) == 0 {
				delete(b.subs, topic)
			}
		}
		// Закрываем под тем же мьютексом, что исключает гонку
		// с отправкой из Publish.
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish синхронно раздает событие всем текущим подписчикам топика.
// Доставка каждому подписчику независима; порядок доставки в рамках одного
// топика совпадает с порядком вызовов Publish.
func (b *Broker[T]) Publish(topic Topic, event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Клиент не успевает читать — событие для него пропускаем,
			// мутацию это не касается.
		}
	}
}

// Subscribers возвращает число активных подписчиков топика (для тестов).
func (b *Broker[T]) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
