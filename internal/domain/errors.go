package domain

import (
	"errors"
	"fmt"
)

// Сентинели "не найдено" для слоя хранилища. Наружу (в GraphQL-ответ)
// они не выходят: резолверы переводят их либо в null, либо в типизированные
// ошибки ниже.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")
)

// DuplicateEmailError возвращается из createUser, если email уже занят.
// Сравнение строгое, с учетом регистра.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %s already taken", e.Email)
}

// Extensions отдает машинный код ошибки для GraphQL-ответа.
func (e *DuplicateEmailError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": "DUPLICATE_EMAIL", "email": e.Email}
}

// UnknownAuthorError возвращается из createPost/createComment, если автор
// не существует в коллекции пользователей.
type UnknownAuthorError struct {
	AuthorID string
}

func (e *UnknownAuthorError) Error() string {
	return fmt.Sprintf("no user found for ID %s", e.AuthorID)
}

func (e *UnknownAuthorError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": "UNKNOWN_AUTHOR", "author": e.AuthorID}
}

// UnknownPostError возвращается из createComment (и подписки на комментарии),
// если пост не существует.
type UnknownPostError struct {
	PostID string
}

func (e *UnknownPostError) Error() string {
	return fmt.Sprintf("no post found for ID %s", e.PostID)
}

func (e *UnknownPostError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": "UNKNOWN_POST", "post": e.PostID}
}

// DanglingReferenceError — защитная ошибка резолвера связей: внешний ключ
// есть, а запись по нему не находится. При соблюдении инвариантов записи
// такого не бывает; если случилось — ошибка остается на уровне поля,
// а не всего запроса.
type DanglingReferenceError struct {
	Field string // имя поля-связи, например "author"
	ID    string // значение внешнего ключа
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference in field %s: %s", e.Field, e.ID)
}

func (e *DanglingReferenceError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": "DANGLING_REFERENCE", "field": e.Field}
}
