package graph

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/mkorobeinikov/graphql-blog-service/internal/dataloader"
	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
)

// NewSchema собирает GraphQL-схему поверх резолвера. Схема строится в
// рантайме: для каждого типа — закрытая таблица именованных полей, каждое
// поле привязано ровно к одному вызову хранилища или шины событий.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	// Сначала объявляем типы только со скалярными полями, поля-связи
	// добавляем ниже через AddFieldConfig: User и Post ссылаются друг на
	// друга, и в один литерал их не уложить.
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"age":   &graphql.Field{Type: graphql.Int},
		},
	})

	postType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"body":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"published": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	commentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Comment",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"text": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	// === Поля-связи ===
	// Обратные связи нигде не хранятся: каждая вычисляется на чтении
	// фильтром по внешнему ключу.

	userType.AddFieldConfig("posts", &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType))),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			user := p.Source.(*domain.User)
			return r.Storage.GetPostsByAuthorID(p.Context, user.ID)
		},
	})

	userType.AddFieldConfig("comments", &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(commentType))),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			user := p.Source.(*domain.User)
			return r.Storage.GetCommentsByAuthorID(p.Context, user.ID)
		},
	})

	postType.AddFieldConfig("author", &graphql.Field{
		Type: graphql.NewNonNull(userType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			// Автор грузится через батч-лоадер запроса: один поход в
			// хранилище на весь список постов.
			post := p.Source.(*domain.Post)
			return dataloader.LoadUser(p.Context, post.AuthorID)
		},
	})

	postType.AddFieldConfig("comments", &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(commentType))),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			post := p.Source.(*domain.Post)
			return r.Storage.GetCommentsByPostID(p.Context, post.ID)
		},
	})

	commentType.AddFieldConfig("post", &graphql.Field{
		Type: graphql.NewNonNull(postType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			comment := p.Source.(*domain.Comment)
			post, err := r.Storage.GetPostByID(p.Context, comment.PostID)
			if errors.Is(err, domain.ErrPostNotFound) {
				// Повисшая ссылка — ошибка только этого поля.
				return nil, &domain.DanglingReferenceError{Field: "post", ID: comment.PostID}
			}
			return post, err
		},
	})

	commentType.AddFieldConfig("author", &graphql.Field{
		Type: graphql.NewNonNull(userType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			comment := p.Source.(*domain.Comment)
			return dataloader.LoadUser(p.Context, comment.AuthorID)
		},
	})

	// === Input-типы ===

	createUserInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateUserInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"email": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"age":   &graphql.InputObjectFieldConfig{Type: graphql.Int},
		},
	})

	createPostInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreatePostInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"body":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"published": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Boolean)},
			"author":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
	})

	createCommentInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateCommentInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"text":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"post":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
			"author": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
	})

	// === Query ===

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"users": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Storage.GetUsers(p.Context)
				},
			},
			"user": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := r.Storage.GetUserByID(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrUserNotFound) {
						// Неизвестный ID — это null, а не ошибка.
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return user, nil
				},
			},
			"posts": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Storage.GetPosts(p.Context)
				},
			},
			"post": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					post, err := r.Storage.GetPostByID(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrPostNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return post, nil
				},
			},
		},
	})

	// === Mutation ===

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"data": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createUserInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data := p.Args["data"].(map[string]interface{})
					user := &domain.User{
						Name:  data["name"].(string),
						Email: data["email"].(string),
					}
					if v, ok := data["age"]; ok && v != nil {
						age := v.(int)
						user.Age = &age
					}
					// Подписки на пользователей нет — событие не публикуем.
					return r.Storage.CreateUser(p.Context, user)
				},
			},
			"createPost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"data": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createPostInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data := p.Args["data"].(map[string]interface{})
					post := &domain.Post{
						Title:     data["title"].(string),
						Body:      data["body"].(string),
						Published: data["published"].(bool),
						AuthorID:  data["author"].(string),
					}
					post, err := r.Storage.CreatePost(p.Context, post)
					if err != nil {
						return nil, err
					}
					// Публикация строго после коммита в хранилище:
					// подписчик, прочитав событие, уже видит пост в Store.
					r.Bus.PublishPost(post)
					return post, nil
				},
			},
			"createComment": &graphql.Field{
				Type: graphql.NewNonNull(commentType),
				Args: graphql.FieldConfigArgument{
					"data": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createCommentInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data := p.Args["data"].(map[string]interface{})
					comment := &domain.Comment{
						Text:     data["text"].(string),
						PostID:   data["post"].(string),
						AuthorID: data["author"].(string),
					}
					comment, err := r.Storage.CreateComment(p.Context, comment)
					if err != nil {
						return nil, err
					}
					r.Bus.PublishComment(comment)
					return comment, nil
				},
			},
		},
	})

	// === Subscription ===

	subscriptionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"post": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
				Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
					return pump(p, r.Bus.SubscribePosts(p.Context)), nil
				},
			},
			"comment": &graphql.Field{
				Type: graphql.NewNonNull(commentType),
				Args: graphql.FieldConfigArgument{
					"postId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
				Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
					postID := p.Args["postId"].(string)
					// Проверяем, существует ли пост, прежде чем подписываться.
					if _, err := r.Storage.GetPostByID(p.Context, postID); err != nil {
						if errors.Is(err, domain.ErrPostNotFound) {
							return nil, &domain.UnknownPostError{PostID: postID}
						}
						return nil, err
					}
					return pump(p, r.Bus.SubscribeComments(p.Context, postID)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        queryType,
		Mutation:     mutationType,
		Subscription: subscriptionType,
	})
}

// pump перекладывает события из типизированного канала шины в канал
// interface{}, который ожидает исполнитель подписок. Канал шины закрывается
// при отмене контекста операции, вслед за ним завершается и выходной канал.
func pump[T any](p graphql.ResolveParams, events <-chan T) chan interface{} {
	ch := make(chan interface{})
	go func() {
		defer close(ch)
		for event := range events {
			select {
			case ch <- event:
			case <-p.Context.Done():
				return
			}
		}
	}()
	return ch
}
