package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/handler"

	"github.com/mkorobeinikov/graphql-blog-service/graph"
	"github.com/mkorobeinikov/graphql-blog-service/internal/dataloader"
	"github.com/mkorobeinikov/graphql-blog-service/internal/domain"
	"github.com/mkorobeinikov/graphql-blog-service/internal/graphqlws"
	"github.com/mkorobeinikov/graphql-blog-service/internal/pubsub"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage/inmemory"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage/postgres"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.Parse()

	var store storage.Storage
	var err error

	log.Printf("Starting server with %s storage", *storageType)
	if *storageType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL must be set for postgres storage")
		}
		store, err = postgres.New(dsn)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
	} else {
		store = inmemory.New()
		// Заполним данными для тестов
		fillWithMockData(store)
	}

	resolver := graph.NewResolver(store, pubsub.NewBus())
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		log.Fatalf("failed to build schema: %v", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	srv := handler.New(&handler.Config{
		Schema:     &schema,
		Pretty:     true,
		Playground: true,
	})

	// Один и тот же обработчик отдает playground на GET и исполняет
	// запросы на POST; лоадеры внедряются на каждый запрос.
	api := dataloader.Middleware(store, srv)
	router.Handle("/", api)
	router.Handle("/query", api)
	router.Handle("/subscriptions", graphqlws.NewHandler(schema, store))

	log.Printf("connect to http://localhost:%s/ for GraphQL playground", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}

func fillWithMockData(s storage.Storage) {
	ctx := context.Background()

	age := 27
	ann, err := s.CreateUser(ctx, &domain.User{Name: "Ann", Email: "ann@example.com", Age: &age})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create user: %v", err)
	}

	bob, err := s.CreateUser(ctx, &domain.User{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create user: %v", err)
	}

	post, err := s.CreatePost(ctx, &domain.Post{
		Title:     "GraphQL subscriptions in Go",
		Body:      "Channels map onto subscription streams surprisingly well.",
		Published: true,
		AuthorID:  ann.ID,
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create post: %v", err)
	}

	_, err = s.CreateComment(ctx, &domain.Comment{
		Text:     "Looking forward to the follow-up.",
		PostID:   post.ID,
		AuthorID: bob.ID,
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create comment: %v", err)
	}

	log.Printf("Mock data filled successfully. Created post ID: %s", post.ID)
}
