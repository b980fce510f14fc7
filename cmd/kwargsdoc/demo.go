package main

import (
	"context"
	"net/http"
	"reflect"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

// Book is the resource served by the demo application
type Book struct {
	ID        uuid.UUID       `json:"id,omitempty"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Price     decimal.Decimal `json:"price"`
	Published *civil.Date     `json:"published,omitempty"`
}

type library struct {
	mu    sync.RWMutex
	books map[uuid.UUID]Book
}

func newLibrary() *library {
	return &library{books: map[uuid.UUID]Book{}}
}

func (l *library) list(author *string, offset, limit int) []Book {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Book, 0, len(l.books))
	for _, b := range l.books {
		if author == nil || b.Author == *author {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if offset >= len(out) {
		return []Book{}
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

type Paging struct {
	Offset int `kwarg:"query,default=0,ge=0"`
	Limit  int `kwarg:"query,default=20,ge=1,le=100,description='page size'"`
}

type listBooksInput struct {
	Paging
	Author *string `kwarg:"query,description='filter by author'"`
}

type bookInput struct {
	ID uuid.UUID `kwarg:"path"`
}

// newDemoApp builds the book library served and documented by kwargsdoc
func newDemoApp(cfg *app.Config, opts ...app.Option) (*app.App, error) {
	lib := newLibrary()
	opts = append(opts,
		app.WithProvider("library", app.Value(lib)),
		app.WithLayeredParameters(signature.Parameter{
			Name:       "requestID",
			Annotation: kwargs.Optional(kwargs.TypeOf[uuid.UUID]()),
			Default:    kwargs.Header("X-Request-ID", kwargs.Description("correlation id")),
		}),
	)
	a := app.New(cfg, app.NewLogger(cfg), opts...)

	list, err := app.Typed("listBooks", func(_ context.Context, in listBooksInput) ([]Book, error) {
		return lib.list(in.Author, in.Offset, in.Limit), nil
	})
	if err != nil {
		return nil, err
	}
	list.Summary = "List books"

	get, err := app.Typed("getBook", func(_ context.Context, in bookInput) (*Book, error) {
		lib.mu.RLock()
		defer lib.mu.RUnlock()
		b, ok := lib.books[in.ID]
		if !ok {
			return nil, kwargs.ErrNotFound("book not found")
		}
		return &b, nil
	})
	if err != nil {
		return nil, err
	}
	get.Summary = "Fetch one book"

	create := app.Handler{
		Name:    "createBook",
		Summary: "Add a book",
		Parameters: []signature.Parameter{
			{Name: "data", Annotation: kwargs.TypeOf[Book]()},
			{Name: "library", Annotation: kwargs.TypeOf[*library]()},
		},
		ReturnType: reflect.TypeOf((*Book)(nil)).Elem(),
		Func: func(_ context.Context, values kwargs.Kwargs) (any, error) {
			b := values["data"].(Book)
			if b.ID == uuid.Nil {
				b.ID = uuid.New()
			}
			l := values["library"].(*library)
			l.mu.Lock()
			defer l.mu.Unlock()
			l.books[b.ID] = b
			return kwargs.Created(b).WithHeader("Location", "/books/"+b.ID.String()), nil
		},
	}

	remove := app.Handler{
		Name:    "deleteBook",
		Summary: "Remove a book",
		Parameters: []signature.Parameter{
			{Name: "id", Annotation: kwargs.TypeOf[uuid.UUID]()},
			{Name: "library", Annotation: kwargs.TypeOf[*library]()},
		},
		Func: func(_ context.Context, values kwargs.Kwargs) (any, error) {
			l := values["library"].(*library)
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.books, values["id"].(uuid.UUID))
			return nil, nil
		},
	}

	for _, r := range []struct {
		method, path string
		handler      app.Handler
	}{
		{http.MethodGet, "/books", list},
		{http.MethodPost, "/books", create},
		{http.MethodGet, "/books/{id:uuid}", get},
		{http.MethodDelete, "/books/{id:uuid}", remove},
	} {
		if _, err := a.Handle(r.method, r.path, r.handler); err != nil {
			return nil, err
		}
	}
	return a, nil
}
