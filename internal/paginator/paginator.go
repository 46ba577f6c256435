// Package paginator разбивает списки на страницы так же, как это делают
// шаблоны блога: номера страниц с единицы, некорректный номер даёт первую
// страницу, номер больше последнего даёт последнюю.
package paginator

import (
	"strconv"

	"github.com/UkralStul/yatube/internal/storage"
)

// Page описывает одну страницу выдачи.
type Page[T any] struct {
	Items      []T
	Number     int
	NumPages   int
	TotalCount int
	PerPage    int
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOther() bool    { return p.NumPages > 1 }
func (p *Page[T]) Next() int         { return p.Number + 1 }
func (p *Page[T]) Previous() int     { return p.Number - 1 }
func (p *Page[T]) Len() int          { return len(p.Items) }

// Range возвращает номера всех страниц для навигации.
func (p *Page[T]) Range() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// ParseNumber разбирает параметр ?page=. Всё, что не является
// положительным числом, считается первой страницей.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// NumPages считает число страниц. Пустой список занимает одну страницу.
func NumPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// Args возвращает аргументы выборки для страницы number.
func Args(number, perPage int) storage.PaginationArgs {
	if number < 1 {
		number = 1
	}
	return storage.PaginationArgs{Limit: perPage, Offset: (number - 1) * perPage}
}

// Fetch загружает страницу через load. Если запрошенная страница за
// пределами выдачи, повторно загружается последняя.
func Fetch[T any](number, perPage int, load func(args storage.PaginationArgs) ([]T, int, error)) (*Page[T], error) {
	if number < 1 {
		number = 1
	}
	items, total, err := load(Args(number, perPage))
	if err != nil {
		return nil, err
	}

	numPages := NumPages(total, perPage)
	if number > numPages {
		number = numPages
		items, total, err = load(Args(number, perPage))
		if err != nil {
			return nil, err
		}
	}

	return &Page[T]{
		Items:      items,
		Number:     number,
		NumPages:   NumPages(total, perPage),
		TotalCount: total,
		PerPage:    perPage,
	}, nil
}
