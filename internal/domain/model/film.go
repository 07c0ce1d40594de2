// Пакет model — доменные модели Posmotrim API.
package model

// Film — фильм из каталога Кинопоиска.
// Записи создаются только офлайн-загрузчиком и в работающем сервисе неизменяемы.
type Film struct {
	// KinopoiskID — внешний идентификатор Кинопоиска, первичный ключ
	KinopoiskID int64 `json:"kinopoisk_id"`
	// Name — название фильма
	Name string `json:"name"`
	// Slogan — слоган (может отсутствовать)
	Slogan *string `json:"slogan"`
	// Description — описание (может отсутствовать)
	Description *string `json:"description"`
	// Genres — упорядоченный список жанров
	Genres []string `json:"genres"`
	// RatingIMDB — рейтинг IMDB (может отсутствовать)
	RatingIMDB *float64 `json:"rating_imdb"`
	// Year — год выхода
	Year int `json:"year"`
	// FilmLength — длительность в минутах (может отсутствовать)
	FilmLength *int `json:"film_length"`
	// CloseFilmIDs — предвычисленный список kinopoisk_id похожих фильмов
	CloseFilmIDs []int64 `json:"close_film_ids"`
}
