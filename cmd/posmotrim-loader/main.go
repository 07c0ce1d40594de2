// Точка входа офлайн-загрузчика каталога фильмов.
// Читает дампы Кинопоиска (films_data.csv и close_films.csv), применяет
// миграции и массово вставляет фильмы в таблицу films через pgx CopyFrom.
//
// Использование:
//
//	posmotrim-loader -films data/films_data.csv -close data/close_films.csv
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/posmotrim/posmotrim-api/internal/config"
	"github.com/posmotrim/posmotrim-api/internal/database"
	"github.com/posmotrim/posmotrim-api/internal/loader"
	"github.com/posmotrim/posmotrim-api/internal/repository"
)

func main() {
	filmsPath := flag.String("films", "films_data.csv", "путь к CSV с карточками фильмов")
	closePath := flag.String("close", "close_films.csv", "путь к CSV со списками похожих фильмов")
	skipMigrate := flag.Bool("skip-migrate", false, "не применять миграции перед загрузкой")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Загрузчик каталога фильмов запускается",
		slog.String("films", *filmsPath),
		slog.String("close", *closePath),
	)

	if !*skipMigrate {
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	filmRepo := repository.NewFilmRepository(pool)
	l := loader.New(filmRepo, logger)

	inserted, err := l.Load(ctx, *filmsPath, *closePath)
	if err != nil {
		logger.Error("Ошибка загрузки каталога", slog.String("error", err.Error()))
		os.Exit(1)
	}

	total, err := filmRepo.Count(ctx)
	if err != nil {
		logger.Error("Ошибка подсчёта каталога", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Загрузка каталога завершена",
		slog.Int64("inserted", inserted),
		slog.Int("total", total),
	)
}
