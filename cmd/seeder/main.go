package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/ingressos/disparador-backend/internal/config"
	"github.com/ingressos/disparador-backend/internal/db"
	"github.com/ingressos/disparador-backend/internal/model"
	"github.com/ingressos/disparador-backend/internal/repository"
)

// Seeds the schema plus a handful of demo customers for local development.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	customers := []*model.Customer{
		{Name: "Ana Souza", Phone: "11987654321", Email: "ana@example.com"},
		{Name: "Bruno Lima", Phone: "21912345678", Email: "bruno@example.com"},
		{Name: "Carla Mendes", Phone: "5511998877665", Email: "carla@example.com"},
		{Name: "Diego Alves", Phone: "31955544332", Email: "diego@example.com"},
		{Name: "Elisa Rocha", Phone: "123456789012345", Email: "elisa@example.com"},
	}

	repo := &repository.CustomerRepository{DB: conn}
	for _, c := range customers {
		if err := repo.Create(c); err != nil {
			log.Fatal().Err(err).Str("name", c.Name).Msg("failed to seed customer")
		}
		log.Info().Str("id", c.ID).Str("name", c.Name).Msg("seeded customer")
	}

	log.Info().Msg("database seeding completed")
}
