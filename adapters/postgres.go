package adapters

import (
	"database/sql"
	"fmt"
	nurl "net/url"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/builders"
)

// Register client
func init() {
	_ = register(&Postgres{}, "postgres", "postgresql", "pg")
}

var _ core.Adapter = (*Postgres)(nil)

type Postgres struct{}

func (p *Postgres) Connect(url string) (core.Driver, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("could not parse db connection string: %w", err)
	}

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres database: %w", err)
	}

	return builders.NewClient(db,
		builders.WithBytesProcessor(parseTextUUID, "uuid"),
		builders.WithBytesProcessor(func(b []byte) any { return string(b) }, "json", "jsonb"),
	), nil
}

// parseTextUUID parses uuids returned in their textual form.
func parseTextUUID(b []byte) any {
	id, err := uuid.ParseBytes(b)
	if err != nil {
		return string(b)
	}
	return id
}
