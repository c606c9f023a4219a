package adapters

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/builders"
)

// Register client
func init() {
	_ = register(&MySQL{}, "mysql", "mariadb")
}

var _ core.Adapter = (*MySQL)(nil)

type MySQL struct{}

func (m *MySQL) Connect(url string) (core.Driver, error) {
	cfg, err := mysql.ParseDSN(url)
	if err != nil {
		return nil, fmt.Errorf("could not parse db connection string: %w", err)
	}
	// scan DATE and DATETIME columns as time.Time instead of raw bytes
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mysql database: %w", err)
	}

	return builders.NewClient(sql.OpenDB(connector)), nil
}
