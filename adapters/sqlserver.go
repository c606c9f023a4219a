package adapters

import (
	"database/sql"
	"fmt"
	nurl "net/url"

	"github.com/google/uuid"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/core/builders"
)

// Register client
func init() {
	_ = register(&SQLServer{}, "sqlserver", "mssql")
}

var _ core.Adapter = (*SQLServer)(nil)

type SQLServer struct{}

func (s *SQLServer) Connect(url string) (core.Driver, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("could not parse db connection string: %w", err)
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("unable to connect to sqlserver database: %w", err)
	}

	return builders.NewClient(db,
		builders.WithBytesProcessor(parseMSSQLUUID, "uniqueidentifier"),
	), nil
}

// parseMSSQLUUID converts uniqueidentifier bytes, which sql server stores
// with the first three groups in little endian order.
func parseMSSQLUUID(b []byte) any {
	if len(b) != 16 {
		return string(b)
	}

	swapped := make([]byte, 16)
	copy(swapped, b)
	swapped[0], swapped[1], swapped[2], swapped[3] = b[3], b[2], b[1], b[0]
	swapped[4], swapped[5] = b[5], b[4]
	swapped[6], swapped[7] = b[7], b[6]

	id, err := uuid.FromBytes(swapped)
	if err != nil {
		return string(b)
	}
	return id
}
