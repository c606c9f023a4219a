package core

import "errors"

var ErrMissingConnectionType = errors.New("missing connection type")

type ConnectionParams struct {
	ID   ConnectionID
	Type string
	URL  string
}

// Expand returns a copy of the original parameters with expanded fields.
// Type and URL must expand without errors.
func (p *ConnectionParams) Expand() (*ConnectionParams, error) {
	typ, err := expand(p.Type)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, ErrMissingConnectionType
	}

	url, err := expand(p.URL)
	if err != nil {
		return nil, err
	}

	return &ConnectionParams{
		ID:   ConnectionID(expandOrDefault(string(p.ID))),
		Type: typ,
		URL:  url,
	}, nil
}
