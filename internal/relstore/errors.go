package relstore

import "errors"

var ErrPostgresUnreachable = errors.New("postgres server unreachable")
