package repository

import (
	"errors"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether the error is a Postgres unique
// constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
