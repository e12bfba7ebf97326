package sql

// UniqueViolation exposes uniqueViolation to external tests.
var UniqueViolation = uniqueViolation
