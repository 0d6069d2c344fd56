// Package storage defines the persistence contract behind every catalog service.
//
// Repository is the store adapter capability set: create, get, list, update and
// delete for one entity kind. The SQLite implementation lives in
// storage/sqlstore. Domain services depend only on this interface so their
// tests can substitute a fake repository.
package storage
