package database

import (
	"context"
	"errors"
)

// ErrNotInitialized is returned when no database backend was registered.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresMirror         func() Mirror
	postgresRegisterReader func() RegisterReader
	postgresTemplateStore  func() TemplateStore
	postgresSessionStore   func() SessionStore
	postgresInitialized    bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	mirror func() Mirror,
	reader func() RegisterReader,
	templates func() TemplateStore,
	sessions func() SessionStore,
) {
	postgresMirror = mirror
	postgresRegisterReader = reader
	postgresTemplateStore = templates
	postgresSessionStore = sessions
	postgresInitialized = true
}

// ResetBackend forgets the registered backend.
func ResetBackend() {
	postgresMirror = nil
	postgresRegisterReader = nil
	postgresTemplateStore = nil
	postgresSessionStore = nil
	postgresInitialized = false
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetMirror returns the register mirror from the PostgreSQL backend
func GetMirror(_ context.Context) (Mirror, error) {
	if !postgresInitialized || postgresMirror == nil {
		return nil, ErrNotInitialized
	}
	return postgresMirror(), nil
}

// GetRegisterReader returns a RegisterReader from the PostgreSQL backend
func GetRegisterReader(_ context.Context) (RegisterReader, error) {
	if !postgresInitialized || postgresRegisterReader == nil {
		return nil, ErrNotInitialized
	}
	return postgresRegisterReader(), nil
}

// GetTemplateStore returns a TemplateStore from the PostgreSQL backend
func GetTemplateStore(_ context.Context) (TemplateStore, error) {
	if !postgresInitialized || postgresTemplateStore == nil {
		return nil, ErrNotInitialized
	}
	return postgresTemplateStore(), nil
}

// GetSessionStore returns a SessionStore from the PostgreSQL backend
func GetSessionStore(_ context.Context) (SessionStore, error) {
	if !postgresInitialized || postgresSessionStore == nil {
		return nil, ErrNotInitialized
	}
	return postgresSessionStore(), nil
}
