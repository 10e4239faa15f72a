// Package couchdb provides the CouchDB implementation of document.Store.
package couchdb

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

// Config holds connection settings. It is read-only once passed to New.
type Config struct {
	Host     string
	Port     int
	SSL      bool
	DBName   string
	User     string
	Password string

	// Timeout bounds every request including reading the response.
	Timeout time.Duration

	// FindPageSize is the page size FindAll requests per round trip.
	FindPageSize int
}

// DefaultConfig returns sensible defaults for a local CouchDB.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         5984,
		DBName:       "secvisogram",
		Timeout:      30 * time.Second,
		FindPageSize: 200,
	}
}

// dbNamePattern is CouchDB's rule for database names.
var dbNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("couchdb host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("couchdb port %d out of range", c.Port)
	}
	if !dbNamePattern.MatchString(c.DBName) {
		return fmt.Errorf("invalid couchdb database name %q", c.DBName)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("couchdb timeout must be positive")
	}
	return nil
}

// BaseURL returns the server URL, e.g. http://localhost:5984.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
