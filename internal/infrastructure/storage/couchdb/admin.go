package couchdb

import (
	"context"
	"fmt"
	"net/http"

	"csafcms/internal/core/apperror"
)

// ServerVersion returns the CouchDB version string, e.g. "3.2.2".
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, request{op: "server_info", method: http.MethodGet})
	if err != nil {
		return "", mapError(err, "", "")
	}

	var info struct {
		Version string `json:"version"`
	}
	if err := decode("server_info", resp, &info); err != nil {
		return "", err
	}
	return info.Version, nil
}

// DocumentCount returns the number of live documents in the database.
func (c *Client) DocumentCount(ctx context.Context) (int64, error) {
	resp, err := c.do(ctx, request{op: "db_info", method: http.MethodGet, path: c.dbPath()})
	if err != nil {
		if se, ok := err.(*statusError); ok && se.Status == http.StatusNotFound {
			return 0, apperror.NewNotFound("database", c.cfg.DBName).WithCause(se)
		}
		return 0, mapError(err, "", "")
	}

	var info struct {
		DocCount int64 `json:"doc_count"`
	}
	if err := decode("db_info", resp, &info); err != nil {
		return 0, err
	}
	return info.DocCount, nil
}

// CreateDatabase creates a database; an existing one yields CONFLICT.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	if !dbNamePattern.MatchString(name) {
		return apperror.NewInvalidRequest("invalid database name").WithDetail("name", name)
	}

	_, err := c.do(ctx, request{op: "create_db", method: http.MethodPut, path: []string{name}})
	if err != nil {
		if se, ok := err.(*statusError); ok && se.Status == http.StatusPreconditionFailed {
			return apperror.NewConflict("database", name, "").
				WithDetail("reason", fmt.Sprintf("cannot create %q database, it already exists", name)).
				WithCause(se)
		}
		return mapError(err, "", "")
	}

	c.log.WithContext(ctx).Infow("database created", "db", name)
	return nil
}

// EnsureDatabase creates the configured database unless it exists.
func (c *Client) EnsureDatabase(ctx context.Context) error {
	err := c.CreateDatabase(ctx, c.cfg.DBName)
	if apperror.IsConflict(err) {
		return nil
	}
	return err
}

// Ping checks that the server is up and ready to serve requests.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, request{op: "up", method: http.MethodGet, path: []string{"_up"}})
	if err != nil {
		return mapError(err, "", "")
	}
	return nil
}
