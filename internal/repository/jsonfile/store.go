// Package jsonfile contains JSON-document implementations of repository interfaces.
package jsonfile

import (
	"path/filepath"
	"time"
)

// Default document names inside the data directory.
const (
	UsersFile    = "users.json"
	ProductsFile = "products.json"
)

// UsersPath returns the users document path under dir.
func UsersPath(dir string) string { return filepath.Join(dir, UsersFile) }

// ProductsPath returns the products document path under dir.
func ProductsPath(dir string) string { return filepath.Join(dir, ProductsFile) }

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
