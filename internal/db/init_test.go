package db_test

import (
	"strings"
	"testing"

	"github.com/atinyakov/CatalogAdmin/internal/db"
)

func TestInitPostgres_Unreachable(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
		{"closed port", "postgres://console@127.0.0.1:1/console?sslmode=disable&connect_timeout=1", "ping postgres"},
		{"malformed URL", "postgres://%zz", "postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := db.InitPostgres(tc.dsn)
			if err == nil {
				conn.Close()
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}
