package dialect

import "testing"

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"sqlite", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"", "sqlite", false},
		{"postgres", "postgres", false},
		{"PostgreSQL", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		d, err := FromDriverName(tt.driver)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FromDriverName(%q) error = nil, want error", tt.driver)
			}
			continue
		}
		if err != nil {
			t.Errorf("FromDriverName(%q) error = %v", tt.driver, err)
			continue
		}
		if d.Name() != tt.want {
			t.Errorf("FromDriverName(%q).Name() = %q, want %q", tt.driver, d.Name(), tt.want)
		}
	}
}

func TestPostgresRebind(t *testing.T) {
	d, _ := FromDriverName("postgres")

	got := d.Rebind("INSERT INTO runs (id, status) VALUES (?, ?)")
	want := "INSERT INTO runs (id, status) VALUES ($1, $2)"
	if got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}
}

func TestSQLiteRebindIsIdentity(t *testing.T) {
	d, _ := FromDriverName("sqlite")

	q := "SELECT * FROM runs WHERE id = ?"
	if got := d.Rebind(q); got != q {
		t.Errorf("Rebind() = %q, want unchanged", got)
	}
}
