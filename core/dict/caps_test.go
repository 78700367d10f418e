package dict

import "testing"

func TestCapsForVersion(t *testing.T) {
	tests := []struct {
		version   string
		upsert    bool
		strict    bool
		unixepoch bool
	}{
		{"3.22.0", false, false, false},
		{"3.24.0", true, false, false},
		{"3.36.0", true, false, false},
		{"3.37.2", true, true, false},
		{"3.38.0", true, true, true},
		{"3.46.1", true, true, true},
		{"4.0.0", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			caps, err := capsForVersion(tt.version)
			if err != nil {
				t.Fatalf("capsForVersion(%q) failed: %v", tt.version, err)
			}
			if caps.upsert != tt.upsert {
				t.Errorf("upsert = %v, want %v", caps.upsert, tt.upsert)
			}
			if caps.strict != tt.strict {
				t.Errorf("strict = %v, want %v", caps.strict, tt.strict)
			}
			if caps.unixepoch != tt.unixepoch {
				t.Errorf("unixepoch = %v, want %v", caps.unixepoch, tt.unixepoch)
			}
		})
	}
}

func TestCapsForVersionUnparseable(t *testing.T) {
	for _, v := range []string{"", "3", "three.two", "x.y.z"} {
		if _, err := capsForVersion(v); err == nil {
			t.Errorf("capsForVersion(%q) should fail", v)
		}
	}
}

func TestCapsSQLFragments(t *testing.T) {
	modern := capabilities{upsert: true, strict: true, unixepoch: true}
	if modern.now() != "UNIXEPOCH()" {
		t.Errorf("now() = %q", modern.now())
	}
	if modern.valueType() != "ANY" {
		t.Errorf("valueType() = %q", modern.valueType())
	}
	if modern.tableTrailer() != " STRICT" {
		t.Errorf("tableTrailer() = %q", modern.tableTrailer())
	}

	legacy := capabilities{}
	if legacy.now() != "CAST(strftime('%s', 'now') AS INTEGER)" {
		t.Errorf("legacy now() = %q", legacy.now())
	}
	if legacy.valueType() != "BLOB" {
		t.Errorf("legacy valueType() = %q", legacy.valueType())
	}
	if legacy.tableTrailer() != "" {
		t.Errorf("legacy tableTrailer() = %q", legacy.tableTrailer())
	}
}

func TestOrderColumn(t *testing.T) {
	if col, err := Order("").column(); err != nil || col != "id" {
		t.Errorf("empty order = %q, %v; want id", col, err)
	}
	if col, err := OrderExpire.column(); err != nil || col != "expire" {
		t.Errorf("OrderExpire = %q, %v", col, err)
	}
	if _, err := Order("rowid; DROP TABLE x").column(); err == nil {
		t.Error("arbitrary order text should be rejected")
	}
}

func TestDirectionKeyword(t *testing.T) {
	if kw, err := Direction("").keyword(); err != nil || kw != "ASC" {
		t.Errorf("empty direction = %q, %v; want ASC", kw, err)
	}
	if kw, err := Desc.keyword(); err != nil || kw != "DESC" {
		t.Errorf("Desc = %q, %v", kw, err)
	}
	if _, err := Direction("SIDEWAYS").keyword(); err == nil {
		t.Error("unknown direction should be rejected")
	}
}
