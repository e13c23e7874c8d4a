package migrations

import "testing"

func TestVersions_Ordered(t *testing.T) {
	versions, err := Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no embedded migrations")
	}
	if versions[0] != "001_generation_runs" {
		t.Errorf("first migration = %q", versions[0])
	}
	for i := 1; i < len(versions); i++ {
		if versions[i-1] >= versions[i] {
			t.Errorf("versions out of order: %q before %q", versions[i-1], versions[i])
		}
	}
}
