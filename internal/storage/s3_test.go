package storage

import "testing"

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, id, name string
		want             string
	}{
		{"exports/", "abc", "receipt.zip", "exports/abc/receipt.zip"},
		{"", "abc", "receipt.png", "abc/receipt.png"},
		{"/a/b", "id", "x.png", "a/b/id/x.png"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.id, tt.name); got != tt.want {
			t.Errorf("ObjectKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.id, tt.name, got, tt.want)
		}
	}
}
