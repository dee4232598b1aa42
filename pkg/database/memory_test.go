package database

import "testing"

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}
