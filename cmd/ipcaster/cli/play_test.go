package cli

import "testing"

func TestRunPlayRejectsIncompleteStreamDeclaration(t *testing.T) {
	err := runPlay(playCmd, []string{"movie.ts", "127.0.0.1"})
	if err == nil {
		t.Fatal("expected an error for an incomplete {file ip port} group")
	}
}

func TestRunPlayRejectsInvalidPort(t *testing.T) {
	err := runPlay(playCmd, []string{"movie.ts", "127.0.0.1", "not-a-port"})
	if err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}
