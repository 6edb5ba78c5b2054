package auth

import (
	"testing"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher()

	tests := []struct {
		name     string
		password string
	}{
		{
			name:     "simple password",
			password: "password123",
		},
		{
			name:     "complex password",
			password: "P@ssw0rd!#$%^&*()",
		},
		{
			name:     "unicode password",
			password: "contraseña123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == "" || hash == tt.password {
				t.Errorf("Hash() returned %q", hash)
			}
			if !hasher.Verify(tt.password, hash) {
				t.Error("Verify() returned false for correct password")
			}
			if hasher.Verify(tt.password+"x", hash) {
				t.Error("Verify() returned true for wrong password")
			}
		})
	}
}

func TestPasswordHasher_UniqueHashes(t *testing.T) {
	hasher := NewPasswordHasher()
	password := "samepassword"

	hash1, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt salts every hash, so two hashes of the same password differ
	if hash1 == hash2 {
		t.Error("expected different hashes for the same password")
	}
}
