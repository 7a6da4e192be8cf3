package usecase

import (
	"errors"
	"testing"

	accountrepo "mailvault/internal/account/repository"
	maildomain "mailvault/internal/mail/domain"
	"mailvault/pkg/config"
	"mailvault/pkg/crypto"
)

func TestOAuthStateRoundtrip(t *testing.T) {
	db, cleanup := setupAccountTestDB(t)
	defer cleanup()

	secrets, err := crypto.NewBox("state-test-passphrase")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	u := &accountUsecase{
		accountRepo: accountrepo.NewAccountRepository(db),
		secrets:     secrets,
		config:      &config.Config{APIToken: "state-signing-token"},
	}

	state, err := u.signState()
	if err != nil {
		t.Fatalf("signState: %v", err)
	}
	if err := u.verifyState(state); err != nil {
		t.Fatalf("verifyState rejected own state: %v", err)
	}

	// Two states carry distinct nonces.
	other, err := u.signState()
	if err != nil {
		t.Fatalf("signState: %v", err)
	}
	if state == other {
		t.Fatal("states must not repeat")
	}
}

func TestOAuthStateRejectsForgery(t *testing.T) {
	db, cleanup := setupAccountTestDB(t)
	defer cleanup()

	secrets, err := crypto.NewBox("state-test-passphrase")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	signer := &accountUsecase{
		accountRepo: accountrepo.NewAccountRepository(db),
		secrets:     secrets,
		config:      &config.Config{APIToken: "signing-key-a"},
	}
	verifier := &accountUsecase{
		accountRepo: accountrepo.NewAccountRepository(db),
		secrets:     secrets,
		config:      &config.Config{APIToken: "signing-key-b"},
	}

	state, err := signer.signState()
	if err != nil {
		t.Fatalf("signState: %v", err)
	}

	for name, candidate := range map[string]string{
		"wrong key": state,
		"empty":     "",
		"not a jwt": "deadbeef",
		"alg none":  "eyJhbGciOiJub25lIn0.eyJub25jZSI6IngifQ.",
	} {
		if err := verifier.verifyState(candidate); !errors.Is(err, maildomain.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}
